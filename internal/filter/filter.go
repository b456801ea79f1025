// Package filter holds the query parameter contract shared by the client
// and the backend for /transactions and /summary.
package filter

import (
	"net/url"
	"strings"

	"fintrack/internal/core"
)

// Query parameter names.
const (
	ParamStartDate = "start_date"
	ParamEndDate   = "end_date"
	ParamType      = "type"
	ParamCategory  = "category"
)

// All is the sentinel value meaning "no constraint" for type and category.
const All = "all"

// Filter is an optional date range plus type and category constraints.
// Zero values mean unconstrained.
type Filter struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Type      string `json:"type,omitempty"`
	Category  string `json:"category,omitempty"`
}

// BuildQuery turns raw filter inputs into query parameters. Blank values
// are omitted, as are type and category equal to "all" in any case. Dates
// are passed through without validation.
func BuildQuery(startDate, endDate, txType, category string) url.Values {
	return New(startDate, endDate, txType, category).Values()
}

// New normalizes raw inputs into a Filter.
func New(startDate, endDate, txType, category string) Filter {
	return Filter{
		StartDate: strings.TrimSpace(startDate),
		EndDate:   strings.TrimSpace(endDate),
		Type:      dropAll(txType),
		Category:  dropAll(category),
	}
}

func dropAll(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, All) {
		return ""
	}
	return s
}

// FromValues reads a Filter from request query parameters.
func FromValues(v url.Values) Filter {
	return New(v.Get(ParamStartDate), v.Get(ParamEndDate), v.Get(ParamType), v.Get(ParamCategory))
}

// IsZero reports whether the filter constrains nothing.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Values returns the query parameters for the filter.
func (f Filter) Values() url.Values {
	v := url.Values{}
	if f.StartDate != "" {
		v.Set(ParamStartDate, f.StartDate)
	}
	if f.EndDate != "" {
		v.Set(ParamEndDate, f.EndDate)
	}
	if t := dropAll(f.Type); t != "" {
		v.Set(ParamType, t)
	}
	if c := dropAll(f.Category); c != "" {
		v.Set(ParamCategory, c)
	}
	return v
}

// Encode returns "?"-prefixed query text, or "" when the filter is empty.
func (f Filter) Encode() string {
	v := f.Values()
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// Match reports whether a record passes the filter. Dates compare
// lexically and inclusively. Type and category compare against the
// record's resolved classification.
func (f Filter) Match(r core.Record) bool {
	date := strings.TrimSpace(r.Date)
	if d, err := core.ParseDate(date); err == nil {
		date = d.String()
	}
	if f.StartDate != "" && date < f.StartDate {
		return false
	}
	if f.EndDate != "" && date > f.EndDate {
		return false
	}

	kind := core.ResolveKind(r.Type, r.Amount)
	if t := dropAll(f.Type); t != "" && !strings.EqualFold(t, kind.String()) {
		return false
	}

	if c := dropAll(f.Category); c != "" {
		category := strings.TrimSpace(r.Category)
		if category == "" {
			category = core.DefaultCategory(kind)
		}
		if category != c {
			return false
		}
	}
	return true
}

// Apply returns the records that pass the filter, in their original order.
func (f Filter) Apply(records []core.Record) []core.Record {
	out := make([]core.Record, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}
