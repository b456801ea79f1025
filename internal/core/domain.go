package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	DefaultIncomeCategory  = "Other Income"
	DefaultExpenseCategory = "Other Expense"
)

// DateLayout is the calendar date layout exchanged with the backend.
const DateLayout = "2006-01-02"

type (
	// Kind classifies a transaction as income or expense.
	Kind string

	// ID is a backend transaction identifier. It keeps the literal JSON
	// text the backend sent so it can be echoed back in request paths.
	ID string

	Date struct {
		time.Time
	}

	// Record is a transaction exactly as the backend sends it.
	Record struct {
		ID       ID     `json:"id"`
		Title    string `json:"title"`
		Amount   Money  `json:"amount"`
		Type     string `json:"type,omitempty"`
		Category string `json:"category,omitempty"`
		Date     string `json:"date"`
	}

	// Transaction is a Record classified once at ingestion. Kind and
	// Category are final; nothing downstream looks at the amount sign again.
	Transaction struct {
		ID        ID
		Title     string
		Amount    Money // signed, as received
		Magnitude Money // abs(Amount)
		Kind      Kind
		Category  string
		Date      Date
	}
)

var (
	ErrInvalidDate = errors.New("invalid date")
	ErrMissingDate = errors.New("missing date")
	ErrInvalidKind = errors.New("invalid transaction type")
)

// ParseKind accepts "income" or "expense" in any case.
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, true
	case Expense:
		return Expense, true
	default:
		return "", false
	}
}

func (k Kind) String() string {
	return string(k)
}

// DefaultCategory returns the fallback category for records without one.
func DefaultCategory(k Kind) string {
	if k == Expense {
		return DefaultExpenseCategory
	}
	return DefaultIncomeCategory
}

// ResolveKind applies the classification policy: a valid explicit type
// wins; otherwise the sign decides and zero counts as income.
func ResolveKind(explicit string, amount Money) Kind {
	if k, ok := ParseKind(explicit); ok {
		return k
	}
	if amount.IsNegative() {
		return Expense
	}
	return Income
}

// ParseDate parses a YYYY-MM-DD date. Longer ISO 8601 timestamps are
// accepted and truncated to their date part.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrMissingDate
	}
	if len(s) > len(DateLayout) && (s[len(DateLayout)] == 'T' || s[len(DateLayout)] == ' ') {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// Classify resolves kind and category for the record.
func (r Record) Classify() (Transaction, error) {
	date, err := ParseDate(r.Date)
	if err != nil {
		return Transaction{}, err
	}
	kind := ResolveKind(r.Type, r.Amount)
	category := strings.TrimSpace(r.Category)
	if category == "" {
		category = DefaultCategory(kind)
	}
	return Transaction{
		ID:        r.ID,
		Title:     r.Title,
		Amount:    r.Amount,
		Magnitude: r.Amount.Abs(),
		Kind:      kind,
		Category:  category,
		Date:      date,
	}, nil
}

// UnmarshalJSON accepts numeric and string identifiers.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid transaction id %s: %w", b, err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes numeric identifiers as numbers and anything else as a string.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsNumeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// IsNumeric reports whether the identifier is a JSON number literal.
func (id ID) IsNumeric() bool {
	if id == "" {
		return false
	}
	if _, err := strconv.ParseFloat(string(id), 64); err != nil {
		return false
	}
	return json.Valid([]byte(id))
}

func (id ID) String() string {
	return string(id)
}
