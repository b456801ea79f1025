package filter

import (
	"net/url"
	"testing"

	"fintrack/internal/core"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name                          string
		start, end, txType, category string
		want                          url.Values
	}{
		{name: "all unset", want: url.Values{}},
		{name: "type all omitted", txType: "all", want: url.Values{}},
		{name: "case-insensitive all", txType: "ALL", category: "All", want: url.Values{}},
		{name: "blank omitted", start: "  ", category: " ", want: url.Values{}},
		{
			name:  "dates only",
			start: "2024-01-01", end: "2024-01-31",
			want: url.Values{"start_date": {"2024-01-01"}, "end_date": {"2024-01-31"}},
		},
		{
			name:   "reversed range is not validated",
			start:  "2024-02-01", end: "2024-01-01", txType: "expense", category: "Food & Dining",
			want: url.Values{
				"start_date": {"2024-02-01"},
				"end_date":   {"2024-01-01"},
				"type":       {"expense"},
				"category":   {"Food & Dining"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildQuery(tt.start, tt.end, tt.txType, tt.category)
			if got.Encode() != tt.want.Encode() {
				t.Fatalf("BuildQuery() = %q, want %q", got.Encode(), tt.want.Encode())
			}
		})
	}
}

func TestEncode(t *testing.T) {
	if got := (Filter{}).Encode(); got != "" {
		t.Fatalf("empty filter encoded as %q", got)
	}
	if got := (Filter{Type: "all"}).Encode(); got != "" {
		t.Fatalf("type=all encoded as %q", got)
	}
	got := New("2024-01-01", "", "income", "Salary").Encode()
	if got != "?category=Salary&start_date=2024-01-01&type=income" {
		t.Fatalf("unexpected encoding %q", got)
	}
}

func TestFromValues(t *testing.T) {
	f := FromValues(url.Values{"type": {"all"}, "category": {"Food"}, "end_date": {"2024-03-31"}})
	want := Filter{EndDate: "2024-03-31", Category: "Food"}
	if f != want {
		t.Fatalf("FromValues() = %+v, want %+v", f, want)
	}
	if !(Filter{}).IsZero() || want.IsZero() {
		t.Fatalf("IsZero mismatch")
	}
}

func TestMatch(t *testing.T) {
	records := []core.Record{
		{ID: "1", Title: "Salary", Amount: core.Pounds(2000), Category: "Salary", Date: "2024-01-05"},
		{ID: "2", Title: "Rent", Amount: core.Pounds(-500), Category: "Housing", Date: "2024-01-10"},
		{ID: "3", Title: "Food", Amount: core.Pounds(-30), Date: "2024-02-01"},
		{ID: "4", Title: "Refund", Amount: core.Pounds(-20), Type: "income", Date: "2024-02-03T12:00:00"},
	}

	tests := []struct {
		name   string
		filter Filter
		want   []core.ID
	}{
		{"no filter", Filter{}, []core.ID{"1", "2", "3", "4"}},
		{"inclusive range", Filter{StartDate: "2024-01-10", EndDate: "2024-02-01"}, []core.ID{"2", "3"}},
		{"timestamp date truncated", Filter{StartDate: "2024-02-03", EndDate: "2024-02-03"}, []core.ID{"4"}},
		{"explicit type wins", Filter{Type: "income"}, []core.ID{"1", "4"}},
		{"expense", Filter{Type: "Expense"}, []core.ID{"2", "3"}},
		{"defaulted category", Filter{Category: core.DefaultExpenseCategory}, []core.ID{"3"}},
		{"category all", Filter{Category: "all"}, []core.ID{"1", "2", "3", "4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(records)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.want))
			}
			for i, r := range got {
				if r.ID != tt.want[i] {
					t.Fatalf("record %d: id %s, want %s", i, r.ID, tt.want[i])
				}
			}
		})
	}
}
