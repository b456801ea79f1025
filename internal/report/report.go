// Package report renders dashboard data as markdown for the terminal client.
package report

import (
	"fmt"
	"strings"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
	"fintrack/internal/dashboard"
	"fintrack/internal/filter"
	"fintrack/internal/taxonomy"
)

// Transactions renders rows as a table, newest first as given.
func Transactions(rows []dashboard.Row) string {
	var b strings.Builder
	b.WriteString("## Transactions\n\n")
	if len(rows) == 0 {
		b.WriteString("No transactions found.\n")
		return b.String()
	}
	b.WriteString("| Date | Title | Category | Type | Amount | ID |\n")
	b.WriteString("|:---|:---|:---|:---|---:|:---|\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			r.Date, escape(r.Title), escape(r.Category), r.Kind, signed(r.Kind, r.Amount), r.ID)
	}
	return b.String()
}

// Totals renders the headline figures. A mismatch with the backend summary
// adds a note with the backend's figures.
func Totals(t core.Totals, backend core.Totals, mismatch bool) string {
	var b strings.Builder
	b.WriteString("## Summary\n\n")
	b.WriteString("| | Amount |\n|:---|---:|\n")
	fmt.Fprintf(&b, "| Income | %s |\n", t.TotalIncome)
	fmt.Fprintf(&b, "| Expenses | %s |\n", t.TotalExpenses)
	fmt.Fprintf(&b, "| **Balance** | **%s** |\n", balance(t.Balance))
	if mismatch {
		fmt.Fprintf(&b, "\n> Backend summary differs: income %s, expenses %s, balance %s.\n",
			backend.TotalIncome, backend.TotalExpenses, balance(backend.Balance))
	}
	return b.String()
}

// Trend renders one row per month.
func Trend(m aggregate.MonthlyTrend) string {
	var b strings.Builder
	b.WriteString("## Monthly trend\n\n")
	if m.Len() == 0 {
		b.WriteString("No data.\n")
		return b.String()
	}
	b.WriteString("| Month | Income | Expenses | Balance |\n")
	b.WriteString("|:---|---:|---:|---:|\n")
	for i, month := range m.Months {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", month, m.Incomes[i], m.Expenses[i], balance(m.Balances[i]))
	}
	return b.String()
}

// Breakdown renders category shares under the given heading.
func Breakdown(heading string, shares []aggregate.Share) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", heading)
	if len(shares) == 0 {
		b.WriteString("No data.\n")
		return b.String()
	}
	b.WriteString("| Category | Amount | Share |\n")
	b.WriteString("|:---|---:|---:|\n")
	for _, s := range shares {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", escape(s.Category), s.Amount, s.Percent)
	}
	return b.String()
}

// Categories lists the selectable categories for kind, or both kinds when
// kind is empty.
func Categories(t taxonomy.Table, kind core.Kind) string {
	var b strings.Builder
	for _, k := range []core.Kind{core.Income, core.Expense} {
		if kind != "" && kind != k {
			continue
		}
		fmt.Fprintf(&b, "## %s categories\n\n", title(k.String()))
		for _, c := range t.For(k) {
			fmt.Fprintf(&b, "- %s\n", escape(c))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Skipped lists records left out of a cycle.
func Skipped(skipped []aggregate.Skipped) string {
	if len(skipped) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "> %d record(s) skipped:\n", len(skipped))
	for _, s := range skipped {
		fmt.Fprintf(&b, "> - #%d (id %s): %s\n", s.Index, s.ID, s.Reason)
	}
	return b.String()
}

// Filter describes the active filter in one line.
func Filter(f filter.Filter) string {
	if f.IsZero() {
		return "_All transactions_\n"
	}
	var parts []string
	if f.StartDate != "" {
		parts = append(parts, "from "+f.StartDate)
	}
	if f.EndDate != "" {
		parts = append(parts, "to "+f.EndDate)
	}
	if f.Type != "" {
		parts = append(parts, "type "+f.Type)
	}
	if f.Category != "" {
		parts = append(parts, "category "+escape(f.Category))
	}
	return "_Filter: " + strings.Join(parts, ", ") + "_\n"
}

func signed(k core.Kind, amount string) string {
	if k == core.Expense {
		return "-" + amount
	}
	return amount
}

func balance(m core.Money) string {
	if m.IsNegative() {
		return "-" + m.String()
	}
	return m.String()
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var mdEscaper = strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`)

func escape(s string) string {
	return mdEscaper.Replace(s)
}
