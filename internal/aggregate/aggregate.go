// Package aggregate derives chart-ready datasets from classified
// transactions: the monthly trend, per-category breakdowns and totals.
//
// Every function is pure. Inputs are never reordered or mutated.
package aggregate

import (
	"cmp"
	"slices"
	"time"

	"fintrack/internal/core"
)

// MonthLabelLayout renders bucket keys such as "Jan 2024".
const MonthLabelLayout = "Jan 2006"

// Skipped describes a record left out of ingestion.
type Skipped struct {
	Index  int     `json:"index"`
	ID     core.ID `json:"id"`
	Reason string  `json:"reason"`
}

// Ingested is the result of classifying a batch of backend records.
type Ingested struct {
	Transactions []core.Transaction
	Skipped      []Skipped
}

// Ingest classifies every record once. Records whose date cannot be
// parsed are reported in Skipped and excluded from Transactions.
func Ingest(records []core.Record) Ingested {
	out := Ingested{
		Transactions: make([]core.Transaction, 0, len(records)),
	}
	for i, r := range records {
		tx, err := r.Classify()
		if err != nil {
			out.Skipped = append(out.Skipped, Skipped{Index: i, ID: r.ID, Reason: err.Error()})
			continue
		}
		out.Transactions = append(out.Transactions, tx)
	}
	return out
}

// MonthlyTrend holds four parallel series of equal length, one entry per
// calendar month, ascending.
type MonthlyTrend struct {
	Months   []string     `json:"months"`
	Incomes  []core.Money `json:"incomes"`
	Expenses []core.Money `json:"expenses"`
	Balances []core.Money `json:"balances"`
}

// Len returns the number of months in the trend.
func (m MonthlyTrend) Len() int { return len(m.Months) }

type monthKey struct {
	year  int
	month time.Month
}

func (k monthKey) compare(o monthKey) int {
	if c := cmp.Compare(k.year, o.year); c != 0 {
		return c
	}
	return cmp.Compare(k.month, o.month)
}

type monthBucket struct {
	income  core.Money
	expense core.Money
}

// GroupByMonth buckets transactions by (year, month) and returns the
// series in chronological order. Empty input yields empty, non-nil series.
func GroupByMonth(txs []core.Transaction) MonthlyTrend {
	buckets := make(map[monthKey]*monthBucket)
	for _, tx := range txs {
		k := monthKey{year: tx.Date.Year(), month: tx.Date.Month()}
		b, ok := buckets[k]
		if !ok {
			b = &monthBucket{}
			buckets[k] = b
		}
		switch tx.Kind {
		case core.Income:
			b.income = b.income.Add(tx.Magnitude)
		case core.Expense:
			b.expense = b.expense.Add(tx.Magnitude)
		}
	}

	keys := make([]monthKey, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, monthKey.compare)

	trend := MonthlyTrend{
		Months:   make([]string, 0, len(keys)),
		Incomes:  make([]core.Money, 0, len(keys)),
		Expenses: make([]core.Money, 0, len(keys)),
		Balances: make([]core.Money, 0, len(keys)),
	}
	for _, k := range keys {
		b := buckets[k]
		trend.Months = append(trend.Months, time.Date(k.year, k.month, 1, 0, 0, 0, 0, time.UTC).Format(MonthLabelLayout))
		trend.Incomes = append(trend.Incomes, b.income)
		trend.Expenses = append(trend.Expenses, b.expense)
		trend.Balances = append(trend.Balances, b.income.Sub(b.expense))
	}
	return trend
}

// BreakdownByCategory sums magnitudes per category for one kind, ordered
// by amount descending. Ties keep the order categories were first seen.
func BreakdownByCategory(txs []core.Transaction, kind core.Kind) []core.CategoryAmount {
	index := make(map[string]int)
	entries := make([]core.CategoryAmount, 0)
	for _, tx := range txs {
		if tx.Kind != kind {
			continue
		}
		i, ok := index[tx.Category]
		if !ok {
			i = len(entries)
			index[tx.Category] = i
			entries = append(entries, core.CategoryAmount{Category: tx.Category})
		}
		entries[i].Amount = entries[i].Amount.Add(tx.Magnitude)
	}
	SortBreakdown(entries)
	return entries
}

// SortBreakdown orders entries by amount descending in place, keeping the
// relative order of equal amounts.
func SortBreakdown(entries []core.CategoryAmount) {
	slices.SortStableFunc(entries, func(a, b core.CategoryAmount) int {
		return cmp.Compare(b.Amount.Cents, a.Amount.Cents)
	})
}

// ComputeTotals sums income and expense magnitudes.
func ComputeTotals(txs []core.Transaction) core.Totals {
	var income, expense core.Money
	for _, tx := range txs {
		switch tx.Kind {
		case core.Income:
			income = income.Add(tx.Magnitude)
		case core.Expense:
			expense = expense.Add(tx.Magnitude)
		}
	}
	return core.NewTotals(income, expense)
}

// Summarize builds the backend /summary payload from transactions.
func Summarize(txs []core.Transaction) core.Summary {
	return core.Summary{
		Totals:           ComputeTotals(txs),
		ExpenseBreakdown: BreakdownByCategory(txs, core.Expense),
		IncomeBreakdown:  BreakdownByCategory(txs, core.Income),
	}
}
