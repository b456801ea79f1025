package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Category string `json:"category"`
	Amount   Money  `json:"amount"`
}

// Totals are the headline income, expense and balance figures.
type Totals struct {
	TotalIncome   Money `json:"total_income"`
	TotalExpenses Money `json:"total_expenses"`
	Balance       Money `json:"balance"`
}

// NewTotals derives the balance from non-negative income and expense sums.
func NewTotals(income, expenses Money) Totals {
	return Totals{
		TotalIncome:   income,
		TotalExpenses: expenses,
		Balance:       income.Sub(expenses),
	}
}

// Summary is the payload of the backend /summary endpoint.
type Summary struct {
	Totals
	ExpenseBreakdown []CategoryAmount `json:"expense_breakdown"`
	IncomeBreakdown  []CategoryAmount `json:"income_breakdown"`
}

// Result is the backend reply to a mutation.
type Result struct {
	Success     bool    `json:"success"`
	Message     string  `json:"message,omitempty"`
	Transaction *Record `json:"transaction,omitempty"`
}
