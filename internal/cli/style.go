package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"fintrack/internal/core"
)

var (
	incomeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	expenseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).Width(10)
	summaryStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2)
)

// renderTotals draws the headline figures in a box, income green,
// expenses red and the balance coloured by its sign.
func renderTotals(t core.Totals) string {
	balance := incomeStyle
	sign := ""
	if t.Balance.IsNegative() {
		balance = expenseStyle
		sign = "-"
	}
	return summaryStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		fmt.Sprintf("%s %s", labelStyle.Render("Income"), incomeStyle.Render(t.TotalIncome.String())),
		fmt.Sprintf("%s %s", labelStyle.Render("Expenses"), expenseStyle.Render(t.TotalExpenses.String())),
		fmt.Sprintf("%s %s", labelStyle.Render("Balance"), balance.Bold(true).Render(sign+t.Balance.String())),
	))
}
