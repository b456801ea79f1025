// Package chart builds configurations for an external charting library
// and tracks which charts have been rendered.
package chart

import (
	"encoding/json"
	"fmt"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
)

// Chart identifiers.
const (
	IDIncomeExpense     = "income-expense-chart"
	IDExpenseCategories = "expense-categories-chart"
	IDIncomeCategories  = "income-categories-chart"
	IDTrends            = "trends-chart"
)

// Chart types understood by the charting library.
const (
	TypeBar      = "bar"
	TypeDoughnut = "doughnut"
	TypePie      = "pie"
	TypeLine     = "line"
)

// Tooltip formats the front end applies to raw values.
const (
	TooltipCurrency = "currency"        // "£12.34"
	TooltipShare    = "currency_share"  // "£12.34 (40.0%)"
	TooltipSeries   = "series_currency" // "Income: £12.34"
)

const amountLabel = "Amount (" + core.CurrencySymbol + ")"

// Color is an RGBA colour.
type Color struct {
	R, G, B uint8
	A       float64
}

// WithAlpha returns the colour with a different opacity.
func (c Color) WithAlpha(a float64) Color {
	c.A = a
	return c
}

func (c Color) String() string {
	return fmt.Sprintf("rgba(%d, %d, %d, %g)", c.R, c.G, c.B, c.A)
}

// Palette.
var (
	IncomeColor  = Color{76, 175, 80, 0.8}
	ExpenseColor = Color{244, 67, 54, 0.8}
	BalanceColor = Color{25, 118, 210, 0.8}

	CategoryColors = []Color{
		{33, 150, 243, 0.8},
		{156, 39, 176, 0.8},
		{255, 152, 0, 0.8},
		{0, 188, 212, 0.8},
		{76, 175, 80, 0.8},
		{233, 30, 99, 0.8},
		{121, 85, 72, 0.8},
		{63, 81, 181, 0.8},
		{255, 87, 34, 0.8},
		{96, 125, 139, 0.8},
		{0, 150, 136, 0.8},
		{255, 193, 7, 0.8},
	}
)

// CategoryColor cycles through CategoryColors.
func CategoryColor(i int) Color {
	return CategoryColors[i%len(CategoryColors)]
}

// Paint is either one colour for the whole dataset or one per point.
type Paint struct {
	solid    string
	perPoint []string
}

// Solid paints a whole dataset with c.
func Solid(c Color) Paint { return Paint{solid: c.String()} }

// PerPoint paints each data point with its own colour.
func PerPoint(cs []Color) Paint {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return Paint{perPoint: out}
}

func (p Paint) MarshalJSON() ([]byte, error) {
	if p.perPoint != nil {
		return json.Marshal(p.perPoint)
	}
	return json.Marshal(p.solid)
}

func (p *Paint) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '[' {
		p.solid = ""
		return json.Unmarshal(b, &p.perPoint)
	}
	p.perPoint = nil
	return json.Unmarshal(b, &p.solid)
}

// Values returns the colours, one entry for a solid paint.
func (p Paint) Values() []string {
	if p.perPoint != nil {
		return p.perPoint
	}
	return []string{p.solid}
}

type (
	// Config is a complete chart configuration.
	Config struct {
		Type    string  `json:"type"`
		Data    Data    `json:"data"`
		Options Options `json:"options"`
	}

	Data struct {
		Labels   []string  `json:"labels"`
		Datasets []Dataset `json:"datasets"`
	}

	Dataset struct {
		Label           string    `json:"label"`
		Data            []float64 `json:"data"`
		Shares          []float64 `json:"shares,omitempty"`
		BackgroundColor Paint     `json:"backgroundColor"`
		BorderColor     Paint     `json:"borderColor"`
		BorderWidth     int       `json:"borderWidth"`
		Tension         float64   `json:"tension,omitempty"`
		Fill            bool      `json:"fill,omitempty"`
	}

	Options struct {
		Responsive          bool    `json:"responsive"`
		MaintainAspectRatio bool    `json:"maintainAspectRatio"`
		Plugins             Plugins `json:"plugins"`
		Scales              *Scales `json:"scales,omitempty"`
	}

	Plugins struct {
		Legend  Legend  `json:"legend"`
		Title   Title   `json:"title"`
		Tooltip Tooltip `json:"tooltip"`
	}

	Legend struct {
		Position string `json:"position"`
	}

	Title struct {
		Display bool   `json:"display"`
		Text    string `json:"text"`
		Font    Font   `json:"font"`
	}

	Font struct {
		Size int `json:"size"`
	}

	Tooltip struct {
		Format string `json:"format"`
		Symbol string `json:"symbol"`
	}

	Scales struct {
		Y Axis `json:"y"`
	}

	Axis struct {
		BeginAtZero bool  `json:"beginAtZero"`
		Ticks       Ticks `json:"ticks"`
	}

	Ticks struct {
		Prefix string `json:"prefix"`
	}
)

func baseOptions(title, legend, tooltip string) Options {
	return Options{
		Responsive:          true,
		MaintainAspectRatio: false,
		Plugins: Plugins{
			Legend:  Legend{Position: legend},
			Title:   Title{Display: true, Text: title, Font: Font{Size: 16}},
			Tooltip: Tooltip{Format: tooltip, Symbol: core.CurrencySymbol},
		},
	}
}

// IncomeExpense is the bar chart of total income, expenses and balance.
func IncomeExpense(t core.Totals) Config {
	colors := []Color{IncomeColor, ExpenseColor, BalanceColor}
	opts := baseOptions("Income vs Expenses Summary", "top", TooltipCurrency)
	opts.Scales = &Scales{Y: Axis{BeginAtZero: true, Ticks: Ticks{Prefix: core.CurrencySymbol}}}
	return Config{
		Type: TypeBar,
		Data: Data{
			Labels: []string{"Income", "Expenses", "Balance"},
			Datasets: []Dataset{{
				Label:           amountLabel,
				Data:            []float64{t.TotalIncome.Float(), t.TotalExpenses.Float(), t.Balance.Float()},
				BackgroundColor: PerPoint(colors),
				BorderColor:     PerPoint(opaque(colors)),
				BorderWidth:     1,
			}},
		},
		Options: opts,
	}
}

// ExpenseCategories is the doughnut chart of the expense breakdown.
func ExpenseCategories(shares []aggregate.Share) Config {
	return categories(TypeDoughnut, "Expense Categories", shares)
}

// IncomeCategories is the pie chart of the income breakdown.
func IncomeCategories(shares []aggregate.Share) Config {
	return categories(TypePie, "Income Categories", shares)
}

func categories(typ, title string, shares []aggregate.Share) Config {
	labels := make([]string, len(shares))
	values := make([]float64, len(shares))
	pct := make([]float64, len(shares))
	colors := make([]Color, len(shares))
	for i, s := range shares {
		labels[i] = s.Category
		values[i] = s.Amount.Float()
		pct[i] = s.Percent.InexactFloat64()
		colors[i] = CategoryColor(i)
	}
	return Config{
		Type: typ,
		Data: Data{
			Labels: labels,
			Datasets: []Dataset{{
				Label:           amountLabel,
				Data:            values,
				Shares:          pct,
				BackgroundColor: PerPoint(colors),
				BorderColor:     PerPoint(opaque(colors)),
				BorderWidth:     1,
			}},
		},
		Options: baseOptions(title, "right", TooltipShare),
	}
}

// Trends is the line chart of monthly income, expenses and balance.
func Trends(tr aggregate.MonthlyTrend) Config {
	series := func(label string, c Color, ms []core.Money) Dataset {
		data := make([]float64, len(ms))
		for i, m := range ms {
			data[i] = m.Float()
		}
		return Dataset{
			Label:           label,
			Data:            data,
			BackgroundColor: Solid(c.WithAlpha(0.2)),
			BorderColor:     Solid(c.WithAlpha(1)),
			BorderWidth:     2,
			Tension:         0.4,
			Fill:            true,
		}
	}
	opts := baseOptions("Monthly Financial Trends", "top", TooltipSeries)
	opts.Scales = &Scales{Y: Axis{Ticks: Ticks{Prefix: core.CurrencySymbol}}}
	return Config{
		Type: TypeLine,
		Data: Data{
			Labels: append([]string{}, tr.Months...),
			Datasets: []Dataset{
				series("Income", IncomeColor, tr.Incomes),
				series("Expenses", ExpenseColor, tr.Expenses),
				series("Balance", BalanceColor, tr.Balances),
			},
		},
		Options: opts,
	}
}

func opaque(cs []Color) []Color {
	out := make([]Color, len(cs))
	for i, c := range cs {
		out[i] = c.WithAlpha(1)
	}
	return out
}
