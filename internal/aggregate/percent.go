package aggregate

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Percent is a share of a total rounded to one decimal place.
type Percent struct {
	decimal.Decimal
}

// String renders the percent with one decimal and a trailing sign, e.g. "60.0%".
func (p Percent) String() string {
	return p.StringFixed(1) + "%"
}

// MarshalJSON writes the percent as a number with one decimal.
func (p Percent) MarshalJSON() ([]byte, error) {
	return []byte(p.StringFixed(1)), nil
}

// UnmarshalJSON reads a JSON number.
func (p *Percent) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return err
	}
	p.Decimal = d.Round(1)
	return nil
}

// Share is a breakdown entry with its percentage of the kind total.
type Share struct {
	Category string     `json:"category"`
	Amount   core.Money `json:"amount"`
	Percent  Percent    `json:"percent"`
}

// Percentages computes each entry's share of the entries' sum. The order of
// entries is preserved. A zero sum gives every entry 0%.
func Percentages(entries []core.CategoryAmount) []Share {
	var total int64
	for _, e := range entries {
		total += e.Amount.Abs().Cents
	}
	shares := make([]Share, 0, len(entries))
	for _, e := range entries {
		pct := decimal.Zero
		if total != 0 {
			pct = decimal.NewFromInt(e.Amount.Abs().Cents).
				Mul(hundred).
				DivRound(decimal.NewFromInt(total), 1)
		}
		shares = append(shares, Share{Category: e.Category, Amount: e.Amount, Percent: Percent{Decimal: pct}})
	}
	return shares
}
