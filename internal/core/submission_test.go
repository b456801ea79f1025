package core

import (
	"errors"
	"strings"
	"testing"
)

func TestDraftNormalize(t *testing.T) {
	cases := []struct {
		name     string
		draft    Draft
		cents    int64
		kind     Kind
		category string
	}{
		{"expense gets negative sign", Draft{Title: "Coffee", Amount: "3.20", Type: "expense", Date: "2024-02-01"}, -320, Expense, DefaultExpenseCategory},
		{"expense already negative", Draft{Title: "Coffee", Amount: "-3.20", Type: "expense", Category: "Food", Date: "2024-02-01"}, -320, Expense, "Food"},
		{"income loses negative sign", Draft{Title: "Refund", Amount: "-10", Type: "income", Date: "2024-02-01"}, 1000, Income, DefaultIncomeCategory},
		{"comma decimal", Draft{Title: "Pay", Amount: "1500,5", Type: "Income", Category: "Salary", Date: "2024-02-01"}, 150050, Income, "Salary"},
		{"zero allowed", Draft{Title: "Nothing", Amount: "0", Type: "expense", Date: "2024-02-01"}, 0, Expense, DefaultExpenseCategory},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub, err := tc.draft.Normalize()
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			if sub.Amount.Cents != tc.cents || sub.Type != tc.kind || sub.Category != tc.category {
				t.Fatalf("got %+v", sub)
			}
			if sub.Date != "2024-02-01" {
				t.Fatalf("date = %q", sub.Date)
			}
		})
	}
}

func TestDraftValidate(t *testing.T) {
	err := Draft{Amount: "abc", Type: "transfer", Date: "01/02/2024"}.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Problems) != 4 {
		t.Fatalf("expected 4 problems, got %d: %v", len(verr.Problems), err)
	}
	for _, sentinel := range []error{ErrEmptyTitle, ErrInvalidAmount, ErrInvalidKind, ErrInvalidDate} {
		if !errors.Is(err, sentinel) {
			t.Fatalf("expected %v in %v", sentinel, err)
		}
	}

	err = Draft{Title: strings.Repeat("x", 201), Amount: "1", Type: "income", Date: "2024-01-01"}.Validate()
	if !errors.Is(err, ErrTitleTooLong) {
		t.Fatalf("expected ErrTitleTooLong, got %v", err)
	}

	err = Draft{Title: "x", Type: "income"}.Validate()
	if !errors.Is(err, ErrMissingAmount) || !errors.Is(err, ErrMissingDate) {
		t.Fatalf("expected missing amount and date, got %v", err)
	}

	if err := (Draft{Title: "ok", Amount: "1", Type: "expense", Date: "2024-01-01"}).Validate(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestNewTotals(t *testing.T) {
	totals := NewTotals(Pounds(2000), Pence(54250))
	if totals.Balance.Cents != 145750 {
		t.Fatalf("balance = %d", totals.Balance.Cents)
	}
}

func TestNormalizeRejectsHugeAmount(t *testing.T) {
	for _, amount := range []string{"1e30", "-1e30", "99999999999999999999"} {
		_, err := Draft{Title: "Lottery", Amount: amount, Type: "income", Date: "2024-01-01"}.Normalize()
		var verr *ValidationError
		if !errors.As(err, &verr) || !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Normalize(amount %s) error = %v, want amount ValidationError", amount, err)
		}
	}
}
