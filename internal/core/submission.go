package core

import (
	"errors"
	"strings"
)

const maxTitleLength = 200

var (
	ErrEmptyTitle   = errors.New("empty title")
	ErrTitleTooLong = errors.New("title too long (max 200 characters)")
)

// Draft is transaction input as typed by the user, before validation.
type Draft struct {
	Title    string
	Amount   string
	Type     string
	Category string
	Date     string
}

// Submission is the body sent to POST /transactions and PUT /transactions/{id}.
type Submission struct {
	Title    string `json:"title"`
	Amount   Money  `json:"amount"`
	Type     Kind   `json:"type"`
	Category string `json:"category"`
	Date     string `json:"date"`
}

// FieldError ties a validation failure to the input field that caused it.
type FieldError struct {
	Field string
	Err   error
}

// ValidationError lists every problem found in a Draft.
type ValidationError struct {
	Problems []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Field+": "+p.Err.Error())
	}
	return "invalid transaction: " + strings.Join(parts, "; ")
}

// Unwrap exposes the sentinel errors so errors.Is matches any of them.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Problems))
	for _, p := range e.Problems {
		errs = append(errs, p.Err)
	}
	return errs
}

// Validate checks required fields, amount and date syntax, and the type.
func (d Draft) Validate() error {
	var problems []FieldError

	title := strings.TrimSpace(d.Title)
	switch {
	case title == "":
		problems = append(problems, FieldError{Field: "title", Err: ErrEmptyTitle})
	case len(title) > maxTitleLength:
		problems = append(problems, FieldError{Field: "title", Err: ErrTitleTooLong})
	}

	if _, err := ParseAmount(d.Amount); err != nil {
		problems = append(problems, FieldError{Field: "amount", Err: err})
	}

	if _, ok := ParseKind(d.Type); !ok {
		problems = append(problems, FieldError{Field: "type", Err: ErrInvalidKind})
	}

	if _, err := ParseDate(d.Date); err != nil {
		if !errors.Is(err, ErrMissingDate) {
			err = ErrInvalidDate
		}
		problems = append(problems, FieldError{Field: "date", Err: err})
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Normalize validates the draft and produces a Submission whose amount
// sign matches its type: abs(value) for income, -abs(value) for expense.
// An empty category becomes the type's default.
func (d Draft) Normalize() (Submission, error) {
	if err := d.Validate(); err != nil {
		return Submission{}, err
	}
	amount, _ := ParseAmount(d.Amount)
	kind, _ := ParseKind(d.Type)
	date, _ := ParseDate(d.Date)

	amount = SignFor(kind, amount)

	category := strings.TrimSpace(d.Category)
	if category == "" {
		category = DefaultCategory(kind)
	}

	return Submission{
		Title:    strings.TrimSpace(d.Title),
		Amount:   amount,
		Type:     kind,
		Category: category,
		Date:     date.String(),
	}, nil
}

// SignFor returns the magnitude of m signed for the kind.
func SignFor(k Kind, m Money) Money {
	if k == Expense {
		return m.Abs().Neg()
	}
	return m.Abs()
}
