// Package source defines the ports through which transactions are read
// and written, independent of where they live.
package source

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/filter"
)

// Ports for outbound adapters.
type (
	// TransactionLister returns the records matching a filter, in backend order.
	TransactionLister interface {
		ListTransactions(ctx context.Context, f filter.Filter) ([]core.Record, error)
	}

	// SummaryReader returns totals and breakdowns for a filter.
	SummaryReader interface {
		Summary(ctx context.Context, f filter.Filter) (core.Summary, error)
	}

	// TransactionWriter submits mutations. Submissions are already signed
	// to match their type.
	TransactionWriter interface {
		CreateTransaction(ctx context.Context, s core.Submission) (core.Result, error)
		UpdateTransaction(ctx context.Context, id core.ID, s core.Submission) (core.Result, error)
		DeleteTransaction(ctx context.Context, id core.ID) (core.Result, error)
	}

	// Reader is the read side used by the dashboard cycle.
	Reader interface {
		TransactionLister
		SummaryReader
	}

	// Source is a complete transaction backend.
	Source interface {
		Reader
		TransactionWriter
	}

	// Invalidator is implemented by sources that cache reads.
	Invalidator interface {
		Invalidate()
	}
)

// ErrReadOnly is returned by sources that cannot accept mutations.
var ErrReadOnly = errors.New("source is read-only")

// RejectedError is a failure reported by the backend itself, as opposed to
// a transport or decoding failure. Message is the backend's text verbatim.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("backend rejected request (%d): %s", e.Status, e.Message)
}

// IsRejected reports whether err carries a backend rejection and returns it.
func IsRejected(err error) (*RejectedError, bool) {
	var rej *RejectedError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
