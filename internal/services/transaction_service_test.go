package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/dashboard"
	"fintrack/internal/log"
	"fintrack/internal/source"
	"fintrack/internal/source/memory"
)

type notification struct {
	reason string
	id     core.ID
}

type fakeNotifier struct {
	mu     sync.Mutex
	calls  []notification
	err    error
	closed bool
}

func (f *fakeNotifier) NotifyRefresh(_ context.Context, reason string, id core.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notification{reason, id})
	return f.err
}

func (f *fakeNotifier) Close() error {
	f.closed = true
	return nil
}

type fakeStatus struct {
	level, message string
}

func (f *fakeStatus) SetStatus(level, message string) {
	f.level, f.message = level, message
}

// brokenWriter fails every call as a transport error would.
type brokenWriter struct{}

func (brokenWriter) CreateTransaction(context.Context, core.Submission) (core.Result, error) {
	return core.Result{}, errors.New("connection refused")
}

func (brokenWriter) UpdateTransaction(context.Context, core.ID, core.Submission) (core.Result, error) {
	return core.Result{}, errors.New("connection refused")
}

func (brokenWriter) DeleteTransaction(context.Context, core.ID) (core.Result, error) {
	return core.Result{}, errors.New("connection refused")
}

func validDraft() core.Draft {
	return core.Draft{Title: "Groceries", Amount: "45.20", Type: "expense", Date: "2024-03-02"}
}

func TestTransactionService_Create(t *testing.T) {
	store := memory.New(nil)
	notifier := &fakeNotifier{}
	status := &fakeStatus{}
	svc := NewTransactionService(store, notifier, status, nil)

	res, err := svc.Create(context.Background(), validDraft())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !res.Success || res.Transaction == nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Transaction.Amount.Cents != -4520 || res.Transaction.Category != core.DefaultExpenseCategory {
		t.Errorf("submission not normalized: %+v", res.Transaction)
	}
	if status.level != dashboard.LevelSuccess || status.message != MsgAdded {
		t.Errorf("status = %+v", status)
	}
	if len(notifier.calls) != 1 || notifier.calls[0].reason != "created" || notifier.calls[0].id != res.Transaction.ID {
		t.Errorf("notifications = %+v", notifier.calls)
	}
}

func TestTransactionService_ValidationSendsNothing(t *testing.T) {
	store := memory.New(nil)
	notifier := &fakeNotifier{}
	status := &fakeStatus{}
	svc := NewTransactionService(store, notifier, status, nil)

	_, err := svc.Create(context.Background(), core.Draft{Title: "x", Amount: "abc", Type: "expense", Date: "2024-03-02"})
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.Len() != 0 || len(notifier.calls) != 0 || status.message != "" {
		t.Errorf("validation failure had side effects: len=%d calls=%d status=%q", store.Len(), len(notifier.calls), status.message)
	}
}

func TestTransactionService_Failures(t *testing.T) {
	tests := []struct {
		name    string
		svc     func(*fakeStatus) *TransactionService
		call    func(*TransactionService) error
		message string
	}{
		{
			name: "update of unknown id carries backend message",
			svc: func(st *fakeStatus) *TransactionService {
				return NewTransactionService(memory.New(nil), nil, st, nil)
			},
			call: func(s *TransactionService) error {
				_, err := s.Update(context.Background(), "42", validDraft())
				return err
			},
			message: "Error updating transaction: Transaction not found",
		},
		{
			name: "delete of unknown id carries backend message",
			svc: func(st *fakeStatus) *TransactionService {
				return NewTransactionService(memory.New(nil), nil, st, nil)
			},
			call: func(s *TransactionService) error {
				_, err := s.Delete(context.Background(), "42")
				return err
			},
			message: "Error deleting transaction: Transaction not found",
		},
		{
			name: "transport failure gets generic message",
			svc: func(st *fakeStatus) *TransactionService {
				return NewTransactionService(brokenWriter{}, nil, st, nil)
			},
			call: func(s *TransactionService) error {
				_, err := s.Create(context.Background(), validDraft())
				return err
			},
			message: "Error saving transaction. Please try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &fakeStatus{}
			if err := tt.call(tt.svc(st)); err == nil {
				t.Fatal("expected error")
			}
			if st.level != dashboard.LevelError || st.message != tt.message {
				t.Errorf("status = %+v, want %q", st, tt.message)
			}
		})
	}
}

func TestTransactionService_UpdateAndDelete(t *testing.T) {
	store := memory.New([]core.Record{
		{ID: "1", Title: "Rent", Amount: core.Pounds(-500), Type: "expense", Category: "Housing", Date: "2024-01-10"},
	})
	notifier := &fakeNotifier{}
	svc := NewTransactionService(store, notifier, nil, nil)

	d := validDraft()
	d.Type, d.Category = "income", "Refund"
	res, err := svc.Update(context.Background(), "1", d)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if res.Transaction.Amount.Cents != 4520 || res.Transaction.Type != "income" {
		t.Errorf("update not re-signed: %+v", res.Transaction)
	}

	if _, err := svc.Delete(context.Background(), "1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("store still holds %d records", store.Len())
	}
	if len(notifier.calls) != 2 || notifier.calls[1] != (notification{"deleted", "1"}) {
		t.Errorf("notifications = %+v", notifier.calls)
	}
}

func TestTransactionService_NotifierFailureIsNotFatal(t *testing.T) {
	svc := NewTransactionService(memory.New(nil), &fakeNotifier{err: errors.New("circuit breaker is open")}, nil, nil)
	if _, err := svc.Create(context.Background(), validDraft()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
}

func TestFailureMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&source.RejectedError{Status: 400, Message: "Missing required fields"}, "Error saving transaction: Missing required fields"},
		{fmt.Errorf("wrapped: %w", &source.RejectedError{Status: 500}), "Error saving transaction. Please try again."},
		{errors.New("timeout"), "Error saving transaction. Please try again."},
	}
	for _, tt := range tests {
		if got := FailureMessage("saving", tt.err); got != tt.want {
			t.Errorf("FailureMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestTransactionService_Close(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		svc := &TransactionService{}
		if err := svc.Close(); err != nil {
			t.Fatalf("Close should not return error with nil components: %v", err)
		}
	})

	t.Run("closes notifier", func(t *testing.T) {
		n := &fakeNotifier{}
		svc := NewTransactionService(memory.New(nil), n, nil, nil)
		if err := svc.Close(); err != nil || !n.closed {
			t.Fatalf("Close() err=%v closed=%v", err, n.closed)
		}
	})
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"none", nil, ""},
		{"validation", &core.ValidationError{Problems: []core.FieldError{{Field: "title", Err: core.ErrEmptyTitle}}}, log.ErrorTypeValidation},
		{"timeout", fmt.Errorf("list: %w", context.DeadlineExceeded), log.ErrorTypeTimeout},
		{"read only", source.ErrReadOnly, log.ErrorTypeConfiguration},
		{"not found", &source.RejectedError{Status: 404, Message: "Transaction not found"}, log.ErrorTypeNotFound},
		{"bad request", &source.RejectedError{Status: 400, Message: "Invalid amount"}, log.ErrorTypeRejected},
		{"server error", &source.RejectedError{Status: 500, Message: "boom"}, log.ErrorTypeInternal},
		{"transport", errors.New("connection refused"), log.ErrorTypeNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorType(tt.err); got != tt.want {
				t.Errorf("ErrorType(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
