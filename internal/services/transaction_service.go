package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/dashboard"
	"fintrack/internal/log"
	"fintrack/internal/source"
)

// Status messages shown after a mutation.
const (
	MsgAdded   = "Transaction added successfully!"
	MsgUpdated = "Transaction updated successfully!"
	MsgDeleted = "Transaction deleted successfully!"
)

type (
	// RefreshNotifier is told about every successful mutation.
	RefreshNotifier interface {
		NotifyRefresh(ctx context.Context, reason string, id core.ID) error
	}

	// StatusSink receives transient status messages.
	StatusSink interface {
		SetStatus(level, message string)
	}
)

type operation struct {
	name    string // log operation
	reason  string // refresh reason
	verb    string // "saving", "updating", "deleting"
	success string
}

var (
	opCreate = operation{log.OpCreate, amqp.ReasonCreated, "saving", MsgAdded}
	opUpdate = operation{log.OpUpdate, amqp.ReasonUpdated, "updating", MsgUpdated}
	opDelete = operation{log.OpDelete, amqp.ReasonDeleted, "deleting", MsgDeleted}
)

// TransactionService validates and signs submissions, forwards them to the
// backend and announces successful mutations.
type TransactionService struct {
	writer   source.TransactionWriter
	notifier RefreshNotifier
	status   StatusSink
	logger   *log.Logger
}

// NewTransactionService wires a writer with optional notifier and status sink.
func NewTransactionService(writer source.TransactionWriter, notifier RefreshNotifier, status StatusSink, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.Discard()
	}
	return &TransactionService{
		writer:   writer,
		notifier: notifier,
		status:   status,
		logger:   logger.WithComponent(log.ComponentTransaction),
	}
}

// Create validates d and submits it as a new transaction. A validation
// failure returns *core.ValidationError and nothing is sent.
func (s *TransactionService) Create(ctx context.Context, d core.Draft) (core.Result, error) {
	sub, err := d.Normalize()
	if err != nil {
		return core.Result{}, s.invalid(ctx, opCreate, "", err)
	}
	res, err := s.writer.CreateTransaction(ctx, sub)
	return s.finish(ctx, opCreate, resultID(res, ""), sub, res, err)
}

// Update validates d and replaces transaction id with it.
func (s *TransactionService) Update(ctx context.Context, id core.ID, d core.Draft) (core.Result, error) {
	sub, err := d.Normalize()
	if err != nil {
		return core.Result{}, s.invalid(ctx, opUpdate, id, err)
	}
	res, err := s.writer.UpdateTransaction(ctx, id, sub)
	return s.finish(ctx, opUpdate, id, sub, res, err)
}

// Delete removes transaction id.
func (s *TransactionService) Delete(ctx context.Context, id core.ID) (core.Result, error) {
	res, err := s.writer.DeleteTransaction(ctx, id)
	return s.finish(ctx, opDelete, id, core.Submission{}, res, err)
}

func (s *TransactionService) finish(ctx context.Context, op operation, id core.ID, sub core.Submission, res core.Result, err error) (core.Result, error) {
	if err != nil {
		s.setStatus(dashboard.LevelError, FailureMessage(op.verb, err))
		log.NewStructuredLogger(s.logger).LogError(ctx, "Transaction mutation failed", err,
			log.ComponentTransaction, op.name,
			log.NewFields().WithTransactionID(id).WithErrorType(ErrorType(err)))
		return res, fmt.Errorf("%s transaction: %w", op.name, err)
	}

	s.setStatus(dashboard.LevelSuccess, op.success)
	if op.name == log.OpDelete {
		s.logger.InfoContext(ctx, "Transaction deleted", log.FieldTransactionID, id)
	} else {
		log.NewStructuredLogger(s.logger).LogTransactionSubmitted(ctx, op.name, resultID(res, id), sub)
	}

	if s.notifier != nil {
		if nerr := s.notifier.NotifyRefresh(ctx, op.reason, resultID(res, id)); nerr != nil {
			// The mutation already succeeded.
			s.logger.WarnContext(ctx, "Failed to publish refresh", log.FieldError, nerr)
		}
	}
	return res, nil
}

// invalid logs a draft that failed validation and returns err unchanged.
func (s *TransactionService) invalid(ctx context.Context, op operation, id core.ID, err error) error {
	s.logger.DebugContext(ctx, "Draft failed validation",
		log.FieldOperation, log.OpValidate,
		"mutation", op.name,
		log.FieldTransactionID, id,
		log.FieldErrorType, log.ErrorTypeValidation,
		log.FieldError, err)
	return err
}

func (s *TransactionService) setStatus(level, msg string) {
	if s.status != nil {
		s.status.SetStatus(level, msg)
	}
}

// FailureMessage is the status text for a failed mutation. Backend
// rejections carry their message; anything else gets a generic retry hint.
func FailureMessage(verb string, err error) string {
	if rej, ok := source.IsRejected(err); ok && rej.Message != "" {
		return fmt.Sprintf("Error %s transaction: %s", verb, rej.Message)
	}
	return fmt.Sprintf("Error %s transaction. Please try again.", verb)
}

// ErrorType classifies a mutation failure for logging.
func ErrorType(err error) string {
	var verr *core.ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return log.ErrorTypeValidation
	case errors.Is(err, context.DeadlineExceeded):
		return log.ErrorTypeTimeout
	case errors.Is(err, source.ErrReadOnly):
		return log.ErrorTypeConfiguration
	}
	if rej, ok := source.IsRejected(err); ok {
		switch {
		case rej.Status == http.StatusNotFound:
			return log.ErrorTypeNotFound
		case rej.Status >= http.StatusInternalServerError:
			return log.ErrorTypeInternal
		default:
			return log.ErrorTypeRejected
		}
	}
	return log.ErrorTypeNetwork
}

func resultID(res core.Result, fallback core.ID) core.ID {
	if res.Transaction != nil && res.Transaction.ID != "" {
		return res.Transaction.ID
	}
	return fallback
}

// Close releases the notifier when it holds a connection.
func (s *TransactionService) Close() error {
	var errs []error
	if c, ok := s.notifier.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("notifier: %w", err))
		}
	}
	if c, ok := s.writer.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("writer: %w", err))
		}
	}
	return errors.Join(errs...)
}
