package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"fintrack/internal/amqp"
	"fintrack/internal/chart"
	"fintrack/internal/core"
	"fintrack/internal/dashboard"
	"fintrack/internal/log"
)

// RefreshWorker reloads the dashboard view and re-renders its charts when
// a mutation is announced or the refresh schedule fires. Triggers that
// arrive while a refresh is pending are coalesced into it.
type RefreshWorker struct {
	loader  *dashboard.Loader
	charts  *chart.Registry
	logger  *log.Logger
	trigger chan string

	mu   sync.Mutex
	cron *cron.Cron
}

func NewRefreshWorker(loader *dashboard.Loader, charts *chart.Registry, logger *log.Logger) *RefreshWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &RefreshWorker{
		loader:  loader,
		charts:  charts,
		logger:  logger.WithComponent(log.ComponentWorker),
		trigger: make(chan string, 1),
	}
}

// NotifyRefresh queues a refresh without blocking. It lets the worker
// stand in for the message broker when none is configured.
func (w *RefreshWorker) NotifyRefresh(ctx context.Context, reason string, id core.ID) error {
	select {
	case w.trigger <- reason:
		w.logger.DebugContext(ctx, "Refresh queued", "reason", reason, log.FieldTransactionID, id)
	default:
		w.logger.DebugContext(ctx, "Refresh already pending", "reason", reason)
	}
	return nil
}

// HandleRefreshMessage queues a refresh for a message from the broker.
func (w *RefreshWorker) HandleRefreshMessage(ctx context.Context, msg *amqp.RefreshMessage) error {
	return w.NotifyRefresh(ctx, msg.Reason, msg.TransactionID)
}

// Schedule registers a cron spec (five fields) that queues refreshes.
func (w *RefreshWorker) Schedule(spec string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cron == nil {
		w.cron = cron.New()
	}
	_, err := w.cron.AddFunc(spec, func() {
		_ = w.NotifyRefresh(context.Background(), amqp.ReasonScheduled, "")
	})
	if err != nil {
		return fmt.Errorf("schedule refresh %q: %w", spec, err)
	}
	return nil
}

// Refresh reloads the view with the last requested filter and renders it.
// A reload overtaken by a newer cycle is not an error.
func (w *RefreshWorker) Refresh(ctx context.Context, reason string) error {
	view, err := w.loader.Reload(ctx)
	if errors.Is(err, dashboard.ErrSuperseded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reload dashboard: %w", err)
	}
	actions := chart.RenderAll(w.charts, view.ChartInput())
	if actions[chart.IDTrends] == chart.Stale {
		w.logger.DebugContext(ctx, "Charts already drawn by a newer cycle",
			log.FieldOperation, log.OpRender, log.FieldCycle, view.Cycle)
		return nil
	}
	w.logger.InfoContext(ctx, "Dashboard refreshed",
		log.FieldOperation, log.OpRefresh,
		"reason", reason,
		log.FieldCycle, view.Cycle,
		"transactions", len(view.Rows),
		"charts", len(actions))
	return nil
}

// Run processes queued refreshes until ctx is done. The schedule, if any,
// runs for the same lifetime.
func (w *RefreshWorker) Run(ctx context.Context) error {
	w.mu.Lock()
	c := w.cron
	w.mu.Unlock()
	if c != nil {
		c.Start()
		defer func() { <-c.Stop().Done() }()
	}

	w.logger.InfoContext(ctx, "Refresh worker started", "scheduled", c != nil)
	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Refresh worker stopping", "reason", ctx.Err())
			return nil
		case reason := <-w.trigger:
			if err := w.Refresh(ctx, reason); err != nil {
				w.logger.ErrorContext(ctx, "Refresh failed",
					log.FieldOperation, log.OpRefresh, "reason", reason, log.FieldError, err)
			}
		}
	}
}
