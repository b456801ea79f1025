// Package dashboard runs the fetch, aggregate and publish cycle behind
// every view of the transactions.
package dashboard

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/aggregate"
	"fintrack/internal/chart"
	"fintrack/internal/core"
	"fintrack/internal/filter"
	"fintrack/internal/log"
	"fintrack/internal/source"
)

// Status messages shown after a failed cycle.
const (
	MsgTransactionsFailed = "Error loading transactions. Please refresh the page."
	MsgSummaryFailed      = "Error loading summary data. Please refresh the page."
)

// RowDateLayout renders table dates such as "5 Jan 2024".
const RowDateLayout = "2 Jan 2006"

// Row classes used to colour amounts.
const (
	ClassIncome  = "income-amount"
	ClassExpense = "expense-amount"
)

// ErrSuperseded is returned by a cycle that was overtaken by a newer one.
// Its results are discarded.
var ErrSuperseded = errors.New("load superseded by a newer request")

// Row is a display-ready transaction.
type Row struct {
	ID       core.ID   `json:"id"`
	Date     string    `json:"date"`
	RawDate  string    `json:"raw_date"`
	Title    string    `json:"title"`
	Amount   string    `json:"amount"`
	Kind     core.Kind `json:"kind"`
	Category string    `json:"category"`
	Class    string    `json:"class"`
}

// View is everything one cycle derives for a filter.
type View struct {
	Cycle            uint64                 `json:"cycle"`
	Filter           filter.Filter          `json:"filter"`
	LoadedAt         time.Time              `json:"loaded_at"`
	Totals           core.Totals            `json:"totals"`
	Summary          core.Summary           `json:"summary"`
	TotalsMismatch   bool                   `json:"totals_mismatch"`
	Trend            aggregate.MonthlyTrend `json:"trend"`
	ExpenseBreakdown []aggregate.Share      `json:"expense_breakdown"`
	IncomeBreakdown  []aggregate.Share      `json:"income_breakdown"`
	Rows             []Row                  `json:"rows"`
	Skipped          []aggregate.Skipped    `json:"skipped,omitempty"`
	Transactions     []core.Transaction     `json:"-"`
}

// ChartInput returns the aggregates the dashboard charts are drawn from.
func (v *View) ChartInput() chart.Input {
	return chart.Input{
		Cycle:            v.Cycle,
		Totals:           v.Totals,
		ExpenseBreakdown: v.ExpenseBreakdown,
		IncomeBreakdown:  v.IncomeBreakdown,
		Trend:            v.Trend,
	}
}

// Status level values.
const (
	LevelSuccess = "success"
	LevelError   = "error"
)

// StatusTTL is how long a status message stays visible.
const StatusTTL = 3 * time.Second

// Status is a transient message about the last cycle or mutation.
type Status struct {
	Level   string    `json:"level,omitempty"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at,omitempty"`
}

// Loader runs cycles against a source and publishes the latest view.
// Starting a cycle cancels the one in flight, and only the newest cycle
// may publish.
type Loader struct {
	src       source.Reader
	logger    *log.Logger
	now       func() time.Time
	statusTTL time.Duration

	mu         sync.Mutex
	seq        uint64
	cancel     context.CancelFunc
	view       *View
	status     Status
	lastFilter filter.Filter
}

// NewLoader returns a loader reading from src.
func NewLoader(src source.Reader, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Discard()
	}
	return &Loader{
		src:       src,
		logger:    logger.WithComponent(log.ComponentDashboard),
		now:       time.Now,
		statusTTL: StatusTTL,
	}
}

// Load fetches transactions and summary for f concurrently, aggregates
// them and publishes the view. On failure the previous view stays
// published and an error status is recorded.
func (l *Loader) Load(ctx context.Context, f filter.Filter) (*View, error) {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	seq := l.seq
	cctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.lastFilter = f
	l.mu.Unlock()
	defer cancel()

	view, err := l.run(cctx, f, seq)

	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.seq {
		l.logger.DebugContext(ctx, "Discarding stale cycle", log.FieldCycle, seq, "current", l.seq)
		return nil, ErrSuperseded
	}
	l.cancel = nil
	if err != nil {
		msg := MsgTransactionsFailed
		if errors.Is(err, errSummary) {
			msg = MsgSummaryFailed
		}
		l.status = Status{Level: LevelError, Message: msg, At: l.now()}
		l.logger.ErrorContext(ctx, "Dashboard cycle failed",
			log.FieldOperation, log.OpLoad, log.FieldCycle, seq, log.FieldError, err)
		return nil, err
	}
	if l.status.Level == LevelError {
		l.status = Status{}
	}
	l.view = view
	l.logger.DebugContext(ctx, "Dashboard cycle published",
		log.FieldOperation, log.OpLoad, log.FieldCycle, seq, "transactions", len(view.Rows))
	return view, nil
}

var errSummary = errors.New("summary")

func (l *Loader) run(ctx context.Context, f filter.Filter, seq uint64) (*View, error) {
	var (
		records []core.Record
		summary core.Summary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recs, err := l.src.ListTransactions(gctx, f)
		if err != nil {
			return err
		}
		records = recs
		return nil
	})
	g.Go(func() error {
		sum, err := l.src.Summary(gctx, f)
		if err != nil {
			return fmt.Errorf("%w: %w", errSummary, err)
		}
		summary = sum
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ingested := aggregate.Ingest(records)
	if len(ingested.Skipped) > 0 {
		l.logger.WarnContext(ctx, "Skipped malformed transactions", "count", len(ingested.Skipped), log.FieldCycle, seq)
	}
	txs := ingested.Transactions

	view := &View{
		Cycle:            seq,
		Filter:           f,
		LoadedAt:         l.now(),
		Totals:           aggregate.ComputeTotals(txs),
		Summary:          summary,
		Trend:            aggregate.GroupByMonth(txs),
		ExpenseBreakdown: aggregate.Percentages(aggregate.BreakdownByCategory(txs, core.Expense)),
		IncomeBreakdown:  aggregate.Percentages(aggregate.BreakdownByCategory(txs, core.Income)),
		Rows:             BuildRows(txs),
		Skipped:          ingested.Skipped,
		Transactions:     txs,
	}
	if view.Totals != summary.Totals {
		view.TotalsMismatch = true
		l.logger.WarnContext(ctx, "Client totals differ from backend summary",
			"client_balance", view.Totals.Balance.Cents,
			"backend_balance", summary.Balance.Cents,
			log.FieldFilter, f.Encode())
	}
	return view, nil
}

// Reload repeats the last cycle with the last requested filter. Cached
// reads are dropped first so the cycle sees the backend's current rows.
func (l *Loader) Reload(ctx context.Context) (*View, error) {
	if inv, ok := l.src.(source.Invalidator); ok {
		inv.Invalidate()
	}
	return l.Load(ctx, l.LastFilter())
}

// View returns the published view, or nil before the first success.
func (l *Loader) View() *View {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.view
}

// LastFilter returns the filter of the most recently started cycle.
func (l *Loader) LastFilter() filter.Filter {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastFilter
}

// Status returns the last transient status, or the zero Status once it
// is older than StatusTTL.
func (l *Loader) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status.At.IsZero() || l.now().Sub(l.status.At) >= l.statusTTL {
		return Status{}
	}
	return l.status
}

// SetStatus records a transient status message.
func (l *Loader) SetStatus(level, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status = Status{Level: level, Message: message, At: l.now()}
}

// BuildRows converts transactions into table rows, newest first. Equal
// dates keep their input order. The input is not modified.
func BuildRows(txs []core.Transaction) []Row {
	sorted := slices.Clone(txs)
	slices.SortStableFunc(sorted, func(a, b core.Transaction) int {
		return cmp.Compare(b.Date.Unix(), a.Date.Unix())
	})
	rows := make([]Row, 0, len(sorted))
	for _, tx := range sorted {
		class := ClassIncome
		if tx.Kind == core.Expense {
			class = ClassExpense
		}
		rows = append(rows, Row{
			ID:       tx.ID,
			Date:     tx.Date.Format(RowDateLayout),
			RawDate:  tx.Date.String(),
			Title:    tx.Title,
			Amount:   core.FormatCurrency(tx.Amount),
			Kind:     tx.Kind,
			Category: tx.Category,
			Class:    class,
		})
	}
	return rows
}
