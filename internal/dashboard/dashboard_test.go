package dashboard

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/filter"
	"fintrack/internal/source/memory"
)

func sampleRecords() []core.Record {
	return []core.Record{
		{ID: "1", Title: "Salary", Amount: core.Pounds(2000), Category: "Salary", Date: "2024-01-05"},
		{ID: "2", Title: "Rent", Amount: core.Pounds(-500), Category: "Housing", Date: "2024-01-10"},
		{ID: "3", Title: "Food", Amount: core.Pounds(-300), Category: "Food & Dining", Date: "2024-02-01"},
	}
}

// fakeSource lets tests block or fail individual fetches.
type fakeSource struct {
	*memory.Store
	mu         sync.Mutex
	listErr    error
	summaryErr error
	block      map[string]chan struct{} // keyed by filter category
}

func (f *fakeSource) ListTransactions(ctx context.Context, flt filter.Filter) ([]core.Record, error) {
	f.mu.Lock()
	err, ch := f.listErr, f.block[flt.Category]
	f.mu.Unlock()
	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return f.Store.ListTransactions(ctx, flt)
}

func (f *fakeSource) Summary(ctx context.Context, flt filter.Filter) (core.Summary, error) {
	f.mu.Lock()
	err := f.summaryErr
	f.mu.Unlock()
	if err != nil {
		return core.Summary{}, err
	}
	return f.Store.Summary(ctx, flt)
}

func newFake() *fakeSource {
	return &fakeSource{Store: memory.New(sampleRecords()), block: map[string]chan struct{}{}}
}

func TestLoadBuildsView(t *testing.T) {
	l := NewLoader(newFake(), nil)
	view, err := l.Load(context.Background(), filter.Filter{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if view.Totals.Balance.Cents != 120000 || view.TotalsMismatch {
		t.Fatalf("unexpected totals %+v mismatch=%v", view.Totals, view.TotalsMismatch)
	}
	if !reflect.DeepEqual(view.Trend.Months, []string{"Jan 2024", "Feb 2024"}) {
		t.Fatalf("unexpected months %v", view.Trend.Months)
	}
	if len(view.ExpenseBreakdown) != 2 || view.ExpenseBreakdown[0].Category != "Housing" || view.ExpenseBreakdown[0].Percent.String() != "62.5%" {
		t.Fatalf("unexpected expense breakdown %+v", view.ExpenseBreakdown)
	}
	if view.Rows[0].ID != "3" || view.Rows[0].Date != "1 Feb 2024" || view.Rows[0].Amount != "£300.00" || view.Rows[0].Class != ClassExpense {
		t.Fatalf("unexpected first row %+v", view.Rows[0])
	}
	if view.Rows[2].Class != ClassIncome {
		t.Fatalf("unexpected last row %+v", view.Rows[2])
	}
	if l.View() != view {
		t.Fatalf("view not published")
	}
}

func TestLoadFailureKeepsPriorView(t *testing.T) {
	src := newFake()
	l := NewLoader(src, nil)
	first, err := l.Load(context.Background(), filter.Filter{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	src.mu.Lock()
	src.listErr = errors.New("connection refused")
	src.mu.Unlock()
	if _, err := l.Load(context.Background(), filter.Filter{Type: "income"}); err == nil {
		t.Fatalf("expected failure")
	}
	if l.View() != first {
		t.Fatalf("prior view was replaced")
	}
	if st := l.Status(); st.Level != LevelError || st.Message != MsgTransactionsFailed {
		t.Fatalf("unexpected status %+v", st)
	}

	src.mu.Lock()
	src.listErr = nil
	src.summaryErr = errors.New("timeout")
	src.mu.Unlock()
	_, _ = l.Load(context.Background(), filter.Filter{})
	if st := l.Status(); st.Message != MsgSummaryFailed {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestStaleCycleNeverOverwritesNewer(t *testing.T) {
	src := newFake()
	release := make(chan struct{})
	src.block["Housing"] = release
	l := NewLoader(src, nil)

	started := make(chan struct{})
	var staleErr error
	done := make(chan struct{})
	go func() {
		close(started)
		_, staleErr = l.Load(context.Background(), filter.Filter{Category: "Housing"})
		close(done)
	}()
	<-started
	// Wait until the first cycle has registered.
	deadline := time.Now().Add(time.Second)
	for l.LastFilter().Category != "Housing" {
		if time.Now().After(deadline) {
			t.Fatalf("first cycle never started")
		}
		time.Sleep(time.Millisecond)
	}

	newer, err := l.Load(context.Background(), filter.Filter{Category: "Salary"})
	if err != nil {
		t.Fatalf("newer load: %v", err)
	}
	<-done
	if !errors.Is(staleErr, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", staleErr)
	}
	if l.View() != newer || l.View().Filter.Category != "Salary" {
		t.Fatalf("stale cycle overwrote newer view")
	}
	if st := l.Status(); st.Level == LevelError {
		t.Fatalf("superseded cycle must not record an error status: %+v", st)
	}
}

func TestReloadUsesLastFilter(t *testing.T) {
	l := NewLoader(newFake(), nil)
	if _, err := l.Load(context.Background(), filter.Filter{Type: "expense"}); err != nil {
		t.Fatal(err)
	}
	view, err := l.Reload(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if view.Filter.Type != "expense" || len(view.Rows) != 2 || view.Totals.TotalIncome.Cents != 0 {
		t.Fatalf("unexpected reload view %+v", view.Filter)
	}
}

func TestBuildRowsDoesNotMutate(t *testing.T) {
	var txs []core.Transaction
	for _, r := range sampleRecords() {
		tx, _ := r.Classify()
		txs = append(txs, tx)
	}
	before := append([]core.Transaction(nil), txs...)
	rows := BuildRows(txs)
	if !reflect.DeepEqual(txs, before) {
		t.Fatalf("input reordered")
	}
	if rows[0].RawDate != "2024-02-01" || rows[2].RawDate != "2024-01-05" {
		t.Fatalf("rows not newest first: %+v", rows)
	}
}

func TestSetStatus(t *testing.T) {
	l := NewLoader(newFake(), nil)
	l.SetStatus(LevelSuccess, "Transaction added successfully!")
	if st := l.Status(); st.Level != LevelSuccess || st.At.IsZero() {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestSuccessfulLoadClearsErrorStatus(t *testing.T) {
	src := newFake()
	l := NewLoader(src, nil)

	src.mu.Lock()
	src.listErr = errors.New("connection refused")
	src.mu.Unlock()
	if _, err := l.Load(context.Background(), filter.Filter{}); err == nil {
		t.Fatal("expected failure")
	}
	if st := l.Status(); st.Level != LevelError {
		t.Fatalf("status after failure = %+v", st)
	}

	src.mu.Lock()
	src.listErr = nil
	src.mu.Unlock()
	if _, err := l.Load(context.Background(), filter.Filter{}); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if st := l.Status(); st != (Status{}) {
		t.Fatalf("status after successful reload = %+v, want empty", st)
	}
}

func TestSuccessfulLoadKeepsMutationStatus(t *testing.T) {
	l := NewLoader(newFake(), nil)
	l.SetStatus(LevelSuccess, "Transaction added successfully!")
	if _, err := l.Load(context.Background(), filter.Filter{}); err != nil {
		t.Fatal(err)
	}
	if st := l.Status(); st.Level != LevelSuccess {
		t.Fatalf("success status dropped by load: %+v", st)
	}
}

func TestStatusExpires(t *testing.T) {
	l := NewLoader(newFake(), nil)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.SetStatus(LevelError, MsgTransactionsFailed)
	tests := []struct {
		name    string
		elapsed time.Duration
		want    string
	}{
		{"fresh", 0, MsgTransactionsFailed},
		{"just before ttl", StatusTTL - time.Millisecond, MsgTransactionsFailed},
		{"at ttl", StatusTTL, ""},
		{"long after", time.Hour, ""},
	}
	start := now
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now = start.Add(tt.elapsed)
			if got := l.Status().Message; got != tt.want {
				t.Errorf("Status().Message = %q, want %q", got, tt.want)
			}
		})
	}
}

// cachingSource counts invalidations of its cached reads.
type cachingSource struct {
	*fakeSource
	invalidated int
}

func (c *cachingSource) Invalidate() { c.invalidated++ }

func TestReloadInvalidatesCachedReads(t *testing.T) {
	src := &cachingSource{fakeSource: newFake()}
	l := NewLoader(src, nil)
	if _, err := l.Load(context.Background(), filter.Filter{}); err != nil {
		t.Fatal(err)
	}
	if src.invalidated != 0 {
		t.Fatalf("plain load invalidated the cache")
	}
	if _, err := l.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	if src.invalidated != 1 {
		t.Fatalf("invalidations = %d, want 1", src.invalidated)
	}
}
