package chart

import (
	"slices"
	"sync"
	"time"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
)

// Action reports what a render did.
type Action string

const (
	Created   Action = "created"
	Updated   Action = "updated"
	Recreated Action = "recreated"
	// Stale marks a render dropped because a newer cycle already drew.
	Stale Action = "stale"
)

// Instance is a rendered chart.
type Instance struct {
	ID        string    `json:"id"`
	Config    Config    `json:"config"`
	Revision  int       `json:"revision"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Registry maps chart ids to their rendered instances. It is owned by the
// rendering component and passed into render calls.
type Registry struct {
	mu     sync.RWMutex
	charts map[string]*Instance
	cycle  uint64
	now    func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{charts: make(map[string]*Instance), now: time.Now}
}

// Render creates the chart on first use. Later renders replace its data
// and bump the revision; a change of chart type recreates it.
func (r *Registry) Render(id string, cfg Config) Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.render(id, cfg)
}

func (r *Registry) render(id string, cfg Config) Action {
	now := r.now()
	inst, ok := r.charts[id]
	switch {
	case !ok:
		r.charts[id] = &Instance{ID: id, Config: cfg, Revision: 1, CreatedAt: now, UpdatedAt: now}
		return Created
	case inst.Config.Type != cfg.Type:
		r.charts[id] = &Instance{ID: id, Config: cfg, Revision: 1, CreatedAt: now, UpdatedAt: now}
		return Recreated
	default:
		inst.Config.Data = cfg.Data
		inst.Revision++
		inst.UpdatedAt = now
		return Updated
	}
}

// Get returns a copy of the chart instance.
func (r *Registry) Get(id string) (Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.charts[id]
	if !ok {
		return Instance{}, false
	}
	return *inst, true
}

// IDs lists rendered charts in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.charts))
	for id := range r.charts {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Cycle returns the newest cycle drawn by RenderAll.
func (r *Registry) Cycle() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cycle
}

// Input carries the aggregates the dashboard charts are drawn from.
type Input struct {
	Cycle            uint64
	Totals           core.Totals
	ExpenseBreakdown []aggregate.Share
	IncomeBreakdown  []aggregate.Share
	Trend            aggregate.MonthlyTrend
}

// RenderAll renders every dashboard chart into reg as one step. Input
// from a cycle older than the last one drawn leaves the charts untouched
// and reports Stale for each of them.
func RenderAll(reg *Registry, in Input) map[string]Action {
	configs := map[string]Config{
		IDIncomeExpense:     IncomeExpense(in.Totals),
		IDExpenseCategories: ExpenseCategories(in.ExpenseBreakdown),
		IDIncomeCategories:  IncomeCategories(in.IncomeBreakdown),
		IDTrends:            Trends(in.Trend),
	}
	actions := make(map[string]Action, len(configs))

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if in.Cycle < reg.cycle {
		for id := range configs {
			actions[id] = Stale
		}
		return actions
	}
	reg.cycle = in.Cycle
	for id, cfg := range configs {
		actions[id] = reg.render(id, cfg)
	}
	return actions
}
