package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
	"fintrack/internal/filter"
	"fintrack/internal/source"
)

// SeedFile is the optional seed file read from the data directory.
const SeedFile = "seed_transactions.json"

const msgNotFound = "Transaction not found"

// Ensure interface conformance
var _ source.Source = (*Store)(nil)

// Store keeps transactions in process, behaving like the backend: ids are
// issued from the clock, missing type and category are defaulted, and
// updates re-sign the amount from the transaction type.
type Store struct {
	mu      sync.Mutex
	items   []core.Record
	now     func() time.Time
	lastUID int64
}

// New returns a store holding a copy of records.
func New(records []core.Record) *Store {
	return &Store{items: append([]core.Record(nil), records...), now: time.Now}
}

// NewFromFiles seeds the store from <base>/seed_transactions.json. A
// missing or unreadable file yields an empty store.
func NewFromFiles(base string) *Store {
	return New(readSeed(filepath.Join(base, SeedFile)))
}

func readSeed(path string) []core.Record {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var recs []core.Record
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil
	}
	return recs
}

// Patch holds the fields present in an update request. Nil fields are
// left unchanged.
type Patch struct {
	Title    *string
	Amount   *core.Money
	Type     *string
	Category *string
	Date     *string
}

// ListTransactions returns the records passing f, in insertion order.
func (s *Store) ListTransactions(_ context.Context, f filter.Filter) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return f.Apply(s.items), nil
}

// Summary applies the full filter and aggregates what remains, so it
// agrees with totals computed from ListTransactions.
func (s *Store) Summary(ctx context.Context, f filter.Filter) (core.Summary, error) {
	recs, err := s.ListTransactions(ctx, f)
	if err != nil {
		return core.Summary{}, err
	}
	return aggregate.Summarize(aggregate.Ingest(recs).Transactions), nil
}

// CreateTransaction appends a transaction with a fresh id. Missing type is
// inferred from the amount sign and missing category gets the default.
func (s *Store) CreateTransaction(_ context.Context, sub core.Submission) (core.Result, error) {
	if strings.TrimSpace(sub.Title) == "" || strings.TrimSpace(sub.Date) == "" {
		return core.Result{}, &source.RejectedError{Status: http.StatusBadRequest, Message: "Missing required fields"}
	}
	kind := core.ResolveKind(sub.Type.String(), sub.Amount)
	category := strings.TrimSpace(sub.Category)
	if category == "" {
		category = core.DefaultCategory(kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := core.Record{
		ID:       s.nextID(),
		Title:    sub.Title,
		Amount:   sub.Amount,
		Type:     kind.String(),
		Category: category,
		Date:     sub.Date,
	}
	s.items = append(s.items, rec)
	return core.Result{Success: true, Transaction: &rec}, nil
}

// UpdateTransaction replaces every field of an existing transaction.
func (s *Store) UpdateTransaction(ctx context.Context, id core.ID, sub core.Submission) (core.Result, error) {
	amount := sub.Amount
	kind := sub.Type.String()
	p := Patch{Title: &sub.Title, Amount: &amount, Type: &kind, Date: &sub.Date}
	if sub.Category != "" {
		p.Category = &sub.Category
	}
	return s.Patch(ctx, id, p)
}

// Patch merges the present fields into an existing transaction. When the
// amount changes it is re-signed from the new type, or the existing type
// when none is given.
func (s *Store) Patch(_ context.Context, id core.ID, p Patch) (core.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Result{}, &source.RejectedError{Status: http.StatusNotFound, Message: msgNotFound}
	}
	rec := s.items[i]
	if p.Title != nil {
		rec.Title = *p.Title
	}
	if p.Category != nil {
		rec.Category = *p.Category
	}
	if p.Date != nil {
		rec.Date = *p.Date
	}
	if p.Amount != nil {
		typ := rec.Type
		if p.Type != nil {
			typ = *p.Type
		}
		kind, ok := core.ParseKind(typ)
		if !ok {
			kind = core.Income
		}
		rec.Amount = core.SignFor(kind, *p.Amount)
	}
	if p.Type != nil {
		rec.Type = *p.Type
	}
	s.items[i] = rec
	return core.Result{Success: true, Transaction: &rec}, nil
}

// DeleteTransaction removes a transaction by id.
func (s *Store) DeleteTransaction(_ context.Context, id core.ID) (core.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Result{}, &source.RejectedError{Status: http.StatusNotFound, Message: msgNotFound}
	}
	rec := s.items[i]
	s.items = append(s.items[:i], s.items[i+1:]...)
	return core.Result{Success: true, Transaction: &rec}, nil
}

// Len returns the number of stored transactions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) indexOf(id core.ID) int {
	for i, r := range s.items {
		if sameID(r.ID, id) {
			return i
		}
	}
	return -1
}

// nextID issues a timestamp id with microsecond precision, strictly
// increasing. Caller holds s.mu.
func (s *Store) nextID() core.ID {
	uid := s.now().UnixMicro()
	if uid <= s.lastUID {
		uid = s.lastUID + 1
	}
	s.lastUID = uid
	return core.ID(fmt.Sprintf("%d.%06d", uid/1_000_000, uid%1_000_000))
}

// sameID compares ids textually, or numerically when both are numbers so
// that 1712345678.5 and 1712345678.500000 match.
func sameID(a, b core.ID) bool {
	if a == b {
		return true
	}
	if !a.IsNumeric() || !b.IsNumeric() {
		return false
	}
	fa, _ := strconv.ParseFloat(a.String(), 64)
	fb, _ := strconv.ParseFloat(b.String(), 64)
	return fa == fb
}
