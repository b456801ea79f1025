package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/chart"
	"fintrack/internal/core"
	"fintrack/internal/dashboard"
	"fintrack/internal/services"
	"fintrack/internal/source/memory"
	"fintrack/internal/taxonomy"
)

type fixture struct {
	srv    *Server
	store  *memory.Store
	loader *dashboard.Loader
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.New([]core.Record{
		{ID: "1", Title: "Salary", Amount: core.Pounds(2000), Type: "income", Category: "Salary", Date: "2024-01-05"},
		{ID: "2", Title: "Rent", Amount: core.Pounds(-500), Type: "expense", Category: "Housing", Date: "2024-01-10"},
		{ID: "3", Title: "Groceries", Amount: core.Pounds(-300), Type: "expense", Category: "Food & Dining", Date: "2024-02-01"},
	})
	loader := dashboard.NewLoader(store, nil)
	srv := NewServer(":0", Deps{
		Loader:   loader,
		Charts:   chart.NewRegistry(),
		Service:  services.NewTransactionService(store, nil, loader, nil),
		Taxonomy: taxonomy.Default(),
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return fixture{srv: srv, store: store, loader: loader}
}

func (f fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := f.do(t, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	f.srv.deps.Ready = func(context.Context) error { return errors.New("dial tcp: refused") }
	if rr := f.do(t, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing backend status=%d", rr.Code)
	}
}

func TestDashboardRendersCharts(t *testing.T) {
	f := newFixture(t)

	if rr := f.do(t, http.MethodGet, "/api/charts/"+chart.IDTrends, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("chart before first render status=%d", rr.Code)
	}

	rr := f.do(t, http.MethodGet, "/api/dashboard?start_date=2024-01-01&end_date=2024-01-31&type=all", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard status=%d body=%s", rr.Code, rr.Body.String())
	}
	var got struct {
		Totals       core.Totals             `json:"totals"`
		Rows         []dashboard.Row         `json:"rows"`
		SkippedCount int                     `json:"skipped_count"`
		Charts       map[string]chart.Action `json:"charts"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("rows=%d, want 2", len(got.Rows))
	}
	if got.Totals.Balance != core.Pounds(1500) {
		t.Errorf("balance=%v, want 1500", got.Totals.Balance)
	}
	if got.Charts[chart.IDIncomeExpense] != chart.Created {
		t.Errorf("income-expense action=%v", got.Charts[chart.IDIncomeExpense])
	}

	rr = f.do(t, http.MethodGet, "/api/charts/"+chart.IDIncomeExpense, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("chart status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"type":"bar"`) {
		t.Errorf("chart body missing bar type: %s", rr.Body.String())
	}

	rr = f.do(t, http.MethodGet, "/api/charts", "")
	if !strings.Contains(rr.Body.String(), chart.IDTrends) {
		t.Errorf("chart list=%s", rr.Body.String())
	}
}

func TestCategories(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		query       string
		code        int
		wantIncome  bool
		wantExpense bool
	}{
		{"", http.StatusOK, true, true},
		{"?type=all", http.StatusOK, true, true},
		{"?type=income", http.StatusOK, true, false},
		{"?type=EXPENSE", http.StatusOK, false, true},
		{"?type=transfer", http.StatusBadRequest, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rr := f.do(t, http.MethodGet, "/api/categories"+tt.query, "")
			if rr.Code != tt.code {
				t.Fatalf("status=%d, want %d", rr.Code, tt.code)
			}
			if tt.code != http.StatusOK {
				return
			}
			var resp categoriesResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if (len(resp.Income) > 0) != tt.wantIncome || (len(resp.Expense) > 0) != tt.wantExpense {
				t.Errorf("income=%v expense=%v", resp.Income, resp.Expense)
			}
		})
	}
}

func TestCreateTransaction(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"valid with numeric amount", `{"title":"Coffee","amount":3.5,"type":"expense","category":"Food & Dining","date":"2024-02-03"}`, http.StatusOK},
		{"valid with string amount", `{"title":"Refund","amount":"12,40","type":"income","date":"2024-02-04"}`, http.StatusOK},
		{"missing title", `{"title":"  ","amount":"5","type":"expense","date":"2024-02-03"}`, http.StatusUnprocessableEntity},
		{"bad type", `{"title":"X","amount":"5","type":"gift","date":"2024-02-03"}`, http.StatusUnprocessableEntity},
		{"unknown field", `{"title":"X","amount":"5","type":"expense","date":"2024-02-03","extra":1}`, http.StatusBadRequest},
		{"malformed", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(t, http.MethodPost, "/api/transactions", tt.body)
			if rr.Code != tt.code {
				t.Fatalf("status=%d, want %d body=%s", rr.Code, tt.code, rr.Body.String())
			}
		})
	}

	if f.store.Len() != 5 {
		t.Fatalf("store has %d records, want 5", f.store.Len())
	}
	if st := f.loader.Status(); st.Message != services.MsgAdded {
		t.Errorf("status=%q, want %q", st.Message, services.MsgAdded)
	}
}

func TestCreateStoresSignedAmount(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/api/transactions", `{"title":"Coffee","amount":"3.50","type":"expense","date":"2024-02-03"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var res core.Result
	if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Success || res.Message != services.MsgAdded {
		t.Errorf("result=%+v", res)
	}
	if res.Transaction == nil || res.Transaction.Amount != core.Pence(-350) {
		t.Fatalf("transaction=%+v", res.Transaction)
	}
	if res.Transaction.Category != "Other Expense" {
		t.Errorf("category=%q, want default", res.Transaction.Category)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPut, "/api/transactions/2", `{"title":"Rent","amount":"550","type":"expense","category":"Housing","date":"2024-01-10"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	if st := f.loader.Status(); st.Message != services.MsgUpdated {
		t.Errorf("status=%q", st.Message)
	}

	rr = f.do(t, http.MethodPut, "/api/transactions/99", `{"title":"Rent","amount":"550","type":"expense","date":"2024-01-10"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("update missing status=%d", rr.Code)
	}
	var resp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != "Transaction not found" {
		t.Errorf("message=%q, want backend message verbatim", resp.Message)
	}

	if rr := f.do(t, http.MethodDelete, "/api/transactions/3", ""); rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if f.store.Len() != 2 {
		t.Errorf("store has %d records, want 2", f.store.Len())
	}
	if st := f.loader.Status(); st.Message != services.MsgDeleted {
		t.Errorf("status=%q", st.Message)
	}
}

func TestMethodAndRouteErrors(t *testing.T) {
	f := newFixture(t)
	if rr := f.do(t, http.MethodGet, "/api/nope", ""); rr.Code != http.StatusNotFound {
		t.Errorf("unknown route status=%d", rr.Code)
	}
	if rr := f.do(t, http.MethodPost, "/api/dashboard", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("wrong method status=%d", rr.Code)
	}
}

func TestMetricsAndHeaders(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/api/dashboard", "")

	rr := f.do(t, http.MethodGet, "/metrics", "")
	body := rr.Body.String()
	for _, want := range []string{"http_requests_total", "dashboard_cycles_total 1", "transactions_submitted_total 0"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
}
