package memory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/core"
)

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandlerListFilters(t *testing.T) {
	h := Handler(seeded())
	rr := do(t, h, http.MethodGet, "/transactions?type=expense&start_date=2024-01-01", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var recs []core.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &recs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != "2" {
		t.Fatalf("unexpected records %+v", recs)
	}
}

func TestHandlerSummary(t *testing.T) {
	h := Handler(seeded())
	rr := do(t, h, http.MethodGet, "/summary?end_date=2024-01-31", "")
	var sum core.Summary
	if err := json.Unmarshal(rr.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.TotalIncome.Cents != 200000 || sum.TotalExpenses.Cents != 50000 || sum.Balance.Cents != 150000 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if !strings.Contains(rr.Body.String(), `"total_income":2000.00`) {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}

func TestHandlerMutations(t *testing.T) {
	s := seeded()
	h := Handler(s)

	rr := do(t, h, http.MethodPost, "/transactions", `{"title":"Bonus","amount":"250.5","date":"2024-03-01"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("create status %d: %s", rr.Code, rr.Body.String())
	}
	var res core.Result
	_ = json.Unmarshal(rr.Body.Bytes(), &res)
	if !res.Success || res.Transaction == nil || res.Transaction.Category != core.DefaultIncomeCategory {
		t.Fatalf("unexpected create result %+v", res)
	}

	rr = do(t, h, http.MethodPost, "/transactions", `{"title":"No amount","date":"2024-03-01"}`)
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "Missing required fields") {
		t.Fatalf("expected missing fields, got %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodPut, "/transactions/3", `{"amount":120,"category":"Groceries"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status %d", rr.Code)
	}
	res = core.Result{}
	_ = json.Unmarshal(rr.Body.Bytes(), &res)
	if res.Transaction.Amount.Cents != -12000 || res.Transaction.Category != "Groceries" {
		t.Fatalf("unexpected update %+v", res.Transaction)
	}

	rr = do(t, h, http.MethodDelete, "/transactions/42", "")
	if rr.Code != http.StatusNotFound || !strings.Contains(rr.Body.String(), `"success":false`) {
		t.Fatalf("expected not found, got %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodDelete, "/transactions/1", "")
	if rr.Code != http.StatusOK || s.Len() != 3 {
		t.Fatalf("delete failed: %d len=%d", rr.Code, s.Len())
	}
}
