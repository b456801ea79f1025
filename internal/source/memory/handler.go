package memory

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"fintrack/internal/core"
	"fintrack/internal/filter"
	"fintrack/internal/source"
)

type createRequest struct {
	Title    *string     `json:"title"`
	Amount   *core.Money `json:"amount"`
	Type     string      `json:"type"`
	Category string      `json:"category"`
	Date     *string     `json:"date"`
}

type updateRequest struct {
	Title    *string     `json:"title"`
	Amount   *core.Money `json:"amount"`
	Type     *string     `json:"type"`
	Category *string     `json:"category"`
	Date     *string     `json:"date"`
}

// Handler serves the backend REST contract over a Store:
//
//	GET    /transactions
//	POST   /transactions
//	PUT    /transactions/{id}
//	DELETE /transactions/{id}
//	GET    /summary
func Handler(s *Store) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/transactions", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/transactions", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/transactions/{id}", s.handleUpdate).Methods(http.MethodPut)
	r.HandleFunc("/transactions/{id}", s.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	return r
}

func (s *Store) handleList(w http.ResponseWriter, r *http.Request) {
	recs, err := s.ListTransactions(r.Context(), filter.FromValues(r.URL.Query()))
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Store) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.Summary(r.Context(), filter.FromValues(r.URL.Query()))
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Store) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, decodeMessage(err))
		return
	}
	if req.Title == nil || req.Amount == nil || req.Date == nil {
		writeFailure(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	res, err := s.CreateTransaction(r.Context(), core.Submission{
		Title:    *req.Title,
		Amount:   *req.Amount,
		Type:     core.Kind(req.Type),
		Category: req.Category,
		Date:     *req.Date,
	})
	writeResult(w, res, err)
}

func (s *Store) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := core.ID(mux.Vars(r)["id"])
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, decodeMessage(err))
		return
	}
	res, err := s.Patch(r.Context(), id, Patch(req))
	writeResult(w, res, err)
}

func (s *Store) handleDelete(w http.ResponseWriter, r *http.Request) {
	res, err := s.DeleteTransaction(r.Context(), core.ID(mux.Vars(r)["id"]))
	writeResult(w, res, err)
}

func writeResult(w http.ResponseWriter, res core.Result, err error) {
	if rej, ok := source.IsRejected(err); ok {
		writeFailure(w, rej.Status, rej.Message)
		return
	}
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func decodeMessage(err error) string {
	if errors.Is(err, core.ErrInvalidAmount) {
		return "Invalid amount"
	}
	return "No data provided"
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, core.Result{Success: false, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
