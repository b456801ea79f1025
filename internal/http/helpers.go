package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"fintrack/internal/core"
)

const maxBodyBytes = 64 << 10

type errorResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Errors  []fieldError `json:"errors,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}

func writeValidation(w http.ResponseWriter, verr *core.ValidationError) {
	resp := errorResponse{Message: verr.Error()}
	for _, p := range verr.Problems {
		resp.Errors = append(resp.Errors, fieldError{Field: p.Field, Message: p.Err.Error()})
	}
	writeJSON(w, http.StatusUnprocessableEntity, resp)
}

// sanitizeInput removes control characters other than tab and newlines
// and trims whitespace.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// looseString accepts a JSON string or number and keeps its text.
type looseString string

func (l *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*l = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = looseString(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", b)
		}
		*l = looseString(n.String())
	}
	return nil
}

type draftRequest struct {
	Title    string      `json:"title"`
	Amount   looseString `json:"amount"`
	Type     string      `json:"type"`
	Category string      `json:"category"`
	Date     string      `json:"date"`
}

// decodeDraft reads a transaction form from a JSON body. Validation is
// left to the service.
func decodeDraft(r *http.Request) (core.Draft, error) {
	if r.Body == nil {
		return core.Draft{}, errors.New("request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	var req draftRequest
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return core.Draft{}, errors.New("request body is required")
		}
		return core.Draft{}, fmt.Errorf("invalid request body: %w", err)
	}
	return core.Draft{
		Title:    sanitizeInput(req.Title),
		Amount:   sanitizeInput(string(req.Amount)),
		Type:     sanitizeInput(req.Type),
		Category: sanitizeInput(req.Category),
		Date:     sanitizeInput(req.Date),
	}, nil
}
