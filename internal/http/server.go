// Package http serves the dashboard API: the current view, rendered chart
// configurations, category options and transaction mutations.
package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"fintrack/internal/chart"
	"fintrack/internal/dashboard"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
	"fintrack/internal/taxonomy"
)

// Deps are the components the server exposes.
type Deps struct {
	Loader   *dashboard.Loader
	Charts   *chart.Registry
	Service  *services.TransactionService
	Taxonomy taxonomy.Table
	// Ready reports whether the backend is reachable. Nil means always ready.
	Ready  func(context.Context) error
	Logger *log.Logger
	// MutationsPerMinute limits writes per client; zero uses the default.
	MutationsPerMinute int
}

type appMetrics struct {
	started     time.Time
	submissions int64
	cycles      int64
}

type Server struct {
	http.Server
	deps    Deps
	logger  *log.Logger
	limiter *ratelimit.Limiter
	trace   *trace.Middleware
	metrics appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Discard()
	}
	if deps.Charts == nil {
		deps.Charts = chart.NewRegistry()
	}

	s := &Server{
		deps:    deps,
		logger:  deps.Logger.WithComponent(log.ComponentHTTP),
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.MutationsPerMinute}),
		trace:   trace.NewMiddleware(security.ClientIP, deps.Logger),
		metrics: appMetrics{started: time.Now()},
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/charts", s.handleChartList).Methods(http.MethodGet)
	api.HandleFunc("/charts/{id}", s.handleChart).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.handleCategories).Methods(http.MethodGet)
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	writes := api.PathPrefix("/transactions").Subrouter()
	limited := s.logger.WithComponent(log.ComponentSecurity)
	writes.Use(s.limiter.Middleware(security.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		limited.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, security.ClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
	}))
	writes.HandleFunc("", s.handleCreate).Methods(http.MethodPost)
	writes.HandleFunc("/{id}", s.handleUpdate).Methods(http.MethodPut)
	writes.HandleFunc("/{id}", s.handleDelete).Methods(http.MethodDelete)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var h http.Handler = r
	h = headers.Middleware(h)
	h = log.ComponentMiddleware(log.ComponentHTTP)(h)
	h = log.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(h)
	h = s.trace.Middleware(h)
	h = log.Middleware(deps.Logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) recordCycle() {
	atomic.AddInt64(&s.metrics.cycles, 1)
}

func (s *Server) recordSubmission() {
	atomic.AddInt64(&s.metrics.submissions, 1)
}
