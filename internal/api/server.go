// Package api exposes the tracker over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/NgigiN/gigledger/internal/tracker"
)

type Server struct {
	tracker   *tracker.Tracker
	logger    *slog.Logger
	startTime time.Time
	probes    map[string]func() bool
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithProbe adds a named component to the health report. A probe returning
// false marks the service unhealthy.
func WithProbe(name string, up func() bool) Option {
	return func(s *Server) { s.probes[name] = up }
}

func New(t *tracker.Tracker, opts ...Option) *Server {
	s := &Server{
		tracker:   t,
		logger:    slog.Default(),
		startTime: time.Now(),
		probes:    map[string]func() bool{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/transactions", s.listTransactions)
		r.Post("/transactions", s.createTransaction)
		r.Get("/transactions/summary", s.summarizeTransactions)
		r.Get("/transactions/{id}", s.getTransaction)
		r.Put("/transactions/{id}", s.updateTransaction)
		r.Delete("/transactions/{id}", s.deleteTransaction)

		r.Get("/sessions", s.listSessions)
		r.Post("/sessions", s.createSession)
		r.Get("/sessions/stats", s.sessionStats)
		r.Get("/sessions/{id}", s.getSession)
		r.Put("/sessions/{id}", s.updateSession)
		r.Delete("/sessions/{id}", s.deleteSession)

		r.Get("/loans", s.listLoans)
		r.Post("/loans", s.createLoan)
		r.Get("/loans/summary", s.loanSummary)
		r.Get("/loans/quote", s.loanQuote)
		r.Get("/loans/{id}", s.getLoan)
		r.Put("/loans/{id}", s.updateLoan)
		r.Delete("/loans/{id}", s.deleteLoan)
		r.Post("/loans/{id}/payments", s.addPayment)
		r.Delete("/loans/{id}/payments/{paymentId}", s.deletePayment)

		r.Post("/settlements", s.postSettlement)
		r.Post("/settlements/resume", s.resumeSettlements)
		r.Post("/checks", s.runChecks)

		r.Get("/vehicle", s.getVehicle)
		r.Put("/vehicle", s.updateVehicle)

		r.Get("/backup", s.exportBackup)
		r.Post("/backup", s.importBackup)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	components := make(map[string]bool, len(s.probes))
	for name, up := range s.probes {
		ok := up()
		components[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
		}
	}
	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}
	writeJSON(w, status, map[string]any{
		"status":     state,
		"uptime":     time.Since(s.startTime).Round(time.Second).String(),
		"components": components,
		"timestamp":  time.Now().Format(time.RFC3339),
	})
}
