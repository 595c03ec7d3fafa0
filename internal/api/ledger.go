package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NgigiN/gigledger/internal/errs"
	"github.com/NgigiN/gigledger/internal/models"
	"github.com/NgigiN/gigledger/internal/settlement"
	"github.com/NgigiN/gigledger/internal/tracker"
)

func transactionFilter(r *http.Request) (tracker.TransactionFilter, error) {
	q := r.URL.Query()
	scope, err := settlement.ParseScope(q.Get("scope"))
	if err != nil {
		return tracker.TransactionFilter{}, err
	}
	f := tracker.TransactionFilter{
		Kind:     models.Kind(q.Get("kind")),
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Scope:    scope,
	}
	if f.Kind != "" && !f.Kind.Valid() {
		return tracker.TransactionFilter{}, errs.Invalid("kind", "must be expense or income")
	}
	return f, nil
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := transactionFilter(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	txns, err := s.tracker.ListTransactions(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

func (s *Server) summarizeTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := transactionFilter(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sum, err := s.tracker.SummarizeTransactions(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	txn, err := s.tracker.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var in tracker.TransactionInput
	if err := decode(r, &in, false); err != nil {
		s.fail(w, r, err)
		return
	}
	txn, err := s.tracker.CreateTransaction(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request) {
	var in tracker.TransactionInput
	if err := decode(r, &in, false); err != nil {
		s.fail(w, r, err)
		return
	}
	txn, err := s.tracker.EditTransaction(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	scope, err := settlement.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sessions, err := s.tracker.ListSessions(r.Context(), scope)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) sessionStats(w http.ResponseWriter, r *http.Request) {
	scope, err := settlement.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	stats, err := s.tracker.DeliveryStats(r.Context(), scope)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.tracker.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var in tracker.SessionInput
	if err := decode(r, &in, false); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.tracker.CreateSession(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) updateSession(w http.ResponseWriter, r *http.Request) {
	var in tracker.SessionInput
	if err := decode(r, &in, false); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.tracker.EditSession(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
