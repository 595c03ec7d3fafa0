package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/NgigiN/gigledger/internal/errs"
	"github.com/NgigiN/gigledger/internal/loans"
	"github.com/NgigiN/gigledger/internal/models"
	"github.com/NgigiN/gigledger/internal/tracker"
)

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"`
}

func (s *Server) listLoans(w http.ResponseWriter, r *http.Request) {
	status := models.LoanStatus(r.URL.Query().Get("status"))
	if status != "" && status != models.LoanActive && status != models.LoanCleared {
		s.fail(w, r, errs.Invalid("status", "must be active or cleared"))
		return
	}
	all, err := s.tracker.ListLoans(r.Context(), status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) loanSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.tracker.LoanSummary(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// loanQuote prices a commercial loan: ?amount=&rate=&tenure=.
func (s *Server) loanQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil {
		s.fail(w, r, errs.Invalid("amount", "not a number"))
		return
	}
	rate, err := decimal.NewFromString(q.Get("rate"))
	if err != nil {
		s.fail(w, r, errs.Invalid("rate", "not a number"))
		return
	}
	tenure, err := strconv.Atoi(q.Get("tenure"))
	if err != nil {
		s.fail(w, r, errs.Invalid("tenure", "not a whole number"))
		return
	}
	quote, err := loans.NewQuote(amount, rate, tenure)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) getLoan(w http.ResponseWriter, r *http.Request) {
	l, err := s.tracker.GetLoan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) createLoan(w http.ResponseWriter, r *http.Request) {
	var in tracker.LoanInput
	if err := decode(r, &in, false); err != nil {
		s.fail(w, r, err)
		return
	}
	l, err := s.tracker.CreateLoan(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) updateLoan(w http.ResponseWriter, r *http.Request) {
	var in tracker.LoanInput
	if err := decode(r, &in, false); err != nil {
		s.fail(w, r, err)
		return
	}
	l, err := s.tracker.EditLoan(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) deleteLoan(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteLoan(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	l, err := s.tracker.AddPayment(r.Context(), chi.URLParam(r, "id"), req.Amount, req.Date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) deletePayment(w http.ResponseWriter, r *http.Request) {
	l, err := s.tracker.DeletePayment(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "paymentId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}
