package api

import (
	"net/http"
	"strconv"

	"github.com/NgigiN/gigledger/internal/backup"
	"github.com/NgigiN/gigledger/internal/errs"
	"github.com/NgigiN/gigledger/internal/fuel"
	"github.com/NgigiN/gigledger/internal/settlement"
)

type settleRequest struct {
	Scope string `json:"scope"`
}

func (s *Server) postSettlement(w http.ResponseWriter, r *http.Request) {
	req := settleRequest{Scope: r.URL.Query().Get("scope")}
	if err := decode(r, &req, true); err != nil {
		s.fail(w, r, err)
		return
	}
	scope, err := settlement.ParseScope(req.Scope)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	txn, err := s.tracker.PostSettlement(r.Context(), scope)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

func (s *Server) resumeSettlements(w http.ResponseWriter, r *http.Request) {
	n, err := s.tracker.ResumeSettlements(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"resumed": n})
}

// runChecks evaluates alerts now. ?silent=true suppresses the all-clear.
func (s *Server) runChecks(w http.ResponseWriter, r *http.Request) {
	silent := false
	if raw := r.URL.Query().Get("silent"); raw != "" {
		var err error
		if silent, err = strconv.ParseBool(raw); err != nil {
			s.fail(w, r, errs.Invalid("silent", "must be a boolean"))
			return
		}
	}
	report, err := s.tracker.RunChecks(r.Context(), silent)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) getVehicle(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Vehicle())
}

func (s *Server) updateVehicle(w http.ResponseWriter, r *http.Request) {
	var in fuel.Settings
	if err := decode(r, &in, false); err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.tracker.UpdateVehicle(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// exportBackup streams the raw document so it can be posted back unchanged.
func (s *Server) exportBackup(w http.ResponseWriter, r *http.Request) {
	doc, err := s.tracker.Export(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="gigledger-`+doc.ExportedAt.Format("2006-01-02")+`.json"`)
	if err := backup.Write(w, doc); err != nil {
		s.logger.Error("backup export interrupted", "error", err)
	}
}

func (s *Server) importBackup(w http.ResponseWriter, r *http.Request) {
	doc, err := backup.Read(r.Body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	counts, err := s.tracker.Import(r.Context(), doc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
