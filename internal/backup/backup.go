// Package backup reads and writes full-snapshot backup documents.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/NgigiN/gigledger/internal/errs"
	"github.com/NgigiN/gigledger/internal/loans"
	"github.com/NgigiN/gigledger/internal/models"
)

// Document is a full snapshot: settings, every record, and when it was taken.
type Document struct {
	Settings     models.Vehicle       `json:"settings"`
	Transactions []models.Transaction `json:"transactions"`
	Loans        []models.Loan        `json:"loans"`
	Sessions     []models.Session     `json:"sessions"`
	ExportedAt   time.Time            `json:"exported_at"`
}

type Source interface {
	ListTransactions(ctx context.Context) ([]models.Transaction, error)
	ListLoans(ctx context.Context) ([]models.Loan, error)
	ListSessions(ctx context.Context) ([]models.Session, error)
}

type Sink interface {
	UpsertTransaction(ctx context.Context, t models.Transaction) error
	UpsertLoan(ctx context.Context, l models.Loan) error
	UpsertSession(ctx context.Context, s models.Session) error
}

// Counts reports how many records an import wrote.
type Counts struct {
	Transactions int `json:"transactions"`
	Loans        int `json:"loans"`
	Sessions     int `json:"sessions"`
}

func Export(ctx context.Context, src Source, settings models.Vehicle, now time.Time) (Document, error) {
	doc := Document{Settings: settings, ExportedAt: now.UTC()}
	var err error
	if doc.Transactions, err = src.ListTransactions(ctx); err != nil {
		return Document{}, fmt.Errorf("export transactions: %w", err)
	}
	if doc.Loans, err = src.ListLoans(ctx); err != nil {
		return Document{}, fmt.Errorf("export loans: %w", err)
	}
	if doc.Sessions, err = src.ListSessions(ctx); err != nil {
		return Document{}, fmt.Errorf("export sessions: %w", err)
	}
	return doc, nil
}

func Write(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

func Read(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, errs.Invalid("backup", "malformed document: %v", err)
	}
	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Validate rejects a document that would leave the store inconsistent.
func (d Document) Validate() error {
	if !d.Settings.Capacity.IsPositive() {
		return errs.Invalid("settings.capacity", "must be greater than zero")
	}
	if !d.Settings.ConsumptionRate.IsPositive() {
		return errs.Invalid("settings.consumption_rate", "must be greater than zero")
	}
	for i, t := range d.Transactions {
		if t.ID == "" {
			return errs.Invalid("transactions", "record %d has no id", i)
		}
	}
	for i, l := range d.Loans {
		if l.ID == "" {
			return errs.Invalid("loans", "record %d has no id", i)
		}
	}
	for i, s := range d.Sessions {
		if s.ID == "" {
			return errs.Invalid("sessions", "record %d has no id", i)
		}
	}
	return nil
}

// Import upserts every record by identity. Records absent from the document
// are left alone; records present overwrite the stored copy. Loan status is
// recomputed from the payments rather than trusted. Settings are the caller's
// to apply.
func Import(ctx context.Context, sink Sink, doc Document) (Counts, error) {
	var c Counts
	if err := doc.Validate(); err != nil {
		return c, err
	}
	for _, t := range doc.Transactions {
		if err := sink.UpsertTransaction(ctx, t); err != nil {
			return c, fmt.Errorf("import transaction %s: %w", t.ID, err)
		}
		c.Transactions++
	}
	for _, l := range doc.Loans {
		loans.Normalize(&l)
		if err := sink.UpsertLoan(ctx, l); err != nil {
			return c, fmt.Errorf("import loan %s: %w", l.ID, err)
		}
		c.Loans++
	}
	for _, s := range doc.Sessions {
		if err := sink.UpsertSession(ctx, s); err != nil {
			return c, fmt.Errorf("import session %s: %w", s.ID, err)
		}
		c.Sessions++
	}
	return c, nil
}
