package recurring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/NgigiN/gigledger/internal/id"
	"github.com/NgigiN/gigledger/internal/models"
)

// TransactionStore is the part of the record store the scheduler needs.
type TransactionStore interface {
	ListTransactions(ctx context.Context) ([]models.Transaction, error)
	UpsertTransaction(ctx context.Context, t models.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
}

// EmitHook runs after an occurrence is written. A failing hook undoes the
// occurrence and stops that template's catch-up.
type EmitHook func(ctx context.Context, occurrence models.Transaction) error

// Scheduler writes the missed occurrences of every recurring template.
type Scheduler struct {
	store  TransactionStore
	logger *slog.Logger
	onEmit EmitHook
	newID  func() string
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

func WithEmitHook(hook EmitHook) Option {
	return func(s *Scheduler) { s.onEmit = hook }
}

func New(store TransactionStore, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:  store,
		logger: slog.Default(),
		newID:  id.NewTransaction,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result counts the occurrences one run wrote.
type Result struct {
	Emitted    int
	ByTemplate map[string]int
}

type occurrenceKey struct {
	source string
	date   time.Time
}

// Run catches every template up to today. For each occurrence the new
// transaction is written before the template's marker, and an occurrence that
// already exists for (template, date) is not written again, so a run that
// failed between the two writes resumes without duplicates.
//
// A failing template does not stop the others; their errors are joined.
func (s *Scheduler) Run(ctx context.Context, today time.Time) (Result, error) {
	res := Result{ByTemplate: make(map[string]int)}

	all, err := s.store.ListTransactions(ctx)
	if err != nil {
		return res, fmt.Errorf("list transactions: %w", err)
	}

	existing := make(map[occurrenceKey]bool)
	var templates []models.Transaction
	for _, t := range all {
		if t.SourceID != "" {
			existing[occurrenceKey{t.SourceID, models.Day(t.Date)}] = true
		}
		if t.IsTemplate() {
			templates = append(templates, t)
		}
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].ID < templates[j].ID })

	var errList []error
	for _, tmpl := range templates {
		n, err := s.catchUp(ctx, tmpl, today, existing)
		if n > 0 {
			res.ByTemplate[tmpl.ID] = n
			res.Emitted += n
		}
		if err != nil {
			s.logger.Error("recurring catch-up failed", "template_id", tmpl.ID, "error", err)
			errList = append(errList, fmt.Errorf("template %s: %w", tmpl.ID, err))
		}
	}
	if res.Emitted > 0 {
		s.logger.Info("recurring transactions processed", "emitted", res.Emitted)
	}
	return res, errors.Join(errList...)
}

func (s *Scheduler) catchUp(ctx context.Context, tmpl models.Transaction, today time.Time, existing map[occurrenceKey]bool) (int, error) {
	rec := *tmpl.Recurring
	emitted := 0
	for _, date := range Occurrences(rec.LastProcessed, today, rec.Frequency, rec.AnchorDay) {
		key := occurrenceKey{tmpl.ID, date}
		if !existing[key] {
			if err := s.emit(ctx, tmpl, date); err != nil {
				return emitted, err
			}
			existing[key] = true
			emitted++
		}

		rec.LastProcessed = date
		tmpl.Recurring = &rec
		if err := s.store.UpsertTransaction(ctx, tmpl); err != nil {
			return emitted, fmt.Errorf("advance marker to %s: %w", date.Format(models.DayLayout), err)
		}
	}
	return emitted, nil
}

func (s *Scheduler) emit(ctx context.Context, tmpl models.Transaction, date time.Time) error {
	occ := tmpl
	occ.ID = s.newID()
	occ.Date = date
	occ.SourceID = tmpl.ID
	occ.SettledSessions = nil
	occ.Recurring = &models.Recurrence{
		Frequency:     tmpl.Recurring.Frequency,
		LastProcessed: date,
		AnchorDay:     tmpl.Recurring.AnchorDay,
	}
	if err := s.store.UpsertTransaction(ctx, occ); err != nil {
		return fmt.Errorf("write occurrence %s: %w", date.Format(models.DayLayout), err)
	}
	if s.onEmit == nil {
		return nil
	}
	if err := s.onEmit(ctx, occ); err != nil {
		err = fmt.Errorf("apply occurrence %s: %w", date.Format(models.DayLayout), err)
		if derr := s.store.DeleteTransaction(ctx, occ.ID); derr != nil {
			// The hook was never applied to this stored occurrence and later runs
			// will treat it as done; it has to be removed by hand.
			s.logger.Error("orphaned recurring occurrence", "transaction_id", occ.ID, "template_id", tmpl.ID, "error", derr)
			return errors.Join(err, fmt.Errorf("undo occurrence %s: %w", occ.ID, derr))
		}
		return err
	}
	return nil
}
