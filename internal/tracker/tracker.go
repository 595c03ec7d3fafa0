// Package tracker is the command surface over the finance records. Every
// mutation runs under one lock, writes its record, then moves the fuel ledger;
// a failed fuel write rolls the record back so no half-applied change survives.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/NgigiN/gigledger/internal/alerts"
	"github.com/NgigiN/gigledger/internal/backup"
	"github.com/NgigiN/gigledger/internal/errs"
	"github.com/NgigiN/gigledger/internal/fuel"
	"github.com/NgigiN/gigledger/internal/models"
	"github.com/NgigiN/gigledger/internal/notify"
	"github.com/NgigiN/gigledger/internal/recurring"
	"github.com/NgigiN/gigledger/internal/settlement"
	"github.com/NgigiN/gigledger/internal/storage"
)

type Tracker struct {
	mu        sync.Mutex
	store     storage.Store
	fuel      *fuel.Ledger
	scheduler *recurring.Scheduler
	poster    *settlement.Poster
	evaluator *alerts.Evaluator

	notifier notify.Notifier
	logger   *slog.Logger
	clock    func() time.Time
	loc      *time.Location
	vehicle  models.Vehicle
}

type Option func(*Tracker)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

func WithNotifier(n notify.Notifier) Option {
	return func(t *Tracker) { t.notifier = n }
}

// WithClock overrides the time source used to decide "today".
func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) { t.clock = clock }
}

// WithLocation sets the time zone calendar days are read in.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) { t.loc = loc }
}

// WithVehicleDefaults sets the settings a fresh store starts with.
func WithVehicleDefaults(v models.Vehicle) Option {
	return func(t *Tracker) { t.vehicle = v }
}

// New wires the engine over store and loads the fuel state.
func New(ctx context.Context, store storage.Store, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		store:    store,
		notifier: notify.Nop,
		logger:   slog.Default(),
		clock:    time.Now,
		loc:      time.UTC,
		vehicle:  models.DefaultVehicle(),
	}
	for _, opt := range opts {
		opt(t)
	}

	t.fuel = fuel.New(store,
		fuel.WithNotifier(t.notifier),
		fuel.WithLogger(t.logger),
		fuel.WithDefaults(t.vehicle),
	)
	if err := t.fuel.Load(ctx); err != nil {
		return nil, err
	}
	t.scheduler = recurring.New(store,
		recurring.WithLogger(t.logger),
		recurring.WithEmitHook(t.applyOccurrence),
	)
	t.poster = settlement.NewPoster(store, settlement.WithLogger(t.logger))
	t.evaluator = alerts.New(t.fuel, store, t.scheduler,
		alerts.WithNotifier(t.notifier),
		alerts.WithLogger(t.logger),
	)
	return t, nil
}

// Today is the current calendar day in the tracker's time zone.
func (t *Tracker) Today() time.Time {
	return models.Today(t.clock(), t.loc)
}

// day parses an input date, defaulting to today.
func (t *Tracker) day(field, raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return t.Today(), nil
	}
	d, err := models.ParseDay(raw)
	if err != nil {
		return time.Time{}, errs.Invalid(field, "%q is not a date", raw)
	}
	return d, nil
}

func (t *Tracker) applyOccurrence(ctx context.Context, occ models.Transaction) error {
	_, err := t.fuel.Adjust(ctx, fuel.PurchaseDelta(nil, &occ))
	return err
}

// RunChecks runs the system checks for today. Silent runs send nothing when
// all is clear.
func (t *Tracker) RunChecks(ctx context.Context, silent bool) (alerts.Report, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.evaluator.Evaluate(ctx, t.Today(), silent)
}

// PostSettlement folds every eligible session in scope into one payout.
func (t *Tracker) PostSettlement(ctx context.Context, scope settlement.Scope) (models.Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.poster.Settle(ctx, scope, t.Today())
}

// ResumeSettlements completes payouts interrupted while marking sessions.
func (t *Tracker) ResumeSettlements(ctx context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.poster.Resume(ctx)
}

func (t *Tracker) Vehicle() models.Vehicle {
	return t.fuel.State()
}

func (t *Tracker) UpdateVehicle(ctx context.Context, s fuel.Settings) (models.Vehicle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fuel.UpdateSettings(ctx, s)
}

func (t *Tracker) Export(ctx context.Context) (backup.Document, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return backup.Export(ctx, t.store, t.fuel.State(), t.clock())
}

// Import restores a backup: every record is upserted by id and the settings,
// tank level included, replace the current ones.
func (t *Tracker) Import(ctx context.Context, doc backup.Document) (backup.Counts, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	counts, err := backup.Import(ctx, t.store, doc)
	if err != nil {
		return counts, err
	}
	if err := t.fuel.Replace(ctx, doc.Settings); err != nil {
		return counts, fmt.Errorf("restore settings: %w", err)
	}
	t.logger.Info("backup restored",
		"transactions", counts.Transactions, "loans", counts.Loans, "sessions", counts.Sessions)
	return counts, nil
}

// rollback logs a failed compensation; the original error is what callers see.
func (t *Tracker) rollback(what, id string, err error) {
	if err != nil {
		t.logger.Error("rollback failed", "record", what, "id", id, "error", err)
	}
}
