// Package alerts runs the periodic system checks.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/NgigiN/gigledger/internal/fuel"
	"github.com/NgigiN/gigledger/internal/loans"
	"github.com/NgigiN/gigledger/internal/models"
	"github.com/NgigiN/gigledger/internal/notify"
	"github.com/NgigiN/gigledger/internal/recurring"
	"github.com/NgigiN/gigledger/internal/settlement"
)

const (
	KeyFuelLow       = fuel.LowFuelKey
	KeyLoanDue       = "loan-due"
	KeyWeekendPayout = "weekend-payout"
	KeyRecurring     = "recurring"
	KeyAllClear      = "system-check"
)

type Alert struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Report is the outcome of one check run.
type Report struct {
	Alerts   []Alert `json:"alerts"`
	Emitted  int     `json:"recurring_emitted"`
	AllClear bool    `json:"all_clear"`
}

// FuelState exposes the committed vehicle state.
type FuelState interface {
	State() models.Vehicle
}

// Store is the part of the record store the checks read.
type Store interface {
	ListLoans(ctx context.Context) ([]models.Loan, error)
	ListSessions(ctx context.Context) ([]models.Session, error)
}

// Scheduler catches recurring transactions up to today.
type Scheduler interface {
	Run(ctx context.Context, today time.Time) (recurring.Result, error)
}

type Evaluator struct {
	fuel      FuelState
	store     Store
	scheduler Scheduler
	notifier  notify.Notifier
	logger    *slog.Logger
}

type Option func(*Evaluator)

func WithNotifier(n notify.Notifier) Option {
	return func(e *Evaluator) { e.notifier = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = logger }
}

func New(fuelState FuelState, store Store, scheduler Scheduler, opts ...Option) *Evaluator {
	e := &Evaluator{
		fuel:      fuelState,
		store:     store,
		scheduler: scheduler,
		notifier:  notify.Nop,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type rule func(ctx context.Context, today time.Time, r *Report) (*Alert, error)

// Evaluate runs the fuel, loan, weekend payout and recurring checks in that
// order. Each yields at most one alert, and a failing check does not stop the
// ones after it. When silent is false and nothing fired, an all-clear is sent
// instead, so a manual run always produces a visible outcome.
func (e *Evaluator) Evaluate(ctx context.Context, today time.Time, silent bool) (Report, error) {
	today = models.Day(today)
	var report Report
	var errList []error

	rules := []struct {
		name string
		run  rule
	}{
		{"fuel", e.checkFuel},
		{"loans", e.checkLoans},
		{"weekend payout", e.checkWeekend},
		{"recurring", e.checkRecurring},
	}
	for _, r := range rules {
		alert, err := r.run(ctx, today, &report)
		if err != nil {
			e.logger.Error("system check failed", "check", r.name, "error", err)
			errList = append(errList, fmt.Errorf("%s check: %w", r.name, err))
		}
		if alert != nil {
			report.Alerts = append(report.Alerts, *alert)
			e.notifier.Notify(alert.Title, alert.Body, alert.Key)
		}
	}

	err := errors.Join(errList...)
	if len(report.Alerts) == 0 && err == nil {
		report.AllClear = true
		if !silent {
			e.notifier.Notify("System Check", "All systems operational. No pending alerts.", KeyAllClear)
		}
	}
	e.logger.Debug("system check finished", "alerts", len(report.Alerts), "silent", silent)
	return report, err
}

func (e *Evaluator) checkFuel(ctx context.Context, today time.Time, r *Report) (*Alert, error) {
	v := e.fuel.State()
	threshold := v.Capacity.Mul(fuel.LowFraction)
	if !v.Current.IsPositive() || !v.Current.LessThan(threshold) {
		return nil, nil
	}
	return &Alert{Key: KeyFuelLow, Title: "Low Fuel Warning", Body: fuel.LowFuelMessage(v)}, nil
}

func (e *Evaluator) checkLoans(ctx context.Context, today time.Time, r *Report) (*Alert, error) {
	all, err := e.store.ListLoans(ctx)
	if err != nil {
		return nil, err
	}
	due := loans.DueCount(all, today)
	if due == 0 {
		return nil, nil
	}
	return &Alert{
		Key:   KeyLoanDue,
		Title: "Loan Payments Due",
		Body:  fmt.Sprintf("You have %d loan payments due today.", due),
	}, nil
}

func (e *Evaluator) checkWeekend(ctx context.Context, today time.Time, r *Report) (*Alert, error) {
	if !models.IsWeekend(today) {
		return nil, nil
	}
	sessions, err := e.store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	pending := settlement.Total(settlement.Eligible(sessions, settlement.All, today))
	if pending.IsZero() {
		return nil, nil
	}
	v := e.fuel.State()
	body := fmt.Sprintf("You have %s pending transfer to Ledger.", v.Money(pending))
	if pending.IsNegative() {
		body = fmt.Sprintf("Cash in hand exceeds payouts by %s. Settle it to the Ledger.", v.Money(pending.Abs()))
	}
	return &Alert{Key: KeyWeekendPayout, Title: "Weekend Payout Alert", Body: body}, nil
}

func (e *Evaluator) checkRecurring(ctx context.Context, today time.Time, r *Report) (*Alert, error) {
	res, err := e.scheduler.Run(ctx, today)
	r.Emitted = res.Emitted
	if res.Emitted == 0 {
		return nil, err
	}
	return &Alert{
		Key:   KeyRecurring,
		Title: "Recurring Expenses",
		Body:  fmt.Sprintf("Processed %d recurring transactions today.", res.Emitted),
	}, err
}
