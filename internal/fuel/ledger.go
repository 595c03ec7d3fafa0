// Package fuel owns the vehicle's tank level and keeps it in step with the
// distance driven on delivery sessions and the litres bought as fuel purchases.
package fuel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/NgigiN/gigledger/internal/errs"
	"github.com/NgigiN/gigledger/internal/models"
	"github.com/NgigiN/gigledger/internal/notify"
)

// LowFuelKey is the dedupe key of the low-fuel alert.
const LowFuelKey = "fuel-low"

// LowFraction is the share of capacity below which fuel counts as low.
var LowFraction = decimal.RequireFromString("0.15")

// VehicleStore persists the single vehicle settings record.
type VehicleStore interface {
	LoadVehicle(ctx context.Context) (models.Vehicle, error)
	SaveVehicle(ctx context.Context, v models.Vehicle) error
}

// Ledger is the committed fuel state. Every change is written to the store
// first and becomes visible only after the write succeeds.
type Ledger struct {
	mu       sync.Mutex
	store    VehicleStore
	notifier notify.Notifier
	logger   *slog.Logger
	defaults models.Vehicle
	state    models.Vehicle
}

type Option func(*Ledger)

func WithNotifier(n notify.Notifier) Option {
	return func(l *Ledger) { l.notifier = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithDefaults sets the settings used when the store holds none yet.
func WithDefaults(v models.Vehicle) Option {
	return func(l *Ledger) { l.defaults = v }
}

func New(store VehicleStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:    store,
		notifier: notify.Nop,
		logger:   slog.Default(),
		defaults: models.DefaultVehicle(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.state = l.defaults
	return l
}

// Load reads the persisted state, seeding the store with defaults on first run.
func (l *Ledger) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, err := l.store.LoadVehicle(ctx)
	if errs.IsNotFound(err) {
		v = l.defaults
		if err := l.store.SaveVehicle(ctx, v); err != nil {
			return fmt.Errorf("seed vehicle settings: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("load vehicle settings: %w", err)
	}
	v.Current = v.Clamp(v.Current)
	l.state = v
	return nil
}

// State returns the committed vehicle state.
func (l *Ledger) State() models.Vehicle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Threshold is the level below which fuel is low.
func (l *Ledger) Threshold() decimal.Decimal {
	return l.State().Capacity.Mul(LowFraction)
}

// Adjust moves the tank level by delta, clamped to [0, capacity], and returns
// the committed level. Fuel lost at a bound is not an error.
func (l *Ledger) Adjust(ctx context.Context, delta decimal.Decimal) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if delta.IsZero() {
		return l.state.Current, nil
	}
	next := l.state
	next.Current = next.Clamp(next.Current.Add(delta))
	if err := l.commit(ctx, next); err != nil {
		return l.state.Current, err
	}
	l.logger.Debug("fuel adjusted", "delta", delta.String(), "current", next.Current.String())
	return next.Current, nil
}

// Settings is a partial update of the vehicle settings; nil fields are kept.
type Settings struct {
	Capacity        *decimal.Decimal `json:"capacity,omitempty"`
	Current         *decimal.Decimal `json:"current,omitempty"`
	ConsumptionRate *decimal.Decimal `json:"consumption_rate,omitempty"`
	UnitCost        *decimal.Decimal `json:"unit_cost,omitempty"`
	Currency        *string          `json:"currency,omitempty"`
}

// UpdateSettings validates and applies s, re-clamping the tank level.
func (l *Ledger) UpdateSettings(ctx context.Context, s Settings) (models.Vehicle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state
	if s.Capacity != nil {
		if !s.Capacity.IsPositive() {
			return l.state, errs.Invalid("capacity", "must be greater than zero")
		}
		next.Capacity = *s.Capacity
	}
	if s.ConsumptionRate != nil {
		if !s.ConsumptionRate.IsPositive() {
			return l.state, errs.Invalid("consumption_rate", "must be greater than zero")
		}
		next.ConsumptionRate = *s.ConsumptionRate
	}
	if s.UnitCost != nil {
		if s.UnitCost.IsNegative() {
			return l.state, errs.Invalid("unit_cost", "must not be negative")
		}
		next.UnitCost = *s.UnitCost
	}
	if s.Current != nil {
		if s.Current.IsNegative() {
			return l.state, errs.Invalid("current", "must not be negative")
		}
		next.Current = *s.Current
	}
	if s.Currency != nil {
		next.Currency = *s.Currency
	}
	next.Current = next.Clamp(next.Current)

	if err := l.commit(ctx, next); err != nil {
		return l.state, err
	}
	return next, nil
}

// Replace overwrites the whole state, as a restore does.
func (l *Ledger) Replace(ctx context.Context, v models.Vehicle) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !v.Capacity.IsPositive() {
		return errs.Invalid("capacity", "must be greater than zero")
	}
	if !v.ConsumptionRate.IsPositive() {
		return errs.Invalid("consumption_rate", "must be greater than zero")
	}
	v.Current = v.Clamp(v.Current)
	return l.commit(ctx, v)
}

// commit must be called with mu held.
func (l *Ledger) commit(ctx context.Context, next models.Vehicle) error {
	if err := l.store.SaveVehicle(ctx, next); err != nil {
		return err
	}
	prev := l.state
	l.state = next

	before := prev.Capacity.Mul(LowFraction)
	after := next.Capacity.Mul(LowFraction)
	if prev.Current.GreaterThanOrEqual(before) && next.Current.LessThan(after) {
		l.notifier.Notify("Low Fuel Warning", LowFuelMessage(next), LowFuelKey)
	}
	return nil
}

// LowFuelMessage is the alert body for a low tank.
func LowFuelMessage(v models.Vehicle) string {
	return fmt.Sprintf("You have %sL remaining. Time to refuel!", v.Current.StringFixed(2))
}
