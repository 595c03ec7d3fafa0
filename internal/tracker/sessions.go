package tracker

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/NgigiN/gigledger/internal/errs"
	"github.com/NgigiN/gigledger/internal/fuel"
	"github.com/NgigiN/gigledger/internal/id"
	"github.com/NgigiN/gigledger/internal/models"
	"github.com/NgigiN/gigledger/internal/settlement"
)

// SessionInput is a delivery shift as reported by the rider. Total is the
// earnings figure shown in the delivery app.
type SessionInput struct {
	Date       string           `json:"date"`
	Total      *decimal.Decimal `json:"total"`
	Cash       decimal.Decimal  `json:"cash"`
	Distance   *decimal.Decimal `json:"distance"`
	OtherCosts decimal.Decimal  `json:"other_costs"`
}

func (t *Tracker) buildSession(in SessionInput) (models.Session, error) {
	if in.Distance == nil {
		return models.Session{}, errs.Invalid("distance", "is required")
	}
	if in.Total == nil {
		return models.Session{}, errs.Invalid("total", "is required")
	}
	if in.Distance.IsNegative() {
		return models.Session{}, errs.Invalid("distance", "must not be negative")
	}
	if in.Cash.IsNegative() {
		return models.Session{}, errs.Invalid("cash", "must not be negative")
	}
	if in.OtherCosts.IsNegative() {
		return models.Session{}, errs.Invalid("other_costs", "must not be negative")
	}
	date, err := t.day("date", in.Date)
	if err != nil {
		return models.Session{}, err
	}
	return models.Session{
		Date:       date,
		Cash:       in.Cash,
		Online:     in.Total.Sub(in.Cash),
		Distance:   *in.Distance,
		OtherCosts: in.OtherCosts,
	}, nil
}

func (t *Tracker) CreateSession(ctx context.Context, in SessionInput) (models.Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.buildSession(in)
	if err != nil {
		return models.Session{}, err
	}
	s.ID = id.NewSession()
	delta, err := fuel.SessionDelta(nil, &s, t.fuel.State().ConsumptionRate)
	if err != nil {
		return models.Session{}, err
	}

	if err := t.store.UpsertSession(ctx, s); err != nil {
		return models.Session{}, err
	}
	if _, err := t.fuel.Adjust(ctx, delta); err != nil {
		t.rollback("session", s.ID, t.store.DeleteSession(ctx, s.ID))
		return models.Session{}, err
	}
	t.logger.Info("session created", "session_id", s.ID, "distance", s.Distance.String(), "settlement", s.Online.String())
	return s, nil
}

// EditSession replaces a session's figures. The fuel ledger moves by the
// distance difference only. A posted session keeps its ledger reference.
func (t *Tracker) EditSession(ctx context.Context, sessionID string, in SessionInput) (models.Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	old, err := t.store.GetSession(ctx, sessionID)
	if err != nil {
		return models.Session{}, err
	}
	next, err := t.buildSession(in)
	if err != nil {
		return models.Session{}, err
	}
	next.ID = old.ID
	next.LedgerID = old.LedgerID
	delta, err := fuel.SessionDelta(&old, &next, t.fuel.State().ConsumptionRate)
	if err != nil {
		return models.Session{}, err
	}

	if err := t.store.UpsertSession(ctx, next); err != nil {
		return models.Session{}, err
	}
	if _, err := t.fuel.Adjust(ctx, delta); err != nil {
		t.rollback("session", old.ID, t.store.UpsertSession(ctx, old))
		return models.Session{}, err
	}
	return next, nil
}

func (t *Tracker) DeleteSession(ctx context.Context, sessionID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	old, err := t.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	delta, err := fuel.SessionDelta(&old, nil, t.fuel.State().ConsumptionRate)
	if err != nil {
		return err
	}
	if err := t.store.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	if _, err := t.fuel.Adjust(ctx, delta); err != nil {
		t.rollback("session", old.ID, t.store.UpsertSession(ctx, old))
		return err
	}
	return nil
}

func (t *Tracker) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	return t.store.GetSession(ctx, sessionID)
}

func (t *Tracker) ListSessions(ctx context.Context, scope settlement.Scope) ([]models.Session, error) {
	all, err := t.store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	return settlement.Filter(all, scope, t.Today()), nil
}

// DeliveryStats aggregates the sessions in a scope.
type DeliveryStats struct {
	Sessions     int             `json:"sessions"`
	AppTotal     decimal.Decimal `json:"app_total"`
	Settlement   decimal.Decimal `json:"settlement"`
	CashInHand   decimal.Decimal `json:"cash_in_hand"`
	Distance     decimal.Decimal `json:"distance"`
	FuelUsed     decimal.Decimal `json:"fuel_used"`
	FuelCost     decimal.Decimal `json:"fuel_cost"`
	OtherCosts   decimal.Decimal `json:"other_costs"`
	Profit       decimal.Decimal `json:"profit"`
	Transferable decimal.Decimal `json:"transferable"`
}

// DeliveryStats prices fuel at the current unit cost; profit is the app total
// less other costs and fuel.
func (t *Tracker) DeliveryStats(ctx context.Context, scope settlement.Scope) (DeliveryStats, error) {
	sessions, err := t.ListSessions(ctx, scope)
	if err != nil {
		return DeliveryStats{}, err
	}
	v := t.fuel.State()
	st := DeliveryStats{
		Sessions:     len(sessions),
		AppTotal:     decimal.Zero,
		Settlement:   decimal.Zero,
		CashInHand:   decimal.Zero,
		Distance:     decimal.Zero,
		OtherCosts:   decimal.Zero,
		Transferable: decimal.Zero,
	}
	for _, s := range sessions {
		st.AppTotal = st.AppTotal.Add(s.ReportedTotal())
		st.Settlement = st.Settlement.Add(s.Online)
		st.CashInHand = st.CashInHand.Add(s.Cash)
		st.Distance = st.Distance.Add(s.Distance)
		st.OtherCosts = st.OtherCosts.Add(s.OtherCosts)
		if !s.Posted() {
			st.Transferable = st.Transferable.Add(s.Online)
		}
	}
	if st.FuelUsed, err = fuel.Consumption(st.Distance, v.ConsumptionRate); err != nil {
		return DeliveryStats{}, err
	}
	st.FuelCost = st.FuelUsed.Mul(v.UnitCost)
	st.Profit = st.AppTotal.Sub(st.OtherCosts).Sub(st.FuelCost)
	return st, nil
}
