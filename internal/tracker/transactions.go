package tracker

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NgigiN/gigledger/internal/errs"
	"github.com/NgigiN/gigledger/internal/fuel"
	"github.com/NgigiN/gigledger/internal/id"
	"github.com/NgigiN/gigledger/internal/models"
	"github.com/NgigiN/gigledger/internal/settlement"
)

// TransactionInput is a transaction as entered. Litres is only read for fuel
// purchases and defaults to amount / unit cost.
type TransactionInput struct {
	Kind        models.Kind       `json:"kind"`
	Amount      decimal.Decimal   `json:"amount"`
	Category    string            `json:"category"`
	SubCategory string            `json:"sub_category"`
	Date        string            `json:"date"`
	Note        string            `json:"note"`
	Litres      *decimal.Decimal  `json:"litres,omitempty"`
	Recurring   *models.Frequency `json:"recurring,omitempty"`
}

func (t *Tracker) buildTransaction(in TransactionInput) (models.Transaction, error) {
	if !in.Kind.Valid() {
		return models.Transaction{}, errs.Invalid("kind", "must be expense or income")
	}
	if in.Amount.IsNegative() {
		return models.Transaction{}, errs.Invalid("amount", "must not be negative")
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return models.Transaction{}, errs.Invalid("category", "is required")
	}
	date, err := t.day("date", in.Date)
	if err != nil {
		return models.Transaction{}, err
	}

	txn := models.Transaction{
		Kind:        in.Kind,
		Amount:      in.Amount,
		Category:    category,
		SubCategory: strings.TrimSpace(in.SubCategory),
		Date:        date,
		Note:        strings.TrimSpace(in.Note),
	}
	if in.Kind == models.KindExpense && models.IsFuelPurchase(txn.Category, txn.SubCategory) {
		txn.FuelLinked = true
		switch {
		case in.Litres != nil && in.Litres.IsNegative():
			return models.Transaction{}, errs.Invalid("litres", "must not be negative")
		case in.Litres != nil:
			txn.Litres = *in.Litres
		case t.fuel.State().UnitCost.IsPositive():
			txn.Litres = in.Amount.Div(t.fuel.State().UnitCost).Round(2)
		}
	}
	if in.Recurring != nil {
		if !in.Recurring.Valid() {
			return models.Transaction{}, errs.Invalid("recurring", "unknown frequency %q", *in.Recurring)
		}
		if date.After(t.Today()) {
			return models.Transaction{}, errs.Invalid("date", "a recurring transaction cannot start in the future")
		}
		txn.Recurring = &models.Recurrence{Frequency: *in.Recurring, LastProcessed: date, AnchorDay: date.Day()}
	}
	return txn, nil
}

func (t *Tracker) CreateTransaction(ctx context.Context, in TransactionInput) (models.Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	txn, err := t.buildTransaction(in)
	if err != nil {
		return models.Transaction{}, err
	}
	txn.ID = id.NewTransaction()

	if err := t.store.UpsertTransaction(ctx, txn); err != nil {
		return models.Transaction{}, err
	}
	if _, err := t.fuel.Adjust(ctx, fuel.PurchaseDelta(nil, &txn)); err != nil {
		t.rollback("transaction", txn.ID, t.store.DeleteTransaction(ctx, txn.ID))
		return models.Transaction{}, err
	}
	t.logger.Info("transaction created", "transaction_id", txn.ID, "kind", txn.Kind, "amount", txn.Amount.String())
	return txn, nil
}

// EditTransaction replaces the fields of a stored transaction. Scheduler and
// payout links are kept. A template's catch-up marker only moves forward; the
// anchor day follows the edited date. Payouts cannot change kind or amount.
func (t *Tracker) EditTransaction(ctx context.Context, txnID string, in TransactionInput) (models.Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	old, err := t.store.GetTransaction(ctx, txnID)
	if err != nil {
		return models.Transaction{}, err
	}
	next, err := t.buildTransaction(in)
	if err != nil {
		return models.Transaction{}, err
	}
	if len(old.SettledSessions) > 0 && (next.Kind != old.Kind || !next.Amount.Equal(old.Amount)) {
		return models.Transaction{}, errs.Invalid("amount", "a payout keeps the kind and amount of the sessions it settles")
	}
	next.ID = old.ID
	next.SourceID = old.SourceID
	next.SettledSessions = old.SettledSessions
	switch {
	case old.SourceID != "":
		next.Recurring = old.Recurring
	case next.Recurring != nil && old.Recurring != nil:
		// The marker never moves backwards, whatever the new frequency or date.
		if old.Recurring.LastProcessed.After(next.Recurring.LastProcessed) {
			next.Recurring.LastProcessed = old.Recurring.LastProcessed
		}
	}

	if err := t.store.UpsertTransaction(ctx, next); err != nil {
		return models.Transaction{}, err
	}
	if _, err := t.fuel.Adjust(ctx, fuel.PurchaseDelta(&old, &next)); err != nil {
		t.rollback("transaction", old.ID, t.store.UpsertTransaction(ctx, old))
		return models.Transaction{}, err
	}
	return next, nil
}

// DeleteTransaction removes a transaction. Sessions folded into a deleted
// payout stay posted.
func (t *Tracker) DeleteTransaction(ctx context.Context, txnID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	old, err := t.store.GetTransaction(ctx, txnID)
	if err != nil {
		return err
	}
	if err := t.store.DeleteTransaction(ctx, txnID); err != nil {
		return err
	}
	if _, err := t.fuel.Adjust(ctx, fuel.PurchaseDelta(&old, nil)); err != nil {
		t.rollback("transaction", old.ID, t.store.UpsertTransaction(ctx, old))
		return err
	}
	return nil
}

func (t *Tracker) GetTransaction(ctx context.Context, txnID string) (models.Transaction, error) {
	return t.store.GetTransaction(ctx, txnID)
}

// TransactionFilter narrows a listing. Zero fields match everything.
type TransactionFilter struct {
	Kind     models.Kind
	Category string
	Search   string
	Scope    settlement.Scope
}

func (f TransactionFilter) match(txn models.Transaction, today time.Time) bool {
	if f.Kind != "" && txn.Kind != f.Kind {
		return false
	}
	if f.Category != "" && !strings.EqualFold(txn.Category, f.Category) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		hay := strings.ToLower(txn.Note + " " + txn.Category + " " + txn.SubCategory)
		if !strings.Contains(hay, q) {
			return false
		}
	}
	return f.Scope.Contains(txn.Date, today)
}

func (t *Tracker) ListTransactions(ctx context.Context, f TransactionFilter) ([]models.Transaction, error) {
	all, err := t.store.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	today := t.Today()
	out := make([]models.Transaction, 0, len(all))
	for _, txn := range all {
		if f.match(txn, today) {
			out = append(out, txn)
		}
	}
	return out, nil
}

// TransactionSummary totals a listing.
type TransactionSummary struct {
	Count  int             `json:"count"`
	Spent  decimal.Decimal `json:"spent"`
	Income decimal.Decimal `json:"income"`
	Net    decimal.Decimal `json:"net"`
}

func (t *Tracker) SummarizeTransactions(ctx context.Context, f TransactionFilter) (TransactionSummary, error) {
	txns, err := t.ListTransactions(ctx, f)
	if err != nil {
		return TransactionSummary{}, err
	}
	s := TransactionSummary{Count: len(txns), Spent: decimal.Zero, Income: decimal.Zero}
	for _, txn := range txns {
		if txn.Kind == models.KindIncome {
			s.Income = s.Income.Add(txn.Amount)
		} else {
			s.Spent = s.Spent.Add(txn.Amount)
		}
	}
	s.Net = s.Income.Sub(s.Spent)
	return s, nil
}
