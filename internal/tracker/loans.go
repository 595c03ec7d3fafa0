package tracker

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/NgigiN/gigledger/internal/id"
	"github.com/NgigiN/gigledger/internal/loans"
	"github.com/NgigiN/gigledger/internal/models"
)

type LoanInput struct {
	Name             string              `json:"name"`
	Amount           decimal.Decimal     `json:"amount"`
	Direction        models.Direction    `json:"direction"`
	Category         models.LoanCategory `json:"category"`
	InterestRate     decimal.Decimal     `json:"interest_rate"`
	Tenure           *int                `json:"tenure,omitempty"`
	PaymentFrequency *models.Frequency   `json:"payment_frequency,omitempty"`
	Date             string              `json:"date"`
}

func (t *Tracker) buildLoan(in LoanInput) (models.Loan, error) {
	date, err := t.day("date", in.Date)
	if err != nil {
		return models.Loan{}, err
	}
	l := models.Loan{
		Name:             in.Name,
		Amount:           in.Amount,
		Direction:        in.Direction,
		Category:         in.Category,
		InterestRate:     in.InterestRate,
		Tenure:           in.Tenure,
		PaymentFrequency: in.PaymentFrequency,
		Date:             date,
		Payments:         []models.Payment{},
	}
	if l.Category == "" {
		l.Category = models.Peer
	}
	loans.Normalize(&l)
	if err := loans.Validate(l); err != nil {
		return models.Loan{}, err
	}
	return l, nil
}

func (t *Tracker) CreateLoan(ctx context.Context, in LoanInput) (models.Loan, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, err := t.buildLoan(in)
	if err != nil {
		return models.Loan{}, err
	}
	l.ID = id.NewLoan()
	if err := t.store.UpsertLoan(ctx, l); err != nil {
		return models.Loan{}, err
	}
	t.logger.Info("loan created", "loan_id", l.ID, "direction", l.Direction, "amount", l.Amount.String())
	return l, nil
}

// EditLoan replaces a loan's terms, keeps its payments, and recomputes status.
func (t *Tracker) EditLoan(ctx context.Context, loanID string, in LoanInput) (models.Loan, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	old, err := t.store.GetLoan(ctx, loanID)
	if err != nil {
		return models.Loan{}, err
	}
	next, err := t.buildLoan(in)
	if err != nil {
		return models.Loan{}, err
	}
	next.ID = old.ID
	next.Payments = old.Payments
	loans.Refresh(&next)
	if err := t.store.UpsertLoan(ctx, next); err != nil {
		return models.Loan{}, err
	}
	return next, nil
}

func (t *Tracker) DeleteLoan(ctx context.Context, loanID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.DeleteLoan(ctx, loanID)
}

// AddPayment records a repayment dated date (today when empty).
func (t *Tracker) AddPayment(ctx context.Context, loanID string, amount decimal.Decimal, date string) (models.Loan, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, err := t.store.GetLoan(ctx, loanID)
	if err != nil {
		return models.Loan{}, err
	}
	day, err := t.day("date", date)
	if err != nil {
		return models.Loan{}, err
	}
	if err := loans.AddPayment(&l, models.Payment{ID: id.NewPayment(), Amount: amount, Date: day}); err != nil {
		return models.Loan{}, err
	}
	if err := t.store.UpsertLoan(ctx, l); err != nil {
		return models.Loan{}, err
	}
	return l, nil
}

func (t *Tracker) DeletePayment(ctx context.Context, loanID, paymentID string) (models.Loan, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, err := t.store.GetLoan(ctx, loanID)
	if err != nil {
		return models.Loan{}, err
	}
	if err := loans.RemovePayment(&l, paymentID); err != nil {
		return models.Loan{}, err
	}
	if err := t.store.UpsertLoan(ctx, l); err != nil {
		return models.Loan{}, err
	}
	return l, nil
}

func (t *Tracker) GetLoan(ctx context.Context, loanID string) (models.Loan, error) {
	return t.store.GetLoan(ctx, loanID)
}

// ListLoans returns loans with the given status, or all when status is empty.
func (t *Tracker) ListLoans(ctx context.Context, status models.LoanStatus) ([]models.Loan, error) {
	all, err := t.store.ListLoans(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return all, nil
	}
	out := make([]models.Loan, 0, len(all))
	for _, l := range all {
		if l.Status == status {
			out = append(out, l)
		}
	}
	return out, nil
}

func (t *Tracker) LoanSummary(ctx context.Context) (loans.Summary, error) {
	all, err := t.store.ListLoans(ctx)
	if err != nil {
		return loans.Summary{}, err
	}
	return loans.Summarize(all, t.Today()), nil
}
