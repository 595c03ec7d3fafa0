// Package loans keeps loan status consistent with recorded payments and
// answers the due-date and exposure questions asked about them.
package loans

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NgigiN/gigledger/internal/errs"
	"github.com/NgigiN/gigledger/internal/models"
)

// Normalize strips commercial terms from peer loans and recomputes status.
func Normalize(l *models.Loan) {
	l.Name = strings.TrimSpace(l.Name)
	l.Date = models.Day(l.Date)
	if l.Category == models.Peer {
		l.InterestRate = decimal.Zero
		l.Tenure = nil
		l.PaymentFrequency = nil
	}
	Refresh(l)
}

// Validate checks a loan before it is stored.
func Validate(l models.Loan) error {
	if l.Name == "" {
		return errs.Invalid("name", "is required")
	}
	if !l.Amount.IsPositive() {
		return errs.Invalid("amount", "must be greater than zero")
	}
	if l.Direction != models.Given && l.Direction != models.Taken {
		return errs.Invalid("direction", "must be given or taken")
	}
	if l.Category != models.Peer && l.Category != models.Commercial {
		return errs.Invalid("category", "must be peer or commercial")
	}
	if l.InterestRate.IsNegative() {
		return errs.Invalid("interest_rate", "must not be negative")
	}
	if l.Tenure != nil && *l.Tenure <= 0 {
		return errs.Invalid("tenure", "must be greater than zero")
	}
	if f := l.PaymentFrequency; f != nil && *f != models.Weekly && *f != models.Monthly {
		return errs.Invalid("payment_frequency", "must be weekly or monthly")
	}
	if l.Date.IsZero() {
		return errs.Invalid("date", "is required")
	}
	return nil
}

func Paid(l models.Loan) decimal.Decimal {
	paid := decimal.Zero
	for _, p := range l.Payments {
		paid = paid.Add(p.Amount)
	}
	return paid
}

// Outstanding is the unpaid principal, never below zero.
func Outstanding(l models.Loan) decimal.Decimal {
	left := l.Amount.Sub(Paid(l))
	if left.IsNegative() {
		return decimal.Zero
	}
	return left
}

// Refresh sets status to cleared iff payments cover the principal.
func Refresh(l *models.Loan) {
	if Paid(*l).GreaterThanOrEqual(l.Amount) {
		l.Status = models.LoanCleared
		return
	}
	l.Status = models.LoanActive
}

// AddPayment appends p and recomputes status.
func AddPayment(l *models.Loan, p models.Payment) error {
	if !p.Amount.IsPositive() {
		return errs.Invalid("amount", "payment must be greater than zero")
	}
	if p.Date.IsZero() {
		return errs.Invalid("date", "payment date is required")
	}
	p.Date = models.Day(p.Date)
	l.Payments = append(l.Payments, p)
	Refresh(l)
	return nil
}

// RemovePayment drops the payment with paymentID and recomputes status.
func RemovePayment(l *models.Loan, paymentID string) error {
	for i, p := range l.Payments {
		if p.ID == paymentID {
			l.Payments = append(l.Payments[:i:i], l.Payments[i+1:]...)
			Refresh(l)
			return nil
		}
	}
	return errs.ErrNotFound
}

// IsDue reports whether an active commercial loan has an installment due on
// today: monthly loans on the origin's day of month, weekly loans on its weekday.
func IsDue(l models.Loan, today time.Time) bool {
	if l.Status != models.LoanActive || l.Category != models.Commercial || l.PaymentFrequency == nil {
		return false
	}
	switch *l.PaymentFrequency {
	case models.Monthly:
		return l.Date.Day() == today.Day()
	case models.Weekly:
		return l.Date.Weekday() == today.Weekday()
	}
	return false
}

func DueCount(loans []models.Loan, today time.Time) int {
	n := 0
	for _, l := range loans {
		if IsDue(l, today) {
			n++
		}
	}
	return n
}

// Summary is the outstanding exposure across active loans.
type Summary struct {
	Given decimal.Decimal `json:"given"`
	Taken decimal.Decimal `json:"taken"`
	Net   decimal.Decimal `json:"net"`
	Due   int             `json:"due_today"`
}

func Summarize(loans []models.Loan, today time.Time) Summary {
	s := Summary{Given: decimal.Zero, Taken: decimal.Zero}
	for _, l := range loans {
		if l.Status != models.LoanActive {
			continue
		}
		switch l.Direction {
		case models.Given:
			s.Given = s.Given.Add(Outstanding(l))
		case models.Taken:
			s.Taken = s.Taken.Add(Outstanding(l))
		}
	}
	s.Net = s.Given.Sub(s.Taken)
	s.Due = DueCount(loans, today)
	return s
}

// Quote is a simple-interest repayment plan.
type Quote struct {
	Interest     decimal.Decimal `json:"interest"`
	TotalPayable decimal.Decimal `json:"total_payable"`
	Installment  decimal.Decimal `json:"installment"`
}

// NewQuote computes interest as principal * rate/100 * tenure, spread evenly
// over tenure installments.
func NewQuote(principal, rate decimal.Decimal, tenure int) (Quote, error) {
	if !principal.IsPositive() {
		return Quote{}, errs.Invalid("amount", "must be greater than zero")
	}
	if rate.IsNegative() {
		return Quote{}, errs.Invalid("interest_rate", "must not be negative")
	}
	if tenure <= 0 {
		return Quote{}, errs.Invalid("tenure", "must be greater than zero")
	}
	periods := decimal.NewFromInt(int64(tenure))
	interest := principal.Mul(rate).Div(decimal.NewFromInt(100)).Mul(periods)
	total := principal.Add(interest)
	return Quote{
		Interest:     interest,
		TotalPayable: total,
		Installment:  total.Div(periods),
	}, nil
}
