// Package models holds the tracker's records: ledger transactions, loans,
// delivery sessions, and the vehicle fuel state they all feed into.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

func (k Kind) Valid() bool { return k == KindExpense || k == KindIncome }

type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

func (f Frequency) Valid() bool { return f == Daily || f == Weekly || f == Monthly }

// Recurrence marks a transaction as a template that repeats every period.
// AnchorDay is the day-of-month monthly occurrences aim for; 0 means the day of
// LastProcessed.
type Recurrence struct {
	Frequency     Frequency `json:"frequency"`
	LastProcessed time.Time `json:"last_processed"`
	AnchorDay     int       `json:"anchor_day,omitempty"`
}

// Transaction is a general ledger entry.
type Transaction struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	SubCategory string          `json:"sub_category"`
	Date        time.Time       `json:"date"`
	Note        string          `json:"note"`
	FuelLinked  bool            `json:"fuel_linked"`
	// Litres is only meaningful when FuelLinked is set.
	Litres    decimal.Decimal `json:"litres"`
	Recurring *Recurrence     `json:"recurring,omitempty"`
	// SourceID is the template id for occurrences emitted by the scheduler.
	SourceID string `json:"source_id,omitempty"`
	// SettledSessions lists the delivery sessions folded into a payout entry.
	SettledSessions []string `json:"settled_sessions,omitempty"`
}

// IsTemplate reports whether t drives recurring catch-up.
func (t Transaction) IsTemplate() bool {
	return t.Recurring != nil && t.SourceID == ""
}

// FuelLitres returns the litres this transaction put into the tank.
func (t Transaction) FuelLitres() decimal.Decimal {
	if !t.FuelLinked {
		return decimal.Zero
	}
	return t.Litres
}

type Direction string

const (
	Given Direction = "given"
	Taken Direction = "taken"
)

type LoanCategory string

const (
	Peer       LoanCategory = "peer"
	Commercial LoanCategory = "commercial"
)

type LoanStatus string

const (
	LoanActive  LoanStatus = "active"
	LoanCleared LoanStatus = "cleared"
)

type Payment struct {
	ID     string          `json:"id"`
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
}

// Loan is money lent to or borrowed from someone.
type Loan struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Direction Direction       `json:"direction"`
	Category  LoanCategory    `json:"category"`
	// InterestRate is a percentage per period; always zero for peer loans.
	InterestRate     decimal.Decimal `json:"interest_rate"`
	Tenure           *int            `json:"tenure"`
	PaymentFrequency *Frequency      `json:"payment_frequency"`
	Payments         []Payment       `json:"payments"`
	Date             time.Time       `json:"date"`
	Status           LoanStatus      `json:"status"`
}

// Session is one gig-delivery work shift.
type Session struct {
	ID   string    `json:"id"`
	Date time.Time `json:"date"`
	Cash decimal.Decimal `json:"cash"`
	// Online is the reported total minus cash collected; negative when the
	// rider holds more cash than the platform owes.
	Online     decimal.Decimal `json:"online"`
	Distance   decimal.Decimal `json:"distance"`
	OtherCosts decimal.Decimal `json:"other_costs"`
	LedgerID   string          `json:"ledger_id,omitempty"`
}

func (s Session) Posted() bool { return s.LedgerID != "" }

// ReportedTotal is the earnings figure shown by the delivery app.
func (s Session) ReportedTotal() decimal.Decimal { return s.Cash.Add(s.Online) }

// Vehicle holds the fuel tank state and the settings used to derive it.
type Vehicle struct {
	Capacity        decimal.Decimal `json:"capacity"`
	Current         decimal.Decimal `json:"current"`
	ConsumptionRate decimal.Decimal `json:"consumption_rate"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	Currency        string          `json:"currency"`
}

// DefaultVehicle returns the settings a fresh install starts with.
func DefaultVehicle() Vehicle {
	return Vehicle{
		Capacity:        decimal.RequireFromString("5.5"),
		Current:         decimal.Zero,
		ConsumptionRate: decimal.NewFromInt(55),
		UnitCost:        decimal.RequireFromString("101.42"),
		Currency:        "₹",
	}
}

// Money formats amount with the configured currency symbol.
func (v Vehicle) Money(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "-" + v.Currency + amount.Abs().StringFixed(2)
	}
	return v.Currency + amount.StringFixed(2)
}

// Clamp returns q limited to [0, Capacity].
func (v Vehicle) Clamp(q decimal.Decimal) decimal.Decimal {
	if q.IsNegative() {
		return decimal.Zero
	}
	if q.GreaterThan(v.Capacity) {
		return v.Capacity
	}
	return q
}
