package storage

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NgigiN/gigledger/internal/models"
)

// Decimal columns are stored as text so sqlite's numeric affinity never
// rounds them through float64.

type transactionRow struct {
	ID                     string          `gorm:"primaryKey"`
	Kind                   string          `gorm:"not null"`
	Amount                 decimal.Decimal `gorm:"type:text;not null"`
	Category               string
	SubCategory            string
	Date                   time.Time `gorm:"index"`
	Note                   string
	FuelLinked             bool
	Litres                 decimal.Decimal `gorm:"type:text"`
	RecurringFrequency     string
	RecurringLastProcessed *time.Time
	RecurringAnchorDay     int
	SourceID               string `gorm:"index"`
	SettledSessions        string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (transactionRow) TableName() string { return "transactions" }

type loanRow struct {
	ID               string          `gorm:"primaryKey"`
	Name             string          `gorm:"not null"`
	Amount           decimal.Decimal `gorm:"type:text;not null"`
	Direction        string
	Category         string
	InterestRate     decimal.Decimal `gorm:"type:text"`
	Tenure           *int
	PaymentFrequency *string
	Date             time.Time `gorm:"index"`
	Status           string    `gorm:"index"`
	Payments         []paymentRow `gorm:"foreignKey:LoanID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (loanRow) TableName() string { return "loans" }

type paymentRow struct {
	ID       string          `gorm:"primaryKey"`
	LoanID   string          `gorm:"index;not null"`
	Position int             `gorm:"not null"`
	Amount   decimal.Decimal `gorm:"type:text;not null"`
	Date     time.Time
}

func (paymentRow) TableName() string { return "loan_payments" }

type sessionRow struct {
	ID         string          `gorm:"primaryKey"`
	Date       time.Time       `gorm:"index"`
	Cash       decimal.Decimal `gorm:"type:text"`
	Online     decimal.Decimal `gorm:"type:text"`
	Distance   decimal.Decimal `gorm:"type:text"`
	OtherCosts decimal.Decimal `gorm:"type:text"`
	LedgerID   string          `gorm:"index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (sessionRow) TableName() string { return "delivery_sessions" }

// vehicleRow is a single-row table; ID is always vehicleRowID.
type vehicleRow struct {
	ID              uint            `gorm:"primaryKey"`
	Capacity        decimal.Decimal `gorm:"type:text"`
	Current         decimal.Decimal `gorm:"type:text"`
	ConsumptionRate decimal.Decimal `gorm:"type:text"`
	UnitCost        decimal.Decimal `gorm:"type:text"`
	Currency        string
	UpdatedAt       time.Time
}

func (vehicleRow) TableName() string { return "vehicle" }

const vehicleRowID = 1

func toTransactionRow(t models.Transaction) transactionRow {
	row := transactionRow{
		ID:              t.ID,
		Kind:            string(t.Kind),
		Amount:          t.Amount,
		Category:        t.Category,
		SubCategory:     t.SubCategory,
		Date:            t.Date.UTC(),
		Note:            t.Note,
		FuelLinked:      t.FuelLinked,
		Litres:          t.Litres,
		SourceID:        t.SourceID,
		SettledSessions: strings.Join(t.SettledSessions, ","),
	}
	if t.Recurring != nil {
		last := t.Recurring.LastProcessed.UTC()
		row.RecurringFrequency = string(t.Recurring.Frequency)
		row.RecurringLastProcessed = &last
		row.RecurringAnchorDay = t.Recurring.AnchorDay
	}
	return row
}

func fromTransactionRow(row transactionRow) models.Transaction {
	t := models.Transaction{
		ID:          row.ID,
		Kind:        models.Kind(row.Kind),
		Amount:      row.Amount,
		Category:    row.Category,
		SubCategory: row.SubCategory,
		Date:        models.Day(row.Date),
		Note:        row.Note,
		FuelLinked:  row.FuelLinked,
		Litres:      row.Litres,
		SourceID:    row.SourceID,
	}
	if row.SettledSessions != "" {
		t.SettledSessions = strings.Split(row.SettledSessions, ",")
	}
	if row.RecurringFrequency != "" && row.RecurringLastProcessed != nil {
		t.Recurring = &models.Recurrence{
			Frequency:     models.Frequency(row.RecurringFrequency),
			LastProcessed: models.Day(*row.RecurringLastProcessed),
			AnchorDay:     row.RecurringAnchorDay,
		}
	}
	return t
}

func toLoanRow(l models.Loan) loanRow {
	row := loanRow{
		ID:           l.ID,
		Name:         l.Name,
		Amount:       l.Amount,
		Direction:    string(l.Direction),
		Category:     string(l.Category),
		InterestRate: l.InterestRate,
		Tenure:       l.Tenure,
		Date:         l.Date.UTC(),
		Status:       string(l.Status),
	}
	if l.PaymentFrequency != nil {
		freq := string(*l.PaymentFrequency)
		row.PaymentFrequency = &freq
	}
	row.Payments = make([]paymentRow, 0, len(l.Payments))
	for i, p := range l.Payments {
		row.Payments = append(row.Payments, paymentRow{
			ID:       p.ID,
			LoanID:   l.ID,
			Position: i,
			Amount:   p.Amount,
			Date:     p.Date.UTC(),
		})
	}
	return row
}

func fromLoanRow(row loanRow) models.Loan {
	l := models.Loan{
		ID:           row.ID,
		Name:         row.Name,
		Amount:       row.Amount,
		Direction:    models.Direction(row.Direction),
		Category:     models.LoanCategory(row.Category),
		InterestRate: row.InterestRate,
		Tenure:       row.Tenure,
		Date:         models.Day(row.Date),
		Status:       models.LoanStatus(row.Status),
		Payments:     make([]models.Payment, 0, len(row.Payments)),
	}
	if row.PaymentFrequency != nil {
		freq := models.Frequency(*row.PaymentFrequency)
		l.PaymentFrequency = &freq
	}
	for _, p := range row.Payments {
		l.Payments = append(l.Payments, models.Payment{ID: p.ID, Amount: p.Amount, Date: models.Day(p.Date)})
	}
	return l
}

func toSessionRow(s models.Session) sessionRow {
	return sessionRow{
		ID:         s.ID,
		Date:       s.Date.UTC(),
		Cash:       s.Cash,
		Online:     s.Online,
		Distance:   s.Distance,
		OtherCosts: s.OtherCosts,
		LedgerID:   s.LedgerID,
	}
}

func fromSessionRow(row sessionRow) models.Session {
	return models.Session{
		ID:         row.ID,
		Date:       models.Day(row.Date),
		Cash:       row.Cash,
		Online:     row.Online,
		Distance:   row.Distance,
		OtherCosts: row.OtherCosts,
		LedgerID:   row.LedgerID,
	}
}

func toVehicleRow(v models.Vehicle) vehicleRow {
	return vehicleRow{
		ID:              vehicleRowID,
		Capacity:        v.Capacity,
		Current:         v.Current,
		ConsumptionRate: v.ConsumptionRate,
		UnitCost:        v.UnitCost,
		Currency:        v.Currency,
	}
}

func fromVehicleRow(row vehicleRow) models.Vehicle {
	return models.Vehicle{
		Capacity:        row.Capacity,
		Current:         row.Current,
		ConsumptionRate: row.ConsumptionRate,
		UnitCost:        row.UnitCost,
		Currency:        row.Currency,
	}
}
