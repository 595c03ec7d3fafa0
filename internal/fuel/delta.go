package fuel

import (
	"github.com/shopspring/decimal"

	"github.com/NgigiN/gigledger/internal/errs"
	"github.com/NgigiN/gigledger/internal/models"
)

// Consumption returns the fuel burnt driving distance at rate.
func Consumption(distance, rate decimal.Decimal) (decimal.Decimal, error) {
	if !rate.IsPositive() {
		return decimal.Zero, errs.Invalid("consumption_rate", "must be greater than zero")
	}
	return distance.Div(rate), nil
}

// Cost prices the fuel burnt driving distance.
func Cost(distance decimal.Decimal, v models.Vehicle) (decimal.Decimal, error) {
	used, err := Consumption(distance, v.ConsumptionRate)
	if err != nil {
		return decimal.Zero, err
	}
	return used.Mul(v.UnitCost), nil
}

// SessionDelta is the tank change caused by a session write. old is nil on
// create and next is nil on delete. An edit yields one compensating delta.
func SessionDelta(old, next *models.Session, rate decimal.Decimal) (decimal.Decimal, error) {
	var before, after decimal.Decimal
	if old != nil {
		before = old.Distance
	}
	if next != nil {
		after = next.Distance
	}
	used, err := Consumption(after.Sub(before), rate)
	if err != nil {
		return decimal.Zero, err
	}
	return used.Neg(), nil
}

// PurchaseDelta is the tank change caused by a transaction write. old is nil
// on create and next is nil on delete. Transactions not linked to fuel count
// as zero litres, which covers all four link transitions of an edit.
func PurchaseDelta(old, next *models.Transaction) decimal.Decimal {
	var before, after decimal.Decimal
	if old != nil {
		before = old.FuelLitres()
	}
	if next != nil {
		after = next.FuelLitres()
	}
	return after.Sub(before)
}
