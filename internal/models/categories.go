package models

import "strings"

type Category struct {
	Name string   `json:"name"`
	Kind Kind     `json:"kind"`
	Subs []string `json:"subs"`
}

const (
	CategoryTransport = "Transport"
	CategoryIncome    = "Income"
	SubFuel           = "Fuel"
	SubMaintenance    = "Maintenance"
	SubSalary         = "Salary"
)

func DefaultCategories() []Category {
	return []Category{
		{Name: CategoryTransport, Kind: KindExpense, Subs: []string{SubFuel, "Tolls", "Parking", SubMaintenance}},
		{Name: "Food", Kind: KindExpense, Subs: []string{"Groceries", "Dining Out", "Snacks", "Tea / Coffee"}},
		{Name: "Bills", Kind: KindExpense, Subs: []string{"Electricity", "Mobile", "Internet", "Gas"}},
		{Name: CategoryIncome, Kind: KindIncome, Subs: []string{SubSalary, "Refund", "Reimbursement", "Bonus", "Misc Income"}},
		{Name: "Others", Kind: KindExpense, Subs: []string{"Misc", "Shopping", "Health"}},
	}
}

// IsFuelPurchase reports whether the category pair books fuel into the tank.
func IsFuelPurchase(category, sub string) bool {
	return strings.EqualFold(strings.TrimSpace(category), CategoryTransport) &&
		strings.EqualFold(strings.TrimSpace(sub), SubFuel)
}
