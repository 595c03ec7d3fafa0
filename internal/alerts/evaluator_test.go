package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NgigiN/gigledger/internal/errs"
	"github.com/NgigiN/gigledger/internal/fuel"
	"github.com/NgigiN/gigledger/internal/models"
	"github.com/NgigiN/gigledger/internal/notify"
	"github.com/NgigiN/gigledger/internal/recurring"
	"github.com/NgigiN/gigledger/internal/storage/memory"
)

var (
	saturday = time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	monday   = time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	store *memory.Store
	rec   *notify.Recorder
	eval  *Evaluator
}

func newFixture(t *testing.T, current string) fixture {
	t.Helper()
	store := memory.New()
	v := models.DefaultVehicle()
	v.Current = decimal.RequireFromString(current)
	ledger := fuel.New(store, fuel.WithDefaults(v))
	if err := ledger.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	rec := &notify.Recorder{}
	eval := New(ledger, store, recurring.New(store), WithNotifier(rec))
	return fixture{store: store, rec: rec, eval: eval}
}

func TestEvaluateRunsEveryRuleInOrder(t *testing.T) {
	f := newFixture(t, "0.5")
	ctx := context.Background()

	monthly := models.Monthly
	loan := models.Loan{
		ID: "loan_1", Name: "Bike", Amount: decimal.NewFromInt(5000),
		Direction: models.Taken, Category: models.Commercial, Status: models.LoanActive,
		PaymentFrequency: &monthly, Date: time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC),
	}
	if err := f.store.UpsertLoan(ctx, loan); err != nil {
		t.Fatalf("UpsertLoan: %v", err)
	}
	if err := f.store.UpsertSession(ctx, models.Session{ID: "dlv_1", Date: saturday, Online: decimal.NewFromInt(120)}); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}
	tmpl := models.Transaction{
		ID: "txn_tea", Kind: models.KindExpense, Amount: decimal.NewFromInt(20),
		Category: "Food", SubCategory: "Tea / Coffee", Date: saturday.AddDate(0, 0, -2),
		Recurring: &models.Recurrence{Frequency: models.Daily, LastProcessed: saturday.AddDate(0, 0, -2)},
	}
	if err := f.store.UpsertTransaction(ctx, tmpl); err != nil {
		t.Fatalf("UpsertTransaction: %v", err)
	}

	report, err := f.eval.Evaluate(ctx, saturday, true)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	wantKeys := []string{KeyFuelLow, KeyLoanDue, KeyWeekendPayout, KeyRecurring}
	if len(report.Alerts) != len(wantKeys) {
		t.Fatalf("expected %d alerts, got %+v", len(wantKeys), report.Alerts)
	}
	for i, k := range wantKeys {
		if report.Alerts[i].Key != k {
			t.Fatalf("alert %d: want %s got %s", i, k, report.Alerts[i].Key)
		}
	}
	if report.Alerts[1].Body != "You have 1 loan payments due today." {
		t.Fatalf("unexpected loan body %q", report.Alerts[1].Body)
	}
	if report.Emitted != 2 || report.AllClear {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(f.rec.Alerts()) != 4 {
		t.Fatalf("expected 4 notifications, got %d", len(f.rec.Alerts()))
	}
}

func TestSilentAndManualOutcomes(t *testing.T) {
	f := newFixture(t, "3")
	ctx := context.Background()

	report, err := f.eval.Evaluate(ctx, monday, true)
	if err != nil {
		t.Fatalf("Evaluate silent: %v", err)
	}
	if !report.AllClear || len(f.rec.Alerts()) != 0 {
		t.Fatalf("silent run must stay quiet, got %+v", f.rec.Alerts())
	}

	report, err = f.eval.Evaluate(ctx, monday, false)
	if err != nil {
		t.Fatalf("Evaluate manual: %v", err)
	}
	got := f.rec.Alerts()
	if !report.AllClear || len(got) != 1 || got[0].Key != KeyAllClear {
		t.Fatalf("manual run must yield exactly one all-clear, got %+v", got)
	}
}

func TestEmptyTankAndWeekdayDoNotAlert(t *testing.T) {
	f := newFixture(t, "0")
	ctx := context.Background()
	if err := f.store.UpsertSession(ctx, models.Session{ID: "dlv_1", Date: monday, Online: decimal.NewFromInt(80)}); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}

	report, err := f.eval.Evaluate(ctx, monday, true)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(report.Alerts) != 0 {
		t.Fatalf("expected no alerts, got %+v", report.Alerts)
	}
}

func TestFailingRuleDoesNotStopLaterRules(t *testing.T) {
	f := newFixture(t, "3")
	ctx := context.Background()
	tmpl := models.Transaction{
		ID: "txn_tea", Kind: models.KindExpense, Amount: decimal.NewFromInt(20),
		Date:      saturday.AddDate(0, 0, -1),
		Recurring: &models.Recurrence{Frequency: models.Daily, LastProcessed: saturday.AddDate(0, 0, -1)},
	}
	if err := f.store.UpsertTransaction(ctx, tmpl); err != nil {
		t.Fatalf("UpsertTransaction: %v", err)
	}
	f.store.Fail(memory.OpListSessions, 0)

	report, err := f.eval.Evaluate(ctx, saturday, false)
	if !errs.IsStore(err) {
		t.Fatalf("expected store failure, got %v", err)
	}
	if len(report.Alerts) != 1 || report.Alerts[0].Key != KeyRecurring {
		t.Fatalf("recurring rule should still run, got %+v", report.Alerts)
	}
	for _, a := range f.rec.Alerts() {
		if a.Key == KeyAllClear {
			t.Fatalf("no all-clear may be sent alongside alerts")
		}
	}
}
