package fuel

import (
	"context"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/NgigiN/gigledger/internal/errs"
	"github.com/NgigiN/gigledger/internal/models"
	"github.com/NgigiN/gigledger/internal/notify"
	"github.com/NgigiN/gigledger/internal/storage/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newLedger(t *testing.T, current string) (*Ledger, *memory.Store, *notify.Recorder) {
	t.Helper()
	store := memory.New()
	rec := &notify.Recorder{}
	v := models.DefaultVehicle()
	v.Capacity = dec("10")
	v.ConsumptionRate = dec("50")
	v.Current = dec(current)
	l := New(store, WithNotifier(rec), WithDefaults(v))
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return l, store, rec
}

func TestAdjustClampsToTank(t *testing.T) {
	l, _, _ := newLedger(t, "5")
	ctx := context.Background()

	got, err := l.Adjust(ctx, dec("20"))
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if !got.Equal(dec("10")) {
		t.Fatalf("expected clamp to capacity, got %s", got)
	}
	got, err = l.Adjust(ctx, dec("-25"))
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("expected clamp to zero, got %s", got)
	}
}

func TestRandomSessionAndPurchaseSequenceStaysInBounds(t *testing.T) {
	l, _, _ := newLedger(t, "3")
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	rate := l.State().ConsumptionRate

	var sessions []models.Session
	var purchases []models.Transaction
	for i := 0; i < 300; i++ {
		var delta decimal.Decimal
		var err error
		switch op := rng.Intn(6); {
		case op == 0 || len(sessions) == 0:
			s := models.Session{Distance: decimal.NewFromInt(int64(rng.Intn(400)))}
			sessions = append(sessions, s)
			delta, err = SessionDelta(nil, &s, rate)
		case op == 1:
			i := rng.Intn(len(sessions))
			old := sessions[i]
			next := old
			next.Distance = decimal.NewFromInt(int64(rng.Intn(400)))
			sessions[i] = next
			delta, err = SessionDelta(&old, &next, rate)
		case op == 2:
			i := rng.Intn(len(sessions))
			old := sessions[i]
			sessions = append(sessions[:i], sessions[i+1:]...)
			delta, err = SessionDelta(&old, nil, rate)
		case op == 3 || len(purchases) == 0:
			p := models.Transaction{FuelLinked: true, Litres: decimal.NewFromInt(int64(rng.Intn(8)))}
			purchases = append(purchases, p)
			delta = PurchaseDelta(nil, &p)
		case op == 4:
			i := rng.Intn(len(purchases))
			old := purchases[i]
			next := old
			next.FuelLinked = rng.Intn(2) == 0
			next.Litres = decimal.NewFromInt(int64(rng.Intn(8)))
			purchases[i] = next
			delta = PurchaseDelta(&old, &next)
		default:
			i := rng.Intn(len(purchases))
			old := purchases[i]
			purchases = append(purchases[:i], purchases[i+1:]...)
			delta = PurchaseDelta(&old, nil)
		}
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		got, err := l.Adjust(ctx, delta)
		if err != nil {
			t.Fatalf("step %d: Adjust: %v", i, err)
		}
		if got.IsNegative() || got.GreaterThan(l.State().Capacity) {
			t.Fatalf("step %d: fuel %s out of bounds", i, got)
		}
	}
}

func TestSessionEditIsOneCompensatingDelta(t *testing.T) {
	l, _, _ := newLedger(t, "8")
	ctx := context.Background()
	rate := l.State().ConsumptionRate

	old := models.Session{Distance: dec("40")}
	next := models.Session{Distance: dec("95")}
	delta, err := SessionDelta(&old, &next, rate)
	if err != nil {
		t.Fatalf("SessionDelta: %v", err)
	}

	before := l.State().Current
	after, err := l.Adjust(ctx, delta)
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	want := dec("95").Sub(dec("40")).Div(rate)
	if !before.Sub(after).Equal(want) {
		t.Fatalf("expected fuel to drop by %s, dropped by %s", want, before.Sub(after))
	}
}

func TestPurchaseDeltaLinkTransitions(t *testing.T) {
	linked := func(l string) *models.Transaction {
		return &models.Transaction{FuelLinked: true, Litres: dec(l)}
	}
	plain := &models.Transaction{Litres: dec("9")}

	cases := []struct {
		name      string
		old, next *models.Transaction
		want      string
	}{
		{"create", nil, linked("3"), "3"},
		{"fuel to fuel", linked("3"), linked("5"), "2"},
		{"fuel to plain", linked("3"), plain, "-3"},
		{"plain to fuel", plain, linked("4"), "4"},
		{"plain to plain", plain, plain, "0"},
		{"delete", linked("3"), nil, "-3"},
		{"delete plain", plain, nil, "0"},
	}
	for _, c := range cases {
		if got := PurchaseDelta(c.old, c.next); !got.Equal(dec(c.want)) {
			t.Fatalf("%s: want %s got %s", c.name, c.want, got)
		}
	}
}

func TestLowFuelAlertOncePerCrossing(t *testing.T) {
	l, _, rec := newLedger(t, "5")
	ctx := context.Background()

	mustAdjust := func(delta string) {
		t.Helper()
		if _, err := l.Adjust(ctx, dec(delta)); err != nil {
			t.Fatalf("Adjust(%s): %v", delta, err)
		}
	}

	mustAdjust("-4") // 1.0 < 1.5 threshold
	mustAdjust("-0.5")
	mustAdjust("-0.1")
	if got := len(rec.Alerts()); got != 1 {
		t.Fatalf("expected one alert after first crossing, got %d", got)
	}
	if rec.Alerts()[0].Key != LowFuelKey {
		t.Fatalf("unexpected key %q", rec.Alerts()[0].Key)
	}

	mustAdjust("3")
	mustAdjust("-2.5")
	if got := len(rec.Alerts()); got != 2 {
		t.Fatalf("expected a second alert after refilling and crossing again, got %d", got)
	}
}

func TestFailedWriteLeavesStateUntouched(t *testing.T) {
	l, store, rec := newLedger(t, "5")
	ctx := context.Background()
	store.Fail(memory.OpSaveVehicle, 0)

	got, err := l.Adjust(ctx, dec("-4.5"))
	if !errs.IsStore(err) {
		t.Fatalf("expected store failure, got %v", err)
	}
	if !got.Equal(dec("5")) || !l.State().Current.Equal(dec("5")) {
		t.Fatalf("state changed despite failed write: %s", l.State().Current)
	}
	if len(rec.Alerts()) != 0 {
		t.Fatalf("no alert may fire for an uncommitted change")
	}

	store.Heal()
	if _, err := l.Adjust(ctx, dec("-1")); err != nil {
		t.Fatalf("ledger unusable after failure: %v", err)
	}
}

func TestNonPositiveRateRejected(t *testing.T) {
	s := models.Session{Distance: dec("10")}
	if _, err := SessionDelta(nil, &s, decimal.Zero); !errs.IsValidation(err) {
		t.Fatalf("expected validation failure for zero rate, got %v", err)
	}
	if _, err := SessionDelta(nil, &s, dec("-5")); !errs.IsValidation(err) {
		t.Fatalf("expected validation failure for negative rate, got %v", err)
	}

	l, _, _ := newLedger(t, "5")
	zero := decimal.Zero
	if _, err := l.UpdateSettings(context.Background(), Settings{ConsumptionRate: &zero}); !errs.IsValidation(err) {
		t.Fatalf("expected validation failure, got %v", err)
	}
}

func TestShrinkingCapacityReclamps(t *testing.T) {
	l, store, _ := newLedger(t, "8")
	ctx := context.Background()

	capacity := dec("6")
	v, err := l.UpdateSettings(ctx, Settings{Capacity: &capacity})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if !v.Current.Equal(capacity) {
		t.Fatalf("expected current clamped to 6, got %s", v.Current)
	}
	persisted, err := store.LoadVehicle(ctx)
	if err != nil {
		t.Fatalf("LoadVehicle: %v", err)
	}
	if !persisted.Current.Equal(capacity) {
		t.Fatalf("clamped level not persisted: %s", persisted.Current)
	}
}
