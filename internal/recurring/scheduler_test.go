package recurring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NgigiN/gigledger/internal/errs"
	"github.com/NgigiN/gigledger/internal/models"
	"github.com/NgigiN/gigledger/internal/storage/memory"
)

func mustDay(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := models.ParseDay(raw)
	if err != nil {
		t.Fatalf("ParseDay(%q): %v", raw, err)
	}
	return d
}

func TestMonthlyAnchorClamp(t *testing.T) {
	last := mustDay(t, "2024-01-31")
	want := []string{"2024-02-29", "2024-03-31", "2024-04-30", "2024-05-31"}
	for _, w := range want {
		last = Next(last, models.Monthly, 31)
		if got := last.Format(models.DayLayout); got != w {
			t.Fatalf("want %s got %s", w, got)
		}
	}

	if got := Next(mustDay(t, "2023-01-31"), models.Monthly, 0).Format(models.DayLayout); got != "2023-02-28" {
		t.Fatalf("non-leap February: got %s", got)
	}
	if got := Next(mustDay(t, "2024-12-15"), models.Monthly, 0).Format(models.DayLayout); got != "2025-01-15" {
		t.Fatalf("year rollover: got %s", got)
	}
}

func TestOccurrencesDailyGap(t *testing.T) {
	got := Occurrences(mustDay(t, "2024-03-01"), mustDay(t, "2024-03-04"), models.Daily, 0)
	want := []string{"2024-03-02", "2024-03-03", "2024-03-04"}
	if len(got) != len(want) {
		t.Fatalf("expected %d occurrences, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Format(models.DayLayout) != want[i] {
			t.Fatalf("occurrence %d: want %s got %s", i, want[i], got[i].Format(models.DayLayout))
		}
	}

	if got := Occurrences(mustDay(t, "2024-03-01"), mustDay(t, "2024-03-07"), models.Weekly, 0); len(got) != 0 {
		t.Fatalf("weekly within a week should be empty, got %v", got)
	}
	if got := Occurrences(mustDay(t, "2024-03-01"), mustDay(t, "2024-03-08"), models.Frequency("hourly"), 0); got != nil {
		t.Fatalf("unknown frequency should yield nothing, got %v", got)
	}
}

func seedTemplate(t *testing.T, store *memory.Store, freq models.Frequency, last string) models.Transaction {
	t.Helper()
	tmpl := models.Transaction{
		ID:          "txn_rent",
		Kind:        models.KindExpense,
		Amount:      decimal.NewFromInt(250),
		Category:    "Bills",
		SubCategory: "Internet",
		Date:        mustDay(t, last),
		Recurring:   &models.Recurrence{Frequency: freq, LastProcessed: mustDay(t, last)},
	}
	if err := store.UpsertTransaction(context.Background(), tmpl); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return tmpl
}

func occurrencesOf(t *testing.T, store *memory.Store, source string) []models.Transaction {
	t.Helper()
	all, err := store.ListTransactions(context.Background())
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	var out []models.Transaction
	for _, txn := range all {
		if txn.SourceID == source {
			out = append(out, txn)
		}
	}
	return out
}

func TestRunEmitsEachMissedDayAndAdvancesMarker(t *testing.T) {
	store := memory.New()
	seedTemplate(t, store, models.Daily, "2024-03-01")
	s := New(store)
	ctx := context.Background()

	res, err := s.Run(ctx, mustDay(t, "2024-03-04"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Emitted != 3 || res.ByTemplate["txn_rent"] != 3 {
		t.Fatalf("expected 3 emissions, got %+v", res)
	}

	occ := occurrencesOf(t, store, "txn_rent")
	if len(occ) != 3 {
		t.Fatalf("expected 3 stored occurrences, got %d", len(occ))
	}
	seen := map[string]bool{}
	for _, o := range occ {
		seen[o.Date.Format(models.DayLayout)] = true
		if o.IsTemplate() {
			t.Fatalf("occurrence %s must not be a template", o.ID)
		}
		if !o.Amount.Equal(decimal.NewFromInt(250)) || o.Category != "Bills" {
			t.Fatalf("occurrence did not copy template fields: %+v", o)
		}
	}
	for _, d := range []string{"2024-03-02", "2024-03-03", "2024-03-04"} {
		if !seen[d] {
			t.Fatalf("missing occurrence on %s", d)
		}
	}

	tmpl, err := store.GetTransaction(ctx, "txn_rent")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got := tmpl.Recurring.LastProcessed.Format(models.DayLayout); got != "2024-03-04" {
		t.Fatalf("marker should be 2024-03-04, got %s", got)
	}
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	store := memory.New()
	seedTemplate(t, store, models.Weekly, "2024-01-01")
	s := New(store)
	ctx := context.Background()
	today := mustDay(t, "2024-03-01")

	first, err := s.Run(ctx, today)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if first.Emitted == 0 {
		t.Fatalf("expected the first run to emit")
	}
	second, err := s.Run(ctx, today)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.Emitted != 0 {
		t.Fatalf("second run emitted %d", second.Emitted)
	}
	if got := len(occurrencesOf(t, store, "txn_rent")); got != first.Emitted {
		t.Fatalf("expected %d occurrences, got %d", first.Emitted, got)
	}
}

func TestRunResumesAfterFailedMarkerWrite(t *testing.T) {
	store := memory.New()
	seedTemplate(t, store, models.Daily, "2024-03-01")
	s := New(store)
	ctx := context.Background()
	today := mustDay(t, "2024-03-04")

	// The occurrence write succeeds, the marker write after it fails.
	store.Fail(memory.OpUpsertTransaction, 1)
	res, err := s.Run(ctx, today)
	if !errs.IsStore(err) {
		t.Fatalf("expected store failure, got %v", err)
	}
	if res.Emitted != 1 {
		t.Fatalf("expected one emission before the failure, got %d", res.Emitted)
	}

	store.Heal()
	res, err = s.Run(ctx, today)
	if err != nil {
		t.Fatalf("resumed Run: %v", err)
	}
	if res.Emitted != 2 {
		t.Fatalf("expected the remaining 2 occurrences, got %d", res.Emitted)
	}
	if got := len(occurrencesOf(t, store, "txn_rent")); got != 3 {
		t.Fatalf("expected 3 occurrences without duplicates, got %d", got)
	}
}

func TestFailingHookUndoesOccurrence(t *testing.T) {
	store := memory.New()
	seedTemplate(t, store, models.Daily, "2024-03-01")
	boom := errors.New("tank offline")
	calls := 0
	s := New(store, WithEmitHook(func(ctx context.Context, occ models.Transaction) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	}))

	res, err := s.Run(context.Background(), mustDay(t, "2024-03-04"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected hook error, got %v", err)
	}
	if res.Emitted != 1 || len(occurrencesOf(t, store, "txn_rent")) != 1 {
		t.Fatalf("expected exactly one kept occurrence, got %+v", res)
	}
}

func TestFailedUndoReportsOrphanedOccurrence(t *testing.T) {
	store := memory.New()
	seedTemplate(t, store, models.Daily, "2024-03-01")
	store.Fail(memory.OpDeleteTransaction, 0)
	boom := errors.New("tank offline")
	s := New(store, WithEmitHook(func(ctx context.Context, occ models.Transaction) error { return boom }))

	res, err := s.Run(context.Background(), mustDay(t, "2024-03-02"))
	if !errors.Is(err, boom) || !errors.Is(err, memory.ErrInjected) {
		t.Fatalf("expected both the hook and the undo failure, got %v", err)
	}
	if res.Emitted != 0 {
		t.Fatalf("failed occurrence must not count as emitted, got %d", res.Emitted)
	}
	if got := len(occurrencesOf(t, store, "txn_rent")); got != 1 {
		t.Fatalf("expected the orphan to remain in the store, got %d", got)
	}
	tmpl, _ := store.GetTransaction(context.Background(), "txn_rent")
	if !tmpl.Recurring.LastProcessed.Equal(mustDay(t, "2024-03-01")) {
		t.Fatalf("marker must not advance past a failed occurrence, got %s", tmpl.Recurring.LastProcessed)
	}
}
