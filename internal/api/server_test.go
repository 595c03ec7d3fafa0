package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NgigiN/gigledger/internal/alerts"
	"github.com/NgigiN/gigledger/internal/backup"
	"github.com/NgigiN/gigledger/internal/loans"
	"github.com/NgigiN/gigledger/internal/models"
	"github.com/NgigiN/gigledger/internal/notify"
	"github.com/NgigiN/gigledger/internal/storage/memory"
	"github.com/NgigiN/gigledger/internal/tracker"
)

// Saturday.
var now = time.Date(2024, 3, 9, 18, 30, 0, 0, time.UTC)

type envelope[T any] struct {
	Data  T      `json:"data"`
	Error string `json:"error"`
}

func newTestServer(t *testing.T, opts ...Option) (http.Handler, *memory.Store) {
	t.Helper()
	store := memory.New()
	v := models.DefaultVehicle()
	v.Capacity = decimal.NewFromInt(10)
	v.Current = decimal.NewFromInt(8)
	v.ConsumptionRate = decimal.NewFromInt(50)
	v.UnitCost = decimal.NewFromInt(100)
	tr, err := tracker.New(context.Background(), store,
		tracker.WithClock(func() time.Time { return now }),
		tracker.WithVehicleDefaults(v),
		tracker.WithNotifier(&notify.Recorder{}),
	)
	if err != nil {
		t.Fatalf("create tracker: %v", err)
	}
	return New(tr, opts...).Routes(), store
}

func doRaw(t *testing.T, handler http.Handler, method, path string, payload any, expectedStatus int) []byte {
	t.Helper()

	var body bytes.Buffer
	switch p := payload.(type) {
	case nil:
	case []byte:
		body.Write(p)
	default:
		if err := json.NewEncoder(&body).Encode(p); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != expectedStatus {
		t.Fatalf("%s %s: expected status %d, got %d: %s", method, path, expectedStatus, recorder.Code, recorder.Body.String())
	}

	respBytes, err := io.ReadAll(recorder.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return respBytes
}

func doJSON[T any](t *testing.T, handler http.Handler, method, path string, payload any, expectedStatus int) T {
	t.Helper()

	var value envelope[T]
	respBytes := doRaw(t, handler, method, path, payload, expectedStatus)
	if err := json.Unmarshal(respBytes, &value); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return value.Data
}

func TestSettlementFlow(t *testing.T) {
	h, _ := newTestServer(t)

	sess := doJSON[models.Session](t, h, http.MethodPost, "/api/v1/sessions", map[string]any{
		"date":     "2024-03-08",
		"total":    "500",
		"cash":     "200",
		"distance": "100",
	}, http.StatusCreated)
	if !sess.Online.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected settlement 300, got %s", sess.Online)
	}

	v := doJSON[models.Vehicle](t, h, http.MethodGet, "/api/v1/vehicle", nil, http.StatusOK)
	if !v.Current.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("expected 6L after 100km, got %s", v.Current)
	}

	payout := doJSON[models.Transaction](t, h, http.MethodPost, "/api/v1/settlements", map[string]string{"scope": "all"}, http.StatusCreated)
	if payout.Kind != models.KindIncome || !payout.Amount.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("unexpected payout %+v", payout)
	}
	if len(payout.SettledSessions) != 1 || payout.SettledSessions[0] != sess.ID {
		t.Fatalf("payout should reference the session, got %v", payout.SettledSessions)
	}

	doRaw(t, h, http.MethodPost, "/api/v1/settlements", nil, http.StatusConflict)

	posted := doJSON[models.Session](t, h, http.MethodGet, "/api/v1/sessions/"+sess.ID, nil, http.StatusOK)
	if posted.LedgerID != payout.ID {
		t.Fatalf("session should be marked with %s, got %q", payout.ID, posted.LedgerID)
	}

	stats := doJSON[tracker.DeliveryStats](t, h, http.MethodGet, "/api/v1/sessions/stats?scope=weekly", nil, http.StatusOK)
	if stats.Sessions != 1 || !stats.AppTotal.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestTransactionErrors(t *testing.T) {
	h, store := newTestServer(t)

	doRaw(t, h, http.MethodPost, "/api/v1/transactions", map[string]any{"kind": "gift", "amount": "10", "category": "Food"}, http.StatusBadRequest)
	doRaw(t, h, http.MethodPost, "/api/v1/transactions", []byte("{"), http.StatusBadRequest)
	doRaw(t, h, http.MethodGet, "/api/v1/transactions/missing", nil, http.StatusNotFound)
	doRaw(t, h, http.MethodGet, "/api/v1/transactions?scope=fortnight", nil, http.StatusBadRequest)

	txn := doJSON[models.Transaction](t, h, http.MethodPost, "/api/v1/transactions", map[string]any{
		"kind": "expense", "amount": "200", "category": "Transport", "sub_category": "Fuel",
	}, http.StatusCreated)
	if !txn.FuelLinked || !txn.Litres.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected a fuel-linked purchase of 2L, got %+v", txn)
	}

	sum := doJSON[tracker.TransactionSummary](t, h, http.MethodGet, "/api/v1/transactions/summary?kind=expense", nil, http.StatusOK)
	if sum.Count != 1 || !sum.Spent.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("unexpected summary %+v", sum)
	}

	store.Fail(memory.OpListTransactions, 0)
	resp := doJSON[any](t, h, http.MethodGet, "/api/v1/transactions", nil, http.StatusInternalServerError)
	if resp != nil {
		t.Fatalf("expected no data on failure, got %v", resp)
	}
	store.Heal()

	doRaw(t, h, http.MethodDelete, "/api/v1/transactions/"+txn.ID, nil, http.StatusNoContent)
	v := doJSON[models.Vehicle](t, h, http.MethodGet, "/api/v1/vehicle", nil, http.StatusOK)
	if !v.Current.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("deleting the purchase should restore 8L, got %s", v.Current)
	}
}

func TestLoanEndpoints(t *testing.T) {
	h, _ := newTestServer(t)

	l := doJSON[models.Loan](t, h, http.MethodPost, "/api/v1/loans", map[string]any{
		"name": "Wanjiru", "amount": "1000", "direction": "given", "date": "2024-03-01",
	}, http.StatusCreated)

	l = doJSON[models.Loan](t, h, http.MethodPost, "/api/v1/loans/"+l.ID+"/payments", map[string]any{"amount": "1000"}, http.StatusCreated)
	if l.Status != models.LoanCleared || len(l.Payments) != 1 {
		t.Fatalf("full repayment should clear the loan, got %+v", l)
	}

	active := doJSON[[]models.Loan](t, h, http.MethodGet, "/api/v1/loans?status=active", nil, http.StatusOK)
	if len(active) != 0 {
		t.Fatalf("expected no active loans, got %d", len(active))
	}

	l = doJSON[models.Loan](t, h, http.MethodDelete, "/api/v1/loans/"+l.ID+"/payments/"+l.Payments[0].ID, nil, http.StatusOK)
	if l.Status != models.LoanActive {
		t.Fatalf("removing the payment should reactivate the loan, got %s", l.Status)
	}

	q := doJSON[loans.Quote](t, h, http.MethodGet, "/api/v1/loans/quote?amount=10000&rate=2&tenure=12", nil, http.StatusOK)
	if !q.Interest.Equal(decimal.NewFromInt(2400)) || !q.TotalPayable.Equal(decimal.NewFromInt(12400)) {
		t.Fatalf("unexpected quote %+v", q)
	}
	doRaw(t, h, http.MethodGet, "/api/v1/loans/quote?amount=x&rate=2&tenure=12", nil, http.StatusBadRequest)
}

func TestChecksAndBackup(t *testing.T) {
	h, _ := newTestServer(t)

	doRaw(t, h, http.MethodPost, "/api/v1/sessions", map[string]any{
		"date": "2024-03-09", "total": "300", "cash": "100", "distance": "10",
	}, http.StatusCreated)

	report := doJSON[alerts.Report](t, h, http.MethodPost, "/api/v1/checks?silent=true", nil, http.StatusOK)
	if len(report.Alerts) != 1 || report.Alerts[0].Key != alerts.KeyWeekendPayout {
		t.Fatalf("expected a weekend payout alert, got %+v", report.Alerts)
	}
	doRaw(t, h, http.MethodPost, "/api/v1/checks?silent=maybe", nil, http.StatusBadRequest)

	raw := doRaw(t, h, http.MethodGet, "/api/v1/backup", nil, http.StatusOK)
	doc, err := backup.Read(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("exported backup should read back: %v", err)
	}
	if len(doc.Sessions) != 1 {
		t.Fatalf("expected 1 session in backup, got %d", len(doc.Sessions))
	}

	fresh, _ := newTestServer(t)
	counts := doJSON[backup.Counts](t, fresh, http.MethodPost, "/api/v1/backup", raw, http.StatusOK)
	if counts.Sessions != 1 {
		t.Fatalf("expected 1 imported session, got %+v", counts)
	}
	sessions := doJSON[[]models.Session](t, fresh, http.MethodGet, "/api/v1/sessions", nil, http.StatusOK)
	if len(sessions) != 1 {
		t.Fatalf("expected restored session, got %d", len(sessions))
	}
	doRaw(t, fresh, http.MethodPost, "/api/v1/backup", []byte(`{"settings":{}}`), http.StatusBadRequest)
}

func TestHealth(t *testing.T) {
	h, _ := newTestServer(t, WithProbe("discord", func() bool { return true }))
	body := doJSON[map[string]any](t, h, http.MethodGet, "/health", nil, http.StatusOK)
	if body["status"] != "healthy" {
		t.Fatalf("unexpected health %v", body)
	}

	down, _ := newTestServer(t, WithProbe("discord", func() bool { return false }))
	doRaw(t, down, http.MethodGet, "/health", nil, http.StatusServiceUnavailable)
}
