// Package memory is an in-process Store used by tests and ephemeral runs.
//
// Failures can be injected per operation to exercise the engine's
// partial-write paths.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/NgigiN/gigledger/internal/errs"
	"github.com/NgigiN/gigledger/internal/models"
	"github.com/NgigiN/gigledger/internal/storage"
)

// Op names a store method for failure injection.
type Op string

const (
	OpUpsertTransaction Op = "UpsertTransaction"
	OpDeleteTransaction Op = "DeleteTransaction"
	OpListTransactions  Op = "ListTransactions"
	OpUpsertLoan        Op = "UpsertLoan"
	OpDeleteLoan        Op = "DeleteLoan"
	OpUpsertSession     Op = "UpsertSession"
	OpDeleteSession     Op = "DeleteSession"
	OpListSessions      Op = "ListSessions"
	OpSaveVehicle       Op = "SaveVehicle"
)

// ErrInjected is returned by operations armed with Fail.
var ErrInjected = errors.New("injected store failure")

type fault struct {
	remaining int
	err       error
}

// Store keeps every collection in maps guarded by a single RWMutex.
type Store struct {
	mu           sync.RWMutex
	transactions map[string]models.Transaction
	loans        map[string]models.Loan
	sessions     map[string]models.Session
	vehicle      *models.Vehicle
	faults       map[Op]*fault
	calls        map[Op]int
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		transactions: make(map[string]models.Transaction),
		loans:        make(map[string]models.Loan),
		sessions:     make(map[string]models.Session),
		faults:       make(map[Op]*fault),
		calls:        make(map[Op]int),
	}
}

// Fail makes op succeed `after` more times and then fail with ErrInjected
// until Heal is called.
func (s *Store) Fail(op Op, after int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = &fault{remaining: after, err: ErrInjected}
}

// Heal clears every injected failure.
func (s *Store) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[Op]*fault)
}

// Calls reports how many times op was attempted.
func (s *Store) Calls(op Op) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

// check must be called with mu held for writing.
func (s *Store) check(op Op) error {
	s.calls[op]++
	f, ok := s.faults[op]
	if !ok {
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
		return nil
	}
	return f.err
}

func (s *Store) Close() error { return nil }

func (s *Store) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpListTransactions); err != nil {
		return nil, errs.Store("list transactions", err)
	}
	out := make([]models.Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		out = append(out, copyTransaction(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[id]
	if !ok {
		return models.Transaction{}, errs.ErrNotFound
	}
	return copyTransaction(t), nil
}

func (s *Store) UpsertTransaction(ctx context.Context, t models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpUpsertTransaction); err != nil {
		return errs.Store("save transaction", err)
	}
	s.transactions[t.ID] = copyTransaction(t)
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpDeleteTransaction); err != nil {
		return errs.Store("delete transaction", err)
	}
	if _, ok := s.transactions[id]; !ok {
		return errs.ErrNotFound
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) ListLoans(ctx context.Context) ([]models.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Loan, 0, len(s.loans))
	for _, l := range s.loans {
		out = append(out, copyLoan(l))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) GetLoan(ctx context.Context, id string) (models.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.loans[id]
	if !ok {
		return models.Loan{}, errs.ErrNotFound
	}
	return copyLoan(l), nil
}

func (s *Store) UpsertLoan(ctx context.Context, l models.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpUpsertLoan); err != nil {
		return errs.Store("save loan", err)
	}
	s.loans[l.ID] = copyLoan(l)
	return nil
}

func (s *Store) DeleteLoan(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpDeleteLoan); err != nil {
		return errs.Store("delete loan", err)
	}
	if _, ok := s.loans[id]; !ok {
		return errs.ErrNotFound
	}
	delete(s.loans, id)
	return nil
}

func (s *Store) ListSessions(ctx context.Context) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpListSessions); err != nil {
		return nil, errs.Store("list sessions", err)
	}
	out := make([]models.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return models.Session{}, errs.ErrNotFound
	}
	return sess, nil
}

func (s *Store) UpsertSession(ctx context.Context, sess models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpUpsertSession); err != nil {
		return errs.Store("save session", err)
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpDeleteSession); err != nil {
		return errs.Store("delete session", err)
	}
	if _, ok := s.sessions[id]; !ok {
		return errs.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *Store) LoadVehicle(ctx context.Context) (models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.vehicle == nil {
		return models.Vehicle{}, errs.ErrNotFound
	}
	return *s.vehicle, nil
}

func (s *Store) SaveVehicle(ctx context.Context, v models.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpSaveVehicle); err != nil {
		return errs.Store("save vehicle", err)
	}
	s.vehicle = &v
	return nil
}

func copyTransaction(t models.Transaction) models.Transaction {
	if t.Recurring != nil {
		r := *t.Recurring
		t.Recurring = &r
	}
	if t.SettledSessions != nil {
		t.SettledSessions = append([]string(nil), t.SettledSessions...)
	}
	return t
}

func copyLoan(l models.Loan) models.Loan {
	if l.Payments != nil {
		l.Payments = append([]models.Payment(nil), l.Payments...)
	}
	if l.Tenure != nil {
		n := *l.Tenure
		l.Tenure = &n
	}
	if l.PaymentFrequency != nil {
		f := *l.PaymentFrequency
		l.PaymentFrequency = &f
	}
	return l
}
