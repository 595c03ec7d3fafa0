// Package settlement posts delivery earnings into the general ledger.
//
// A posting folds a set of unposted sessions into one ledger transaction and
// then marks every session with that transaction's id. The transaction lists
// the sessions it covers, so a posting interrupted between the two steps can
// be completed later without creating a second transaction.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NgigiN/gigledger/internal/errs"
	"github.com/NgigiN/gigledger/internal/id"
	"github.com/NgigiN/gigledger/internal/models"
)

// ErrNothingToSettle is returned when no session is eligible or the eligible
// sessions net to exactly zero.
var ErrNothingToSettle = errors.New("nothing to settle")

// PartialPostingError reports a payout transaction that was written while
// some of its sessions could not be marked.
type PartialPostingError struct {
	TransactionID string
	Marked        []string
	Pending       []string
	Err           error
}

func (e *PartialPostingError) Error() string {
	return fmt.Sprintf("settlement %s: marked %d of %d sessions: %v",
		e.TransactionID, len(e.Marked), len(e.Marked)+len(e.Pending), e.Err)
}

func (e *PartialPostingError) Unwrap() error { return e.Err }

// Store is the part of the record store the poster needs.
type Store interface {
	ListTransactions(ctx context.Context) ([]models.Transaction, error)
	UpsertTransaction(ctx context.Context, t models.Transaction) error
	ListSessions(ctx context.Context) ([]models.Session, error)
	UpsertSession(ctx context.Context, s models.Session) error
}

// Poster creates payout transactions. One posting runs at a time.
type Poster struct {
	mu     sync.Mutex
	store  Store
	logger *slog.Logger
	newID  func() string
}

type Option func(*Poster)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Poster) { p.logger = logger }
}

func NewPoster(store Store, opts ...Option) *Poster {
	p := &Poster{
		store:  store,
		logger: slog.Default(),
		newID:  id.NewTransaction,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Total is the signed settlement of sessions.
func Total(sessions []models.Session) decimal.Decimal {
	total := decimal.Zero
	for _, s := range sessions {
		total = total.Add(s.Online)
	}
	return total
}

// Settle posts every eligible session in scope.
func (p *Poster) Settle(ctx context.Context, scope Scope, today time.Time) (models.Transaction, error) {
	sessions, err := p.store.ListSessions(ctx)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("list sessions: %w", err)
	}
	return p.Post(ctx, Eligible(sessions, scope, today), scope, today)
}

// Post folds sessions into one payout transaction dated today and marks them
// posted. Sessions already named by an earlier payout are attached to it
// instead of being posted again.
func (p *Poster) Post(ctx context.Context, sessions []models.Session, scope Scope, today time.Time) (models.Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range sessions {
		if s.Posted() {
			return models.Transaction{}, errs.Invalid("sessions", "session %s is already posted to %s", s.ID, s.LedgerID)
		}
	}
	if len(sessions) == 0 {
		return models.Transaction{}, ErrNothingToSettle
	}

	txns, err := p.store.ListTransactions(ctx)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("list transactions: %w", err)
	}
	owners := payoutOwners(txns)

	var fresh []models.Session
	var resumed *models.Transaction
	for _, s := range sessions {
		owner, ok := owners[s.ID]
		if !ok {
			fresh = append(fresh, s)
			continue
		}
		if err := p.mark(ctx, owner.ID, []models.Session{s}); err != nil {
			return *owner, err
		}
		resumed = owner
	}
	if len(fresh) == 0 {
		p.logger.Info("settlement resumed", "transaction_id", resumed.ID)
		return *resumed, nil
	}

	total := Total(fresh)
	if total.IsZero() {
		return models.Transaction{}, ErrNothingToSettle
	}

	txn := payoutTransaction(p.newID(), fresh, total, scope, today)
	if err := p.store.UpsertTransaction(ctx, txn); err != nil {
		return models.Transaction{}, fmt.Errorf("write payout: %w", err)
	}
	if err := p.mark(ctx, txn.ID, fresh); err != nil {
		return txn, err
	}
	p.logger.Info("settlement posted", "transaction_id", txn.ID, "sessions", len(fresh), "total", total.String())
	return txn, nil
}

// Resume completes every payout whose sessions are not all marked yet and
// returns how many sessions it marked.
func (p *Poster) Resume(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	txns, err := p.store.ListTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w", err)
	}
	sessions, err := p.store.ListSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}
	owners := payoutOwners(txns)

	pending := make(map[string][]models.Session)
	var order []string
	for _, s := range sessions {
		if s.Posted() {
			continue
		}
		owner, ok := owners[s.ID]
		if !ok {
			continue
		}
		if _, seen := pending[owner.ID]; !seen {
			order = append(order, owner.ID)
		}
		pending[owner.ID] = append(pending[owner.ID], s)
	}

	marked := 0
	var errList []error
	for _, txnID := range order {
		if err := p.mark(ctx, txnID, pending[txnID]); err != nil {
			var partial *PartialPostingError
			if errors.As(err, &partial) {
				marked += len(partial.Marked)
			}
			errList = append(errList, err)
			continue
		}
		marked += len(pending[txnID])
	}
	if marked > 0 {
		p.logger.Info("settlements resumed", "sessions", marked)
	}
	return marked, errors.Join(errList...)
}

// mark writes txnID onto every session. Rewriting a session that already
// carries txnID is harmless.
func (p *Poster) mark(ctx context.Context, txnID string, sessions []models.Session) error {
	var done []string
	for i, s := range sessions {
		s.LedgerID = txnID
		if err := p.store.UpsertSession(ctx, s); err != nil {
			pending := make([]string, 0, len(sessions)-i)
			for _, rest := range sessions[i:] {
				pending = append(pending, rest.ID)
			}
			p.logger.Error("settlement partially applied", "transaction_id", txnID, "pending", len(pending), "error", err)
			return &PartialPostingError{TransactionID: txnID, Marked: done, Pending: pending, Err: err}
		}
		done = append(done, s.ID)
	}
	return nil
}

// payoutOwners maps every settled session id to the payout naming it.
func payoutOwners(txns []models.Transaction) map[string]*models.Transaction {
	owners := make(map[string]*models.Transaction)
	for i := range txns {
		for _, sid := range txns[i].SettledSessions {
			owners[sid] = &txns[i]
		}
	}
	return owners
}

func payoutTransaction(txnID string, sessions []models.Session, total decimal.Decimal, scope Scope, today time.Time) models.Transaction {
	txn := models.Transaction{
		ID:          txnID,
		Kind:        models.KindIncome,
		Amount:      total.Abs(),
		Category:    models.CategoryIncome,
		SubCategory: models.SubSalary,
		Date:        models.Day(today),
		Note:        fmt.Sprintf("Delivery Payout: %s Summary (%d sessions)", scope.Label(), len(sessions)),
	}
	if !total.IsPositive() {
		txn.Kind = models.KindExpense
		txn.Category = models.CategoryTransport
		txn.SubCategory = models.SubMaintenance
	}
	for _, s := range sessions {
		txn.SettledSessions = append(txn.SettledSessions, s.ID)
	}
	slices.Sort(txn.SettledSessions)
	return txn
}
