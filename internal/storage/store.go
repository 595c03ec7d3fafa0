// Package storage persists the tracker's record collections.
package storage

import (
	"context"

	"github.com/NgigiN/gigledger/internal/models"
)

// Store is the persistent record store: fetch-all, get, upsert-by-id and
// delete-by-id per collection, plus the single vehicle settings row.
//
// There are no transactions across collections. Callers issuing multi-record
// updates must tolerate partial application.
type Store interface {
	ListTransactions(ctx context.Context) ([]models.Transaction, error)
	GetTransaction(ctx context.Context, id string) (models.Transaction, error)
	UpsertTransaction(ctx context.Context, t models.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error

	ListLoans(ctx context.Context) ([]models.Loan, error)
	GetLoan(ctx context.Context, id string) (models.Loan, error)
	UpsertLoan(ctx context.Context, l models.Loan) error
	DeleteLoan(ctx context.Context, id string) error

	ListSessions(ctx context.Context) ([]models.Session, error)
	GetSession(ctx context.Context, id string) (models.Session, error)
	UpsertSession(ctx context.Context, s models.Session) error
	DeleteSession(ctx context.Context, id string) error

	// LoadVehicle returns errs.ErrNotFound until the first SaveVehicle.
	LoadVehicle(ctx context.Context) (models.Vehicle, error)
	SaveVehicle(ctx context.Context, v models.Vehicle) error

	Close() error
}
