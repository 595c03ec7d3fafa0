package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/NgigiN/gigledger/internal/errs"
	"github.com/NgigiN/gigledger/internal/models"
)

// Database is the sqlite-backed Store.
type Database struct {
	db *gorm.DB
}

var _ Store = (*Database)(nil)

func NewDatabase(dbPath string) (*Database, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&transactionRow{}, &loanRow{}, &paymentRow{}, &sessionRow{}, &vehicleRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql handle: %w", err)
	}
	return sqlDB.Close()
}

func (d *Database) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	var rows []transactionRow
	if err := d.db.WithContext(ctx).Order("date DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, errs.Store("list transactions", err)
	}
	out := make([]models.Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromTransactionRow(row))
	}
	return out, nil
}

func (d *Database) GetTransaction(ctx context.Context, id string) (models.Transaction, error) {
	var row transactionRow
	if err := d.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return models.Transaction{}, errs.Store("get transaction", notFound(err))
	}
	return fromTransactionRow(row), nil
}

func (d *Database) UpsertTransaction(ctx context.Context, t models.Transaction) error {
	row := toTransactionRow(t)
	if err := d.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return errs.Store("save transaction", err)
	}
	return nil
}

func (d *Database) DeleteTransaction(ctx context.Context, id string) error {
	res := d.db.WithContext(ctx).Delete(&transactionRow{}, "id = ?", id)
	return errs.Store("delete transaction", deleted(res))
}

func (d *Database) ListLoans(ctx context.Context) ([]models.Loan, error) {
	var rows []loanRow
	err := d.db.WithContext(ctx).
		Preload("Payments", orderPayments).
		Order("date DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, errs.Store("list loans", err)
	}
	out := make([]models.Loan, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromLoanRow(row))
	}
	return out, nil
}

func (d *Database) GetLoan(ctx context.Context, id string) (models.Loan, error) {
	var row loanRow
	err := d.db.WithContext(ctx).Preload("Payments", orderPayments).First(&row, "id = ?", id).Error
	if err != nil {
		return models.Loan{}, errs.Store("get loan", notFound(err))
	}
	return fromLoanRow(row), nil
}

// UpsertLoan replaces the loan row and its payment rows in one transaction.
func (d *Database) UpsertLoan(ctx context.Context, l models.Loan) error {
	row := toLoanRow(l)
	payments := row.Payments
	row.Payments = nil

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
			return err
		}
		if err := tx.Where("loan_id = ?", l.ID).Delete(&paymentRow{}).Error; err != nil {
			return err
		}
		if len(payments) == 0 {
			return nil
		}
		return tx.Create(&payments).Error
	})
	if err != nil {
		return errs.Store("save loan", err)
	}
	return nil
}

func (d *Database) DeleteLoan(ctx context.Context, id string) error {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("loan_id = ?", id).Delete(&paymentRow{}).Error; err != nil {
			return err
		}
		return deleted(tx.Delete(&loanRow{}, "id = ?", id))
	})
	return errs.Store("delete loan", err)
}

func (d *Database) ListSessions(ctx context.Context) ([]models.Session, error) {
	var rows []sessionRow
	if err := d.db.WithContext(ctx).Order("date DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, errs.Store("list sessions", err)
	}
	out := make([]models.Session, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromSessionRow(row))
	}
	return out, nil
}

func (d *Database) GetSession(ctx context.Context, id string) (models.Session, error) {
	var row sessionRow
	if err := d.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return models.Session{}, errs.Store("get session", notFound(err))
	}
	return fromSessionRow(row), nil
}

func (d *Database) UpsertSession(ctx context.Context, s models.Session) error {
	row := toSessionRow(s)
	if err := d.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return errs.Store("save session", err)
	}
	return nil
}

func (d *Database) DeleteSession(ctx context.Context, id string) error {
	res := d.db.WithContext(ctx).Delete(&sessionRow{}, "id = ?", id)
	return errs.Store("delete session", deleted(res))
}

func (d *Database) LoadVehicle(ctx context.Context) (models.Vehicle, error) {
	var row vehicleRow
	if err := d.db.WithContext(ctx).First(&row, vehicleRowID).Error; err != nil {
		return models.Vehicle{}, errs.Store("load vehicle", notFound(err))
	}
	return fromVehicleRow(row), nil
}

func (d *Database) SaveVehicle(ctx context.Context, v models.Vehicle) error {
	row := toVehicleRow(v)
	if err := d.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return errs.Store("save vehicle", err)
	}
	return nil
}

func orderPayments(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.ErrNotFound
	}
	return err
}

func deleted(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}
