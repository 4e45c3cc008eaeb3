package postgres

import (
	"context"
	"database/sql"

	"louage/internal/repository"
)

// Transactor runs ledger writes inside a single PostgreSQL transaction.
type Transactor struct {
	db *sql.DB
}

// NewTransactor creates a new Transactor.
func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTx begins a transaction, hands fn transaction-scoped repositories and
// commits when fn succeeds.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) (err error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Create transaction-scoped repositories.
	repos := repository.Repos{
		Trips:    NewTripRepositoryWithTx(tx),
		Bookings: NewBookingRepositoryWithTx(tx),
	}

	if err = fn(ctx, repos); err != nil {
		return err
	}

	return tx.Commit()
}

// Ensure Transactor implements repository.Transactor.
var _ repository.Transactor = (*Transactor)(nil)
