package repository

import "context"

// Repos groups the repositories that take part in a ledger transaction.
type Repos struct {
	Trips    TripRepository
	Bookings BookingRepository
}

// Transactor runs fn so that all writes made through the given Repos are
// committed together or not at all.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
}
