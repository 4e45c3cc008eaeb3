package postgres

import (
	"context"
	"database/sql"
	"errors"

	"louage/internal/domain"
	"louage/internal/repository"
)

// BookingRepository is a PostgreSQL implementation of repository.BookingRepository.
type BookingRepository struct {
	q Querier
}

// NewBookingRepository creates a new PostgreSQL booking repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{q: db}
}

// NewBookingRepositoryWithTx creates a booking repository using a transaction.
func NewBookingRepositoryWithTx(tx *sql.Tx) *BookingRepository {
	return &BookingRepository{q: tx}
}

const bookingColumns = `id, trip_id, passenger_id, passenger_name, passenger_count,
		bags, small_cases, medium_cases, large_cases, status, payment_method,
		price_base, price_luggage_fee, price_service_rate, price_service_fee_base,
		price_service_fee_vat, price_service_fee_total, price_total,
		created_at, updated_at, cancellation_reason`

// Create persists a new booking.
func (r *BookingRepository) Create(ctx context.Context, b *domain.BookingRequest) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	_, err := r.q.ExecContext(ctx, query,
		b.ID,
		b.TripID,
		b.PassengerID,
		b.PassengerName,
		b.PassengerCount,
		b.Luggage.Bag,
		b.Luggage.SmallCase,
		b.Luggage.MediumCase,
		b.Luggage.LargeCase,
		b.Status,
		b.PaymentMethod,
		b.Price.Base,
		b.Price.LuggageFee,
		b.Price.ServiceRate,
		b.Price.ServiceFeeBase,
		b.Price.ServiceFeeVAT,
		b.Price.ServiceFeeTotal,
		b.Price.Total,
		b.CreatedAt,
		b.UpdatedAt,
		nullString(b.CancellationReason),
	)

	return mapWriteError(err)
}

// GetByID retrieves a booking by ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.BookingRequest, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return booking, nil
}

// Update writes the mutable fields of a booking: status, timestamps and the
// cancellation reason.
func (r *BookingRepository) Update(ctx context.Context, b *domain.BookingRequest) error {
	query := `
		UPDATE bookings
		SET status = $1, updated_at = $2, cancellation_reason = $3
		WHERE id = $4
	`

	result, err := r.q.ExecContext(ctx, query, b.Status, b.UpdatedAt, nullString(b.CancellationReason), b.ID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListByTrip retrieves every booking of a trip, oldest first.
func (r *BookingRepository) ListByTrip(ctx context.Context, tripID string) ([]*domain.BookingRequest, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE trip_id = $1 ORDER BY created_at ASC, id ASC`
	return r.list(ctx, query, tripID)
}

// ListByPassenger retrieves every booking of a passenger, newest first.
func (r *BookingRepository) ListByPassenger(ctx context.Context, passengerID string) ([]*domain.BookingRequest, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE passenger_id = $1 ORDER BY created_at DESC, id ASC`
	return r.list(ctx, query, passengerID)
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...any) ([]*domain.BookingRequest, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.BookingRequest
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}

	return bookings, rows.Err()
}

func scanBooking(s scanner) (*domain.BookingRequest, error) {
	var b domain.BookingRequest
	var reason sql.NullString

	if err := s.Scan(
		&b.ID,
		&b.TripID,
		&b.PassengerID,
		&b.PassengerName,
		&b.PassengerCount,
		&b.Luggage.Bag,
		&b.Luggage.SmallCase,
		&b.Luggage.MediumCase,
		&b.Luggage.LargeCase,
		&b.Status,
		&b.PaymentMethod,
		&b.Price.Base,
		&b.Price.LuggageFee,
		&b.Price.ServiceRate,
		&b.Price.ServiceFeeBase,
		&b.Price.ServiceFeeVAT,
		&b.Price.ServiceFeeTotal,
		&b.Price.Total,
		&b.CreatedAt,
		&b.UpdatedAt,
		&reason,
	); err != nil {
		return nil, err
	}

	b.CancellationReason = reason.String
	return &b, nil
}

// Ensure BookingRepository implements repository.BookingRepository.
var _ repository.BookingRepository = (*BookingRepository)(nil)
