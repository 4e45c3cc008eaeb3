package postgres

import (
	"context"
	"database/sql"
	"errors"

	"louage/internal/domain"
	"louage/internal/repository"
)

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

// NewTripRepositoryWithTx creates a trip repository using a transaction.
func NewTripRepositoryWithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{q: tx}
}

const tripColumns = `id, driver_id, origin, destination, departure_at, total_seats, available_seats,
		price_per_seat, price_private, is_private, status, created_at, started_at, completed_at,
		cancelled_at, departed_on_time`

// Create persists a new trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.q.ExecContext(ctx, query,
		trip.ID,
		trip.DriverID,
		trip.Origin,
		trip.Destination,
		trip.DepartureAt,
		trip.TotalSeats,
		trip.AvailableSeats,
		trip.PricePerSeat,
		trip.PricePrivate,
		trip.IsPrivate,
		trip.Status,
		trip.CreatedAt,
		nullTime(trip.StartedAt),
		nullTime(trip.CompletedAt),
		nullTime(trip.CancelledAt),
		nullBool(trip.DepartedOnTime),
	)

	return mapWriteError(err)
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return trip, nil
}

// GetAll retrieves all trips.
func (r *TripRepository) GetAll(ctx context.Context) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips ORDER BY departure_at DESC LIMIT 100`
	return r.list(ctx, query)
}

// ListByDriver retrieves the trips published by a driver.
func (r *TripRepository) ListByDriver(ctx context.Context, driverID string) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE driver_id = $1 ORDER BY departure_at DESC`
	return r.list(ctx, query, driverID)
}

// Update updates an existing trip.
func (r *TripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	query := `
		UPDATE trips
		SET origin = $1, destination = $2, departure_at = $3, total_seats = $4, available_seats = $5,
			price_per_seat = $6, price_private = $7, is_private = $8, status = $9,
			started_at = $10, completed_at = $11, cancelled_at = $12, departed_on_time = $13
		WHERE id = $14
	`

	result, err := r.q.ExecContext(ctx, query,
		trip.Origin,
		trip.Destination,
		trip.DepartureAt,
		trip.TotalSeats,
		trip.AvailableSeats,
		trip.PricePerSeat,
		trip.PricePrivate,
		trip.IsPrivate,
		trip.Status,
		nullTime(trip.StartedAt),
		nullTime(trip.CompletedAt),
		nullTime(trip.CancelledAt),
		nullBool(trip.DepartedOnTime),
		trip.ID,
	)
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

func (r *TripRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Trip, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}

	return trips, rows.Err()
}

func scanTrip(s scanner) (*domain.Trip, error) {
	var trip domain.Trip
	var startedAt, completedAt, cancelledAt sql.NullTime
	var onTime sql.NullBool

	if err := s.Scan(
		&trip.ID,
		&trip.DriverID,
		&trip.Origin,
		&trip.Destination,
		&trip.DepartureAt,
		&trip.TotalSeats,
		&trip.AvailableSeats,
		&trip.PricePerSeat,
		&trip.PricePrivate,
		&trip.IsPrivate,
		&trip.Status,
		&trip.CreatedAt,
		&startedAt,
		&completedAt,
		&cancelledAt,
		&onTime,
	); err != nil {
		return nil, err
	}

	if startedAt.Valid {
		trip.StartedAt = startedAt.Time
	}
	if completedAt.Valid {
		trip.CompletedAt = completedAt.Time
	}
	if cancelledAt.Valid {
		trip.CancelledAt = cancelledAt.Time
	}
	if onTime.Valid {
		v := onTime.Bool
		trip.DepartedOnTime = &v
	}

	return &trip, nil
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
