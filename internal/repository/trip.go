package repository

import (
	"context"

	"louage/internal/domain"
)

// TripRepository defines the persistence operations for trips.
type TripRepository interface {
	// Create persists a new trip.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// GetAll retrieves all trips, newest departure first.
	GetAll(ctx context.Context) ([]*domain.Trip, error)

	// ListByDriver retrieves the trips published by a driver.
	ListByDriver(ctx context.Context, driverID string) ([]*domain.Trip, error)

	// Update updates an existing trip.
	Update(ctx context.Context, trip *domain.Trip) error
}
