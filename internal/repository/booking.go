package repository

import (
	"context"

	"louage/internal/domain"
)

// BookingRepository defines the persistence operations for booking requests.
// There is no delete: bookings are an audit trail.
type BookingRepository interface {
	Create(ctx context.Context, booking *domain.BookingRequest) error
	GetByID(ctx context.Context, id string) (*domain.BookingRequest, error)
	Update(ctx context.Context, booking *domain.BookingRequest) error

	// ListByTrip retrieves every booking of a trip, oldest first.
	ListByTrip(ctx context.Context, tripID string) ([]*domain.BookingRequest, error)

	// ListByPassenger retrieves every booking made by a passenger, newest first.
	ListByPassenger(ctx context.Context, passengerID string) ([]*domain.BookingRequest, error)
}
