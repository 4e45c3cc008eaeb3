package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"louage/internal/domain"
	"louage/internal/repository"
)

// BookingLedger is the authoritative seat-capacity bookkeeping for trips.
//
// For every trip, at every instant observable through the ledger:
//
//	AvailableSeats = TotalSeats - sum(PassengerCount of accepted bookings)
//
// All mutations and snapshot reads of one trip run under its TripLocker, and
// booking+trip writes are committed through a single Transactor call.
type BookingLedger struct {
	trips    repository.TripRepository
	bookings repository.BookingRepository
	tx       repository.Transactor
	locker   TripLocker
	now      func() time.Time
}

// NewBookingLedger creates a new BookingLedger.
func NewBookingLedger(repos repository.Repos, tx repository.Transactor, locker TripLocker) *BookingLedger {
	return &BookingLedger{
		trips:    repos.Trips,
		bookings: repos.Bookings,
		tx:       tx,
		locker:   locker,
		now:      time.Now,
	}
}

// SubmitBookingRequest contains the parameters for submitting a booking.
type SubmitBookingRequest struct {
	TripID        string
	Passenger     domain.Passenger
	Seats         int
	Luggage       domain.Luggage
	PaymentMethod domain.PaymentMethod
}

// Submit creates a pending booking. Pending bookings do not hold seats; the
// capacity check only rejects requests that could never be accepted now.
func (l *BookingLedger) Submit(ctx context.Context, req SubmitBookingRequest) (*domain.BookingRequest, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}
	if strings.TrimSpace(req.Passenger.ID) == "" {
		return nil, ErrInvalidPassengerID
	}
	if req.Seats < 1 {
		return nil, ErrInvalidSeatCount
	}
	if !req.Luggage.Valid() {
		return nil, ErrInvalidLuggage
	}

	var booking *domain.BookingRequest
	err := l.withTrip(ctx, req.TripID, func(ctx context.Context, repos repository.Repos, trip *domain.Trip) error {
		if !trip.Bookable() {
			return ErrTripNotOpen
		}
		if req.Seats > trip.AvailableSeats {
			return ErrCapacityExceeded
		}

		price, err := ComputePrice(trip.SeatPrice(), req.Seats, req.Luggage, trip.IsPrivate)
		if err != nil {
			return err
		}

		now := l.now()
		booking = &domain.BookingRequest{
			ID:             uuid.New().String(),
			TripID:         trip.ID,
			PassengerID:    req.Passenger.ID,
			PassengerName:  req.Passenger.Name,
			PassengerCount: req.Seats,
			Luggage:        req.Luggage,
			Status:         domain.BookingStatusPending,
			PaymentMethod:  req.PaymentMethod,
			Price:          price,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		return repos.Bookings.Create(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	return booking, nil
}

// Accept moves a pending booking to accepted and recomputes the trip's seats.
// If the recomputed availability would be negative the booking stays pending
// and ErrAtomicityViolation is returned.
func (l *BookingLedger) Accept(ctx context.Context, bookingID string) (*domain.Trip, *domain.BookingRequest, error) {
	return l.transition(ctx, bookingID, func(trip *domain.Trip, b *domain.BookingRequest) error {
		if b.Status.Terminal() {
			return ErrAlreadyInTerminalState
		}
		if b.Status != domain.BookingStatusPending {
			return ErrInvalidTransition
		}
		if !trip.Bookable() {
			return ErrTripNotOpen
		}
		b.Status = domain.BookingStatusAccepted
		return nil
	})
}

// Decline moves a pending booking to declined. Seats are untouched.
func (l *BookingLedger) Decline(ctx context.Context, bookingID string) (*domain.Trip, *domain.BookingRequest, error) {
	return l.transition(ctx, bookingID, func(trip *domain.Trip, b *domain.BookingRequest) error {
		if b.Status.Terminal() {
			return ErrAlreadyInTerminalState
		}
		if b.Status != domain.BookingStatusPending {
			return ErrInvalidTransition
		}
		b.Status = domain.BookingStatusDeclined
		return nil
	})
}

// CancelAccepted moves an accepted booking to cancelled with the given reason
// and releases its seats.
func (l *BookingLedger) CancelAccepted(ctx context.Context, bookingID, reason string) (*domain.Trip, *domain.BookingRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, nil, ErrInvalidReason
	}

	return l.transition(ctx, bookingID, func(trip *domain.Trip, b *domain.BookingRequest) error {
		if b.Status.Terminal() {
			return ErrAlreadyInTerminalState
		}
		if b.Status != domain.BookingStatusAccepted {
			return ErrInvalidTransition
		}
		b.Status = domain.BookingStatusCancelled
		b.CancellationReason = reason
		return nil
	})
}

// cancelForTrip cancels a pending or accepted booking as part of a whole-trip
// cancellation. This is the only path from pending to cancelled.
func (l *BookingLedger) cancelForTrip(ctx context.Context, bookingID, reason string) (*domain.Trip, *domain.BookingRequest, error) {
	return l.transition(ctx, bookingID, func(trip *domain.Trip, b *domain.BookingRequest) error {
		if b.Status.Terminal() {
			return ErrAlreadyInTerminalState
		}
		b.Status = domain.BookingStatusCancelled
		b.CancellationReason = reason
		return nil
	})
}

// CloseTrip marks a trip cancelled so no booking can be submitted or accepted
// afterwards, and returns the bookings that were still pending or accepted.
func (l *BookingLedger) CloseTrip(ctx context.Context, tripID string) (*domain.Trip, []*domain.BookingRequest, error) {
	if tripID == "" {
		return nil, nil, ErrInvalidTripID
	}

	var closed *domain.Trip
	var open []*domain.BookingRequest
	err := l.withTrip(ctx, tripID, func(ctx context.Context, repos repository.Repos, trip *domain.Trip) error {
		if trip.Status == domain.TripStatusCompleted {
			return ErrInvalidTripTransition
		}

		bookings, err := repos.Bookings.ListByTrip(ctx, tripID)
		if err != nil {
			return err
		}
		for _, b := range bookings {
			if !b.Status.Terminal() {
				open = append(open, b)
			}
		}

		if trip.Status != domain.TripStatusCancelled {
			trip.Status = domain.TripStatusCancelled
			trip.CancelledAt = l.now()
			if err := repos.Trips.Update(ctx, trip); err != nil {
				return err
			}
		}
		closed = trip
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return closed, open, nil
}

// UpdateTrip applies fn to the trip under its lock and persists the result.
// fn must not change seat counts; seat bookkeeping belongs to the ledger.
func (l *BookingLedger) UpdateTrip(ctx context.Context, tripID string, fn func(trip *domain.Trip) error) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	var updated *domain.Trip
	err := l.withTrip(ctx, tripID, func(ctx context.Context, repos repository.Repos, trip *domain.Trip) error {
		total, available := trip.TotalSeats, trip.AvailableSeats
		if err := fn(trip); err != nil {
			return err
		}
		trip.TotalSeats, trip.AvailableSeats = total, available
		if err := repos.Trips.Update(ctx, trip); err != nil {
			return err
		}
		updated = trip
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// GetTrip returns a consistent snapshot of a trip.
func (l *BookingLedger) GetTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	unlock, err := l.locker.LockTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return l.trips.GetByID(ctx, tripID)
}

// TripBookings returns a trip and its bookings read under the same lock.
func (l *BookingLedger) TripBookings(ctx context.Context, tripID string) (*domain.Trip, []*domain.BookingRequest, error) {
	if tripID == "" {
		return nil, nil, ErrInvalidTripID
	}

	unlock, err := l.locker.LockTrip(ctx, tripID)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	trip, err := l.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, nil, err
	}

	bookings, err := l.bookings.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, nil, err
	}

	return trip, bookings, nil
}

// GetBooking retrieves a booking by ID.
func (l *BookingLedger) GetBooking(ctx context.Context, bookingID string) (*domain.BookingRequest, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}
	return l.bookings.GetByID(ctx, bookingID)
}

// PassengerBookings lists a passenger's bookings, newest first.
func (l *BookingLedger) PassengerBookings(ctx context.Context, passengerID string) ([]*domain.BookingRequest, error) {
	if passengerID == "" {
		return nil, ErrInvalidPassengerID
	}
	return l.bookings.ListByPassenger(ctx, passengerID)
}

// transition loads the booking, applies mutate under the trip lock and
// persists booking and recomputed trip seats together.
func (l *BookingLedger) transition(
	ctx context.Context,
	bookingID string,
	mutate func(trip *domain.Trip, b *domain.BookingRequest) error,
) (*domain.Trip, *domain.BookingRequest, error) {
	if bookingID == "" {
		return nil, nil, ErrInvalidBookingID
	}

	// The trip id of a booking never changes, so it is safe to read it before locking.
	b, err := l.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}

	var trip *domain.Trip
	var booking *domain.BookingRequest
	err = l.withTrip(ctx, b.TripID, func(ctx context.Context, repos repository.Repos, t *domain.Trip) error {
		current, err := repos.Bookings.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}

		if err := mutate(t, current); err != nil {
			return err
		}
		current.UpdatedAt = l.now()

		// Seats are recounted from the proposed state so an over-capacity
		// accept is refused before anything is written.
		available, err := recomputeAvailableSeats(ctx, repos.Bookings, t, current)
		if err != nil {
			return err
		}
		if available < 0 {
			return ErrAtomicityViolation
		}
		if available > t.TotalSeats {
			return fmt.Errorf("trip %s: available seats %d exceed total %d", t.ID, available, t.TotalSeats)
		}

		if err := repos.Bookings.Update(ctx, current); err != nil {
			return err
		}

		t.AvailableSeats = available
		if err := repos.Trips.Update(ctx, t); err != nil {
			return err
		}

		trip, booking = t, current
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return trip, booking, nil
}

// withTrip locks the trip, then runs fn inside a transaction with a fresh
// copy of the trip.
func (l *BookingLedger) withTrip(
	ctx context.Context,
	tripID string,
	fn func(ctx context.Context, repos repository.Repos, trip *domain.Trip) error,
) error {
	unlock, err := l.locker.LockTrip(ctx, tripID)
	if err != nil {
		return err
	}
	defer unlock()

	return l.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		trip, err := repos.Trips.GetByID(ctx, tripID)
		if err != nil {
			return err
		}
		return fn(ctx, repos, trip)
	})
}

// recomputeAvailableSeats derives availability from the accepted bookings of
// the trip, counting proposed in place of its stored version when set.
func recomputeAvailableSeats(ctx context.Context, bookings repository.BookingRepository, trip *domain.Trip, proposed *domain.BookingRequest) (int, error) {
	all, err := bookings.ListByTrip(ctx, trip.ID)
	if err != nil {
		return 0, err
	}

	accepted := 0
	for _, b := range all {
		if proposed != nil && b.ID == proposed.ID {
			b = proposed
		}
		if b.Status == domain.BookingStatusAccepted {
			accepted += b.PassengerCount
		}
	}

	return trip.TotalSeats - accepted, nil
}
