package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"louage/internal/domain"
	"louage/internal/repository"
)

// TripService handles trip publication and the trip lifecycle.
type TripService struct {
	trips         repository.TripRepository
	ledger        *BookingLedger
	notifications *NotificationDispatcher
	grace         time.Duration // allowed lateness for an on-time departure
	now           func() time.Time
}

// NewTripService creates a new TripService.
func NewTripService(
	trips repository.TripRepository,
	ledger *BookingLedger,
	notifications *NotificationDispatcher,
	punctualityGrace time.Duration,
) *TripService {
	return &TripService{
		trips:         trips,
		ledger:        ledger,
		notifications: notifications,
		grace:         punctualityGrace,
		now:           time.Now,
	}
}

// CreateTripRequest contains the parameters for publishing a trip.
type CreateTripRequest struct {
	DriverID     string
	Origin       string
	Destination  string
	DepartureAt  time.Time
	TotalSeats   int
	PricePerSeat decimal.Decimal
	PricePrivate decimal.Decimal
	IsPrivate    bool
}

// CreateTrip publishes a scheduled trip with every seat available.
func (s *TripService) CreateTrip(ctx context.Context, req CreateTripRequest) (*domain.Trip, error) {
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}
	origin := strings.TrimSpace(req.Origin)
	destination := strings.TrimSpace(req.Destination)
	if origin == "" || destination == "" {
		return nil, ErrInvalidRoute
	}
	if req.TotalSeats < 1 {
		return nil, ErrInvalidSeatCount
	}
	if req.PricePerSeat.IsNegative() || req.PricePrivate.IsNegative() {
		return nil, ErrInvalidPrice
	}

	departure := req.DepartureAt
	if departure.IsZero() {
		departure = s.now()
	}

	trip := &domain.Trip{
		ID:             uuid.New().String(),
		DriverID:       req.DriverID,
		Origin:         origin,
		Destination:    destination,
		DepartureAt:    departure,
		TotalSeats:     req.TotalSeats,
		AvailableSeats: req.TotalSeats,
		PricePerSeat:   req.PricePerSeat,
		PricePrivate:   req.PricePrivate,
		IsPrivate:      req.IsPrivate,
		Status:         domain.TripStatusScheduled,
		CreatedAt:      s.now(),
	}

	if err := s.trips.Create(ctx, trip); err != nil {
		return nil, err
	}

	return trip, nil
}

// GetTrip retrieves a consistent snapshot of a trip.
func (s *TripService) GetTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	return s.ledger.GetTrip(ctx, tripID)
}

// ListTrips retrieves all trips, or a driver's trips when driverID is set.
func (s *TripService) ListTrips(ctx context.Context, driverID string) ([]*domain.Trip, error) {
	if driverID != "" {
		return s.trips.ListByDriver(ctx, driverID)
	}
	return s.trips.GetAll(ctx)
}

// StartTrip moves a scheduled trip to active, records whether it left on
// time and notifies the accepted passengers.
func (s *TripService) StartTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	trip, err := s.ledger.UpdateTrip(ctx, tripID, func(t *domain.Trip) error {
		if t.Status != domain.TripStatusScheduled {
			return ErrInvalidTripTransition
		}
		now := s.now()
		onTime := !now.After(t.DepartureAt.Add(s.grace))
		t.Status = domain.TripStatusActive
		t.StartedAt = now
		t.DepartedOnTime = &onTime
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyPassengers(ctx, trip, func(b *domain.BookingRequest) NewNotification {
		return NewNotification{
			UserID:    b.PassengerID,
			Type:      domain.NotificationTripStarted,
			Title:     "Trip started",
			Message:   fmt.Sprintf("Your louage for %s has departed.", trip.Route()),
			ActionURL: tripActionURL(trip.ID),
		}
	})

	return trip, nil
}

// CompleteTrip moves an active trip to completed and notifies the accepted
// passengers, including the amount due for their booking.
func (s *TripService) CompleteTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	trip, err := s.ledger.UpdateTrip(ctx, tripID, func(t *domain.Trip) error {
		if t.Status != domain.TripStatusActive {
			return ErrInvalidTripTransition
		}
		t.Status = domain.TripStatusCompleted
		t.CompletedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyPassengers(ctx, trip, func(b *domain.BookingRequest) NewNotification {
		return NewNotification{
			UserID:    b.PassengerID,
			Type:      domain.NotificationTripCompleted,
			Title:     "Trip completed",
			Message:   fmt.Sprintf("You have arrived at %s. Thank you for travelling with us.", trip.Destination),
			ActionURL: tripActionURL(trip.ID),
		}
	})
	s.notifyPassengers(ctx, trip, func(b *domain.BookingRequest) NewNotification {
		return NewNotification{
			UserID:    b.PassengerID,
			Type:      domain.NotificationPayment,
			Title:     "Payment due",
			Message:   fmt.Sprintf("Amount due for %s: %s TND (%s).", trip.Route(), b.TotalPrice().StringFixed(3), b.PaymentMethod),
			ActionURL: bookingActionURL(b.ID) + "/receipt",
		}
	})

	return trip, nil
}

// PunctualityStats summarises recorded departure punctuality of a driver.
type PunctualityStats struct {
	Recorded int
	OnTime   int
}

// Rate returns the on-time ratio, or 0 when nothing is recorded.
func (p PunctualityStats) Rate() float64 {
	if p.Recorded == 0 {
		return 0
	}
	return float64(p.OnTime) / float64(p.Recorded)
}

// DriverPunctuality counts the recorded on-time departures of a driver's
// started trips. Trips without a recorded fact are ignored.
func (s *TripService) DriverPunctuality(ctx context.Context, driverID string) (PunctualityStats, error) {
	if driverID == "" {
		return PunctualityStats{}, ErrInvalidDriverID
	}

	trips, err := s.trips.ListByDriver(ctx, driverID)
	if err != nil {
		return PunctualityStats{}, err
	}

	var stats PunctualityStats
	for _, t := range trips {
		if t.DepartedOnTime == nil {
			continue
		}
		stats.Recorded++
		if *t.DepartedOnTime {
			stats.OnTime++
		}
	}
	return stats, nil
}

// notifyPassengers sends one notification per distinct passenger holding an
// accepted booking on the trip.
func (s *TripService) notifyPassengers(ctx context.Context, trip *domain.Trip, build func(b *domain.BookingRequest) NewNotification) {
	if s.notifications == nil {
		return
	}

	_, bookings, err := s.ledger.TripBookings(ctx, trip.ID)
	if err != nil {
		log.Printf("trip notification skipped: trip=%s err=%v", trip.ID, err)
		return
	}

	seen := make(map[string]bool)
	for _, b := range bookings {
		if b.Status != domain.BookingStatusAccepted || seen[b.PassengerID] {
			continue
		}
		seen[b.PassengerID] = true
		n := build(b)
		if _, err := s.notifications.AddNotification(ctx, n); err != nil {
			log.Printf("trip notification not recorded: trip=%s user=%s err=%v", trip.ID, b.PassengerID, err)
		}
	}
}

func tripActionURL(tripID string) string {
	return "/trips/" + tripID
}
