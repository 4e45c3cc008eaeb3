package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"louage/internal/domain"
	"louage/internal/repository"
)

// BookingService handles passenger and driver booking actions on top of the ledger.
type BookingService struct {
	ledger        *BookingLedger
	notifications *NotificationDispatcher
	directory     Directory
}

// NewBookingService creates a new BookingService. directory may be nil.
func NewBookingService(ledger *BookingLedger, notifications *NotificationDispatcher, directory Directory) *BookingService {
	return &BookingService{
		ledger:        ledger,
		notifications: notifications,
		directory:     directory,
	}
}

// SubmitBooking creates a pending booking and tells the driver about it.
func (s *BookingService) SubmitBooking(ctx context.Context, req SubmitBookingRequest) (*domain.BookingRequest, error) {
	method, err := ValidatePaymentMethod(string(req.PaymentMethod))
	if err != nil {
		return nil, err
	}
	req.PaymentMethod = method

	if strings.TrimSpace(req.Passenger.Name) == "" && req.Passenger.ID != "" && s.directory != nil {
		name, err := s.directory.DisplayName(ctx, req.Passenger.ID)
		switch {
		case err == nil:
			req.Passenger.Name = name
		case errors.Is(err, repository.ErrNotFound):
			// Unregistered passengers keep an empty display name.
		default:
			return nil, err
		}
	}

	booking, err := s.ledger.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	trip, err := s.ledger.GetTrip(ctx, booking.TripID)
	if err != nil {
		log.Printf("booking submitted but trip lookup failed: booking=%s err=%v", booking.ID, err)
		return booking, nil
	}

	s.notify(ctx, NewNotification{
		UserID:    trip.DriverID,
		Type:      domain.NotificationBookingRequest,
		Title:     "New booking request",
		Message:   fmt.Sprintf("%s requests %d seat(s) on %s.", passengerLabel(booking), booking.PassengerCount, trip.Route()),
		ActionURL: bookingActionURL(booking.ID),
	})

	return booking, nil
}

// AcceptBooking accepts a pending booking and notifies the passenger.
func (s *BookingService) AcceptBooking(ctx context.Context, bookingID string) (*domain.Trip, error) {
	trip, booking, err := s.ledger.Accept(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, NewNotification{
		UserID:    booking.PassengerID,
		Type:      domain.NotificationBookingAccepted,
		Title:     "Booking accepted",
		Message:   fmt.Sprintf("Your booking of %d seat(s) on %s was accepted. Total: %s TND.", booking.PassengerCount, trip.Route(), booking.TotalPrice().StringFixed(3)),
		ActionURL: bookingActionURL(booking.ID),
	})

	return trip, nil
}

// DeclineBooking declines a pending booking and notifies the passenger.
func (s *BookingService) DeclineBooking(ctx context.Context, bookingID string) error {
	trip, booking, err := s.ledger.Decline(ctx, bookingID)
	if err != nil {
		return err
	}

	s.notify(ctx, NewNotification{
		UserID:    booking.PassengerID,
		Type:      domain.NotificationBookingDeclined,
		Title:     "Booking declined",
		Message:   fmt.Sprintf("Your booking on %s was declined by the driver.", trip.Route()),
		ActionURL: bookingActionURL(booking.ID),
	})

	return nil
}

// GetBooking retrieves a booking by ID.
func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (*domain.BookingRequest, error) {
	return s.ledger.GetBooking(ctx, bookingID)
}

// ListTripBookings retrieves a trip together with all its bookings.
func (s *BookingService) ListTripBookings(ctx context.Context, tripID string) (*domain.Trip, []*domain.BookingRequest, error) {
	return s.ledger.TripBookings(ctx, tripID)
}

// ListPassengerBookings retrieves the bookings of a passenger, newest first.
func (s *BookingService) ListPassengerBookings(ctx context.Context, passengerID string) ([]*domain.BookingRequest, error) {
	return s.ledger.PassengerBookings(ctx, passengerID)
}

// notify records a notification. The ledger mutation already succeeded, so a
// failure here is logged rather than returned.
func (s *BookingService) notify(ctx context.Context, n NewNotification) {
	if s.notifications == nil {
		return
	}
	if _, err := s.notifications.AddNotification(ctx, n); err != nil {
		log.Printf("notification not recorded: user=%s type=%s err=%v", n.UserID, n.Type, err)
	}
}

// ValidatePaymentMethod validates a payment method string.
func ValidatePaymentMethod(method string) (domain.PaymentMethod, error) {
	switch domain.PaymentMethod(strings.ToUpper(method)) {
	case domain.PaymentMethodCash, domain.PaymentMethodCard, domain.PaymentMethodWallet:
		return domain.PaymentMethod(strings.ToUpper(method)), nil
	case "":
		return domain.PaymentMethodCash, nil // Default to cash
	default:
		return "", ErrInvalidPaymentMethod
	}
}

func passengerLabel(b *domain.BookingRequest) string {
	if b.PassengerName != "" {
		return b.PassengerName
	}
	return "A passenger"
}

func bookingActionURL(bookingID string) string {
	return "/bookings/" + bookingID
}
