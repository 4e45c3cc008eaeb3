package service

import (
	"errors"
	"fmt"

	"louage/internal/domain"
	"louage/internal/repository"
)

// Error categories. Specific errors below wrap one of these so callers can
// match either the category or the precise cause with errors.Is.
var (
	// ErrValidation is returned for malformed or missing mandatory input.
	ErrValidation = errors.New("validation error")

	// ErrCapacityExceeded is returned when requested seats exceed current availability.
	ErrCapacityExceeded = errors.New("requested seats exceed available seats")

	// ErrAtomicityViolation is returned when accepting a booking would push
	// accepted seats past the trip's capacity.
	ErrAtomicityViolation = errors.New("accepted seats would exceed trip capacity")

	// ErrAlreadyInTerminalState is returned when a booking is already declined or cancelled.
	ErrAlreadyInTerminalState = errors.New("booking already in terminal state")

	// ErrInvalidTransition is returned when a booking is not in the state an operation requires.
	ErrInvalidTransition = errors.New("invalid booking status transition")

	// ErrTripNotOpen is returned when a trip no longer accepts bookings.
	ErrTripNotOpen = errors.New("trip is not open for booking")

	// ErrInvalidTripTransition is returned when a trip is not in the state an operation requires.
	ErrInvalidTripTransition = errors.New("invalid trip status transition")

	// ErrTripBusy is returned when the trip lock could not be acquired in time.
	ErrTripBusy = errors.New("trip is busy, retry later")

	// ErrCancellationIncomplete is returned when a trip was cancelled but some
	// of its bookings were not. Calling CancelTrip again finishes the job.
	ErrCancellationIncomplete = errors.New("trip cancelled but some bookings remain open, retry")

	// ErrDispatcherClosed is returned when subscribing after Close.
	ErrDispatcherClosed = errors.New("notification dispatcher closed")

	// ErrNotificationNotFound is returned for unknown notification ids.
	ErrNotificationNotFound = fmt.Errorf("notification: %w", repository.ErrNotFound)
)

// Validation errors.
var (
	ErrInvalidSeatCount     = fmt.Errorf("%w: seats must be at least 1", ErrValidation)
	ErrInvalidLuggage       = fmt.Errorf("%w: luggage counts must be between 0 and %d", ErrValidation, domain.MaxLuggagePerClass)
	ErrInvalidPrice         = fmt.Errorf("%w: price must not be negative", ErrValidation)
	ErrInvalidTripID        = fmt.Errorf("%w: invalid trip id", ErrValidation)
	ErrInvalidBookingID     = fmt.Errorf("%w: invalid booking id", ErrValidation)
	ErrInvalidPassengerID   = fmt.Errorf("%w: invalid passenger id", ErrValidation)
	ErrInvalidDriverID      = fmt.Errorf("%w: invalid driver id", ErrValidation)
	ErrInvalidUserID        = fmt.Errorf("%w: invalid user id", ErrValidation)
	ErrInvalidRoute         = fmt.Errorf("%w: origin and destination are required", ErrValidation)
	ErrInvalidPaymentMethod = fmt.Errorf("%w: invalid payment method", ErrValidation)
	ErrInvalidReason        = fmt.Errorf("%w: exactly one cancellation reason is required", ErrValidation)
	ErrInvalidNotification  = fmt.Errorf("%w: invalid notification", ErrValidation)
	ErrInvalidUser          = fmt.Errorf("%w: name and role are required", ErrValidation)
)
