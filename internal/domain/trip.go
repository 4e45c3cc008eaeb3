package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TripStatus represents the current status of a trip.
type TripStatus string

const (
	TripStatusScheduled TripStatus = "scheduled"
	TripStatusActive    TripStatus = "active"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCancelled TripStatus = "cancelled"
)

// Trip represents a louage departure published by a driver.
type Trip struct {
	ID             string
	DriverID       string
	Origin         string
	Destination    string
	DepartureAt    time.Time
	TotalSeats     int
	AvailableSeats int
	PricePerSeat   decimal.Decimal // collective fare
	PricePrivate   decimal.Decimal // per-seat-equivalent charter fare
	IsPrivate      bool
	Status         TripStatus
	CreatedAt      time.Time
	StartedAt      time.Time
	CompletedAt    time.Time
	CancelledAt    time.Time
	DepartedOnTime *bool // recorded when the trip starts
}

// Route returns a human readable "origin → destination" label.
func (t *Trip) Route() string {
	return t.Origin + " → " + t.Destination
}

// SeatPrice returns the per-seat price that applies to bookings on this trip.
// A private trip without a private price falls back to the collective one.
func (t *Trip) SeatPrice() decimal.Decimal {
	if t.IsPrivate && t.PricePrivate.IsPositive() {
		return t.PricePrivate
	}
	return t.PricePerSeat
}

// Bookable reports whether new bookings may be submitted or accepted.
func (t *Trip) Bookable() bool {
	return t.Status == TripStatusScheduled
}
