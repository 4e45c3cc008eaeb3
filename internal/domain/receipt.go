package domain

import "time"

// Receipt is the printable summary of one booking.
type Receipt struct {
	BookingID     string
	TripID        string
	PassengerName string
	Origin        string
	Destination   string
	DepartureAt   time.Time
	Seats         int
	Luggage       Luggage
	Price         PriceBreakdown
	PaymentMethod PaymentMethod
	Status        BookingStatus
	CancelReason  string
	IssuedAt      time.Time
}
