package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus represents the current status of a booking request.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusAccepted  BookingStatus = "accepted"
	BookingStatusDeclined  BookingStatus = "declined"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Terminal reports whether no further transition may leave this status.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusDeclined || s == BookingStatusCancelled
}

// PaymentMethod is the payment tag chosen by the passenger. No payment is processed.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodCard   PaymentMethod = "CARD"
	PaymentMethodWallet PaymentMethod = "WALLET"
)

// Luggage holds the per-class item counts of a booking.
type Luggage struct {
	Bag        int `json:"bag"`
	SmallCase  int `json:"small_case"`
	MediumCase int `json:"medium_case"`
	LargeCase  int `json:"large_case"`
}

// MaxLuggagePerClass bounds each luggage count of one booking.
const MaxLuggagePerClass = 50

// Valid reports whether every count lies in [0, MaxLuggagePerClass].
func (l Luggage) Valid() bool {
	for _, n := range []int{l.Bag, l.SmallCase, l.MediumCase, l.LargeCase} {
		if n < 0 || n > MaxLuggagePerClass {
			return false
		}
	}
	return true
}

// PriceBreakdown is the itemised price of a booking.
type PriceBreakdown struct {
	Base            decimal.Decimal `json:"base"`
	LuggageFee      decimal.Decimal `json:"luggage_fee"`
	ServiceRate     decimal.Decimal `json:"service_rate"`
	ServiceFeeBase  decimal.Decimal `json:"service_fee_base"`
	ServiceFeeVAT   decimal.Decimal `json:"service_fee_vat"`
	ServiceFeeTotal decimal.Decimal `json:"service_fee_total"`
	Total           decimal.Decimal `json:"total"`
}

// Passenger identifies who is booking.
type Passenger struct {
	ID   string
	Name string
}

// BookingRequest is a passenger's seat request against a trip.
// Bookings are never deleted, only transitioned.
type BookingRequest struct {
	ID                 string
	TripID             string
	PassengerID        string
	PassengerName      string
	PassengerCount     int
	Luggage            Luggage
	Status             BookingStatus
	PaymentMethod      PaymentMethod
	Price              PriceBreakdown
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CancellationReason string
}

// TotalPrice returns the rounded total owed for the booking.
func (b *BookingRequest) TotalPrice() decimal.Decimal {
	return b.Price.Total
}
