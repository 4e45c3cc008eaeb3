package domain

import "time"

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationBookingRequest   NotificationType = "booking_request"
	NotificationBookingAccepted  NotificationType = "booking_accepted"
	NotificationBookingDeclined  NotificationType = "booking_declined"
	NotificationBookingCancelled NotificationType = "booking_cancelled"
	NotificationTripStarted      NotificationType = "trip_started"
	NotificationTripCompleted    NotificationType = "trip_completed"
	NotificationPayment          NotificationType = "payment"
	NotificationEmergency        NotificationType = "emergency"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationBookingRequest, NotificationBookingAccepted, NotificationBookingDeclined,
		NotificationBookingCancelled, NotificationTripStarted, NotificationTripCompleted,
		NotificationPayment, NotificationEmergency:
		return true
	}
	return false
}

// Notification is a message in a user's mailbox.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
	Read      bool             `json:"read"`
	ActionURL string           `json:"action_url,omitempty"`
}
