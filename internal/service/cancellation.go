package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"louage/internal/domain"
)

// CancellationWorkflow cancels bookings or whole trips with a mandatory reason
// and notifies every affected passenger exactly once.
type CancellationWorkflow struct {
	ledger        *BookingLedger
	notifications *NotificationDispatcher
}

// NewCancellationWorkflow creates a new CancellationWorkflow.
func NewCancellationWorkflow(ledger *BookingLedger, notifications *NotificationDispatcher) *CancellationWorkflow {
	return &CancellationWorkflow{
		ledger:        ledger,
		notifications: notifications,
	}
}

// CancelBooking cancels one accepted booking. The reason is validated before
// the ledger is touched; no notification is sent unless the ledger succeeds.
func (w *CancellationWorkflow) CancelBooking(ctx context.Context, bookingID string, sel domain.ReasonSelection) error {
	reason, ok := sel.Resolve()
	if !ok {
		return ErrInvalidReason
	}

	trip, booking, err := w.ledger.CancelAccepted(ctx, bookingID, reason.Text)
	if err != nil {
		return err
	}

	w.notifyCancelled(ctx, trip, booking, reason)
	return nil
}

// CancelTrip cancels the trip and every pending or accepted booking on it.
// Bookings that turn out to be declined or cancelled already are skipped.
// It returns the number of distinct passengers notified. If any booking could
// not be cancelled for another reason the rest are still processed and the
// error wraps ErrCancellationIncomplete together with each cause.
func (w *CancellationWorkflow) CancelTrip(ctx context.Context, tripID string, sel domain.ReasonSelection) (int, error) {
	reason, ok := sel.Resolve()
	if !ok {
		return 0, ErrInvalidReason
	}

	_, open, err := w.ledger.CloseTrip(ctx, tripID)
	if err != nil {
		return 0, err
	}

	notified := make(map[string]bool)
	var failures []error
	for _, b := range open {
		trip, booking, err := w.ledger.cancelForTrip(ctx, b.ID, reason.Text)
		if err != nil {
			if errors.Is(err, ErrAlreadyInTerminalState) {
				log.Printf("trip cancellation skipped booking: trip=%s booking=%s reason=already terminal", tripID, b.ID)
				continue
			}
			log.Printf("trip cancellation failed for booking: trip=%s booking=%s err=%v", tripID, b.ID, err)
			failures = append(failures, fmt.Errorf("booking %s: %w", b.ID, err))
			continue
		}

		if notified[booking.PassengerID] {
			continue
		}
		if w.notifyCancelled(ctx, trip, booking, reason) {
			notified[booking.PassengerID] = true
		}
	}

	if len(failures) > 0 {
		return len(notified), fmt.Errorf("%w: %d of %d bookings: %w",
			ErrCancellationIncomplete, len(failures), len(open), errors.Join(failures...))
	}
	return len(notified), nil
}

func (w *CancellationWorkflow) notifyCancelled(ctx context.Context, trip *domain.Trip, booking *domain.BookingRequest, reason domain.CancellationReason) bool {
	if w.notifications == nil {
		return false
	}

	_, err := w.notifications.AddNotification(ctx, NewNotification{
		UserID:    booking.PassengerID,
		Type:      domain.NotificationBookingCancelled,
		Title:     "Booking cancelled",
		Message:   fmt.Sprintf("Your booking on %s (%s) was cancelled. Reason: %s", trip.Route(), trip.DepartureAt.Format("02/01/2006 15:04"), reason.Text),
		ActionURL: bookingActionURL(booking.ID),
	})
	if err != nil {
		log.Printf("cancellation notification not recorded: booking=%s user=%s err=%v", booking.ID, booking.PassengerID, err)
		return false
	}
	return true
}
