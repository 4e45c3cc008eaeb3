package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"louage/internal/domain"
	"louage/internal/repository"
	"louage/internal/repository/memory"
	"louage/internal/service"
)

func cancelledNotifications(env *testEnv, userID string) []domain.Notification {
	var out []domain.Notification
	for _, n := range env.notifications.ListForUser(context.Background(), userID, false) {
		if n.Type == domain.NotificationBookingCancelled {
			out = append(out, n)
		}
	}
	return out
}

func TestCancelBooking_ReasonValidatedFirst(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		sel  domain.ReasonSelection
	}{
		{"neither", domain.ReasonSelection{}},
		{"both", domain.ReasonSelection{Predefined: "weather", Custom: "flat tyre"}},
		{"blank custom", domain.ReasonSelection{Custom: "   "}},
		{"unknown code", domain.ReasonSelection{Predefined: "aliens"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			trip := env.createTrip(t, 8, "8")
			b := env.accepted(t, trip.ID, "p1", 2)

			err := env.cancellation.CancelBooking(context.Background(), b.ID, tc.sel)
			if !errors.Is(err, service.ErrInvalidReason) {
				t.Fatalf("expected ErrInvalidReason, got %v", err)
			}
			if got := env.bookingStatus(t, b.ID); got != domain.BookingStatusAccepted {
				t.Errorf("expected booking untouched, got %s", got)
			}
			if got := env.availableSeats(t, trip.ID); got != 6 {
				t.Errorf("expected 6 available seats, got %d", got)
			}
			if got := cancelledNotifications(env, "p1"); len(got) != 0 {
				t.Errorf("expected no cancellation notification, got %d", len(got))
			}
		})
	}
}

func TestCancelBooking_NotifiesPassengerOnce(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	trip := env.createTrip(t, 8, "8")
	b := env.accepted(t, trip.ID, "p1", 2)

	err := env.cancellation.CancelBooking(context.Background(), b.ID, domain.ReasonSelection{Predefined: "weather"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := env.availableSeats(t, trip.ID); got != 8 {
		t.Errorf("expected 8 available seats, got %d", got)
	}

	got := cancelledNotifications(env, "p1")
	if len(got) != 1 {
		t.Fatalf("expected 1 cancellation notification, got %d", len(got))
	}
	if !strings.Contains(got[0].Message, "Tunis → Sousse") {
		t.Errorf("expected route in message, got %q", got[0].Message)
	}
	if !strings.Contains(got[0].Message, "Bad weather conditions") {
		t.Errorf("expected reason text in message, got %q", got[0].Message)
	}

	// Repeating the cancel fails without a second notification.
	err = env.cancellation.CancelBooking(context.Background(), b.ID, domain.ReasonSelection{Custom: "again"})
	if !errors.Is(err, service.ErrAlreadyInTerminalState) {
		t.Errorf("expected ErrAlreadyInTerminalState, got %v", err)
	}
	if got := cancelledNotifications(env, "p1"); len(got) != 1 {
		t.Errorf("expected still 1 notification, got %d", len(got))
	}
}

func TestCancelBooking_LedgerFailureSendsNothing(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	trip := env.createTrip(t, 8, "8")
	pending := env.submit(t, trip.ID, "p1", 1)

	err := env.cancellation.CancelBooking(context.Background(), pending.ID, domain.ReasonSelection{Custom: "changed my mind"})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	err = env.cancellation.CancelBooking(context.Background(), "missing", domain.ReasonSelection{Custom: "x"})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if got := cancelledNotifications(env, "p1"); len(got) != 0 {
		t.Errorf("expected no notification, got %d", len(got))
	}
}

func TestCancelTrip_CancelsAllOpenBookings(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	trip := env.createTrip(t, 8, "8")
	a1 := env.accepted(t, trip.ID, "p1", 1)
	a2 := env.accepted(t, trip.ID, "p2", 2)
	a3 := env.accepted(t, trip.ID, "p3", 1)
	if got := env.availableSeats(t, trip.ID); got != 4 {
		t.Fatalf("expected 4 available seats, got %d", got)
	}

	count, err := env.cancellation.CancelTrip(context.Background(), trip.ID, domain.ReasonSelection{Predefined: "weather"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 passengers notified, got %d", count)
	}
	if got := env.availableSeats(t, trip.ID); got != 8 {
		t.Errorf("expected 8 available seats, got %d", got)
	}

	for _, b := range []*domain.BookingRequest{a1, a2, a3} {
		if got := env.bookingStatus(t, b.ID); got != domain.BookingStatusCancelled {
			t.Errorf("booking %s: expected cancelled, got %s", b.ID, got)
		}
		if got := cancelledNotifications(env, b.PassengerID); len(got) != 1 {
			t.Errorf("passenger %s: expected 1 notification, got %d", b.PassengerID, len(got))
		}
	}

	tripNow, _ := env.ledger.GetTrip(context.Background(), trip.ID)
	if tripNow.Status != domain.TripStatusCancelled {
		t.Errorf("expected trip cancelled, got %s", tripNow.Status)
	}
}

func TestCancelTrip_ReportsBookingsLeftOpen(t *testing.T) {
	t.Parallel()
	locker := newFlakyLocker()
	env := newTestEnvWith(t, memory.NewStore(), nil, locker)
	ctx := context.Background()

	trip := env.createTrip(t, 8, "8")
	a1 := env.accepted(t, trip.ID, "p1", 1)
	a2 := env.accepted(t, trip.ID, "p2", 2)
	a3 := env.accepted(t, trip.ID, "p3", 1)

	// Lock calls: closing the trip, then one per booking. The second booking is refused.
	locker.FailNth(3)
	count, err := env.cancellation.CancelTrip(ctx, trip.ID, domain.ReasonSelection{Predefined: "weather"})
	locker.FailNth(0)

	if !errors.Is(err, service.ErrCancellationIncomplete) {
		t.Fatalf("expected ErrCancellationIncomplete, got %v", err)
	}
	if !errors.Is(err, service.ErrTripBusy) {
		t.Errorf("expected the cause to be kept, got %v", err)
	}
	if count != 2 {
		t.Errorf("expected the other 2 passengers notified, got %d", count)
	}
	if got := env.bookingStatus(t, a2.ID); got != domain.BookingStatusAccepted {
		t.Errorf("expected refused booking still accepted, got %s", got)
	}
	for _, b := range []*domain.BookingRequest{a1, a3} {
		if got := env.bookingStatus(t, b.ID); got != domain.BookingStatusCancelled {
			t.Errorf("booking %s: expected cancelled, got %s", b.ID, got)
		}
	}

	// Retrying finishes the remaining booking.
	count, err = env.cancellation.CancelTrip(ctx, trip.ID, domain.ReasonSelection{Predefined: "weather"})
	if err != nil {
		t.Fatalf("retry: unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("retry: expected 1 passenger notified, got %d", count)
	}
	if got := env.bookingStatus(t, a2.ID); got != domain.BookingStatusCancelled {
		t.Errorf("expected booking cancelled after retry, got %s", got)
	}
	if got := env.availableSeats(t, trip.ID); got != 8 {
		t.Errorf("expected 8 available seats, got %d", got)
	}
}

func TestCancelTrip_SkipsTerminalAndIncludesPending(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	trip := env.createTrip(t, 8, "8")
	accepted := env.accepted(t, trip.ID, "p1", 2)
	pending := env.submit(t, trip.ID, "p2", 1)
	declined := env.submit(t, trip.ID, "p3", 1)
	if err := env.bookings.DeclineBooking(context.Background(), declined.ID); err != nil {
		t.Fatalf("decline: %v", err)
	}

	count, err := env.cancellation.CancelTrip(context.Background(), trip.ID, domain.ReasonSelection{Custom: "Driver sick"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 passengers notified, got %d", count)
	}

	if got := env.bookingStatus(t, accepted.ID); got != domain.BookingStatusCancelled {
		t.Errorf("expected accepted booking cancelled, got %s", got)
	}
	if got := env.bookingStatus(t, pending.ID); got != domain.BookingStatusCancelled {
		t.Errorf("expected pending booking cancelled, got %s", got)
	}
	if got := env.bookingStatus(t, declined.ID); got != domain.BookingStatusDeclined {
		t.Errorf("expected declined booking untouched, got %s", got)
	}
	if got := cancelledNotifications(env, "p3"); len(got) != 0 {
		t.Errorf("expected no notification for declined passenger, got %d", len(got))
	}
}

func TestCancelTrip_OneNotificationPerPassenger(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	trip := env.createTrip(t, 8, "8")
	env.accepted(t, trip.ID, "p1", 1)
	env.accepted(t, trip.ID, "p1", 2)

	count, err := env.cancellation.CancelTrip(context.Background(), trip.ID, domain.ReasonSelection{Predefined: "road_closure"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 passenger notified, got %d", count)
	}
	if got := cancelledNotifications(env, "p1"); len(got) != 1 {
		t.Errorf("expected 1 notification, got %d", len(got))
	}
	if got := env.availableSeats(t, trip.ID); got != 8 {
		t.Errorf("expected 8 available seats, got %d", got)
	}
}

func TestCancelTrip_InvalidReasonTouchesNothing(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	trip := env.createTrip(t, 8, "8")
	b := env.accepted(t, trip.ID, "p1", 1)

	_, err := env.cancellation.CancelTrip(context.Background(), trip.ID, domain.ReasonSelection{})
	if !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	tripNow, _ := env.ledger.GetTrip(context.Background(), trip.ID)
	if tripNow.Status != domain.TripStatusScheduled {
		t.Errorf("expected trip still scheduled, got %s", tripNow.Status)
	}
	if got := env.bookingStatus(t, b.ID); got != domain.BookingStatusAccepted {
		t.Errorf("expected booking still accepted, got %s", got)
	}
}

func TestCancelTrip_RepeatNotifiesNobody(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	trip := env.createTrip(t, 8, "8")
	env.accepted(t, trip.ID, "p1", 1)
	sel := domain.ReasonSelection{Predefined: "schedule_change"}

	if _, err := env.cancellation.CancelTrip(context.Background(), trip.ID, sel); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	count, err := env.cancellation.CancelTrip(context.Background(), trip.ID, sel)
	if err != nil {
		t.Fatalf("unexpected error on repeat: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 passengers notified on repeat, got %d", count)
	}
}

func TestCancelTrip_CompletedTripRejected(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	trip := env.createTrip(t, 8, "8")
	if _, err := env.trips.StartTrip(ctx, trip.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := env.trips.CompleteTrip(ctx, trip.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err := env.cancellation.CancelTrip(ctx, trip.ID, domain.ReasonSelection{Predefined: "weather"})
	if !errors.Is(err, service.ErrInvalidTripTransition) {
		t.Errorf("expected ErrInvalidTripTransition, got %v", err)
	}

	_, err = env.cancellation.CancelTrip(ctx, "missing", domain.ReasonSelection{Predefined: "weather"})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
