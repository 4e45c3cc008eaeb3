package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"louage/internal/domain"
	"louage/internal/repository"
	"louage/internal/repository/memory"
	"louage/internal/service"
)

func TestLedger_SubmitDoesNotReserveSeats(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	trip := env.createTrip(t, 8, "8")
	b := env.submit(t, trip.ID, "p1", 3)

	if b.Status != domain.BookingStatusPending {
		t.Errorf("expected pending, got %s", b.Status)
	}
	if got := env.availableSeats(t, trip.ID); got != 8 {
		t.Errorf("expected 8 available seats, got %d", got)
	}
	if !b.Price.Total.Equal(b.TotalPrice()) {
		t.Errorf("expected total price to match breakdown")
	}
}

func TestLedger_SubmitCapacityExceeded(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	trip := env.createTrip(t, 8, "8")
	env.accepted(t, trip.ID, "p1", 7)

	_, err := env.ledger.Submit(context.Background(), service.SubmitBookingRequest{
		TripID:    trip.ID,
		Passenger: domain.Passenger{ID: "p2"},
		Seats:     2,
	})
	if !errors.Is(err, service.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if got := env.availableSeats(t, trip.ID); got != 1 {
		t.Errorf("expected 1 available seat, got %d", got)
	}

	bookings, _ := env.store.Bookings().ListByTrip(context.Background(), trip.ID)
	if len(bookings) != 1 {
		t.Errorf("expected rejected request to leave no booking, got %d bookings", len(bookings))
	}
}

func TestLedger_SubmitValidation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	trip := env.createTrip(t, 4, "8")

	testCases := []struct {
		name    string
		req     service.SubmitBookingRequest
		wantErr error
	}{
		{
			name:    "zero seats",
			req:     service.SubmitBookingRequest{TripID: trip.ID, Passenger: domain.Passenger{ID: "p1"}, Seats: 0},
			wantErr: service.ErrInvalidSeatCount,
		},
		{
			name:    "missing passenger",
			req:     service.SubmitBookingRequest{TripID: trip.ID, Seats: 1},
			wantErr: service.ErrInvalidPassengerID,
		},
		{
			name:    "missing trip",
			req:     service.SubmitBookingRequest{Passenger: domain.Passenger{ID: "p1"}, Seats: 1},
			wantErr: service.ErrInvalidTripID,
		},
		{
			name:    "negative luggage",
			req:     service.SubmitBookingRequest{TripID: trip.ID, Passenger: domain.Passenger{ID: "p1"}, Seats: 1, Luggage: domain.Luggage{Bag: -2}},
			wantErr: service.ErrInvalidLuggage,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.ledger.Submit(context.Background(), tc.req)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	_, err := env.ledger.Submit(context.Background(), service.SubmitBookingRequest{
		TripID: "missing", Passenger: domain.Passenger{ID: "p1"}, Seats: 1,
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown trip, got %v", err)
	}
}

func TestLedger_AcceptRecomputesSeats(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	trip := env.createTrip(t, 8, "8")
	b1 := env.submit(t, trip.ID, "p1", 2)
	b2 := env.submit(t, trip.ID, "p2", 3)

	updated, accepted, err := env.ledger.Accept(context.Background(), b1.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.AvailableSeats != 6 {
		t.Errorf("expected 6 available seats, got %d", updated.AvailableSeats)
	}
	if accepted.Status != domain.BookingStatusAccepted {
		t.Errorf("expected accepted, got %s", accepted.Status)
	}

	if _, _, err := env.ledger.Accept(context.Background(), b2.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := env.availableSeats(t, trip.ID); got != 3 {
		t.Errorf("expected 3 available seats, got %d", got)
	}
}

func TestLedger_AcceptPastCapacityRollsBack(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	trip := env.createTrip(t, 4, "8")
	b1 := env.submit(t, trip.ID, "p1", 3)
	b2 := env.submit(t, trip.ID, "p2", 3)

	if _, _, err := env.ledger.Accept(context.Background(), b1.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, _, err := env.ledger.Accept(context.Background(), b2.ID)
	if !errors.Is(err, service.ErrAtomicityViolation) {
		t.Fatalf("expected ErrAtomicityViolation, got %v", err)
	}
	if got := env.bookingStatus(t, b2.ID); got != domain.BookingStatusPending {
		t.Errorf("expected booking to stay pending, got %s", got)
	}
	if got := env.availableSeats(t, trip.ID); got != 1 {
		t.Errorf("expected 1 available seat, got %d", got)
	}
}

func TestLedger_ConcurrentAcceptsNeverOverbook(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	trip := env.createTrip(t, 8, "8")
	ids := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		ids = append(ids, env.submit(t, trip.ID, "p"+string(rune('a'+i)), 2).ID)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		violated  int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _, err := env.ledger.Accept(context.Background(), id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, service.ErrAtomicityViolation):
				violated++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(id)
	}
	wg.Wait()

	if succeeded != 4 {
		t.Errorf("expected 4 accepted bookings, got %d", succeeded)
	}
	if violated != 6 {
		t.Errorf("expected 6 rejected accepts, got %d", violated)
	}
	if got := env.availableSeats(t, trip.ID); got != 0 {
		t.Errorf("expected 0 available seats, got %d", got)
	}
}

func TestLedger_RefusedAcceptIsNeverVisible(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	trip := env.createTrip(t, 1, "8")
	env.accepted(t, trip.ID, "p1", 1)
	pending := env.submit(t, trip.ID, "p2", 1)

	var (
		stop     atomic.Bool
		observed atomic.Int64
		wg       sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for !stop.Load() {
			b, err := env.ledger.GetBooking(ctx, pending.ID)
			if err == nil && b.Status != domain.BookingStatusPending {
				observed.Add(1)
			}
			list, err := env.ledger.PassengerBookings(ctx, "p2")
			if err == nil && len(list) == 1 && list[0].Status != domain.BookingStatusPending {
				observed.Add(1)
			}
		}
	}()

	for i := 0; i < 2000; i++ {
		if _, _, err := env.ledger.Accept(ctx, pending.ID); !errors.Is(err, service.ErrAtomicityViolation) {
			t.Fatalf("attempt %d: expected ErrAtomicityViolation, got %v", i, err)
		}
	}
	stop.Store(true)
	wg.Wait()

	if n := observed.Load(); n != 0 {
		t.Errorf("refused booking was visible as accepted %d times", n)
	}
	if got := env.bookingStatus(t, pending.ID); got != domain.BookingStatusPending {
		t.Errorf("expected booking to stay pending, got %s", got)
	}
	if got := env.availableSeats(t, trip.ID); got != 0 {
		t.Errorf("expected 0 available seats, got %d", got)
	}
}

func TestLedger_DeclineLeavesSeats(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	trip := env.createTrip(t, 8, "8")
	b := env.submit(t, trip.ID, "p1", 2)

	if _, _, err := env.ledger.Decline(context.Background(), b.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := env.availableSeats(t, trip.ID); got != 8 {
		t.Errorf("expected 8 available seats, got %d", got)
	}

	// Declined is terminal.
	if _, _, err := env.ledger.Accept(context.Background(), b.ID); !errors.Is(err, service.ErrAlreadyInTerminalState) {
		t.Errorf("expected ErrAlreadyInTerminalState on accept, got %v", err)
	}
	if _, _, err := env.ledger.Decline(context.Background(), b.ID); !errors.Is(err, service.ErrAlreadyInTerminalState) {
		t.Errorf("expected ErrAlreadyInTerminalState on decline, got %v", err)
	}
}

func TestLedger_DeclineAcceptedIsInvalid(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	trip := env.createTrip(t, 8, "8")
	b := env.accepted(t, trip.ID, "p1", 2)

	if _, _, err := env.ledger.Decline(context.Background(), b.ID); !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if _, _, err := env.ledger.Accept(context.Background(), b.ID); !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition on second accept, got %v", err)
	}
}

func TestLedger_CancelAcceptedReleasesSeats(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	trip := env.createTrip(t, 8, "8")
	b := env.accepted(t, trip.ID, "p1", 3)
	if got := env.availableSeats(t, trip.ID); got != 5 {
		t.Fatalf("expected 5 available seats, got %d", got)
	}

	updated, cancelled, err := env.ledger.CancelAccepted(context.Background(), b.ID, "Vehicle breakdown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.AvailableSeats != 8 {
		t.Errorf("expected 8 available seats, got %d", updated.AvailableSeats)
	}
	if cancelled.CancellationReason != "Vehicle breakdown" {
		t.Errorf("expected reason to be recorded, got %q", cancelled.CancellationReason)
	}

	// Second cancel is an idempotent no-op.
	_, _, err = env.ledger.CancelAccepted(context.Background(), b.ID, "again")
	if !errors.Is(err, service.ErrAlreadyInTerminalState) {
		t.Errorf("expected ErrAlreadyInTerminalState, got %v", err)
	}
	if got := env.availableSeats(t, trip.ID); got != 8 {
		t.Errorf("expected 8 available seats after repeat cancel, got %d", got)
	}
}

func TestLedger_CancelAcceptedRequiresReason(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	trip := env.createTrip(t, 8, "8")
	b := env.accepted(t, trip.ID, "p1", 1)

	_, _, err := env.ledger.CancelAccepted(context.Background(), b.ID, "   ")
	if !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := env.bookingStatus(t, b.ID); got != domain.BookingStatusAccepted {
		t.Errorf("expected booking to stay accepted, got %s", got)
	}
}

func TestLedger_CancelPendingIsInvalid(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	trip := env.createTrip(t, 8, "8")
	b := env.submit(t, trip.ID, "p1", 1)

	_, _, err := env.ledger.CancelAccepted(context.Background(), b.ID, "Road closure")
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestLedger_UnknownBooking(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	if _, _, err := env.ledger.Accept(context.Background(), "nope"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := env.ledger.Decline(context.Background(), "nope"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := env.ledger.CancelAccepted(context.Background(), "nope", "x"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLedger_FailedTripWriteRollsBackBooking(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	tx := &failingTransactor{store: store}
	env := newTestEnvWithTx(t, store, tx)

	trip := env.createTrip(t, 8, "8")
	b := env.submit(t, trip.ID, "p1", 2)
	tx.FailID = b.ID

	_, _, err := env.ledger.Accept(context.Background(), b.ID)
	if !errors.Is(err, errInjected) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if got := env.bookingStatus(t, b.ID); got != domain.BookingStatusPending {
		t.Errorf("expected booking write to be rolled back, got %s", got)
	}
	if got := env.availableSeats(t, trip.ID); got != 8 {
		t.Errorf("expected 8 available seats, got %d", got)
	}
}

func TestLedger_ClosedTripRejectsBookings(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	trip := env.createTrip(t, 8, "8")
	pending := env.submit(t, trip.ID, "p1", 1)

	if _, _, err := env.ledger.CloseTrip(context.Background(), trip.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := env.ledger.Submit(context.Background(), service.SubmitBookingRequest{
		TripID: trip.ID, Passenger: domain.Passenger{ID: "p2"}, Seats: 1,
	})
	if !errors.Is(err, service.ErrTripNotOpen) {
		t.Errorf("expected ErrTripNotOpen on submit, got %v", err)
	}
	if _, _, err := env.ledger.Accept(context.Background(), pending.ID); !errors.Is(err, service.ErrTripNotOpen) {
		t.Errorf("expected ErrTripNotOpen on accept, got %v", err)
	}
}

func TestLedger_PassengerBookingsNewestFirst(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	t1 := env.createTrip(t, 8, "8")
	t2 := env.createTrip(t, 8, "9")
	first := env.submit(t, t1.ID, "p1", 1)
	second := env.submit(t, t2.ID, "p1", 1)
	env.submit(t, t2.ID, "p2", 1)

	bookings, err := env.ledger.PassengerBookings(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bookings) != 2 {
		t.Fatalf("expected 2 bookings, got %d", len(bookings))
	}
	if bookings[0].CreatedAt.Before(bookings[1].CreatedAt) {
		t.Errorf("expected newest first")
	}
	seen := map[string]bool{bookings[0].ID: true, bookings[1].ID: true}
	if !seen[first.ID] || !seen[second.ID] {
		t.Errorf("expected both of p1's bookings, got %v", seen)
	}
}
