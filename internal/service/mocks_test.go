package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"louage/internal/domain"
	"louage/internal/redis"
	"louage/internal/repository"
	"louage/internal/repository/memory"
	"louage/internal/service"
)

// ──────────────────────────────────────────────
// Mock Lock Store
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of redis.LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]string // trip id -> token

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]string),
	}
}

func (m *MockLockStore) AcquireTripLock(ctx context.Context, tripID, token string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, held := m.locks[tripID]; held {
		return false, nil
	}
	m.locks[tripID] = token
	return true, nil
}

func (m *MockLockStore) ReleaseTripLock(ctx context.Context, tripID, token string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[tripID] != token {
		return redis.ErrLockNotHeld
	}
	delete(m.locks, tripID)
	return nil
}

// IsLocked checks if a trip is locked (for test assertions).
func (m *MockLockStore) IsLocked(tripID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.locks[tripID]
	return held
}

// ──────────────────────────────────────────────
// Mock Pusher
// ──────────────────────────────────────────────

// MockPusher records pushed notifications.
type MockPusher struct {
	mu     sync.Mutex
	pushed []domain.Notification

	// Error injection
	PushError error

	// Block holds every push until closed.
	Block chan struct{}
}

func (m *MockPusher) Push(ctx context.Context, n domain.Notification) error {
	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushed = append(m.pushed, n)
	return m.PushError
}

// Pushed returns a copy of the pushed notifications.
func (m *MockPusher) Pushed() []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Notification(nil), m.pushed...)
}

// ──────────────────────────────────────────────
// Mock Name Cache
// ──────────────────────────────────────────────

// MockNameCache is a mock implementation of redis.NameCacheInterface.
type MockNameCache struct {
	mu    sync.Mutex
	names map[string]string

	GetCallCount int32
	GetError     error
}

// NewMockNameCache creates a new mock name cache.
func NewMockNameCache() *MockNameCache {
	return &MockNameCache{names: make(map[string]string)}
}

func (m *MockNameCache) GetName(ctx context.Context, userID string) (string, bool, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return "", false, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.names[userID]
	return name, ok, nil
}

func (m *MockNameCache) SetName(ctx context.Context, userID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[userID] = name
	return nil
}

// Cached returns the cached name of a user.
func (m *MockNameCache) Cached(userID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.names[userID]
	return name, ok
}

// ──────────────────────────────────────────────
// Failing booking repository
// ──────────────────────────────────────────────

// flakyLocker wraps a local locker and reports ErrTripBusy for one chosen
// future LockTrip call.
type flakyLocker struct {
	inner *service.LocalTripLocker

	mu     sync.Mutex
	calls  int
	failAt int // 0 disables failures
}

func newFlakyLocker() *flakyLocker {
	return &flakyLocker{inner: service.NewLocalTripLocker()}
}

// FailNth makes the nth LockTrip call from now on fail.
func (l *flakyLocker) FailNth(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = 0
	l.failAt = n
}

func (l *flakyLocker) LockTrip(ctx context.Context, tripID string) (func(), error) {
	l.mu.Lock()
	l.calls++
	fail := l.failAt != 0 && l.calls == l.failAt
	l.mu.Unlock()

	if fail {
		return nil, service.ErrTripBusy
	}
	return l.inner.LockTrip(ctx, tripID)
}

// failingTransactor wraps a memory store and makes booking updates fail
// once the booking with FailID is written.
type failingTransactor struct {
	store  *memory.Store
	FailID string
}

var errInjected = errors.New("injected write failure")

func (f *failingTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	return f.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		repos.Trips = &failingTripRepository{TripRepository: repos.Trips, failAfterBooking: f.FailID, bookings: repos.Bookings}
		return fn(ctx, repos)
	})
}

// failingTripRepository fails trip updates that follow a write of the
// booking named by failAfterBooking, simulating a crash between the two writes.
type failingTripRepository struct {
	repository.TripRepository
	bookings         repository.BookingRepository
	failAfterBooking string
}

func (r *failingTripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	b, err := r.bookings.GetByID(ctx, r.failAfterBooking)
	if err == nil && b.Status != domain.BookingStatusPending {
		return errInjected
	}
	return r.TripRepository.Update(ctx, trip)
}

// ──────────────────────────────────────────────
// Test environment
// ──────────────────────────────────────────────

type testEnv struct {
	store         *memory.Store
	ledger        *service.BookingLedger
	notifications *service.NotificationDispatcher
	directory     *service.UserDirectory
	bookings      *service.BookingService
	cancellation  *service.CancellationWorkflow
	trips         *service.TripService
	receipts      *service.ReceiptService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithTx(t, memory.NewStore(), nil)
}

func newTestEnvWithTx(t *testing.T, store *memory.Store, tx repository.Transactor) *testEnv {
	t.Helper()
	return newTestEnvWith(t, store, tx, service.NewLocalTripLocker())
}

func newTestEnvWith(t *testing.T, store *memory.Store, tx repository.Transactor, locker service.TripLocker) *testEnv {
	t.Helper()
	if tx == nil {
		tx = store
	}

	repos := repository.Repos{Trips: store.Trips(), Bookings: store.Bookings()}
	notifications := service.NewNotificationDispatcher(nil, time.Second)
	t.Cleanup(notifications.Close)

	ledger := service.NewBookingLedger(repos, tx, locker)
	directory := service.NewUserDirectory(store.Users(), nil)

	return &testEnv{
		store:         store,
		ledger:        ledger,
		notifications: notifications,
		directory:     directory,
		bookings:      service.NewBookingService(ledger, notifications, directory),
		cancellation:  service.NewCancellationWorkflow(ledger, notifications),
		trips:         service.NewTripService(repos.Trips, ledger, notifications, 10*time.Minute),
		receipts:      service.NewReceiptService(ledger),
	}
}

// createTrip publishes a collective trip departing in one hour.
func (e *testEnv) createTrip(t *testing.T, seats int, price string) *domain.Trip {
	t.Helper()
	trip, err := e.trips.CreateTrip(context.Background(), service.CreateTripRequest{
		DriverID:     "driver-1",
		Origin:       "Tunis",
		Destination:  "Sousse",
		DepartureAt:  time.Now().Add(time.Hour),
		TotalSeats:   seats,
		PricePerSeat: decimal.RequireFromString(price),
	})
	if err != nil {
		t.Fatalf("create trip: %v", err)
	}
	return trip
}

// submit creates a pending booking.
func (e *testEnv) submit(t *testing.T, tripID, passengerID string, seats int) *domain.BookingRequest {
	t.Helper()
	b, err := e.bookings.SubmitBooking(context.Background(), service.SubmitBookingRequest{
		TripID:    tripID,
		Passenger: domain.Passenger{ID: passengerID, Name: "Passenger " + passengerID},
		Seats:     seats,
	})
	if err != nil {
		t.Fatalf("submit booking: %v", err)
	}
	return b
}

// accepted submits and accepts a booking.
func (e *testEnv) accepted(t *testing.T, tripID, passengerID string, seats int) *domain.BookingRequest {
	t.Helper()
	b := e.submit(t, tripID, passengerID, seats)
	if _, err := e.bookings.AcceptBooking(context.Background(), b.ID); err != nil {
		t.Fatalf("accept booking: %v", err)
	}
	return b
}

func (e *testEnv) availableSeats(t *testing.T, tripID string) int {
	t.Helper()
	trip, err := e.ledger.GetTrip(context.Background(), tripID)
	if err != nil {
		t.Fatalf("get trip: %v", err)
	}
	return trip.AvailableSeats
}

func (e *testEnv) bookingStatus(t *testing.T, bookingID string) domain.BookingStatus {
	t.Helper()
	b, err := e.ledger.GetBooking(context.Background(), bookingID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	return b.Status
}
