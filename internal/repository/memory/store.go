// Package memory provides the in-process store backing the booking core.
// Every repository returns copies so callers never share mutable state with
// the store.
package memory

import (
	"context"
	"sort"
	"sync"

	"louage/internal/domain"
	"louage/internal/repository"
)

// Store holds all trips, bookings and users of one process. Create a fresh
// Store per test or per server; there is no package-level state.
type Store struct {
	mu       sync.RWMutex
	trips    map[string]*domain.Trip
	bookings map[string]*domain.BookingRequest
	users    map[string]*domain.User

	// txMu serializes transactions so no two write sets interleave.
	txMu sync.Mutex
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		trips:    make(map[string]*domain.Trip),
		bookings: make(map[string]*domain.BookingRequest),
		users:    make(map[string]*domain.User),
	}
}

// Trips returns the trip repository view of the store.
func (s *Store) Trips() *TripRepository {
	return &TripRepository{s: s}
}

// Bookings returns the booking repository view of the store.
func (s *Store) Bookings() *BookingRepository {
	return &BookingRepository{s: s}
}

// Users returns the user repository view of the store.
func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s}
}

// WithinTx runs fn against repositories that buffer their writes. Reads
// inside fn see the buffered writes; nothing is visible to other readers until
// fn returns nil, at which point every write is applied under one lock.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	ws := &writeSet{s: s, trips: map[string]*domain.Trip{}, bookings: map[string]*domain.BookingRequest{}}
	repos := repository.Repos{
		Trips:    &txTripRepository{TripRepository: s.Trips(), ws: ws},
		Bookings: &txBookingRepository{BookingRepository: s.Bookings(), ws: ws},
	}

	if err := fn(ctx, repos); err != nil {
		return err
	}
	ws.commit()
	return nil
}

// writeSet holds the trips and bookings written inside one transaction.
type writeSet struct {
	s        *Store
	trips    map[string]*domain.Trip
	bookings map[string]*domain.BookingRequest
}

func (ws *writeSet) commit() {
	ws.s.mu.Lock()
	defer ws.s.mu.Unlock()
	for id, t := range ws.trips {
		ws.s.trips[id] = t
	}
	for id, b := range ws.bookings {
		ws.s.bookings[id] = b
	}
}

func (ws *writeSet) tripExists(id string) bool {
	if _, ok := ws.trips[id]; ok {
		return true
	}
	ws.s.mu.RLock()
	defer ws.s.mu.RUnlock()
	_, ok := ws.s.trips[id]
	return ok
}

func (ws *writeSet) bookingExists(id string) bool {
	if _, ok := ws.bookings[id]; ok {
		return true
	}
	ws.s.mu.RLock()
	defer ws.s.mu.RUnlock()
	_, ok := ws.s.bookings[id]
	return ok
}

type txTripRepository struct {
	*TripRepository
	ws *writeSet
}

func (r *txTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	if r.ws.tripExists(trip.ID) {
		return repository.ErrDuplicate
	}
	r.ws.trips[trip.ID] = copyTrip(trip)
	return nil
}

func (r *txTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	if t, ok := r.ws.trips[id]; ok {
		return copyTrip(t), nil
	}
	return r.TripRepository.GetByID(ctx, id)
}

func (r *txTripRepository) GetAll(ctx context.Context) ([]*domain.Trip, error) {
	return r.overlay(func(*domain.Trip) bool { return true }), nil
}

func (r *txTripRepository) ListByDriver(ctx context.Context, driverID string) ([]*domain.Trip, error) {
	return r.overlay(func(t *domain.Trip) bool { return t.DriverID == driverID }), nil
}

func (r *txTripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	if !r.ws.tripExists(trip.ID) {
		return repository.ErrNotFound
	}
	r.ws.trips[trip.ID] = copyTrip(trip)
	return nil
}

func (r *txTripRepository) overlay(keep func(*domain.Trip) bool) []*domain.Trip {
	result := make([]*domain.Trip, 0)
	for _, t := range r.TripRepository.filter(keep) {
		if _, written := r.ws.trips[t.ID]; !written {
			result = append(result, t)
		}
	}
	for _, t := range r.ws.trips {
		if keep(t) {
			result = append(result, copyTrip(t))
		}
	}
	sortTrips(result)
	return result
}

type txBookingRepository struct {
	*BookingRepository
	ws *writeSet
}

func (r *txBookingRepository) Create(ctx context.Context, booking *domain.BookingRequest) error {
	if r.ws.bookingExists(booking.ID) {
		return repository.ErrDuplicate
	}
	c := *booking
	r.ws.bookings[booking.ID] = &c
	return nil
}

func (r *txBookingRepository) GetByID(ctx context.Context, id string) (*domain.BookingRequest, error) {
	if b, ok := r.ws.bookings[id]; ok {
		c := *b
		return &c, nil
	}
	return r.BookingRepository.GetByID(ctx, id)
}

func (r *txBookingRepository) Update(ctx context.Context, booking *domain.BookingRequest) error {
	if !r.ws.bookingExists(booking.ID) {
		return repository.ErrNotFound
	}
	c := *booking
	r.ws.bookings[booking.ID] = &c
	return nil
}

func (r *txBookingRepository) ListByTrip(ctx context.Context, tripID string) ([]*domain.BookingRequest, error) {
	result := r.overlay(func(b *domain.BookingRequest) bool { return b.TripID == tripID })
	sortBookingsOldestFirst(result)
	return result, nil
}

func (r *txBookingRepository) ListByPassenger(ctx context.Context, passengerID string) ([]*domain.BookingRequest, error) {
	result := r.overlay(func(b *domain.BookingRequest) bool { return b.PassengerID == passengerID })
	sortBookingsNewestFirst(result)
	return result, nil
}

func (r *txBookingRepository) overlay(keep func(*domain.BookingRequest) bool) []*domain.BookingRequest {
	result := make([]*domain.BookingRequest, 0)
	for _, b := range r.BookingRepository.filter(keep) {
		if _, written := r.ws.bookings[b.ID]; !written {
			result = append(result, b)
		}
	}
	for _, b := range r.ws.bookings {
		if keep(b) {
			c := *b
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Ensure Store implements repository.Transactor.
var _ repository.Transactor = (*Store)(nil)
