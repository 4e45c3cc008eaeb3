package memory

import (
	"context"
	"sort"

	"louage/internal/domain"
	"louage/internal/repository"
)

// BookingRepository is an in-memory implementation of repository.BookingRepository.
type BookingRepository struct {
	s *Store
}

func (r *BookingRepository) Create(ctx context.Context, booking *domain.BookingRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.bookings[booking.ID]; exists {
		return repository.ErrDuplicate
	}
	c := *booking
	r.s.bookings[booking.ID] = &c
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.BookingRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	booking, ok := r.s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *booking
	return &c, nil
}

func (r *BookingRepository) Update(ctx context.Context, booking *domain.BookingRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.bookings[booking.ID]; !ok {
		return repository.ErrNotFound
	}
	c := *booking
	r.s.bookings[booking.ID] = &c
	return nil
}

func (r *BookingRepository) ListByTrip(ctx context.Context, tripID string) ([]*domain.BookingRequest, error) {
	result := r.filter(func(b *domain.BookingRequest) bool { return b.TripID == tripID })
	sortBookingsOldestFirst(result)
	return result, nil
}

func (r *BookingRepository) ListByPassenger(ctx context.Context, passengerID string) ([]*domain.BookingRequest, error) {
	result := r.filter(func(b *domain.BookingRequest) bool { return b.PassengerID == passengerID })
	sortBookingsNewestFirst(result)
	return result, nil
}

func (r *BookingRepository) filter(keep func(*domain.BookingRequest) bool) []*domain.BookingRequest {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := make([]*domain.BookingRequest, 0)
	for _, b := range r.s.bookings {
		if keep(b) {
			c := *b
			result = append(result, &c)
		}
	}
	// Map iteration order is random; break CreatedAt ties by ID.
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// The sorts are stable over an ID-ordered slice, so CreatedAt ties stay in ID order.
func sortBookingsOldestFirst(bs []*domain.BookingRequest) {
	sort.SliceStable(bs, func(i, j int) bool { return bs[i].CreatedAt.Before(bs[j].CreatedAt) })
}

func sortBookingsNewestFirst(bs []*domain.BookingRequest) {
	sort.SliceStable(bs, func(i, j int) bool { return bs[i].CreatedAt.After(bs[j].CreatedAt) })
}

// Ensure BookingRepository implements repository.BookingRepository.
var _ repository.BookingRepository = (*BookingRepository)(nil)
