package memory

import (
	"context"
	"sort"

	"louage/internal/domain"
	"louage/internal/repository"
)

// TripRepository is an in-memory implementation of repository.TripRepository.
type TripRepository struct {
	s *Store
}

func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.trips[trip.ID]; exists {
		return repository.ErrDuplicate
	}
	r.s.trips[trip.ID] = copyTrip(trip)
	return nil
}

func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	trip, ok := r.s.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyTrip(trip), nil
}

func (r *TripRepository) GetAll(ctx context.Context) ([]*domain.Trip, error) {
	return r.filter(func(*domain.Trip) bool { return true }), nil
}

func (r *TripRepository) ListByDriver(ctx context.Context, driverID string) ([]*domain.Trip, error) {
	return r.filter(func(t *domain.Trip) bool { return t.DriverID == driverID }), nil
}

func (r *TripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.trips[trip.ID]; !ok {
		return repository.ErrNotFound
	}
	r.s.trips[trip.ID] = copyTrip(trip)
	return nil
}

func (r *TripRepository) filter(keep func(*domain.Trip) bool) []*domain.Trip {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := make([]*domain.Trip, 0, len(r.s.trips))
	for _, t := range r.s.trips {
		if keep(t) {
			result = append(result, copyTrip(t))
		}
	}
	sortTrips(result)
	return result
}

func sortTrips(ts []*domain.Trip) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].DepartureAt.Equal(ts[j].DepartureAt) {
			return ts[i].DepartureAt.After(ts[j].DepartureAt)
		}
		return ts[i].ID < ts[j].ID
	})
}

func copyTrip(t *domain.Trip) *domain.Trip {
	c := *t
	if t.DepartedOnTime != nil {
		v := *t.DepartedOnTime
		c.DepartedOnTime = &v
	}
	return &c
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
