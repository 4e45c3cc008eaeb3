package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"louage/internal/redis"
)

// TripLocker serializes mutations of a single trip. The returned unlock
// function must be called exactly once.
type TripLocker interface {
	LockTrip(ctx context.Context, tripID string) (unlock func(), err error)
}

// LocalTripLocker is an in-process per-trip mutex.
type LocalTripLocker struct {
	mu    sync.Mutex
	locks map[string]*tripMutex
}

type tripMutex struct {
	mu   sync.Mutex
	refs int
}

// NewLocalTripLocker creates a new LocalTripLocker.
func NewLocalTripLocker() *LocalTripLocker {
	return &LocalTripLocker{locks: make(map[string]*tripMutex)}
}

// LockTrip blocks until the trip's mutex is held. Critical sections are
// short and make no external calls, so the wait is bounded.
func (l *LocalTripLocker) LockTrip(ctx context.Context, tripID string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[tripID]
	if !ok {
		m = &tripMutex{}
		l.locks[tripID] = m
	}
	m.refs++
	l.mu.Unlock()

	m.mu.Lock()

	return func() {
		m.mu.Unlock()

		l.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(l.locks, tripID)
		}
		l.mu.Unlock()
	}, nil
}

// DistributedLockConfig configures the Redis-backed trip lock.
type DistributedLockConfig struct {
	TTL        time.Duration // lock expiry if the holder dies
	Retries    int           // attempts after the first one
	RetryDelay time.Duration
}

// DistributedTripLocker guards trips across processes with a Redis lock.
// Acquisition retries a bounded number of times, then fails with ErrTripBusy.
type DistributedTripLocker struct {
	store redis.LockStoreInterface
	cfg   DistributedLockConfig
}

// NewDistributedTripLocker creates a new DistributedTripLocker.
func NewDistributedTripLocker(store redis.LockStoreInterface, cfg DistributedLockConfig) *DistributedTripLocker {
	return &DistributedTripLocker{store: store, cfg: cfg}
}

// LockTrip acquires the Redis lock for the trip.
func (l *DistributedTripLocker) LockTrip(ctx context.Context, tripID string) (func(), error) {
	token := uuid.New().String()

	for attempt := 0; attempt <= l.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(l.cfg.RetryDelay):
			}
		}

		ok, err := l.store.AcquireTripLock(ctx, tripID, token, l.cfg.TTL)
		if err != nil {
			return nil, fmt.Errorf("acquire trip lock: %w", err)
		}
		if !ok {
			continue
		}

		return func() {
			// Release with a fresh context so a cancelled request still unlocks.
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := l.store.ReleaseTripLock(releaseCtx, tripID, token); err != nil && !errors.Is(err, redis.ErrLockNotHeld) {
				log.Printf("trip lock release failed: trip=%s err=%v", tripID, err)
			}
		}, nil
	}

	return nil, ErrTripBusy
}

// Ensure lockers implement TripLocker.
var (
	_ TripLocker = (*LocalTripLocker)(nil)
	_ TripLocker = (*DistributedTripLocker)(nil)
)
