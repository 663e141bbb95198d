package gtfs

import (
	"sync"
	"time"

	"tracker.redline.org/internal/models"
)

// RealtimeStore holds the vehicles of the last GTFS-RT VehiclePositions fetch so that
// a failed fetch can fall back to them. Safe for concurrent use.
type RealtimeStore struct {
	mu        sync.RWMutex
	vehicles  []models.VehicleSnapshot
	fetchedAt time.Time
}

// NewRealtimeStore creates and returns a new empty RealtimeStore instance.
func NewRealtimeStore() *RealtimeStore {
	return &RealtimeStore{}
}

// Set replaces the stored vehicles.
func (s *RealtimeStore) Set(vehicles []models.VehicleSnapshot, fetchedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles = vehicles
	s.fetchedAt = fetchedAt
}

// Get returns the stored vehicles and their fetch time; ok is false before the first Set.
// The returned slice is shared and must not be modified.
func (s *RealtimeStore) Get() (vehicles []models.VehicleSnapshot, fetchedAt time.Time, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vehicles, s.fetchedAt, s.vehicles != nil
}
