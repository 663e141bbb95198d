// Package store holds the latest published pipeline snapshot for the HTTP handlers.
package store

import (
	"sync"
	"time"

	"tracker.redline.org/internal/pipeline"
)

// SnapshotStore is a thread-safe holder for the most recent snapshot. A newer
// snapshot always replaces the older one; readers never see a partial update.
type SnapshotStore struct {
	mu          sync.RWMutex
	snapshot    *pipeline.Snapshot
	publishedAt time.Time
	lastErr     error
}

// NewSnapshotStore creates and returns a new empty SnapshotStore instance.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Set publishes snap. Snapshots must not be modified after they are published.
func (s *SnapshotStore) Set(snap *pipeline.Snapshot, publishedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
	s.publishedAt = publishedAt
	s.lastErr = nil
}

// Get returns the latest snapshot, or nil before the first Set.
func (s *SnapshotStore) Get() *pipeline.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// PublishedAt returns when the latest snapshot was stored.
func (s *SnapshotStore) PublishedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.publishedAt
}

// SetError records a failed cycle. The previous snapshot stays available.
func (s *SnapshotStore) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

// LastError returns the error of the latest cycle, nil if it succeeded.
func (s *SnapshotStore) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}
