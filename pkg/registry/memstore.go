package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store for tests and for embedding
// applications that persist records elsewhere.
type MemStore struct {
	mu      sync.RWMutex
	records map[string]Record
	hub     *streamHub
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		records: make(map[string]Record),
		hub:     newStreamHub(),
	}
}

// Save upserts the record keyed by DeviceID.
func (s *MemStore) Save(ctx context.Context, rec Record) error {
	if rec.DeviceID == "" {
		return ErrEmptyDeviceID
	}

	now := time.Now().UTC()

	s.mu.Lock()
	if existing, ok := s.records[rec.DeviceID]; ok {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	} else {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
	s.records[rec.DeviceID] = rec
	s.mu.Unlock()

	s.hub.publish(rec)
	return nil
}

// Delete removes the record for the device identifier.
func (s *MemStore) Delete(ctx context.Context, deviceID string) error {
	s.mu.Lock()
	delete(s.records, deviceID)
	s.mu.Unlock()
	return nil
}

// Get returns the record for the device identifier.
func (s *MemStore) Get(ctx context.Context, deviceID string) (Record, error) {
	s.mu.RLock()
	rec, ok := s.records[deviceID]
	s.mu.RUnlock()

	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Stream returns current records followed by live updates.
func (s *MemStore) Stream(ctx context.Context, ownerID string) (<-chan Record, error) {
	return s.hub.stream(ctx, ownerID, func() ([]Record, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.snapshotLocked(ownerID), nil
	})
}

func (s *MemStore) snapshotLocked(ownerID string) []Record {
	recs := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		if ownerID != "" && rec.OwnerID != ownerID {
			continue
		}
		recs = append(recs, rec)
	}

	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		}
		return recs[i].DeviceID < recs[j].DeviceID
	})
	return recs
}
