package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dtroode/gophfeed/internal/model"
)

var _ model.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore keeps session snapshots in process memory.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]model.SessionSnapshot
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snapshots: make(map[string]model.SessionSnapshot),
	}
}

func (s *SnapshotStore) Save(_ context.Context, snapshot model.SessionSnapshot) error {
	if snapshot.Profile != nil {
		p := *snapshot.Profile
		snapshot.Profile = &p
	}

	s.mu.Lock()
	s.snapshots[snapshot.ID] = snapshot
	s.mu.Unlock()
	return nil
}

func (s *SnapshotStore) Get(_ context.Context, id string) (model.SessionSnapshot, error) {
	s.mu.RLock()
	snap, ok := s.snapshots[id]
	s.mu.RUnlock()
	if !ok {
		return model.SessionSnapshot{}, model.ErrNotFound
	}
	return snap, nil
}

func (s *SnapshotStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.snapshots, id)
	s.mu.Unlock()
	return nil
}

func (s *SnapshotStore) DeleteOlderThan(_ context.Context, t time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, snap := range s.snapshots {
		if snap.UpdatedAt.Before(t) {
			delete(s.snapshots, id)
			n++
		}
	}
	return n, nil
}
