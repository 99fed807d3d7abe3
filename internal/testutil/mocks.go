package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/spendlens/spendlens/internal/domain/cost"
	"github.com/spendlens/spendlens/internal/domain/snapshot"
	apperrors "github.com/spendlens/spendlens/internal/pkg/errors"
	"github.com/spendlens/spendlens/internal/providers"
)

// MockAdapter is a canned provider adapter for tests. It returns Batch or
// Err after an optional Delay, honoring context cancellation.
type MockAdapter struct {
	Name  string
	Batch *providers.RawBatch
	Err   error
	Delay time.Duration

	mu    sync.Mutex
	calls int
}

func (m *MockAdapter) Provider() string {
	return m.Name
}

func (m *MockAdapter) Fetch(ctx context.Context, window cost.Window) (*providers.RawBatch, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Batch, nil
}

// Calls reports how many times Fetch ran.
func (m *MockAdapter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockProbe returns canned statuses keyed by provider.
type MockProbe struct {
	Statuses map[string]providers.Status
}

func (m *MockProbe) Status(ctx context.Context, provider string) providers.Status {
	if s, ok := m.Statuses[provider]; ok {
		return s
	}
	return providers.Status{Provider: provider}
}

// MemSnapshotStore is an in-memory snapshot.Store for handler and CLI tests.
type MemSnapshotStore struct {
	mu    sync.Mutex
	snaps map[string]*snapshot.Snapshot
}

func NewMemSnapshotStore() *MemSnapshotStore {
	return &MemSnapshotStore{snaps: make(map[string]*snapshot.Snapshot)}
}

func (s *MemSnapshotStore) Save(ctx context.Context, snap *snapshot.Snapshot, overwrite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.snaps[snap.Name]; exists && !overwrite {
		return apperrors.DuplicateName(snap.Name)
	}
	cp := *snap
	cp.SchemaVersion = snapshot.SchemaVersion
	s.snaps[snap.Name] = &cp
	return nil
}

func (s *MemSnapshotStore) Get(ctx context.Context, name string) (*snapshot.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[name]
	if !ok {
		return nil, apperrors.NotFound("snapshot " + name)
	}
	cp := *snap
	return &cp, nil
}

func (s *MemSnapshotStore) List(ctx context.Context) ([]*snapshot.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*snapshot.Snapshot, 0, len(s.snaps))
	for _, snap := range s.snaps {
		cp := *snap
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemSnapshotStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snaps[name]; !ok {
		return apperrors.NotFound("snapshot " + name)
	}
	delete(s.snaps, name)
	return nil
}
