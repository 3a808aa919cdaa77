package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fieldbay/sweeper/types"
)

// MemoryStore is an in-memory implementation of the repositories, used by
// tests and dry-run tooling.
type MemoryStore struct {
	mu       sync.RWMutex
	marked   map[string]types.MarkedResource
	states   map[string]types.ResourceState
	lastSeen map[string]types.LastSeenInfo
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		marked:   make(map[string]types.MarkedResource),
		states:   make(map[string]types.ResourceState),
		lastSeen: make(map[string]types.LastSeenInfo),
	}
}

func (s *MemoryStore) Close() error { return nil }

// Marked returns the marked-resource repository.
func (s *MemoryStore) Marked() MarkedRepository { return &memMarked{s} }

// States returns the resource-state repository.
func (s *MemoryStore) States() StateRepository { return &memStates{s} }

// Usage returns the last-seen tracking repository.
func (s *MemoryStore) Usage() UseTrackingRepository { return &memUsage{s} }

type memMarked struct {
	s *MemoryStore
}

func (r *memMarked) Upsert(_ context.Context, marked types.MarkedResource) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.marked[makeKey(marked.Namespace, marked.Resource.ID)] = marked
	return nil
}

func (r *memMarked) Remove(_ context.Context, ns types.Namespace, resourceID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.marked, makeKey(ns, resourceID))
	return nil
}

func (r *memMarked) Find(_ context.Context, ns types.Namespace, resourceID string) (*types.MarkedResource, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if m, ok := r.s.marked[makeKey(ns, resourceID)]; ok {
		return &m, nil
	}
	return nil, nil
}

func (r *memMarked) List(_ context.Context, ns types.Namespace) ([]types.MarkedResource, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.collect(ns, func(types.MarkedResource) bool { return true }), nil
}

func (r *memMarked) ListDeletionDue(_ context.Context, ns types.Namespace, now time.Time, requireNotified bool) ([]types.MarkedResource, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	due := r.collect(ns, func(m types.MarkedResource) bool {
		if !m.DeletionDue(now) {
			return false
		}
		if requireNotified && !m.Notified() {
			return false
		}
		return true
	})

	sort.Slice(due, func(i, j int) bool {
		return due[i].Resource.CreatedAt.Before(due[j].Resource.CreatedAt)
	})
	return due, nil
}

func (r *memMarked) Count(_ context.Context, ns types.Namespace) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.collect(ns, func(types.MarkedResource) bool { return true })), nil
}

// collect filters marked records in a namespace. Caller holds the lock.
func (r *memMarked) collect(ns types.Namespace, keep func(types.MarkedResource) bool) []types.MarkedResource {
	var results []types.MarkedResource
	for _, m := range r.s.marked {
		if m.Namespace == ns && keep(m) {
			results = append(results, m)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Resource.ID < results[j].Resource.ID
	})
	return results
}

type memStates struct {
	s *MemoryStore
}

func (r *memStates) Upsert(_ context.Context, state types.ResourceState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.states[makeKey(state.Namespace, state.ResourceID)] = state
	return nil
}

func (r *memStates) Get(_ context.Context, ns types.Namespace, resourceID string) (*types.ResourceState, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if state, ok := r.s.states[makeKey(ns, resourceID)]; ok {
		return &state, nil
	}
	return nil, nil
}

func (r *memStates) List(_ context.Context, ns types.Namespace) ([]types.ResourceState, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var states []types.ResourceState
	for _, state := range r.s.states {
		if state.Namespace == ns {
			states = append(states, state)
		}
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].ResourceID < states[j].ResourceID
	})
	return states, nil
}

type memUsage struct {
	s *MemoryStore
}

func (r *memUsage) LastSeen(_ context.Context, resourceID string) (*types.LastSeenInfo, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if info, ok := r.s.lastSeen[resourceID]; ok {
		return &info, nil
	}
	return nil, nil
}

func (r *memUsage) RecordSeen(_ context.Context, info types.LastSeenInfo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.lastSeen[info.ResourceID] = info
	return nil
}
