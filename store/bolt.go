package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/btree"
	"go.etcd.io/bbolt"

	"github.com/fieldbay/sweeper/types"
)

// Bucket names in bbolt.
var (
	bucketMarked   = []byte("marked")
	bucketStates   = []byte("states")
	bucketLastSeen = []byte("lastseen")
)

// markedEntry is the in-memory index entry for a marked resource.
type markedEntry struct {
	key    string // namespace/resourceID
	record types.MarkedResource
}

// BoltStore persists lifecycle records in bbolt with a btree index over
// marked resources for fast per-namespace scans.
type BoltStore struct {
	mu    sync.RWMutex
	db    *bbolt.DB
	index *btree.BTreeG[*markedEntry]
	dir   string
}

// NewBoltStore opens or creates the store in dir.
func NewBoltStore(dir string) (*BoltStore, error) {
	dbPath := filepath.Join(dir, "sweeper.db")

	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketMarked, bucketStates, bucketLastSeen} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &BoltStore{
		db: db,
		index: btree.NewG[*markedEntry](32, func(a, b *markedEntry) bool {
			return a.key < b.key
		}),
		dir: dir,
	}

	if err := s.rebuildIndex(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to rebuild index: %w", err)
	}

	return s, nil
}

// Close closes the store.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Marked returns the marked-resource repository.
func (s *BoltStore) Marked() MarkedRepository { return &boltMarked{s} }

// States returns the resource-state repository.
func (s *BoltStore) States() StateRepository { return &boltStates{s} }

// Usage returns the last-seen tracking repository.
func (s *BoltStore) Usage() UseTrackingRepository { return &boltUsage{s} }

func makeKey(ns types.Namespace, resourceID string) string {
	return ns.String() + "/" + resourceID
}

func (s *BoltStore) rebuildIndex() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMarked)
		return bucket.ForEach(func(k, v []byte) error {
			var record types.MarkedResource
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("corrupt marked record %s: %w", k, err)
			}
			s.index.ReplaceOrInsert(&markedEntry{key: string(k), record: record})
			return nil
		})
	})
}

// boltMarked implements MarkedRepository.
type boltMarked struct {
	s *BoltStore
}

func (r *boltMarked) Upsert(_ context.Context, marked types.MarkedResource) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := makeKey(marked.Namespace, marked.Resource.ID)
	value, err := json.Marshal(marked)
	if err != nil {
		return fmt.Errorf("failed to marshal marked resource: %w", err)
	}

	err = r.s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMarked).Put([]byte(key), value)
	})
	if err != nil {
		return err
	}

	r.s.index.ReplaceOrInsert(&markedEntry{key: key, record: marked})
	return nil
}

func (r *boltMarked) Remove(_ context.Context, ns types.Namespace, resourceID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := makeKey(ns, resourceID)
	err := r.s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMarked).Delete([]byte(key))
	})
	if err != nil {
		return err
	}

	r.s.index.Delete(&markedEntry{key: key})
	return nil
}

func (r *boltMarked) Find(_ context.Context, ns types.Namespace, resourceID string) (*types.MarkedResource, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	entry, found := r.s.index.Get(&markedEntry{key: makeKey(ns, resourceID)})
	if !found {
		return nil, nil
	}
	record := entry.record
	return &record, nil
}

func (r *boltMarked) List(_ context.Context, ns types.Namespace) ([]types.MarkedResource, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.scanNamespace(ns, func(types.MarkedResource) bool { return true }), nil
}

func (r *boltMarked) ListDeletionDue(_ context.Context, ns types.Namespace, now time.Time, requireNotified bool) ([]types.MarkedResource, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	due := r.s.scanNamespace(ns, func(m types.MarkedResource) bool {
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

func (r *boltMarked) Count(_ context.Context, ns types.Namespace) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return len(r.s.scanNamespace(ns, func(types.MarkedResource) bool { return true })), nil
}

// scanNamespace walks the btree range for one namespace. Caller holds the
// lock.
func (s *BoltStore) scanNamespace(ns types.Namespace, keep func(types.MarkedResource) bool) []types.MarkedResource {
	prefix := ns.String() + "/"
	var results []types.MarkedResource

	s.index.AscendGreaterOrEqual(&markedEntry{key: prefix}, func(entry *markedEntry) bool {
		if len(entry.key) < len(prefix) || entry.key[:len(prefix)] != prefix {
			return false
		}
		if keep(entry.record) {
			results = append(results, entry.record)
		}
		return true
	})
	return results
}

// boltStates implements StateRepository.
type boltStates struct {
	s *BoltStore
}

func (r *boltStates) Upsert(_ context.Context, state types.ResourceState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := makeKey(state.Namespace, state.ResourceID)
	value, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal resource state: %w", err)
	}

	return r.s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketStates).Put([]byte(key), value)
	})
}

func (r *boltStates) Get(_ context.Context, ns types.Namespace, resourceID string) (*types.ResourceState, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var state *types.ResourceState
	err := r.s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketStates).Get([]byte(makeKey(ns, resourceID)))
		if data == nil {
			return nil
		}
		state = &types.ResourceState{}
		return json.Unmarshal(data, state)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (r *boltStates) List(_ context.Context, ns types.Namespace) ([]types.ResourceState, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	prefix := []byte(ns.String() + "/")
	var states []types.ResourceState

	err := r.s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketStates).Cursor()
		for k, v := c.Seek(prefix); k != nil && len(k) >= len(prefix) && string(k[:len(prefix)]) == string(prefix); k, v = c.Next() {
			var state types.ResourceState
			if err := json.Unmarshal(v, &state); err != nil {
				return err
			}
			states = append(states, state)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return states, nil
}

// boltUsage implements UseTrackingRepository.
type boltUsage struct {
	s *BoltStore
}

func (r *boltUsage) LastSeen(_ context.Context, resourceID string) (*types.LastSeenInfo, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var info *types.LastSeenInfo
	err := r.s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketLastSeen).Get([]byte(resourceID))
		if data == nil {
			return nil
		}
		info = &types.LastSeenInfo{}
		return json.Unmarshal(data, info)
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (r *boltUsage) RecordSeen(_ context.Context, info types.LastSeenInfo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	value, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal last seen info: %w", err)
	}

	return r.s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketLastSeen).Put([]byte(info.ResourceID), value)
	})
}
