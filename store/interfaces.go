// Package store persists lifecycle records: marked resources, resource
// states, and last-seen usage tracking. All writes are idempotent upserts
// keyed by (resource id, namespace).
package store

import (
	"context"
	"time"

	"github.com/fieldbay/sweeper/types"
)

// MarkedReader queries the marked-resource tracking repository.
type MarkedReader interface {
	// Find returns the marked record, nil if absent.
	Find(ctx context.Context, ns types.Namespace, resourceID string) (*types.MarkedResource, error)
	// List returns every marked resource in the namespace.
	List(ctx context.Context, ns types.Namespace) ([]types.MarkedResource, error)
	// ListDeletionDue returns marked resources whose projected deletion
	// stamp has passed. When requireNotified is set, records without
	// notification info are filtered out.
	ListDeletionDue(ctx context.Context, ns types.Namespace, now time.Time, requireNotified bool) ([]types.MarkedResource, error)
	// Count returns the number of marked resources in the namespace.
	Count(ctx context.Context, ns types.Namespace) (int, error)
}

// MarkedWriter mutates the marked-resource tracking repository.
type MarkedWriter interface {
	Upsert(ctx context.Context, marked types.MarkedResource) error
	Remove(ctx context.Context, ns types.Namespace, resourceID string) error
}

// MarkedRepository combines tracking reads and writes.
type MarkedRepository interface {
	MarkedReader
	MarkedWriter
}

// StateRepository persists opt-out/deleted flags and status history.
type StateRepository interface {
	Upsert(ctx context.Context, state types.ResourceState) error
	// Get returns the state record, nil if absent.
	Get(ctx context.Context, ns types.Namespace, resourceID string) (*types.ResourceState, error)
	List(ctx context.Context, ns types.Namespace) ([]types.ResourceState, error)
}

// UseTrackingRepository records when resources were last seen in use.
type UseTrackingRepository interface {
	// LastSeen returns usage info for a resource, nil if never seen.
	LastSeen(ctx context.Context, resourceID string) (*types.LastSeenInfo, error)
	RecordSeen(ctx context.Context, info types.LastSeenInfo) error
}

// Lifecycle manages store lifecycle.
type Lifecycle interface {
	Close() error
}
