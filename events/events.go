// Package events publishes lifecycle events. Publication is
// fire-and-forget from the controller's viewpoint; consumers batch
// notifications and build audit trails downstream.
package events

import (
	"context"
	"time"

	"github.com/fieldbay/sweeper/types"
)

// Type identifies a lifecycle event.
type Type string

const (
	TypeMark   Type = "mark"
	TypeUnmark Type = "unmark"
	TypeDelete Type = "delete"
	TypeOptOut Type = "optout"
	TypeNotify Type = "notify"
)

// Event is a lifecycle transition for one resource.
type Event struct {
	Type       Type                 `json:"type"`
	Namespace  types.Namespace      `json:"namespace"`
	ResourceID string               `json:"resource_id"`
	Owner      string               `json:"owner,omitempty"`
	Marked     types.MarkedResource `json:"marked"`
	Reason     string               `json:"reason,omitempty"`
	Timestamp  time.Time            `json:"timestamp"`
}

// New builds an event from a marked record.
func New(eventType Type, marked types.MarkedResource, reason string) Event {
	return Event{
		Type:       eventType,
		Namespace:  marked.Namespace,
		ResourceID: marked.Resource.ID,
		Owner:      marked.ResourceOwner,
		Marked:     marked,
		Reason:     reason,
		Timestamp:  time.Now(),
	}
}

// Publisher delivers lifecycle events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Fanout publishes to several publishers, returning the first error after
// attempting all of them.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event Event) error {
	var firstErr error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Discard swallows all events. Useful for dry runs and tests.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
