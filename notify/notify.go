// Package notify defines owner notification contracts. Delivery and
// templating are downstream concerns; the lifecycle controller only hands
// namespace tasks to a queue.
package notify

import (
	"context"

	"github.com/fieldbay/sweeper/telemetry"
	"github.com/fieldbay/sweeper/types"
)

// Task is a batch of marked resources in one namespace awaiting owner
// notification.
type Task struct {
	Namespace types.Namespace        `json:"namespace"`
	Resources []types.MarkedResource `json:"resources"`
}

// Queue accepts namespace tasks for batched delivery.
type Queue interface {
	Add(ctx context.Context, task Task) error
}

// Notifier delivers one namespace task to owners.
type Notifier interface {
	Notify(ctx context.Context, task Task) error
}

// LogNotifier logs would-be notifications instead of sending them. The
// default when no transport is configured.
type LogNotifier struct {
	logger *telemetry.Logger
}

// NewLogNotifier creates a notifier that only logs.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: telemetry.NewLogger("notifier")}
}

func (n *LogNotifier) Notify(ctx context.Context, task Task) error {
	for _, m := range task.Resources {
		n.logger.WithContext(ctx).Info().
			Str("namespace", task.Namespace.String()).
			Str("resource_id", m.Resource.ID).
			Str("owner", m.ResourceOwner).
			Time("projected_deletion_at", m.ProjectedDeletionAt).
			Msg("owner notification")
	}
	return nil
}

// DirectQueue hands every task straight to a notifier. Suitable for hosts
// without an external queue.
type DirectQueue struct {
	notifier Notifier
}

// NewDirectQueue creates a queue backed by a notifier.
func NewDirectQueue(notifier Notifier) *DirectQueue {
	return &DirectQueue{notifier: notifier}
}

func (q *DirectQueue) Add(ctx context.Context, task Task) error {
	return q.notifier.Notify(ctx, task)
}
