package lifecycle

import (
	"context"
	"fmt"

	"github.com/fieldbay/sweeper/events"
	"github.com/fieldbay/sweeper/notify"
	"github.com/fieldbay/sweeper/types"
)

// Notification channels stamped on marked records.
const (
	channelQueued = "queued"
	channelSilent = "silent"
)

// Notify runs one notify cycle: every marked resource whose owner has not
// been told yet is either handed to the notification queue or, when
// notifications are disabled for the namespace, silently stamped so
// deletion can still proceed. Dry-run namespaces never notify.
func (c *Controller) Notify(ctx context.Context, cfg types.WorkConfiguration) (*CycleResult, error) {
	ctx, span := c.tracer.Start(ctx, "lifecycle.notify")
	defer span.End()

	result := c.newResult(cfg.Namespace, types.ActionNotify)

	if cfg.DryRun {
		c.logger.WithContext(ctx).Info().
			Str("namespace", cfg.Namespace.String()).
			Msg("dry run, skipping notifications")
		return c.finishResult(ctx, result), nil
	}

	tracked, err := c.marked.List(ctx, cfg.Namespace)
	if err != nil {
		c.logger.LogCycleError(ctx, cfg.Namespace.String(), "list", err)
		return nil, fmt.Errorf("listing marked resources: %w", err)
	}
	result.Scanned = len(tracked)

	maxItems := c.maxItems(cfg)
	var pending []types.MarkedResource
	for _, m := range tracked {
		if m.Notified() {
			continue
		}
		if len(pending) >= maxItems {
			break
		}
		result.Processed++

		candidate := types.Enrich(m.Resource, m.ResourceOwner)
		excluded, reason, err := c.shouldExclude(ctx, candidate, m.Summaries, cfg, types.ActionNotify)
		if err != nil {
			c.countFailure(ctx, result, m.Resource.ID, err)
			continue
		}
		if excluded {
			c.countExclusion(ctx, result, reason)
			continue
		}
		pending = append(pending, m)
	}

	if len(pending) == 0 {
		return c.finishResult(ctx, result), nil
	}

	if cfg.Notifications.Enabled {
		if err := c.queue.Add(ctx, notify.Task{Namespace: cfg.Namespace, Resources: pending}); err != nil {
			c.logger.LogCycleError(ctx, cfg.Namespace.String(), "enqueue", err)
			return nil, fmt.Errorf("enqueueing notifications: %w", err)
		}
		for _, m := range pending {
			if err := c.stampNotified(ctx, m, channelQueued, false); err != nil {
				c.countFailure(ctx, result, m.Resource.ID, err)
				continue
			}
			result.Notified++
		}
		return c.finishResult(ctx, result), nil
	}

	// Notifications disabled: stamp without delivery and push the grace
	// period out by the time already spent marked, so owners who later
	// enable notifications are not ambushed by an immediate deletion.
	for _, m := range pending {
		if err := c.stampNotified(ctx, m, channelSilent, true); err != nil {
			c.countFailure(ctx, result, m.Resource.ID, err)
			continue
		}
		result.Notified++
	}
	return c.finishResult(ctx, result), nil
}

// stampNotified records the notification on the tracking record. When
// extend is set the projected deletion moves out by the elapsed marked
// time; the nil-info guard upstream makes this a one-time adjustment.
func (c *Controller) stampNotified(ctx context.Context, m types.MarkedResource, channel string, extend bool) error {
	now := c.now()
	recipient := m.ResourceOwner
	if recipient == "" {
		recipient = c.defaultOwner
	}

	m.NotificationInfo = &types.NotificationInfo{
		Recipient:  recipient,
		Channel:    channel,
		NotifiedAt: now,
	}
	if extend && now.After(m.MarkedAt) {
		m.ProjectedDeletionAt = m.ProjectedDeletionAt.Add(now.Sub(m.MarkedAt))
	}

	if err := c.marked.Upsert(ctx, m); err != nil {
		return err
	}
	if err := c.transitionState(ctx, m.Namespace, m.Resource.ID, types.ActionNotify, nil); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.ResourcesNotified.Add(ctx, 1, namespaceAttr(m.Namespace))
	}
	c.publish(ctx, events.New(events.TypeNotify, m, channel))
	return nil
}
