package lifecycle

import (
	"context"
	"fmt"

	"github.com/fieldbay/sweeper/events"
	"github.com/fieldbay/sweeper/rules"
	"github.com/fieldbay/sweeper/types"
)

// Delete runs one delete cycle: collect marked resources whose grace
// period has elapsed and whose owners were notified, re-validate each one
// against live upstream data, then delete in grouped batches. Partitions
// fail independently.
func (c *Controller) Delete(ctx context.Context, cfg types.WorkConfiguration) (*CycleResult, error) {
	ctx, span := c.tracer.Start(ctx, "lifecycle.delete")
	defer span.End()

	result := c.newResult(cfg.Namespace, types.ActionDelete)

	// When notifications are disabled for the namespace there is no stamp
	// to wait for; the grace period alone gates deletion.
	due, err := c.marked.ListDeletionDue(ctx, cfg.Namespace, c.now(), cfg.Notifications.Enabled)
	if err != nil {
		c.logger.LogCycleError(ctx, cfg.Namespace.String(), "list_due", err)
		return nil, fmt.Errorf("listing due resources: %w", err)
	}
	result.Scanned = len(due)
	if len(due) == 0 {
		return c.finishResult(ctx, result), nil
	}

	resources, err := c.source.GetCandidates(ctx, cfg)
	if err != nil {
		c.logger.LogCycleError(ctx, cfg.Namespace.String(), "fetch", err)
		return nil, fmt.Errorf("fetching candidates: %w", err)
	}

	// An empty upstream listing means every tracked resource is gone.
	// Retract the marks rather than attempting deletions that can only
	// fail. A listing outage looks identical; the sweep cap bounds the
	// damage and the next cycle re-marks anything that reappears.
	if len(resources) == 0 {
		c.logger.WithContext(ctx).Warn().
			Str("namespace", cfg.Namespace.String()).
			Int("due", len(due)).
			Msg("upstream listing empty, unmarking instead of deleting")
		if err := c.sweepVanished(ctx, cfg, map[string]struct{}{}, result); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
		c.recordMarkedGauge(ctx, cfg.Namespace)
		return c.finishResult(ctx, result), nil
	}

	confirmed, err := c.revalidateDue(ctx, due, resources, cfg, result)
	if err != nil {
		return nil, err
	}

	for _, partition := range Partition(confirmed, cfg.ItemsProcessedBatchSize) {
		c.deletePartition(ctx, partition, cfg, result)
	}

	c.recordMarkedGauge(ctx, cfg.Namespace)
	return c.finishResult(ctx, result), nil
}

// revalidateDue filters due resources down to those that still exist and
// still violate at deletion time. Exclusions and opt-outs acquired since
// marking withhold deletion; vanished or now-clean resources are
// unmarked.
func (c *Controller) revalidateDue(ctx context.Context, due []types.MarkedResource, resources []types.Resource, cfg types.WorkConfiguration, result *CycleResult) ([]types.MarkedResource, error) {
	upstream := make(map[string]types.Resource, len(resources))
	for _, r := range resources {
		upstream[r.ID] = r
	}

	maxItems := c.maxItems(cfg)
	var confirmed []types.MarkedResource
	for _, m := range due {
		if len(confirmed) >= maxItems {
			break
		}
		result.Processed++

		current, ok := upstream[m.Resource.ID]
		if !ok {
			if err := c.unmark(ctx, m, cfg, "no longer present upstream"); err != nil {
				c.countFailure(ctx, result, m.Resource.ID, err)
				continue
			}
			result.Unmarked++
			continue
		}

		candidate := c.enrich(ctx, current, cfg)
		candidates, err := c.preprocess(ctx, []types.Candidate{candidate}, cfg)
		if err != nil {
			c.countFailure(ctx, result, m.Resource.ID, err)
			continue
		}
		candidate = candidates[0]

		summaries := c.evaluator.Evaluate(candidate)
		excluded, reason, err := c.shouldExclude(ctx, candidate, summaries, cfg, types.ActionDelete)
		if err != nil {
			c.countFailure(ctx, result, m.Resource.ID, err)
			continue
		}
		if excluded {
			c.countExclusion(ctx, result, reason)
			continue
		}

		if len(rules.Violations(summaries)) == 0 {
			if err := c.unmark(ctx, m, cfg, "no longer violating"); err != nil {
				c.countFailure(ctx, result, m.Resource.ID, err)
				continue
			}
			result.Unmarked++
			continue
		}

		m.Resource = candidate.Resource
		confirmed = append(confirmed, m)
	}
	return confirmed, nil
}

// deletePartition deletes one batch. A provider failure fails the whole
// partition but never the cycle.
func (c *Controller) deletePartition(ctx context.Context, partition []types.MarkedResource, cfg types.WorkConfiguration, result *CycleResult) {
	for _, m := range partition {
		c.logger.WithContext(ctx).Info().
			Str("namespace", cfg.Namespace.String()).
			Str("resource_id", m.Resource.ID).
			Str("owner", m.ResourceOwner).
			Bool("dry_run", cfg.DryRun).
			Msg("deleting resource")
	}
	if cfg.DryRun {
		result.Deleted += len(partition)
		return
	}

	if err := c.deleter.DeleteResources(ctx, partition, cfg); err != nil {
		for _, m := range partition {
			c.countFailure(ctx, result, m.Resource.ID, err)
		}
		return
	}

	for _, m := range partition {
		if err := c.finalizeDeletion(ctx, m); err != nil {
			c.countFailure(ctx, result, m.Resource.ID, err)
			continue
		}
		result.Deleted++
		if c.metrics != nil {
			c.metrics.ResourcesDeleted.Add(ctx, 1, namespaceAttr(m.Namespace))
		}
	}
}

// finalizeDeletion records a completed deletion: the state flag flips, the
// tracking record goes away, and the delete event fires.
func (c *Controller) finalizeDeletion(ctx context.Context, m types.MarkedResource) error {
	err := c.transitionState(ctx, m.Namespace, m.Resource.ID, types.ActionDelete, func(s *types.ResourceState) {
		s.Deleted = true
	})
	if err != nil {
		return err
	}
	if err := c.marked.Remove(ctx, m.Namespace, m.Resource.ID); err != nil {
		return err
	}
	c.publish(ctx, events.New(events.TypeDelete, m, "grace period elapsed"))
	return nil
}
