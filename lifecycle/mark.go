package lifecycle

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fieldbay/sweeper/events"
	"github.com/fieldbay/sweeper/rules"
	"github.com/fieldbay/sweeper/types"
)

// Mark runs one mark cycle for the namespace: fetch candidates, resolve
// owners, evaluate rules, and reconcile the tracking repository so that a
// record exists exactly for the current violators. Failures on individual
// candidates are isolated; a fetch or preprocess failure aborts the cycle.
func (c *Controller) Mark(ctx context.Context, cfg types.WorkConfiguration) (*CycleResult, error) {
	ctx, span := c.tracer.Start(ctx, "lifecycle.mark")
	defer span.End()

	result := c.newResult(cfg.Namespace, types.ActionMark)

	resources, err := c.source.GetCandidates(ctx, cfg)
	if err != nil {
		c.logger.LogCycleError(ctx, cfg.Namespace.String(), "fetch", err)
		return nil, fmt.Errorf("fetching candidates: %w", err)
	}
	result.Scanned = len(resources)

	// An empty listing ends the cycle without touching existing marks.
	// Only the delete path treats an empty upstream as evidence that the
	// tracked resources are gone.
	if len(resources) == 0 {
		c.logger.WithContext(ctx).Info().
			Str("namespace", cfg.Namespace.String()).
			Msg("no candidates returned, ending mark cycle")
		return c.finishResult(ctx, result), nil
	}

	candidates := make([]types.Candidate, 0, len(resources))
	for _, r := range resources {
		candidates = append(candidates, c.enrich(ctx, r, cfg))
	}

	candidates, err = c.preprocess(ctx, candidates, cfg)
	if err != nil {
		c.logger.LogCycleError(ctx, cfg.Namespace.String(), "preprocess", err)
		return nil, fmt.Errorf("preprocessing candidates: %w", err)
	}

	// Every observed candidate counts as seen, including those past the
	// per-cycle cap, so the unmark sweep never retracts a mark for a
	// resource that still exists upstream.
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		seen[candidate.ID] = struct{}{}
		c.recordSeen(ctx, candidate)
	}

	// The per-cycle cap applies to the candidates that survive the
	// exclusion filter; excluded candidates never consume a slot.
	maxItems := c.maxItems(cfg)
	for _, candidate := range candidates {
		if result.Processed >= maxItems {
			break
		}
		counted, err := c.reconcileCandidate(ctx, candidate, cfg, result)
		if err != nil {
			c.countFailure(ctx, result, candidate.ID, err)
		}
		if counted {
			result.Processed++
		}
	}

	if err := c.sweepVanished(ctx, cfg, seen, result); err != nil {
		c.logger.LogCycleError(ctx, cfg.Namespace.String(), "unmark_sweep", err)
		result.Errors = append(result.Errors, err.Error())
	}

	c.recordMarkedGauge(ctx, cfg.Namespace)
	return c.finishResult(ctx, result), nil
}

// reconcileCandidate brings the tracking record for one candidate in line
// with its current rule evaluation. The bool reports whether the candidate
// counts against the per-cycle cap; excluded candidates do not.
func (c *Controller) reconcileCandidate(ctx context.Context, candidate types.Candidate, cfg types.WorkConfiguration, result *CycleResult) (bool, error) {
	summaries := c.evaluator.Evaluate(candidate)

	excluded, reason, err := c.shouldExclude(ctx, candidate, summaries, cfg, types.ActionMark)
	if err != nil {
		return true, err
	}

	existing, err := c.marked.Find(ctx, cfg.Namespace, candidate.ID)
	if err != nil {
		return true, err
	}

	if excluded {
		c.countExclusion(ctx, result, reason)
		if existing != nil {
			if err := c.unmark(ctx, *existing, cfg, reason); err != nil {
				return false, err
			}
			result.Unmarked++
		}
		return false, nil
	}

	violations := rules.Violations(summaries)
	if len(violations) == 0 {
		if existing != nil {
			if err := c.unmark(ctx, *existing, cfg, "no longer violating"); err != nil {
				return true, err
			}
			result.Unmarked++
		}
		return true, nil
	}

	if existing != nil {
		// Still violating: refresh the snapshot but preserve the grace
		// period and notification state.
		existing.Resource = candidate.Resource
		existing.Summaries = violations
		existing.ResourceOwner = candidate.Owner
		existing.LastSeenInfo = c.lastSeen(ctx, candidate.ID)
		if cfg.DryRun {
			return true, nil
		}
		return true, c.marked.Upsert(ctx, *existing)
	}

	m := types.MarkedResource{
		Resource:            candidate.Resource,
		Summaries:           violations,
		Namespace:           cfg.Namespace,
		ResourceOwner:       candidate.Owner,
		ProjectedDeletionAt: c.projectedDeletion(cfg),
		LastSeenInfo:        c.lastSeen(ctx, candidate.ID),
		MarkedAt:            c.now(),
	}
	if err := c.mark(ctx, m, cfg); err != nil {
		return true, err
	}
	result.Marked++
	if c.metrics != nil {
		c.metrics.ResourcesMarked.Add(ctx, 1, namespaceAttr(cfg.Namespace))
	}
	return true, nil
}

// mark persists a new tracking record, transitions the state history, and
// publishes the mark event. Dry runs only log.
func (c *Controller) mark(ctx context.Context, m types.MarkedResource, cfg types.WorkConfiguration) error {
	reason := ""
	if len(m.Summaries) > 0 {
		reason = m.Summaries[0].Description
	}

	c.logger.WithContext(ctx).Info().
		Str("namespace", cfg.Namespace.String()).
		Str("resource_id", m.Resource.ID).
		Str("owner", m.ResourceOwner).
		Time("projected_deletion_at", m.ProjectedDeletionAt).
		Bool("dry_run", cfg.DryRun).
		Str("reason", reason).
		Msg("marking resource")

	if cfg.DryRun {
		return nil
	}
	if err := c.marked.Upsert(ctx, m); err != nil {
		return err
	}
	if err := c.transitionState(ctx, cfg.Namespace, m.Resource.ID, types.ActionMark, nil); err != nil {
		return err
	}
	c.publish(ctx, events.New(events.TypeMark, m, reason))
	return nil
}

// unmark retracts a tracking record. Dry runs only log.
func (c *Controller) unmark(ctx context.Context, m types.MarkedResource, cfg types.WorkConfiguration, reason string) error {
	c.logger.WithContext(ctx).Info().
		Str("namespace", cfg.Namespace.String()).
		Str("resource_id", m.Resource.ID).
		Bool("dry_run", cfg.DryRun).
		Str("reason", reason).
		Msg("unmarking resource")

	if cfg.DryRun {
		return nil
	}
	if err := c.marked.Remove(ctx, m.Namespace, m.Resource.ID); err != nil {
		return err
	}
	if err := c.transitionState(ctx, m.Namespace, m.Resource.ID, types.ActionUnmark, nil); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.ResourcesUnmarked.Add(ctx, 1, namespaceAttr(m.Namespace))
	}
	c.publish(ctx, events.New(events.TypeUnmark, m, reason))
	return nil
}

// sweepVanished unmarks resources that are tracked but were not returned
// by the candidate source this cycle, bounded by the unmark cap. A sweep
// covering more than half of the tracked set is suspicious enough to warn
// about but proceeds. The delete path calls this with an empty seen set
// when the upstream listing comes back empty.
func (c *Controller) sweepVanished(ctx context.Context, cfg types.WorkConfiguration, seen map[string]struct{}, result *CycleResult) error {
	tracked, err := c.marked.List(ctx, cfg.Namespace)
	if err != nil {
		return err
	}

	var vanished []types.MarkedResource
	for _, m := range tracked {
		if _, ok := seen[m.Resource.ID]; !ok {
			vanished = append(vanished, m)
		}
	}
	if len(vanished) == 0 {
		return nil
	}

	if len(vanished)*2 > len(tracked) {
		c.logger.WithContext(ctx).Warn().
			Str("namespace", cfg.Namespace.String()).
			Int("tracked", len(tracked)).
			Int("vanished", len(vanished)).
			Msg("more than half of tracked resources vanished upstream")
	}

	for i, m := range vanished {
		if i >= c.unmarkCap {
			c.logger.WithContext(ctx).Warn().
				Str("namespace", cfg.Namespace.String()).
				Int("remaining", len(vanished)-i).
				Msg("unmark cap reached, deferring remainder to next cycle")
			break
		}
		if err := c.unmark(ctx, m, cfg, "no longer present upstream"); err != nil {
			c.countFailure(ctx, result, m.Resource.ID, err)
			continue
		}
		result.Unmarked++
	}
	return nil
}

// lastSeen reads the usage-tracking record for a resource, best effort.
func (c *Controller) lastSeen(ctx context.Context, resourceID string) *types.LastSeenInfo {
	if c.usage == nil {
		return nil
	}
	info, err := c.usage.LastSeen(ctx, resourceID)
	if err != nil {
		c.logger.WithContext(ctx).Warn().
			Err(err).
			Str("resource_id", resourceID).
			Msg("usage tracking lookup failed")
		return nil
	}
	return info
}

// recordSeen updates last-seen usage tracking, best effort.
func (c *Controller) recordSeen(ctx context.Context, candidate types.Candidate) {
	if c.usage == nil {
		return
	}
	info := types.LastSeenInfo{ResourceID: candidate.ID, LastSeenAt: c.now()}
	if err := c.usage.RecordSeen(ctx, info); err != nil {
		c.logger.WithContext(ctx).Warn().
			Err(err).
			Str("resource_id", candidate.ID).
			Msg("usage tracking update failed")
	}
}

// transitionState appends a status to a resource's history, creating the
// state record on first touch.
func (c *Controller) transitionState(ctx context.Context, ns types.Namespace, resourceID string, action types.Action, mutate func(*types.ResourceState)) error {
	state, err := c.states.Get(ctx, ns, resourceID)
	if err != nil {
		return err
	}
	if state == nil {
		state = &types.ResourceState{ResourceID: resourceID, Namespace: ns}
	}
	if mutate != nil {
		mutate(state)
	}
	state.Transition(action, c.now())
	return c.states.Upsert(ctx, *state)
}

func (c *Controller) recordMarkedGauge(ctx context.Context, ns types.Namespace) {
	if c.metrics == nil {
		return
	}
	count, err := c.marked.Count(ctx, ns)
	if err != nil {
		return
	}
	c.metrics.MarkedCurrent.Record(ctx, int64(count), namespaceAttr(ns))
}

func namespaceAttr(ns types.Namespace) metric.MeasurementOption {
	return metric.WithAttributeSet(attribute.NewSet(
		attribute.String("namespace", ns.String()),
	))
}
