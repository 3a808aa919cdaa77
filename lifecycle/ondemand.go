package lifecycle

import (
	"context"
	"fmt"

	"github.com/fieldbay/sweeper/events"
	"github.com/fieldbay/sweeper/rules"
	"github.com/fieldbay/sweeper/types"
)

// apiRuleName tags marks placed by operator request rather than a rule.
const apiRuleName = "api"

// MarkResource marks a single resource on demand, bypassing rule
// evaluation. Returns ErrNotFound if the candidate source does not know
// the resource.
func (c *Controller) MarkResource(ctx context.Context, resourceID, name string, cfg types.WorkConfiguration, reason string) (*types.MarkedResource, error) {
	ctx, span := c.tracer.Start(ctx, "lifecycle.mark_resource")
	defer span.End()

	resource, err := c.source.GetCandidate(ctx, resourceID, name, cfg)
	if err != nil {
		return nil, fmt.Errorf("fetching candidate %s: %w", resourceID, err)
	}
	if resource == nil {
		return nil, ErrNotFound
	}

	candidate := c.enrich(ctx, *resource, cfg)
	if reason == "" {
		reason = "marked by operator request"
	}

	m := types.MarkedResource{
		Resource:            candidate.Resource,
		Summaries:           []types.Summary{{RuleName: apiRuleName, Description: reason}},
		Namespace:           cfg.Namespace,
		ResourceOwner:       candidate.Owner,
		ProjectedDeletionAt: c.projectedDeletion(cfg),
		MarkedAt:            c.now(),
	}
	if err := c.mark(ctx, m, cfg); err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteResource deletes a single marked resource on demand, skipping the
// grace period and notification requirement. Returns ErrNotFound if the
// resource is not currently marked.
func (c *Controller) DeleteResource(ctx context.Context, resourceID string, cfg types.WorkConfiguration) error {
	ctx, span := c.tracer.Start(ctx, "lifecycle.delete_resource")
	defer span.End()

	m, err := c.marked.Find(ctx, cfg.Namespace, resourceID)
	if err != nil {
		return err
	}
	if m == nil {
		return ErrNotFound
	}

	c.logger.WithContext(ctx).Info().
		Str("namespace", cfg.Namespace.String()).
		Str("resource_id", resourceID).
		Bool("dry_run", cfg.DryRun).
		Msg("deleting resource on demand")
	if cfg.DryRun {
		return nil
	}

	if err := c.deleter.DeleteResources(ctx, []types.MarkedResource{*m}, cfg); err != nil {
		return fmt.Errorf("deleting %s: %w", resourceID, err)
	}
	return c.finalizeDeletion(ctx, *m)
}

// OptOut permanently withholds a resource from marking and deletion.
// The candidate is fetched so its owner lands on the record; the state
// flag is persisted before the tracking record so a crash in between
// cannot leave the resource eligible. Returns ErrNotFound if the
// candidate source does not know the resource.
func (c *Controller) OptOut(ctx context.Context, resourceID string, cfg types.WorkConfiguration) (*types.MarkedResource, error) {
	ctx, span := c.tracer.Start(ctx, "lifecycle.optout")
	defer span.End()

	resource, err := c.source.GetCandidate(ctx, resourceID, resourceID, cfg)
	if err != nil {
		return nil, fmt.Errorf("fetching candidate %s: %w", resourceID, err)
	}
	if resource == nil {
		return nil, ErrNotFound
	}
	candidate := c.enrich(ctx, *resource, cfg)

	err = c.transitionState(ctx, cfg.Namespace, resourceID, types.ActionOptOut, func(s *types.ResourceState) {
		s.OptedOut = true
	})
	if err != nil {
		return nil, err
	}

	existing, err := c.marked.Find(ctx, cfg.Namespace, resourceID)
	if err != nil {
		return nil, err
	}

	m := types.MarkedResource{
		Resource:      candidate.Resource,
		Namespace:     cfg.Namespace,
		ResourceOwner: candidate.Owner,
		MarkedAt:      c.now(),
	}
	if existing != nil {
		m = *existing
		m.Resource = candidate.Resource
		m.ResourceOwner = candidate.Owner
	}
	if err := c.marked.Upsert(ctx, m); err != nil {
		return nil, err
	}
	c.publish(ctx, events.New(events.TypeOptOut, m, "opted out"))

	c.logger.WithContext(ctx).Info().
		Str("namespace", cfg.Namespace.String()).
		Str("resource_id", resourceID).
		Str("owner", m.ResourceOwner).
		Msg("resource opted out")
	return &m, nil
}

// EvaluateCandidate performs a read-only evaluation of one resource:
// would the next mark cycle mark it, and if not, why. Nothing is
// persisted and no events fire.
func (c *Controller) EvaluateCandidate(ctx context.Context, resourceID, name string, cfg types.WorkConfiguration) (*Evaluation, error) {
	ctx, span := c.tracer.Start(ctx, "lifecycle.evaluate")
	defer span.End()

	resource, err := c.source.GetCandidate(ctx, resourceID, name, cfg)
	if err != nil {
		return nil, fmt.Errorf("fetching candidate %s: %w", resourceID, err)
	}
	if resource == nil {
		return nil, ErrNotFound
	}

	candidate := c.enrich(ctx, *resource, cfg)
	candidates, err := c.preprocess(ctx, []types.Candidate{candidate}, cfg)
	if err != nil {
		return nil, err
	}
	candidate = candidates[0]

	summaries := c.evaluator.Evaluate(candidate)
	eval := &Evaluation{ResourceID: resourceID, Summaries: summaries}

	excluded, reason, err := c.shouldExclude(ctx, candidate, summaries, cfg, types.ActionMark)
	if err != nil {
		return nil, err
	}
	if excluded {
		eval.Reason = reason
		return eval, nil
	}

	if len(rules.Violations(summaries)) == 0 {
		eval.Reason = "no violations"
		return eval, nil
	}

	eval.WouldMark = true
	return eval, nil
}
