package lifecycle

import (
	"context"
	"sort"
	"time"

	"github.com/fieldbay/sweeper/types"
)

// projectedDeletion computes the deletion stamp for a mark placed now:
// the retention period added to the current time, snapped forward to the
// next maintenance window.
func (c *Controller) projectedDeletion(cfg types.WorkConfiguration) time.Time {
	due := c.now().Add(time.Duration(cfg.RetentionDays) * 24 * time.Hour)
	return c.windows.NextTimeInWindow(due)
}

// RecalculateDeletionTimestamps re-derives projected deletion stamps for
// up to maxCount marked resources, oldest creation first. A stamp only
// ever moves earlier; recalculation never extends a grace period that is
// already running.
func (c *Controller) RecalculateDeletionTimestamps(ctx context.Context, cfg types.WorkConfiguration, maxCount int) (int, error) {
	all, err := c.marked.List(ctx, cfg.Namespace)
	if err != nil {
		return 0, err
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Resource.CreatedAt.Before(all[j].Resource.CreatedAt)
	})
	if maxCount > 0 && len(all) > maxCount {
		all = all[:maxCount]
	}

	proposed := c.projectedDeletion(cfg)
	updated := 0
	for _, m := range all {
		if !proposed.Before(m.ProjectedDeletionAt) {
			continue
		}
		m.ProjectedDeletionAt = proposed
		if err := c.marked.Upsert(ctx, m); err != nil {
			return updated, err
		}
		updated++
		c.logger.WithContext(ctx).Info().
			Str("namespace", cfg.Namespace.String()).
			Str("resource_id", m.Resource.ID).
			Time("projected_deletion_at", proposed).
			Msg("deletion timestamp shortened")
	}
	return updated, nil
}
