package lifecycle

import (
	"context"
	"fmt"

	"github.com/fieldbay/sweeper/rules"
	"github.com/fieldbay/sweeper/types"
)

// Exclusion reasons, used as metric labels and evaluation output.
const (
	reasonAge      = "below_max_age"
	reasonOptedOut = "opted_out"
	reasonPolicy   = "exclusion_policy"
)

// shouldExclude decides whether a candidate is withheld from an action.
// The always-clean escape hatch short-circuits every check; otherwise
// resources younger than the configured max age are withheld from marking
// and deletion but not from notification, then opt-outs, then the policy
// engine.
func (c *Controller) shouldExclude(
	ctx context.Context,
	candidate types.Candidate,
	summaries []types.Summary,
	cfg types.WorkConfiguration,
	action types.Action,
) (bool, string, error) {
	if rules.CarriesAlwaysClean(summaries) {
		return false, "", nil
	}

	if cfg.MaxAgeDays > 0 && action != types.ActionNotify {
		if candidate.AgeDays(c.now()) < cfg.MaxAgeDays {
			return true, reasonAge, nil
		}
	}

	state, err := c.states.Get(ctx, cfg.Namespace, candidate.ID)
	if err != nil {
		return false, "", fmt.Errorf("fetching state for %s: %w", candidate.ID, err)
	}
	if state != nil && state.OptedOut {
		return true, reasonOptedOut, nil
	}

	if c.exclusions.ShouldExclude(candidate.Resource, cfg) {
		return true, reasonPolicy, nil
	}

	return false, "", nil
}
