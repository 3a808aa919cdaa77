package rules

import (
	"fmt"

	"github.com/fieldbay/sweeper/types"
)

// AlwaysCleanName identifies the escape-hatch rule. A summary carrying
// this name exempts the resource from the age and general exclusion
// checks, forcing eligibility for the remaining pipeline.
const AlwaysCleanName = "AlwaysClean"

// DetailExempt is the detail key the always-clean rule inspects.
const DetailExempt = "sweeper_exempt_exclusions"

// AlwaysCleanRule fires for resources explicitly flagged to bypass the
// standard exclusion checks. It is a policy escape hatch, not a deletion
// trigger: its summary never counts as a violation on its own.
type AlwaysCleanRule struct{}

func (AlwaysCleanRule) Name() string { return AlwaysCleanName }

func (AlwaysCleanRule) Apply(candidate types.Candidate) *types.Summary {
	exempt, _ := candidate.Detail(DetailExempt).(bool)
	if !exempt {
		return nil
	}
	return &types.Summary{
		Description: fmt.Sprintf("resource %s bypasses standard exclusion checks", candidate.ID),
		RuleName:    AlwaysCleanName,
	}
}
