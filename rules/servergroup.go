package rules

import (
	"fmt"
	"time"

	"github.com/fieldbay/sweeper/types"
)

// Detail keys populated by server group candidate sources and their
// pre-processing hook.
const (
	DetailDisabled     = "is_disabled"
	DetailInstances    = "instances"
	DetailLastChangeAt = "last_change_at"
)

// Instance health states as reported by discovery.
const (
	HealthUp           = "Up"
	HealthOutOfService = "OutOfService"
	HealthUnknown      = "Unknown"
)

// ServerGroupInstance is one instance of a server group with its
// discovery health state.
type ServerGroupInstance struct {
	ID          string `json:"id"`
	HealthState string `json:"health_state"`
}

// DisabledServerGroupRule fires for server groups that have been disabled
// with no instance healthy in discovery for longer than the staleness
// threshold. Mixed health (any instance still up) never fires.
type DisabledServerGroupRule struct {
	StaleAfter time.Duration
	Clock      func() time.Time
}

// NewDisabledServerGroupRule creates the rule with a staleness threshold
// in days.
func NewDisabledServerGroupRule(staleAfterDays int) *DisabledServerGroupRule {
	return &DisabledServerGroupRule{
		StaleAfter: time.Duration(staleAfterDays) * 24 * time.Hour,
		Clock:      time.Now,
	}
}

func (r *DisabledServerGroupRule) Name() string { return "DisabledServerGroup" }

func (r *DisabledServerGroupRule) Apply(candidate types.Candidate) *types.Summary {
	disabled, _ := candidate.Detail(DetailDisabled).(bool)
	if !disabled {
		return nil
	}

	lastChange, ok := candidate.Detail(DetailLastChangeAt).(time.Time)
	if !ok {
		return nil
	}
	if r.Clock().Sub(lastChange) < r.StaleAfter {
		return nil
	}

	instances, _ := candidate.Detail(DetailInstances).([]ServerGroupInstance)
	for _, inst := range instances {
		if inst.HealthState == HealthUp {
			return nil
		}
	}

	days := int(r.StaleAfter.Hours() / 24)
	return &types.Summary{
		Description: fmt.Sprintf("server group %s disabled with no healthy instances in discovery for at least %d days", candidate.ID, days),
		RuleName:    r.Name(),
	}
}
