package types

import "time"

// Summary is a single rule violation: which rule fired and why.
type Summary struct {
	Description string `json:"description"`
	RuleName    string `json:"rule_name"`
}

// NotificationInfo records that the owner of a marked resource was told
// about the pending deletion. Nil until the notify cycle runs.
type NotificationInfo struct {
	Recipient  string    `json:"recipient"`
	Channel    string    `json:"channel"`
	NotifiedAt time.Time `json:"notified_at"`
}

// LastSeenInfo tracks when a resource was last observed in active use.
type LastSeenInfo struct {
	ResourceID string    `json:"resource_id"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// MarkedResource is the persistent lifecycle record for a resource under
// consideration for deletion. It exists in the tracking repository if and
// only if the resource currently violates at least one rule and has not
// been excluded or opted out since the last cycle that observed it.
type MarkedResource struct {
	Resource            Resource      `json:"resource"`
	Summaries           []Summary     `json:"summaries"`
	Namespace           Namespace     `json:"namespace"`
	ResourceOwner       string        `json:"resource_owner,omitempty"`
	ProjectedDeletionAt time.Time     `json:"projected_deletion_at"`
	NotificationInfo    *NotificationInfo `json:"notification_info,omitempty"`
	LastSeenInfo        *LastSeenInfo `json:"last_seen_info,omitempty"`
	MarkedAt            time.Time     `json:"marked_at"`
}

// Notified reports whether the notification requirement has been met for
// this record (a notification was stamped on it).
func (m *MarkedResource) Notified() bool {
	return m.NotificationInfo != nil
}

// DeletionDue reports whether the grace period has elapsed.
func (m *MarkedResource) DeletionDue(now time.Time) bool {
	return !m.ProjectedDeletionAt.After(now)
}

// HasSummaryFrom reports whether any violation summary was produced by the
// named rule.
func (m *MarkedResource) HasSummaryFrom(ruleName string) bool {
	for _, s := range m.Summaries {
		if s.RuleName == ruleName {
			return true
		}
	}
	return false
}
