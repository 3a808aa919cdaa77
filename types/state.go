package types

import "time"

// Action identifies a lifecycle transition.
type Action string

const (
	ActionMark   Action = "MARK"
	ActionUnmark Action = "UNMARK"
	ActionDelete Action = "DELETE"
	ActionNotify Action = "NOTIFY"
	ActionOptOut Action = "OPTOUT"
)

// Status is an immutable (action, timestamp) pair in a resource's history.
type Status struct {
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// ResourceState tracks lifecycle facts that are independent of whether the
// resource is currently marked: the opt-out flag, the deleted flag, and an
// ordered status history. Once OptedOut is set the resource is never
// eligible for marking or deletion until explicitly cleared.
type ResourceState struct {
	ResourceID string    `json:"resource_id"`
	Namespace  Namespace `json:"namespace"`
	OptedOut   bool      `json:"opted_out"`
	Deleted    bool      `json:"deleted"`
	Statuses   []Status  `json:"statuses,omitempty"`
}

// Transition appends a status entry to the history.
func (s *ResourceState) Transition(action Action, at time.Time) {
	s.Statuses = append(s.Statuses, Status{Action: action, Timestamp: at})
}

// CurrentStatus returns the most recent status, nil if the history is empty.
func (s *ResourceState) CurrentStatus() *Status {
	if len(s.Statuses) == 0 {
		return nil
	}
	return &s.Statuses[len(s.Statuses)-1]
}
