package types

import "time"

// Resource is a cloud object candidate fetched from a candidate source.
// Candidates are ephemeral; they are re-fetched every cycle.
type Resource struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Name      string         `json:"name,omitempty"`
	Grouping  string         `json:"grouping,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Details   map[string]any `json:"details,omitempty"`
}

// AgeDays returns the resource age in whole calendar days (UTC).
func (r Resource) AgeDays(now time.Time) int {
	created := r.CreatedAt.UTC().Truncate(24 * time.Hour)
	today := now.UTC().Truncate(24 * time.Hour)
	return int(today.Sub(created).Hours() / 24)
}

// Detail returns a detail value by key, nil if absent.
func (r Resource) Detail(key string) any {
	if r.Details == nil {
		return nil
	}
	return r.Details[key]
}

// Candidate is a resource enriched with its resolved owner.
// Enrichment produces a new value instead of mutating the candidate's
// detail map, so pipeline stages never share hidden state.
type Candidate struct {
	Resource
	Owner string `json:"owner,omitempty"`
}

// Enrich attaches an owner to a resource.
func Enrich(r Resource, owner string) Candidate {
	return Candidate{Resource: r, Owner: owner}
}

// Namespace scopes all lifecycle operations to one
// account + region + resource type partition.
type Namespace struct {
	Account      string `json:"account" yaml:"account"`
	Region       string `json:"region" yaml:"region"`
	ResourceType string `json:"resource_type" yaml:"resource_type"`
}

// String renders the namespace as account:region:type.
func (n Namespace) String() string {
	return n.Account + ":" + n.Region + ":" + n.ResourceType
}

// IsZero reports whether the namespace is unset.
func (n Namespace) IsZero() bool {
	return n.Account == "" && n.Region == "" && n.ResourceType == ""
}
