// Package exclusion evaluates resources against named exclusion policies.
// Pure predicate logic, no I/O. Exclusion is advisory-negative only: it
// never retracts an existing mark except through the lifecycle controller's
// re-check each cycle.
package exclusion

import (
	"path"
	"strings"

	"github.com/fieldbay/sweeper/types"
)

// Policy is a named predicate over a resource and a configured value list.
type Policy interface {
	Name() string
	Excludes(resource types.Resource, values []string) bool
}

// LiteralPolicy excludes resources whose ID or name matches a configured
// value exactly (case-insensitive).
type LiteralPolicy struct{}

func (LiteralPolicy) Name() string { return "literal" }

func (LiteralPolicy) Excludes(resource types.Resource, values []string) bool {
	for _, v := range values {
		if strings.EqualFold(v, resource.ID) || strings.EqualFold(v, resource.Name) {
			return true
		}
	}
	return false
}

// PatternPolicy excludes resources whose ID or name matches a shell-style
// pattern, e.g. "core-*".
type PatternPolicy struct{}

func (PatternPolicy) Name() string { return "pattern" }

func (PatternPolicy) Excludes(resource types.Resource, values []string) bool {
	for _, v := range values {
		if ok, err := path.Match(v, resource.ID); err == nil && ok {
			return true
		}
		if ok, err := path.Match(v, resource.Name); err == nil && ok {
			return true
		}
	}
	return false
}

// AllowlistPolicy inverts the match: everything NOT in the configured list
// is excluded. Used for namespaces where only named resources may be
// janitored.
type AllowlistPolicy struct{}

func (AllowlistPolicy) Name() string { return "allowlist" }

func (AllowlistPolicy) Excludes(resource types.Resource, values []string) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if strings.EqualFold(v, resource.ID) || strings.EqualFold(v, resource.Name) {
			return false
		}
	}
	return true
}

// Engine evaluates a resource against the exclusion rules of a work
// configuration using its registered policies.
type Engine struct {
	policies map[string]Policy
}

// NewEngine creates an engine with the standard policies registered.
func NewEngine(extra ...Policy) *Engine {
	e := &Engine{policies: make(map[string]Policy)}
	e.Register(LiteralPolicy{})
	e.Register(PatternPolicy{})
	e.Register(AllowlistPolicy{})
	for _, p := range extra {
		e.Register(p)
	}
	return e
}

// Register adds or replaces a policy by name.
func (e *Engine) Register(p Policy) {
	e.policies[p.Name()] = p
}

// ShouldExclude reports whether any configured exclusion rule excludes the
// resource. Rules referencing unknown policies are skipped.
func (e *Engine) ShouldExclude(resource types.Resource, cfg types.WorkConfiguration) bool {
	for _, rule := range cfg.Exclusions {
		policy, ok := e.policies[rule.Policy]
		if !ok {
			continue
		}
		if policy.Excludes(resource, rule.Values) {
			return true
		}
	}
	return false
}
