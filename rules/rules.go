// Package rules evaluates cleanup rules against candidates. Rules are
// polymorphic predicates over a resource type, composed as an ordered list
// per type.
package rules

import (
	"github.com/fieldbay/sweeper/types"
)

// Rule decides whether a candidate violates a cleanup policy. A nil
// summary means the rule did not fire.
type Rule interface {
	Name() string
	Apply(candidate types.Candidate) *types.Summary
}

// Registry holds the ordered rule list per resource type.
type Registry struct {
	rules map[string][]Rule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string][]Rule)}
}

// Register appends rules for a resource type, preserving order.
func (r *Registry) Register(resourceType string, rules ...Rule) {
	r.rules[resourceType] = append(r.rules[resourceType], rules...)
}

// RulesFor returns the ordered rules for a resource type.
func (r *Registry) RulesFor(resourceType string) []Rule {
	return r.rules[resourceType]
}

// Evaluator runs every configured rule for a candidate's resource type and
// collects a summary from each rule that fires.
type Evaluator struct {
	registry *Registry
}

// NewEvaluator creates an evaluator over a registry.
func NewEvaluator(registry *Registry) *Evaluator {
	return &Evaluator{registry: registry}
}

// Evaluate returns all violation summaries for the candidate, in rule
// order. An empty result means the candidate is clean this cycle.
func (e *Evaluator) Evaluate(candidate types.Candidate) []types.Summary {
	var summaries []types.Summary
	for _, rule := range e.registry.RulesFor(candidate.Type) {
		if summary := rule.Apply(candidate); summary != nil {
			summaries = append(summaries, *summary)
		}
	}
	return summaries
}

// Violations filters out always-clean summaries: the escape hatch forces
// eligibility but is not itself a reason to mark.
func Violations(summaries []types.Summary) []types.Summary {
	var out []types.Summary
	for _, s := range summaries {
		if s.RuleName != AlwaysCleanName {
			out = append(out, s)
		}
	}
	return out
}

// CarriesAlwaysClean reports whether any summary came from the
// always-clean rule.
func CarriesAlwaysClean(summaries []types.Summary) bool {
	for _, s := range summaries {
		if s.RuleName == AlwaysCleanName {
			return true
		}
	}
	return false
}
