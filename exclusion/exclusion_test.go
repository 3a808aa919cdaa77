package exclusion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldbay/sweeper/types"
)

func cfgWith(rules ...types.ExclusionRule) types.WorkConfiguration {
	return types.WorkConfiguration{
		Namespace:               types.Namespace{Account: "prod", Region: "us-east-1", ResourceType: "servergroup"},
		ItemsProcessedBatchSize: 5,
		Exclusions:              rules,
	}
}

func TestLiteralPolicy(t *testing.T) {
	p := LiteralPolicy{}

	res := types.Resource{ID: "asg-core-v001", Name: "core"}
	assert.True(t, p.Excludes(res, []string{"asg-core-v001"}))
	assert.True(t, p.Excludes(res, []string{"CORE"}))
	assert.False(t, p.Excludes(res, []string{"other"}))
	assert.False(t, p.Excludes(res, nil))
}

func TestPatternPolicy(t *testing.T) {
	p := PatternPolicy{}

	res := types.Resource{ID: "asg-core-v001", Name: "core"}
	assert.True(t, p.Excludes(res, []string{"asg-core-*"}))
	assert.False(t, p.Excludes(res, []string{"asg-edge-*"}))
}

func TestAllowlistPolicy(t *testing.T) {
	p := AllowlistPolicy{}

	res := types.Resource{ID: "asg-core-v001"}
	assert.False(t, p.Excludes(res, nil), "empty allowlist excludes nothing")
	assert.False(t, p.Excludes(res, []string{"asg-core-v001"}))
	assert.True(t, p.Excludes(res, []string{"something-else"}))
}

func TestEngineShouldExclude(t *testing.T) {
	e := NewEngine()

	res := types.Resource{ID: "asg-core-v001"}

	cfg := cfgWith(types.ExclusionRule{Policy: "literal", Values: []string{"asg-core-v001"}})
	assert.True(t, e.ShouldExclude(res, cfg))

	cfg = cfgWith(types.ExclusionRule{Policy: "literal", Values: []string{"other"}})
	assert.False(t, e.ShouldExclude(res, cfg))

	// Unknown policies are skipped rather than failing the cycle.
	cfg = cfgWith(types.ExclusionRule{Policy: "nope", Values: []string{"asg-core-v001"}})
	assert.False(t, e.ShouldExclude(res, cfg))

	assert.False(t, e.ShouldExclude(res, cfgWith()))
}

func TestRegoPolicy(t *testing.T) {
	policy, err := NewRegoPolicy(context.Background(), "env_guard", `
package sweeper

import rego.v1

exclude if {
	input.resource.details.environment == "prod"
}
`)
	require.NoError(t, err)

	excluded := policy.Excludes(types.Resource{
		ID:      "asg-core-v001",
		Details: map[string]any{"environment": "prod"},
	}, nil)
	assert.True(t, excluded)

	excluded = policy.Excludes(types.Resource{
		ID:      "asg-test-v001",
		Details: map[string]any{"environment": "test"},
	}, nil)
	assert.False(t, excluded)
}

func TestRegoPolicyInEngine(t *testing.T) {
	policy, err := NewRegoPolicy(context.Background(), "env_guard", `
package sweeper

import rego.v1

exclude if {
	input.resource.details.environment == "prod"
}
`)
	require.NoError(t, err)

	e := NewEngine(policy)
	cfg := cfgWith(types.ExclusionRule{Policy: "env_guard"})

	assert.True(t, e.ShouldExclude(types.Resource{
		Details: map[string]any{"environment": "prod"},
	}, cfg))
}
