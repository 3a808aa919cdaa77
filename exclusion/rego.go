package exclusion

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/fieldbay/sweeper/telemetry"
	"github.com/fieldbay/sweeper/types"
)

// RegoPolicy evaluates exclusion through a compiled OPA policy. The policy
// receives {"resource": ..., "values": [...]} as input and must define
// `exclude` under the data.sweeper package:
//
//	package sweeper
//	exclude if input.resource.details.environment == "prod"
type RegoPolicy struct {
	name   string
	query  rego.PreparedEvalQuery
	logger *telemetry.Logger
}

// NewRegoPolicy compiles a Rego module into an exclusion policy registered
// under the given name.
func NewRegoPolicy(ctx context.Context, name, regoCode string) (*RegoPolicy, error) {
	query := rego.New(
		rego.Query("data.sweeper.exclude"),
		rego.Module(name, regoCode),
	)

	prepared, err := query.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile exclusion policy %s: %w", name, err)
	}

	return &RegoPolicy{
		name:   name,
		query:  prepared,
		logger: telemetry.NewLogger("exclusion"),
	}, nil
}

func (p *RegoPolicy) Name() string { return p.name }

// Excludes evaluates the compiled policy. Evaluation failures are logged
// and treated as "not excluded" so a broken policy cannot shadow-delete a
// namespace by excluding nothing while appearing configured.
func (p *RegoPolicy) Excludes(resource types.Resource, values []string) bool {
	input := map[string]any{
		"resource": resource,
		"values":   values,
	}

	results, err := p.query.Eval(context.Background(), rego.EvalInput(input))
	if err != nil {
		p.logger.Error().
			Err(err).
			Str("policy", p.name).
			Str("resource_id", resource.ID).
			Msg("exclusion policy evaluation failed")
		return false
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false
	}

	excluded, ok := results[0].Expressions[0].Value.(bool)
	return ok && excluded
}
