// Package owner maps candidates to a responsible party.
package owner

import (
	"context"

	"github.com/fieldbay/sweeper/types"
)

// Resolver maps a candidate to an owner. An empty string means the
// resolver could not determine one.
type Resolver interface {
	Resolve(ctx context.Context, resource types.Resource) (string, error)
}

// DetailResolver reads the owner from a resource detail key, typically
// populated from cloud tags by the candidate source.
type DetailResolver struct {
	Key string
}

func (r DetailResolver) Resolve(_ context.Context, resource types.Resource) (string, error) {
	if v, ok := resource.Detail(r.Key).(string); ok {
		return v, nil
	}
	return "", nil
}

// Static always resolves to a fixed owner.
type Static struct {
	Owner string
}

func (r Static) Resolve(context.Context, types.Resource) (string, error) {
	return r.Owner, nil
}

// Chain tries each resolver in order and returns the first non-empty owner.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, resource types.Resource) (string, error) {
	for _, r := range c {
		owner, err := r.Resolve(ctx, resource)
		if err != nil {
			return "", err
		}
		if owner != "" {
			return owner, nil
		}
	}
	return "", nil
}

// ResolveOrDefault resolves an owner, falling back to def when the chain
// comes up empty or fails.
func ResolveOrDefault(ctx context.Context, r Resolver, resource types.Resource, def string) string {
	if r == nil {
		return def
	}
	owner, err := r.Resolve(ctx, resource)
	if err != nil || owner == "" {
		return def
	}
	return owner
}
