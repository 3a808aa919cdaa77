package owner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fieldbay/sweeper/types"
)

type failingResolver struct{}

func (failingResolver) Resolve(context.Context, types.Resource) (string, error) {
	return "", errors.New("lookup failed")
}

func TestDetailResolver(t *testing.T) {
	r := DetailResolver{Key: "owner_email"}

	owner, err := r.Resolve(context.Background(), types.Resource{
		Details: map[string]any{"owner_email": "team@corp.io"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "team@corp.io", owner)

	owner, err = r.Resolve(context.Background(), types.Resource{})
	assert.NoError(t, err)
	assert.Empty(t, owner)
}

func TestChainFirstNonEmptyWins(t *testing.T) {
	chain := Chain{
		DetailResolver{Key: "missing"},
		Static{Owner: "fallback@corp.io"},
		Static{Owner: "never@corp.io"},
	}

	owner, err := chain.Resolve(context.Background(), types.Resource{})
	assert.NoError(t, err)
	assert.Equal(t, "fallback@corp.io", owner)
}

func TestResolveOrDefault(t *testing.T) {
	def := "cloud-admins@corp.io"

	assert.Equal(t, def, ResolveOrDefault(context.Background(), nil, types.Resource{}, def))
	assert.Equal(t, def, ResolveOrDefault(context.Background(), failingResolver{}, types.Resource{}, def))
	assert.Equal(t, def, ResolveOrDefault(context.Background(), Chain{}, types.Resource{}, def))
	assert.Equal(t, "team@corp.io",
		ResolveOrDefault(context.Background(), Static{Owner: "team@corp.io"}, types.Resource{}, def))
}
