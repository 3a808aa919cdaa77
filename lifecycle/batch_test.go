package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fieldbay/sweeper/types"
)

func marked(id, grouping string) types.MarkedResource {
	return types.MarkedResource{
		Resource: types.Resource{ID: id, Grouping: grouping},
	}
}

func partitionIDs(partitions [][]types.MarkedResource) [][]string {
	out := make([][]string, 0, len(partitions))
	for _, p := range partitions {
		ids := make([]string, 0, len(p))
		for _, m := range p {
			ids = append(ids, m.Resource.ID)
		}
		out = append(out, ids)
	}
	return out
}

func TestPartitionGroupsAndChunks(t *testing.T) {
	resources := []types.MarkedResource{
		marked("a1", "alpha"),
		marked("b1", "beta"),
		marked("a2", "alpha"),
		marked("a3", "alpha"),
	}

	got := partitionIDs(Partition(resources, 2))

	// Largest partitions first, alpha chunked to the batch size. Equal
	// sizes keep their chunk emission order, so the alpha overflow chunk
	// stays ahead of beta.
	assert.Equal(t, [][]string{
		{"a1", "a2"},
		{"a3"},
		{"b1"},
	}, got)
}

func TestPartitionUngroupedStandAlone(t *testing.T) {
	resources := []types.MarkedResource{
		marked("a1", ""),
		marked("a2", ""),
	}

	got := Partition(resources, 5)
	assert.Len(t, got, 2)
}

func TestPartitionEmpty(t *testing.T) {
	assert.Empty(t, Partition(nil, 3))
}
