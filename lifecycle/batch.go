package lifecycle

import (
	"sort"

	"github.com/fieldbay/sweeper/types"
)

// Partition splits resources for deletion: grouped by the provider
// grouping key, each group chunked to at most batchSize, partitions
// ordered largest first so the biggest groups drain earliest. Resources
// without a grouping each form their own partition.
func Partition(resources []types.MarkedResource, batchSize int) [][]types.MarkedResource {
	if batchSize <= 0 {
		batchSize = 1
	}

	groups := make(map[string][]types.MarkedResource)
	var order []string
	for _, m := range resources {
		key := m.Resource.Grouping
		if key == "" {
			key = m.Resource.ID
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], m)
	}

	var partitions [][]types.MarkedResource
	for _, key := range order {
		group := groups[key]
		for start := 0; start < len(group); start += batchSize {
			end := start + batchSize
			if end > len(group) {
				end = len(group)
			}
			partitions = append(partitions, group[start:end])
		}
	}

	sort.SliceStable(partitions, func(i, j int) bool {
		return len(partitions[i]) > len(partitions[j])
	})
	return partitions
}
