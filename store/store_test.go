package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fieldbay/sweeper/types"
)

var testNS = types.Namespace{Account: "prod", Region: "us-east-1", ResourceType: "servergroup"}

func markedResource(id string, created time.Time) types.MarkedResource {
	return types.MarkedResource{
		Resource:  types.Resource{ID: id, Type: "servergroup", CreatedAt: created},
		Namespace: testNS,
		Summaries: []types.Summary{{Description: "disabled", RuleName: "DisabledServerGroup"}},
		MarkedAt:  time.Now(),
	}
}

// The bolt and memory stores must behave identically; run the same suite
// against both.
func runMarkedSuite(t *testing.T, repo MarkedRepository) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	// Absent record.
	found, err := repo.Find(ctx, testNS, "nope")
	require.NoError(t, err)
	require.Nil(t, found)

	old := markedResource("asg-old", now.AddDate(0, 0, -60))
	old.ProjectedDeletionAt = now.AddDate(0, 0, -1)
	old.NotificationInfo = &types.NotificationInfo{Recipient: "a@corp.io", NotifiedAt: now.AddDate(0, 0, -10)}

	fresh := markedResource("asg-fresh", now.AddDate(0, 0, -10))
	fresh.ProjectedDeletionAt = now.AddDate(0, 0, 14)

	unnotified := markedResource("asg-quiet", now.AddDate(0, 0, -90))
	unnotified.ProjectedDeletionAt = now.AddDate(0, 0, -2)

	for _, m := range []types.MarkedResource{old, fresh, unnotified} {
		require.NoError(t, repo.Upsert(ctx, m))
	}

	// Upsert is idempotent.
	require.NoError(t, repo.Upsert(ctx, old))
	count, err := repo.Count(ctx, testNS)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	all, err := repo.List(ctx, testNS)
	require.NoError(t, err)
	require.Len(t, all, 3)

	// Other namespaces are invisible.
	otherNS := types.Namespace{Account: "test", Region: "us-east-1", ResourceType: "servergroup"}
	none, err := repo.List(ctx, otherNS)
	require.NoError(t, err)
	require.Empty(t, none)

	// Due + notified, oldest created first.
	due, err := repo.ListDeletionDue(ctx, testNS, now, true)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "asg-old", due[0].Resource.ID)

	// Notification requirement dropped: unnotified surfaces too, ordered
	// by creation time ascending.
	due, err = repo.ListDeletionDue(ctx, testNS, now, false)
	require.NoError(t, err)
	require.Len(t, due, 2)
	require.Equal(t, "asg-quiet", due[0].Resource.ID)
	require.Equal(t, "asg-old", due[1].Resource.ID)

	require.NoError(t, repo.Remove(ctx, testNS, "asg-old"))
	found, err = repo.Find(ctx, testNS, "asg-old")
	require.NoError(t, err)
	require.Nil(t, found)
}

func runStateSuite(t *testing.T, repo StateRepository) {
	t.Helper()
	ctx := context.Background()

	state, err := repo.Get(ctx, testNS, "asg-x")
	require.NoError(t, err)
	require.Nil(t, state)

	s := types.ResourceState{ResourceID: "asg-x", Namespace: testNS, OptedOut: true}
	s.Transition(types.ActionOptOut, time.Now())
	require.NoError(t, repo.Upsert(ctx, s))

	state, err = repo.Get(ctx, testNS, "asg-x")
	require.NoError(t, err)
	require.NotNil(t, state)
	require.True(t, state.OptedOut)
	require.Equal(t, types.ActionOptOut, state.CurrentStatus().Action)

	states, err := repo.List(ctx, testNS)
	require.NoError(t, err)
	require.Len(t, states, 1)
}

func runUsageSuite(t *testing.T, repo UseTrackingRepository) {
	t.Helper()
	ctx := context.Background()

	info, err := repo.LastSeen(ctx, "asg-x")
	require.NoError(t, err)
	require.Nil(t, info)

	seen := types.LastSeenInfo{ResourceID: "asg-x", LastSeenAt: time.Now().UTC()}
	require.NoError(t, repo.RecordSeen(ctx, seen))

	info, err = repo.LastSeen(ctx, "asg-x")
	require.NoError(t, err)
	require.NotNil(t, info)
	require.Equal(t, "asg-x", info.ResourceID)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	runMarkedSuite(t, s.Marked())
	runStateSuite(t, s.States())
	runUsageSuite(t, s.Usage())
}

func TestBoltStore(t *testing.T) {
	s, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	runMarkedSuite(t, s.Marked())
	runStateSuite(t, s.States())
	runUsageSuite(t, s.Usage())
}

func TestBoltStoreReopenRebuildsIndex(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewBoltStore(dir)
	require.NoError(t, err)

	m := markedResource("asg-persist", time.Now().AddDate(0, 0, -40))
	require.NoError(t, s.Marked().Upsert(ctx, m))
	require.NoError(t, s.Close())

	s, err = NewBoltStore(dir)
	require.NoError(t, err)
	defer s.Close()

	found, err := s.Marked().Find(ctx, testNS, "asg-persist")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, "asg-persist", found.Resource.ID)
}
