package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fieldbay/sweeper/types"
)

func TestJournalAppendAndReplay(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	journal, err := OpenJournal(dir)
	require.NoError(t, err)

	ns := types.Namespace{Account: "prod", Region: "us-east-1", ResourceType: "servergroup"}
	marked := types.MarkedResource{
		Resource:  types.Resource{ID: "asg-1", Type: "servergroup"},
		Namespace: ns,
	}

	require.NoError(t, journal.Publish(ctx, New(TypeMark, marked, "disabled")))
	require.NoError(t, journal.Publish(ctx, New(TypeUnmark, marked, "no longer violating")))
	require.NoError(t, journal.Close())

	var got []Event
	err = Replay(dir, time.Time{}, func(e Event) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, TypeMark, got[0].Type)
	require.Equal(t, TypeUnmark, got[1].Type)
	require.Equal(t, "asg-1", got[0].ResourceID)
	require.Equal(t, ns, got[0].Namespace)
}

func TestReplaySinceFiltersOldEvents(t *testing.T) {
	dir := t.TempDir()

	journal, err := OpenJournal(dir)
	require.NoError(t, err)

	old := Event{Type: TypeMark, ResourceID: "asg-old", Timestamp: time.Now().Add(-2 * time.Hour)}
	recent := Event{Type: TypeMark, ResourceID: "asg-new", Timestamp: time.Now()}
	require.NoError(t, journal.Publish(context.Background(), old))
	require.NoError(t, journal.Publish(context.Background(), recent))
	require.NoError(t, journal.Close())

	var got []Event
	err = Replay(dir, time.Now().Add(-time.Hour), func(e Event) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "asg-new", got[0].ResourceID)
}

func TestFanoutPublishesToAll(t *testing.T) {
	var a, b recorder
	fanout := Fanout{&a, &b}

	require.NoError(t, fanout.Publish(context.Background(), Event{Type: TypeDelete, ResourceID: "asg-1"}))
	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
}

type recorder struct {
	events []Event
}

func (r *recorder) Publish(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return nil
}
