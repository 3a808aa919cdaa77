package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextTimeInWindowNoWindows(t *testing.T) {
	now := time.Date(2025, 6, 13, 3, 0, 0, 0, time.UTC) // Friday 03:00
	got := Always().NextTimeInWindow(now)
	require.Equal(t, now, got)
}

func TestNextTimeInWindowInsideWindow(t *testing.T) {
	ws, err := New([]Window{
		{Days: []time.Weekday{time.Friday}, StartHour: 2, EndHour: 6},
	}, time.UTC)
	require.NoError(t, err)

	now := time.Date(2025, 6, 13, 3, 0, 0, 0, time.UTC) // Friday 03:00
	require.Equal(t, now, ws.NextTimeInWindow(now))
}

func TestNextTimeInWindowSnapsForward(t *testing.T) {
	ws, err := New([]Window{
		{Days: []time.Weekday{time.Monday}, StartHour: 10, EndHour: 12},
	}, time.UTC)
	require.NoError(t, err)

	// Friday 03:00 snaps to next Monday 10:00.
	now := time.Date(2025, 6, 13, 3, 0, 0, 0, time.UTC)
	want := time.Date(2025, 6, 16, 10, 0, 0, 0, time.UTC)
	require.Equal(t, want, ws.NextTimeInWindow(now))
}

func TestNextTimeInWindowSameDayLater(t *testing.T) {
	ws, err := New([]Window{
		{Days: []time.Weekday{time.Friday}, StartHour: 10, EndHour: 12},
	}, time.UTC)
	require.NoError(t, err)

	now := time.Date(2025, 6, 13, 3, 0, 0, 0, time.UTC) // Friday 03:00
	want := time.Date(2025, 6, 13, 10, 0, 0, 0, time.UTC)
	require.Equal(t, want, ws.NextTimeInWindow(now))
}

func TestNextTimeInWindowAfterWindowEnd(t *testing.T) {
	ws, err := New([]Window{
		{Days: []time.Weekday{time.Friday}, StartHour: 10, EndHour: 12},
	}, time.UTC)
	require.NoError(t, err)

	// Friday 13:00 is past the window, snaps a full week.
	now := time.Date(2025, 6, 13, 13, 0, 0, 0, time.UTC)
	want := time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)
	require.Equal(t, want, ws.NextTimeInWindow(now))
}

func TestNewRejectsInvalidWindows(t *testing.T) {
	_, err := New([]Window{{Days: []time.Weekday{time.Monday}, StartHour: 12, EndHour: 10}}, nil)
	require.Error(t, err)

	_, err = New([]Window{{StartHour: 1, EndHour: 2}}, nil)
	require.Error(t, err)
}
