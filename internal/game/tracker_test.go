package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTapTrackerWindow(t *testing.T) {
	tr := NewTapTracker(time.Second, time.Minute)

	tr.Record(1, t0, 5)
	tr.Record(1, t0.Add(400*time.Millisecond), 3)
	tr.Record(2, t0, 7)

	h := tr.History(1, t0.Add(500*time.Millisecond))
	assert.Len(t, h.Recent, 8)
	assert.Equal(t, t0.Add(400*time.Millisecond), h.LastRequest)

	h = tr.History(1, t0.Add(1200*time.Millisecond))
	assert.Len(t, h.Recent, 3)
	assert.Equal(t, int64(3), h.CountSince(t0))

	assert.Empty(t, tr.History(3, t0).Recent)
}

type mutableSettings struct{ s Settings }

func (m *mutableSettings) Current() Settings { return m.s }

func TestTapTrackerFollowsReloadedWindow(t *testing.T) {
	src := &mutableSettings{s: DefaultSettings()}
	tr := NewSettingsTapTracker(src, time.Minute)
	assert.Equal(t, time.Second, tr.Window())

	tr.Record(1, t0, 4)
	src.s.Rate.RateWindow = 3 * time.Second
	assert.Equal(t, 3*time.Second, tr.Window())

	h := tr.History(1, t0.Add(2*time.Second))
	assert.Len(t, h.Recent, 4, "taps stay while inside the reloaded window")

	src.s.Rate.RateWindow = 0
	assert.Equal(t, time.Second, tr.Window())
	assert.Empty(t, tr.History(1, t0.Add(2*time.Second)).Recent)
}

func TestTapTrackerHistoryIsCopy(t *testing.T) {
	tr := NewTapTracker(time.Second, time.Minute)
	tr.Record(1, t0, 2)

	h := tr.History(1, t0)
	h.Recent[0] = time.Time{}
	assert.Equal(t, t0, tr.History(1, t0).Recent[0])
}

func TestTapTrackerSweep(t *testing.T) {
	tr := NewTapTracker(time.Second, time.Minute)
	tr.Record(1, t0, 1)
	tr.Record(2, t0.Add(50*time.Second), 1)

	assert.Equal(t, 1, tr.Sweep(t0.Add(90*time.Second)))
	assert.Equal(t, 1, tr.Len())
	assert.Equal(t, 1, tr.Sweep(t0.Add(200*time.Second)))
	assert.Zero(t, tr.Len())
}

func TestTapTrackerStartCleanup(t *testing.T) {
	tr := NewTapTracker(time.Millisecond, time.Millisecond)
	tr.Record(1, time.Now().Add(-time.Hour), 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.StartCleanup(ctx, 5*time.Millisecond)

	require.Eventually(t, func() bool { return tr.Len() == 0 }, time.Second, 5*time.Millisecond)
}
