package game

import (
	"context"
	"sync"
	"time"
)

// TapHistory is the abuse tracker's view of one player's recent requests.
type TapHistory struct {
	LastRequest time.Time
	// Recent holds one timestamp per tap admitted inside the tracker window.
	Recent []time.Time
}

// CountSince counts taps strictly after t.
func (h TapHistory) CountSince(t time.Time) int64 {
	var n int64
	for _, ts := range h.Recent {
		if ts.After(t) {
			n++
		}
	}
	return n
}

type tapWindow struct {
	lastRequest time.Time
	taps        []time.Time
}

// TapTracker keeps recent tap timestamps per user in process memory.
// Instances do not share state: with several replicas each one only sees the
// requests routed to it, so users must be sharded or the counts run low.
type TapTracker struct {
	mu     sync.Mutex
	window func() time.Duration
	idle   time.Duration
	users  map[int64]*tapWindow
}

// NewTapTracker keeps taps for window and forgets users idle for longer than idle.
func NewTapTracker(window, idle time.Duration) *TapTracker {
	return newTapTracker(func() time.Duration { return window }, idle)
}

// NewSettingsTapTracker follows the RateWindow of src, so reloaded settings
// take effect on the next request.
func NewSettingsTapTracker(src SettingsSource, idle time.Duration) *TapTracker {
	return newTapTracker(func() time.Duration { return src.Current().Rate.RateWindow }, idle)
}

func newTapTracker(window func() time.Duration, idle time.Duration) *TapTracker {
	return &TapTracker{
		window: window,
		idle:   idle,
		users:  make(map[int64]*tapWindow),
	}
}

// Window is the current retention window.
func (t *TapTracker) Window() time.Duration {
	if w := t.window(); w > 0 {
		return w
	}
	return time.Second
}

// History returns a copy of the user's taps inside the window ending at now.
func (t *TapTracker) History(userID int64, now time.Time) TapHistory {
	window := t.Window()
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.users[userID]
	if !ok {
		return TapHistory{}
	}
	w.prune(now.Add(-window))
	return TapHistory{
		LastRequest: w.lastRequest,
		Recent:      append([]time.Time(nil), w.taps...),
	}
}

// Record stores an admitted request of n taps at now.
func (t *TapTracker) Record(userID int64, now time.Time, n int64) {
	window := t.Window()
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.users[userID]
	if !ok {
		w = &tapWindow{}
		t.users[userID] = w
	}
	w.prune(now.Add(-window))
	w.lastRequest = now
	for i := int64(0); i < n; i++ {
		w.taps = append(w.taps, now)
	}
}

// Sweep drops users with no request since now-idle and returns how many.
func (t *TapTracker) Sweep(now time.Time) int {
	idle := max(t.idle, t.Window())
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := now.Add(-idle)
	removed := 0
	for id, w := range t.users {
		if w.lastRequest.Before(cutoff) {
			delete(t.users, id)
			removed++
		}
	}
	return removed
}

func (t *TapTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.users)
}

// StartCleanup sweeps idle users every interval until ctx is done.
func (t *TapTracker) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				t.Sweep(now)
			}
		}
	}()
}

func (w *tapWindow) prune(cutoff time.Time) {
	i := 0
	for i < len(w.taps) && !w.taps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.taps = append(w.taps[:0], w.taps[i:]...)
	}
}
