package middleware

import (
	"sync"
	"time"
)

type clientInfo struct {
	last  time.Time
	count int
}

// memoryWindow is the in-process fixed-window counter used when Redis is not
// configured. Counts are per instance.
type memoryWindow struct {
	mu      sync.Mutex
	clients map[string]*clientInfo
	now     func() time.Time
}

func newMemoryWindow() *memoryWindow {
	return &memoryWindow{clients: make(map[string]*clientInfo), now: time.Now}
}

// incr counts a hit for key and returns the count inside the current window.
func (m *memoryWindow) incr(key string, window time.Duration) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	ci, ok := m.clients[key]
	if !ok || now.Sub(ci.last) > window {
		m.clients[key] = &clientInfo{last: now, count: 1}
		return 1
	}
	ci.count++
	return int64(ci.count)
}

// sweep drops windows that ended before now-maxAge.
func (m *memoryWindow) sweep(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-maxAge)
	for k, ci := range m.clients {
		if ci.last.Before(cutoff) {
			delete(m.clients, k)
		}
	}
}
