package ws

import (
	"sync"

	"taprealm/internal/logger"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ConnectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connected_clients",
		Help: "Open websocket connections",
	})
	DroppedClients = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ws_dropped_clients_total",
		Help: "Connections closed because their send buffer was full",
	})
)

func init() {
	prometheus.MustRegister(ConnectedClients, DroppedClients)
}

type clientSet map[*Client]struct{}

// Hub fans events out to the connections of a user and of a squad.
// It implements service.Notifier.
type Hub struct {
	mu     sync.RWMutex
	users  map[int64]clientSet
	squads map[int64]clientSet
}

func NewHub() *Hub {
	return &Hub{
		users:  make(map[int64]clientSet),
		squads: make(map[int64]clientSet),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	add(h.users, c.UserID, c)
	if c.SquadID != nil {
		add(h.squads, *c.SquadID, c)
	}
	ConnectedClients.Inc()
}

// Unregister removes c and closes its send channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	removed := remove(h.users, c.UserID, c)
	if c.SquadID != nil {
		remove(h.squads, *c.SquadID, c)
	}
	h.mu.Unlock()

	if removed {
		ConnectedClients.Dec()
	}
	c.closeSend()
}

func (h *Hub) NotifyUser(userID int64, event string, payload interface{}) {
	h.broadcast(h.users, userID, event, payload)
}

func (h *Hub) NotifySquad(squadID int64, event string, payload interface{}) {
	h.broadcast(h.squads, squadID, event, payload)
}

// Connections returns the number of open connections of a user.
func (h *Hub) Connections(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

func (h *Hub) broadcast(topic map[int64]clientSet, id int64, event string, payload interface{}) {
	h.mu.RLock()
	if len(topic[id]) == 0 {
		h.mu.RUnlock()
		return
	}
	msg, err := encode(event, payload)
	if err != nil {
		h.mu.RUnlock()
		logger.Error("ws encode failed", "event", event, "error", err)
		return
	}

	var slow []*Client
	for c := range topic[id] {
		if !c.trySend(msg) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logger.Warn("ws client too slow, dropping", "user_id", c.UserID)
		DroppedClients.Inc()
		h.Unregister(c)
	}
}

func add(m map[int64]clientSet, id int64, c *Client) {
	set, ok := m[id]
	if !ok {
		set = make(clientSet)
		m[id] = set
	}
	set[c] = struct{}{}
}

func remove(m map[int64]clientSet, id int64, c *Client) bool {
	set, ok := m[id]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(m, id)
	}
	return true
}
