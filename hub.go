package main

import (
	"sync"
	"sync/atomic"

	"arena-server/arena"
	"arena-server/config"
	"arena-server/store"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// Hub admits connections and hands them to the arena
type Hub struct {
	arena *arena.Arena
	cfg   *config.Config
	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int
	nextID     atomic.Uint64
	// Auth & DB, both optional
	db     *store.DB
	auth   *Auth
	events *store.Events
}

// NewHub creates a Hub feeding the given arena
func NewHub(a *arena.Arena, cfg *config.Config, db *store.DB, auth *Auth, events *store.Events) *Hub {
	return &Hub{
		arena:   a,
		cfg:     cfg,
		ipConns: make(map[string]int),
		db:      db,
		auth:    auth,
		events:  events,
	}
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}

// Register assigns the client its connection ID and attaches it to the
// arena. It returns false when the arena has stopped.
func (h *Hub) Register(c *Client) bool {
	c.id = arena.ConnID(h.nextID.Add(1))
	return h.arena.Submit(arena.Connect{ID: c.id, Conn: c, Addr: c.remoteAddr})
}

// Unregister detaches the client from the arena.
func (h *Hub) Unregister(c *Client) {
	h.arena.Submit(arena.Disconnect{ID: c.id})
}
