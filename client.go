package main

import (
	"log"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"arena-server/arena"
	"arena-server/protocol"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 1024
	maxMessagesPerSec = 120
)

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	id         arena.ConnID
	remoteAddr string
	msgCount   int
	msgResetAt time.Time
	violations int
	name       string // last name sent with a spawn, for admin logs

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	size := hub.cfg.Network.SendBuffer
	if size <= 0 {
		size = 256
	}
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, size),
		remoteAddr: remoteAddr,
	}
}

// Send queues a binary message without blocking. A full buffer drops the
// message and reports arena.ErrSlowConsumer.
func (c *Client) Send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return net.ErrClosed
	}
	select {
	case c.send <- b:
		return nil
	default:
		return arena.ErrSlowConsumer
	}
}

// Close stops the write pump after it flushes what is queued. Safe to call
// more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.Unregister(c)
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		if msgType != websocket.BinaryMessage {
			if !c.violation("text frame") {
				break
			}
			continue
		}
		msg, err := protocol.DecodeClientMessage(message)
		if err != nil {
			if !c.violation(err.Error()) {
				break
			}
			continue
		}
		c.handleMessage(msg)
	}
}

// violation counts a malformed message. It returns false once the client
// has exceeded the allowance and should be dropped.
func (c *Client) violation(what string) bool {
	c.violations++
	if c.violations > c.hub.cfg.Network.MaxViolations {
		log.Printf("too many protocol violations from %s (last: %s), disconnecting", c.remoteAddr, what)
		return false
	}
	return true
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage turns a decoded client message into an arena command.
// Movement input is dropped rather than queued when the arena is behind.
func (c *Client) handleMessage(m protocol.ClientMessage) {
	a := c.hub.arena
	switch m.Op {
	case protocol.OpSpawn:
		c.name = m.Name
		admin := false
		if m.Token != "" && c.hub.auth != nil {
			if err := c.hub.auth.ValidateAdminToken(m.Token); err == nil {
				admin = true
			} else {
				log.Printf("rejected admin token from %s: %v", c.remoteAddr, err)
			}
		}
		a.Submit(arena.Join{ID: c.id, Name: m.Name, ScreenW: float64(m.ScreenW), ScreenH: float64(m.ScreenH), Admin: admin})
	case protocol.OpSpectate:
		a.Submit(arena.Spectate{ID: c.id, ScreenW: float64(m.ScreenW), ScreenH: float64(m.ScreenH)})
	case protocol.OpResize:
		a.Submit(arena.Resize{ID: c.id, ScreenW: float64(m.ScreenW), ScreenH: float64(m.ScreenH)})
	case protocol.OpPing:
		a.Submit(arena.Ping{ID: c.id})
	case protocol.OpTarget:
		a.TrySubmit(arena.Target{ID: c.id, X: float64(m.X), Y: float64(m.Y)})
	case protocol.OpSplit:
		a.TrySubmit(arena.Split{ID: c.id})
	case protocol.OpEject:
		a.TrySubmit(arena.Eject{ID: c.id})
	case protocol.OpChat:
		a.Submit(arena.Chat{ID: c.id, Text: m.Text})
	case protocol.OpCommand:
		c.handleCommand(m.Command, m.Args)
	}
}
