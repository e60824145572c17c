// Package hub maintains per-session maps of player to live connection
// and performs best-effort fan-out of real-time events.
package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// wire is the subset of a websocket connection the hub writes to.
// *websocket.Conn satisfies it; tests substitute fakes.
type wire interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Config holds connection tuning for the hub.
type Config struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
	SendBuffer   int
}

// DefaultConfig returns the stock connection tuning.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
		SendBuffer:   256,
	}
}

// Conn is one registered player connection.
type Conn struct {
	sessionID string
	playerID  string
	wire      wire
	send      chan []byte
	closeOnce sync.Once
	hub       *Hub
}

// PlayerID returns the player this connection belongs to.
func (c *Conn) PlayerID() string { return c.playerID }

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.send)
		c.wire.Close()
	})
}

// Hub fans events out to the connections of each session. A send that
// cannot complete promptly counts as a failed delivery: the connection
// is pruned and the rest of the session is told the player dropped.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]map[string]*Conn
	cfg      Config
	ping     bool
}

// New creates a hub with the given tuning.
func New(cfg Config) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultConfig().SendBuffer
	}
	return &Hub{
		sessions: make(map[string]map[string]*Conn),
		cfg:      cfg,
		ping:     cfg.PingInterval > 0,
	}
}

// Connect registers a connection for a player and announces it to the
// session's existing members. A previous connection for the same
// player is superseded and closed.
func (h *Hub) Connect(sessionID, playerID string, w wire) *Conn {
	conn := &Conn{
		sessionID: sessionID,
		playerID:  playerID,
		wire:      w,
		send:      make(chan []byte, h.cfg.SendBuffer),
		hub:       h,
	}

	h.mu.Lock()
	conns, ok := h.sessions[sessionID]
	if !ok {
		conns = make(map[string]*Conn)
		h.sessions[sessionID] = conns
	}
	old := conns[playerID]
	conns[playerID] = conn
	h.mu.Unlock()

	if old != nil {
		old.close()
	}

	go conn.writePump()

	log.Info().
		Str("session_id", sessionID).
		Str("player_id", playerID).
		Msg("player connection established")

	h.Broadcast(sessionID, Event{
		Type: EventPlayerConnected,
		Data: PlayerConnectedPayload{PlayerID: playerID},
	}, playerID)

	return conn
}

// Disconnect removes a player's connection. When the session has no
// connections left its entry is dropped entirely; otherwise remaining
// members are notified.
func (h *Hub) Disconnect(sessionID, playerID string) {
	h.mu.Lock()
	conn := h.sessions[sessionID][playerID]
	h.mu.Unlock()
	if conn != nil {
		h.remove(conn, true)
	}
}

// RemoveSession drops all connection bookkeeping for a session.
func (h *Hub) RemoveSession(sessionID string) {
	h.mu.Lock()
	conns := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	h.mu.Unlock()

	for _, conn := range conns {
		conn.close()
	}
}

// Broadcast delivers an event to every registered connection in the
// session except excludePlayer. Best-effort: individual failures prune
// the failing connection, and the broadcast itself never fails.
func (h *Hub) Broadcast(sessionID string, event Event, excludePlayer string) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(event.Type)).Msg("failed to marshal event")
		return
	}

	// Enqueue under the lock so transmissions for one session keep the
	// order broadcasts were issued in. Channel sends never block.
	h.mu.Lock()
	conns := h.sessions[sessionID]
	var failed []*Conn
	for playerID, conn := range conns {
		if excludePlayer != "" && playerID == excludePlayer {
			continue
		}
		select {
		case conn.send <- data:
		default:
			failed = append(failed, conn)
		}
	}
	h.mu.Unlock()

	for _, conn := range failed {
		log.Warn().
			Str("session_id", sessionID).
			Str("player_id", conn.playerID).
			Msg("connection send buffer full, dropping connection")
		h.dropConn(conn)
	}
}

// SendTo delivers an event to a single player, with the same failure
// handling as Broadcast.
func (h *Hub) SendTo(sessionID, playerID string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(event.Type)).Msg("failed to marshal event")
		return
	}

	h.mu.Lock()
	conn := h.sessions[sessionID][playerID]
	var ok bool
	if conn != nil {
		select {
		case conn.send <- data:
			ok = true
		default:
		}
	}
	h.mu.Unlock()

	if conn != nil && !ok {
		h.dropConn(conn)
	}
}

// ConnectedPlayers returns the ids of players with a live connection.
func (h *Hub) ConnectedPlayers(sessionID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.sessions[sessionID]
	players := make([]string, 0, len(conns))
	for playerID := range conns {
		players = append(players, playerID)
	}
	return players
}

// dropConn prunes a connection after a failed delivery and notifies
// the rest of the session.
func (h *Hub) dropConn(conn *Conn) {
	h.remove(conn, true)
}

// remove unregisters exactly the given connection. A connection that
// has already been superseded for its player is closed without
// touching the map.
func (h *Hub) remove(conn *Conn, notify bool) {
	h.mu.Lock()
	conns, ok := h.sessions[conn.sessionID]
	if !ok || conns[conn.playerID] != conn {
		h.mu.Unlock()
		conn.close()
		return
	}
	delete(conns, conn.playerID)
	empty := len(conns) == 0
	if empty {
		delete(h.sessions, conn.sessionID)
	}
	h.mu.Unlock()

	conn.close()

	log.Info().
		Str("session_id", conn.sessionID).
		Str("player_id", conn.playerID).
		Msg("player connection removed")

	if notify && !empty {
		h.Broadcast(conn.sessionID, Event{
			Type: EventPlayerDisconnected,
			Data: PlayerDisconnectedPayload{PlayerID: conn.playerID},
		}, conn.playerID)
	}
}

// writePump drains the send channel onto the wire, pinging on an
// interval to keep intermediaries from closing idle connections.
func (c *Conn) writePump() {
	var pingCh <-chan time.Time
	if c.hub.ping {
		ticker := time.NewTicker(c.hub.cfg.PingInterval)
		defer ticker.Stop()
		pingCh = ticker.C
	}

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			c.wire.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.wire.WriteMessage(textMessage, message); err != nil {
				log.Warn().
					Err(err).
					Str("player_id", c.playerID).
					Msg("failed to write to connection")
				c.hub.dropConn(c)
				return
			}
		case <-pingCh:
			c.wire.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.wire.WriteMessage(pingMessage, nil); err != nil {
				c.hub.dropConn(c)
				return
			}
		}
	}
}

// gorilla/websocket message type codes, mirrored here so the wire
// interface stays minimal.
const (
	textMessage = 1
	pingMessage = 9
)
