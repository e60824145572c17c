package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// handleWebSocket upgrades the connection and registers it with the
// hub. The read loop only keeps the connection alive; all meaningful
// traffic is server-to-client.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session")
	pid := r.PathValue("player")

	session, err := s.registry.Get(sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if _, ok := session.Player(pid); !ok {
		http.Error(w, "player not in session", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to upgrade connection")
		return
	}

	s.hub.Connect(sessionID, pid, conn)
	session.SetConnected(pid, true)

	defer func() {
		s.hub.Disconnect(sessionID, pid)
		session.SetConnected(pid, false)
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().
					Err(err).
					Str("session_id", sessionID).
					Str("player_id", pid).
					Msg("unexpected connection close")
			}
			return
		}
	}
}
