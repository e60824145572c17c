// Package server exposes the HTTP and WebSocket entry points. It owns
// request decoding, the game-master check, and translation of domain
// errors to HTTP status codes; all game semantics live in the core
// packages.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/bluffparty/bluffparty/internal/apperr"
	"github.com/bluffparty/bluffparty/internal/game"
	"github.com/bluffparty/bluffparty/internal/hub"
	"github.com/bluffparty/bluffparty/internal/questions"
	"github.com/bluffparty/bluffparty/internal/registry"
	"github.com/bluffparty/bluffparty/internal/scheduler"
)

// Server wires the core components behind HTTP.
type Server struct {
	registry  *registry.Registry
	catalog   *questions.Catalog
	hub       *hub.Hub
	scheduler *scheduler.Scheduler
	upgrader  websocket.Upgrader
}

// New creates a server over the given components.
func New(reg *registry.Registry, catalog *questions.Catalog, h *hub.Hub, sched *scheduler.Scheduler) *Server {
	return &Server{
		registry:  reg,
		catalog:   catalog,
		hub:       h,
		scheduler: sched,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the full route table wrapped with CORS.
func (s *Server) Handler(allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("POST /sessions/{id}/join", s.handleJoinSession)
	mux.HandleFunc("GET /sessions/{id}/state", s.handleSessionState)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleRemoveSession)
	mux.HandleFunc("POST /sessions/{id}/questions", s.handleSubmitQuestion)
	mux.HandleFunc("POST /sessions/{id}/answers", s.handleSubmitAnswer)
	mux.HandleFunc("POST /sessions/{id}/votes", s.handleSubmitVote)
	mux.HandleFunc("POST /sessions/{id}/end-submissions", s.handleEndSubmissions)
	mux.HandleFunc("POST /sessions/{id}/end-voting", s.handleEndVoting)
	mux.HandleFunc("POST /sessions/{id}/next-round", s.handleNextRound)
	mux.HandleFunc("POST /sessions/{id}/auto-mode", s.handleEnableAutoMode)
	mux.HandleFunc("POST /sessions/{id}/cancel-auto-timer", s.handleCancelAutoTimer)
	mux.HandleFunc("POST /sessions/{id}/dice-question", s.handleDiceQuestion)
	mux.HandleFunc("PUT /sessions/{id}/edit-question", s.handleEditQuestion)

	mux.HandleFunc("POST /question-sets/upload", s.handleUploadQuestionSet)
	mux.HandleFunc("GET /question-sets", s.handleListQuestionSets)
	mux.HandleFunc("GET /question-sets/{id}", s.handleGetQuestionSet)
	mux.HandleFunc("DELETE /question-sets/{id}", s.handleDeleteQuestionSet)

	mux.HandleFunc("GET /ws/{session}/{player}", s.handleWebSocket)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(mux)
}

// decode reads a JSON body into dst.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Wrap(apperr.CodeValidation, "malformed request body", err)
	}
	return nil
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError translates a domain error into an HTTP response.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if code, ok := apperr.CodeOf(err); ok {
		switch code {
		case apperr.CodeNotFound:
			status = http.StatusNotFound
		case apperr.CodeForbidden:
			status = http.StatusForbidden
		case apperr.CodeInvalidState, apperr.CodeValidation:
			status = http.StatusBadRequest
		}
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("internal error")
	}
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}

// errMissingPlayer is returned when the player_id query parameter is
// absent.
var errMissingPlayer = apperr.New(apperr.CodeValidation, "player_id is required")

func playerID(r *http.Request) (string, error) {
	id := r.URL.Query().Get("player_id")
	if id == "" {
		return "", errMissingPlayer
	}
	return id, nil
}

// requireGameMaster loads the session and checks the caller is its
// game master.
func (s *Server) requireGameMaster(r *http.Request) (*sessionRef, error) {
	ref, err := s.sessionRef(r)
	if err != nil {
		return nil, err
	}
	if !ref.session.IsGameMaster(ref.playerID) {
		return nil, apperr.New(apperr.CodeForbidden, "only the game master may do this")
	}
	return ref, nil
}

type sessionRef struct {
	session  *game.Session
	playerID string
}

func (s *Server) sessionRef(r *http.Request) (*sessionRef, error) {
	pid, err := playerID(r)
	if err != nil {
		return nil, err
	}
	session, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		return nil, err
	}
	return &sessionRef{session: session, playerID: pid}, nil
}
