// Package registry is the single source of truth for which sessions
// exist. It is the one resource shared across all sessions and is safe
// for concurrent use.
package registry

import (
	"math/rand/v2"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/bluffparty/bluffparty/internal/apperr"
	"github.com/bluffparty/bluffparty/internal/game"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
)

// SchedulerBookkeeper is what the registry needs from the scheduler to
// keep its per-session state in step with session lifecycle.
type SchedulerBookkeeper interface {
	Register(session *game.Session)
	Unregister(sessionID string)
}

// Registry creates, looks up, and removes sessions.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[string]*game.Session
	scheduler SchedulerBookkeeper
	timers    game.Timers
}

// New creates a registry wired to the given scheduler bookkeeping.
// New sessions start with the given phase durations.
func New(scheduler SchedulerBookkeeper, timers game.Timers) *Registry {
	return &Registry{
		sessions:  make(map[string]*game.Session),
		scheduler: scheduler,
		timers:    timers,
	}
}

// Create allocates a session under a fresh join code and registers it
// with the scheduler.
func (r *Registry) Create(gameMasterPseudonym string) *game.Session {
	r.mu.Lock()
	var code string
	for {
		code = randomCode()
		if _, taken := r.sessions[code]; !taken {
			break
		}
	}
	session := game.NewSessionWithTimers(code, gameMasterPseudonym, r.timers)
	r.sessions[code] = session
	r.mu.Unlock()

	r.scheduler.Register(session)

	log.Info().
		Str("session_id", code).
		Str("game_master", gameMasterPseudonym).
		Msg("session created")
	return session
}

// Get returns the session with the given id.
func (r *Registry) Get(sessionID string) (*game.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, apperr.Newf(apperr.CodeNotFound, "session %s not found", sessionID)
	}
	return session, nil
}

// Remove deletes a session and cancels any scheduler state for it.
func (r *Registry) Remove(sessionID string) error {
	r.mu.Lock()
	_, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()

	if !ok {
		return apperr.Newf(apperr.CodeNotFound, "session %s not found", sessionID)
	}

	r.scheduler.Unregister(sessionID)
	log.Info().Str("session_id", sessionID).Msg("session removed")
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func randomCode() string {
	code := make([]byte, codeLength)
	for i := range code {
		code[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return string(code)
}
