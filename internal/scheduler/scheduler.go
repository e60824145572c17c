// Package scheduler drives sessions through timed phase transitions
// when automatic mode is enabled, while staying fully preemptable by
// human commands.
package scheduler

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/bluffparty/bluffparty/internal/apperr"
	"github.com/bluffparty/bluffparty/internal/game"
	"github.com/bluffparty/bluffparty/internal/hub"
	"github.com/bluffparty/bluffparty/internal/questions"
)

// Broadcaster is what the scheduler needs from the connection hub.
type Broadcaster interface {
	Broadcast(sessionID string, event hub.Event, excludePlayer string)
}

// QuestionProvider supplies randomized, non-repeating questions from a
// named set.
type QuestionProvider interface {
	GetRandom(setID string, exclude map[int]struct{}) (questions.Entry, int, error)
}

// phaseKind names the countdown currently running for a session.
type phaseKind int

const (
	phaseSubmission phaseKind = iota
	phaseVoting
	phaseResults
)

func (k phaseKind) String() string {
	switch k {
	case phaseSubmission:
		return "SUBMISSION_PHASE"
	case phaseVoting:
		return "VOTING_PHASE"
	case phaseResults:
		return "RESULTS_PHASE"
	}
	return "UNKNOWN_PHASE"
}

// countdown is one cancellable ticking timer bound to a session and a
// phase. Cancellation is observed at every tick boundary; a recorded
// cancellation means the expiry handler never fires for this instance.
type countdown struct {
	sessionID string
	kind      phaseKind
	cancel    chan struct{}
	stopOnce  sync.Once
}

func (cd *countdown) stop() {
	cd.stopOnce.Do(func() { close(cd.cancel) })
}

// Scheduler advances registered sessions on elapsed time. At most one
// countdown is active per session; starting a new one supersedes any
// countdown already running for that session.
type Scheduler struct {
	provider QuestionProvider
	hub      Broadcaster
	clock    clockwork.Clock

	mu         sync.Mutex
	sessions   map[string]*game.Session
	countdowns map[string]*countdown
}

// New creates a scheduler using the real clock.
func New(provider QuestionProvider, b Broadcaster) *Scheduler {
	return NewWithClock(provider, b, clockwork.NewRealClock())
}

// NewWithClock creates a scheduler with an explicit clock. Tests pass
// a clockwork fake clock.
func NewWithClock(provider QuestionProvider, b Broadcaster, clock clockwork.Clock) *Scheduler {
	return &Scheduler{
		provider:   provider,
		hub:        b,
		clock:      clock,
		sessions:   make(map[string]*game.Session),
		countdowns: make(map[string]*countdown),
	}
}

// Register makes a session eligible for automatic management.
func (s *Scheduler) Register(session *game.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
}

// Unregister removes a session and cancels any countdown running for
// it.
func (s *Scheduler) Unregister(sessionID string) {
	s.mu.Lock()
	cd := s.countdowns[sessionID]
	delete(s.countdowns, sessionID)
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if cd != nil {
		cd.stop()
	}
}

// StartAutomatic enables automatic mode for a session and begins the
// first round immediately.
func (s *Scheduler) StartAutomatic(sessionID, questionSetID string, timers *game.Timers) error {
	s.mu.Lock()
	session := s.sessions[sessionID]
	s.mu.Unlock()
	if session == nil {
		return apperr.Newf(apperr.CodeNotFound, "session %s not registered", sessionID)
	}

	session.EnableAutomaticMode(questionSetID, timers)
	s.progressToNextQuestion(session)
	return nil
}

// CancelCountdown cancels the in-flight countdown for a session, if
// any, and reports whether one was active. The countdown's expiry
// handler is guaranteed not to fire once this returns.
func (s *Scheduler) CancelCountdown(sessionID string) bool {
	s.mu.Lock()
	cd := s.countdowns[sessionID]
	delete(s.countdowns, sessionID)
	s.mu.Unlock()

	if cd == nil {
		return false
	}
	cd.stop()
	log.Info().
		Str("session_id", sessionID).
		Str("phase", cd.kind.String()).
		Msg("countdown cancelled")
	return true
}

// Reschedule aligns the scheduler with a session that changed phase
// outside the expiry path, such as every player submitting before the
// countdown ran out or the game master forcing a transition. The
// running countdown is cancelled; in automatic mode a fresh countdown
// for the session's current phase is started so rounds keep flowing.
func (s *Scheduler) Reschedule(sessionID string) {
	s.CancelCountdown(sessionID)

	s.mu.Lock()
	session := s.sessions[sessionID]
	s.mu.Unlock()
	if session == nil || !session.AutomaticMode() {
		return
	}

	timers := session.Timers()
	switch session.Phase() {
	case game.PhaseSubmission:
		s.startCountdown(session, phaseSubmission, timers.SubmissionSec)
	case game.PhaseVoting:
		s.startCountdown(session, phaseVoting, timers.VotingSec)
	case game.PhaseResults:
		s.startCountdown(session, phaseResults, timers.ResultsDisplaySec)
	case game.PhaseWaitingForPlayers:
		s.progressToNextQuestion(session)
	}
}

// progressToNextQuestion draws the next question and starts a new
// submission countdown. On provider failure automatic mode is disabled
// for the session and manual control resumes; nothing propagates.
func (s *Scheduler) progressToNextQuestion(session *game.Session) {
	if !session.AutomaticMode() {
		return
	}

	entry, index, err := s.provider.GetRandom(session.QuestionSetID(), session.UsedQuestions())
	if err != nil {
		log.Warn().
			Err(err).
			Str("session_id", session.ID()).
			Msg("question selection failed, disabling automatic mode")
		session.DisableAutomaticMode()
		return
	}

	session.MarkQuestionUsed(index)
	session.StartQuestionPhase(entry.Question, entry.Answer, game.SourceCSV)

	s.hub.Broadcast(session.ID(), hub.Event{
		Type: hub.EventGameStateUpdate,
		Data: hub.GameStateUpdatePayload{
			GameState:      session.Phase(),
			Question:       entry.Question,
			RoundNumber:    session.Round(),
			AutomaticMode:  true,
			QuestionSource: game.SourceCSV,
		},
	}, "")

	s.startCountdown(session, phaseSubmission, session.Timers().SubmissionSec)
}

// startCountdown replaces any countdown already running for the
// session and launches the tick loop.
func (s *Scheduler) startCountdown(session *game.Session, kind phaseKind, seconds int) {
	cd := &countdown{
		sessionID: session.ID(),
		kind:      kind,
		cancel:    make(chan struct{}),
	}

	s.mu.Lock()
	if old := s.countdowns[cd.sessionID]; old != nil {
		old.stop()
	}
	s.countdowns[cd.sessionID] = cd
	s.mu.Unlock()

	log.Debug().
		Str("session_id", cd.sessionID).
		Str("phase", kind.String()).
		Int("seconds", seconds).
		Msg("countdown started")

	go s.run(cd, session, seconds)
}

// run ticks once per second, emitting a progress frame before each
// sleep. The cancel channel is checked at every tick boundary so a
// cancellation racing a near-complete countdown can never fire the
// expiry handler as well.
func (s *Scheduler) run(cd *countdown, session *game.Session, total int) {
	for remaining := total; remaining > 0; remaining-- {
		s.hub.Broadcast(cd.sessionID, hub.Event{
			Type: hub.EventAutoModeProgress,
			Data: hub.AutoModeProgressPayload{
				CurrentPhase:  cd.kind.String(),
				TimeRemaining: remaining,
				TotalTime:     total,
			},
		}, "")

		select {
		case <-s.clock.After(time.Second):
		case <-cd.cancel:
			return
		}
		select {
		case <-cd.cancel:
			return
		default:
		}
	}

	if !s.retire(cd) {
		return
	}
	s.handleExpiry(cd, session)
}

// retire removes the countdown from the active map if it is still the
// current one for its session. A superseded or cancelled countdown
// must not run its expiry handler.
func (s *Scheduler) retire(cd *countdown) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countdowns[cd.sessionID] != cd {
		return false
	}
	delete(s.countdowns, cd.sessionID)
	return true
}

func (s *Scheduler) handleExpiry(cd *countdown, session *game.Session) {
	if !session.AutomaticMode() {
		return
	}

	switch cd.kind {
	case phaseSubmission:
		answers, err := session.BeginVoting()
		if err != nil {
			log.Warn().Err(err).Str("session_id", cd.sessionID).Msg("skipping voting transition")
			return
		}
		s.hub.Broadcast(cd.sessionID, hub.Event{
			Type: hub.EventGameStateUpdate,
			Data: hub.GameStateUpdatePayload{
				GameState:     session.Phase(),
				Answers:       answers,
				AutomaticMode: true,
			},
		}, "")
		s.startCountdown(session, phaseVoting, session.Timers().VotingSec)

	case phaseVoting:
		results, roundScores, err := session.FinishVoting()
		if err != nil {
			log.Warn().Err(err).Str("session_id", cd.sessionID).Msg("skipping results transition")
			return
		}
		s.hub.Broadcast(cd.sessionID, hub.Event{
			Type: hub.EventGameStateUpdate,
			Data: hub.GameStateUpdatePayload{
				GameState:     session.Phase(),
				Results:       &results,
				RoundScores:   roundScores,
				AutomaticMode: true,
			},
		}, "")
		s.startCountdown(session, phaseResults, session.Timers().ResultsDisplaySec)

	case phaseResults:
		session.ResetForNextRound()
		s.progressToNextQuestion(session)
	}
}
