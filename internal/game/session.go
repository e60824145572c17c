// Package game owns all state for one game instance: players, scores,
// the active question, and the current phase. Every mutating method is
// atomic; a rejected operation leaves the session unchanged.
package game

import (
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/bluffparty/bluffparty/internal/apperr"
)

// Timers holds the per-phase countdown durations in seconds used by
// automatic mode.
type Timers struct {
	SubmissionSec     int `json:"submission_timeout" yaml:"submission_timeout"`
	VotingSec         int `json:"voting_timeout" yaml:"voting_timeout"`
	ResultsDisplaySec int `json:"results_display" yaml:"results_display"`
}

// DefaultTimers returns the stock phase durations.
func DefaultTimers() Timers {
	return Timers{SubmissionSec: 60, VotingSec: 30, ResultsDisplaySec: 10}
}

// Progress reports how many of the expected submissions or votes have
// arrived for the current question.
type Progress struct {
	Count    int  `json:"count"`
	Expected int  `json:"expected"`
	AllIn    bool `json:"all_in"`
}

// Results is the payload broadcast when a round's voting closes.
type Results struct {
	Question      string            `json:"question"`
	CorrectAnswer string            `json:"correct_answer"`
	VoteCounts    map[string]int    `json:"vote_counts"`
	// FakeAnswers maps pseudonym to the decoy that player submitted.
	FakeAnswers map[string]string `json:"fake_answers"`
	// Scores is the cumulative lifetime score map after this round.
	Scores map[string]int `json:"scores"`
}

// State is a consistent point-in-time view of a session.
type State struct {
	ID            string         `json:"session_id"`
	Phase         Phase          `json:"game_state"`
	Players       []Player       `json:"players"`
	Scores        map[string]int `json:"scores"`
	RoundNumber   int            `json:"round_number"`
	AutomaticMode bool           `json:"is_automatic_mode"`
	QuestionText  string         `json:"-"`
	Submissions   int            `json:"-"`
	Votes         int            `json:"-"`
}

// Session is one live game instance. All exported methods serialize on
// an internal mutex; callers may invoke them from any goroutine.
type Session struct {
	mu sync.Mutex

	id           string
	gameMasterID string
	players      map[string]*Player
	scores       map[string]int
	current      *Question
	phase        Phase
	round        int

	automatic     bool
	questionSetID string
	usedQuestions map[int]struct{}
	timers        Timers
}

// NewSession creates a session with the given id and its game master,
// using the stock phase durations.
func NewSession(id, gameMasterPseudonym string) *Session {
	return NewSessionWithTimers(id, gameMasterPseudonym, DefaultTimers())
}

// NewSessionWithTimers creates a session with explicit phase durations.
// Non-positive fields fall back to their defaults.
func NewSessionWithTimers(id, gameMasterPseudonym string, timers Timers) *Session {
	defaults := DefaultTimers()
	if timers.SubmissionSec <= 0 {
		timers.SubmissionSec = defaults.SubmissionSec
	}
	if timers.VotingSec <= 0 {
		timers.VotingSec = defaults.VotingSec
	}
	if timers.ResultsDisplaySec <= 0 {
		timers.ResultsDisplaySec = defaults.ResultsDisplaySec
	}

	gm := &Player{
		ID:           uuid.New().String(),
		Pseudonym:    gameMasterPseudonym,
		IsGameMaster: true,
		Connected:    true,
	}
	return &Session{
		id:            id,
		gameMasterID:  gm.ID,
		players:       map[string]*Player{gm.ID: gm},
		scores:        map[string]int{gm.ID: 0},
		phase:         PhaseWaitingForPlayers,
		usedQuestions: make(map[int]struct{}),
		timers:        timers,
	}
}

// ID returns the session's short join code.
func (s *Session) ID() string { return s.id }

// GameMasterID returns the id of the session's game master.
func (s *Session) GameMasterID() string { return s.gameMasterID }

// IsGameMaster reports whether playerID is the session's game master.
func (s *Session) IsGameMaster(playerID string) bool {
	return playerID == s.gameMasterID
}

// AddPlayer joins a new non-game-master player. Pseudonyms are unique
// case-insensitively within the session.
func (s *Session) AddPlayer(pseudonym string) (Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trimmed := strings.TrimSpace(pseudonym)
	if trimmed == "" {
		return Player{}, apperr.New(apperr.CodeValidation, "pseudonym is required")
	}
	for _, p := range s.players {
		if strings.EqualFold(p.Pseudonym, trimmed) {
			return Player{}, apperr.Newf(apperr.CodeValidation, "pseudonym %q is already taken", trimmed)
		}
	}

	player := &Player{
		ID:        uuid.New().String(),
		Pseudonym: trimmed,
		Connected: true,
	}
	s.players[player.ID] = player
	s.scores[player.ID] = 0
	return *player, nil
}

// Player returns the player with the given id.
func (s *Session) Player(playerID string) (Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// PlayerCount returns the total number of players, game master included.
func (s *Session) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// SetConnected records a player's connectivity.
func (s *Session) SetConnected(playerID string, connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[playerID]; ok {
		p.Connected = connected
	}
}

// StartQuestionPhase installs a fresh question and moves the session
// into the submission phase. Legal from any phase; the round counter
// increments each time.
func (s *Session) StartQuestionPhase(text, answer string, source QuestionSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startQuestionLocked(text, answer, source, "", "")
}

// StartEditedQuestion starts a question phase with edited content,
// recording the pre-edit text and answer on the question. Used when a
// randomly drawn question is touched up before play.
func (s *Session) StartEditedQuestion(text, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var origText, origAnswer string
	if s.current != nil {
		origText = s.current.Text
		origAnswer = s.current.CorrectAnswer
	}
	s.startQuestionLocked(text, answer, SourceDice, origText, origAnswer)
}

func (s *Session) startQuestionLocked(text, answer string, source QuestionSource, origText, origAnswer string) {
	q := newQuestion(text, answer, source)
	q.OriginalText = origText
	q.OriginalAnswer = origAnswer
	s.current = q
	s.phase = PhaseSubmission
	s.round++
}

// SubmitFakeAnswer records a decoy answer for the current question.
// A resubmission from the same player overwrites the previous decoy.
func (s *Session) SubmitFakeAnswer(playerID, fakeAnswer string) (Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return Progress{}, apperr.New(apperr.CodeInvalidState, "no active question")
	}
	if s.phase != PhaseSubmission {
		return Progress{}, apperr.New(apperr.CodeInvalidState, "not in submission phase")
	}
	if playerID == s.gameMasterID {
		return Progress{}, apperr.New(apperr.CodeForbidden, "game master cannot submit fake answers")
	}
	if _, ok := s.players[playerID]; !ok {
		return Progress{}, apperr.Newf(apperr.CodeNotFound, "player %s not in session", playerID)
	}

	s.current.FakeAnswers[playerID] = fakeAnswer
	return s.submissionProgressLocked(), nil
}

// SubmitVote records a player's vote for an answer text. A second vote
// from the same player overwrites the first.
func (s *Session) SubmitVote(playerID, votedAnswer string) (Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return Progress{}, apperr.New(apperr.CodeInvalidState, "no active question")
	}
	if s.phase != PhaseVoting {
		return Progress{}, apperr.New(apperr.CodeInvalidState, "not in voting phase")
	}
	if _, ok := s.players[playerID]; !ok {
		return Progress{}, apperr.Newf(apperr.CodeNotFound, "player %s not in session", playerID)
	}

	s.current.Votes[playerID] = votedAnswer
	return s.votingProgressLocked(), nil
}

// BeginVoting closes submissions and moves to the voting phase,
// returning every decoy plus the correct answer in random order.
func (s *Session) BeginVoting() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, apperr.New(apperr.CodeInvalidState, "no active question")
	}
	if s.phase != PhaseSubmission {
		return nil, apperr.New(apperr.CodeInvalidState, "not in submission phase")
	}

	s.phase = PhaseVoting
	return s.shuffledAnswersLocked(), nil
}

// ShuffledAnswers returns the voting payload without changing phase.
// Only meaningful during the voting phase.
func (s *Session) ShuffledAnswers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return s.shuffledAnswersLocked()
}

func (s *Session) shuffledAnswersLocked() []string {
	answers := make([]string, 0, len(s.current.FakeAnswers)+1)
	for _, a := range s.current.FakeAnswers {
		answers = append(answers, a)
	}
	answers = append(answers, s.current.CorrectAnswer)
	rand.Shuffle(len(answers), func(i, j int) {
		answers[i], answers[j] = answers[j], answers[i]
	})
	return answers
}

// FinishVoting closes voting, tallies the round, accumulates lifetime
// scores, moves to the results phase, and returns the results payload
// plus the round-only score deltas.
//
// Scoring: the owner of a decoy earns one point per vote its text
// received; a player whose vote matches the correct answer earns one
// point. Both can accrue to the same player in one round.
func (s *Session) FinishVoting() (Results, map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return Results{}, nil, apperr.New(apperr.CodeInvalidState, "no active question")
	}
	if s.phase != PhaseVoting {
		return Results{}, nil, apperr.New(apperr.CodeInvalidState, "not in voting phase")
	}

	voteCounts := make(map[string]int)
	for _, voted := range s.current.Votes {
		voteCounts[voted]++
	}

	roundScores := make(map[string]int)
	for playerID, fake := range s.current.FakeAnswers {
		earned := voteCounts[fake]
		s.scores[playerID] += earned
		roundScores[playerID] = earned
	}
	for playerID, voted := range s.current.Votes {
		if voted == s.current.CorrectAnswer {
			s.scores[playerID]++
			roundScores[playerID]++
		}
	}

	s.phase = PhaseResults

	fakeByPseudonym := make(map[string]string, len(s.current.FakeAnswers))
	for playerID, fake := range s.current.FakeAnswers {
		if p, ok := s.players[playerID]; ok {
			fakeByPseudonym[p.Pseudonym] = fake
		}
	}

	results := Results{
		Question:      s.current.Text,
		CorrectAnswer: s.current.CorrectAnswer,
		VoteCounts:    voteCounts,
		FakeAnswers:   fakeByPseudonym,
		Scores:        s.scoresCopyLocked(),
	}
	return results, roundScores, nil
}

// ResetForNextRound discards the current question and returns to the
// waiting phase. Scores and the round counter are untouched.
func (s *Session) ResetForNextRound() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.phase = PhaseWaitingForPlayers
}

// EnableAutomaticMode binds the session to a question set and applies
// any timer overrides.
func (s *Session) EnableAutomaticMode(questionSetID string, timers *Timers) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.automatic = true
	s.questionSetID = questionSetID
	if timers != nil {
		if timers.SubmissionSec > 0 {
			s.timers.SubmissionSec = timers.SubmissionSec
		}
		if timers.VotingSec > 0 {
			s.timers.VotingSec = timers.VotingSec
		}
		if timers.ResultsDisplaySec > 0 {
			s.timers.ResultsDisplaySec = timers.ResultsDisplaySec
		}
	}
}

// DisableAutomaticMode returns the session to manual control.
func (s *Session) DisableAutomaticMode() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.automatic = false
}

// AutomaticMode reports whether the scheduler is driving this session.
func (s *Session) AutomaticMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.automatic
}

// QuestionSetID returns the active question set, empty outside
// automatic mode.
func (s *Session) QuestionSetID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questionSetID
}

// MarkQuestionUsed records a drawn question index so it is not
// repeated until the whole set has been played through.
func (s *Session) MarkQuestionUsed(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usedQuestions[index] = struct{}{}
}

// UsedQuestions returns a copy of the used index set.
func (s *Session) UsedQuestions() map[int]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	used := make(map[int]struct{}, len(s.usedQuestions))
	for i := range s.usedQuestions {
		used[i] = struct{}{}
	}
	return used
}

// Timers returns the automatic-mode phase durations.
func (s *Session) Timers() Timers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Round returns the monotonic round counter.
func (s *Session) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// Snapshot returns a consistent view of the session for state reads.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	players := make([]Player, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, *p)
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].IsGameMaster != players[j].IsGameMaster {
			return players[i].IsGameMaster
		}
		return players[i].Pseudonym < players[j].Pseudonym
	})

	state := State{
		ID:            s.id,
		Phase:         s.phase,
		Players:       players,
		Scores:        s.scoresCopyLocked(),
		RoundNumber:   s.round,
		AutomaticMode: s.automatic,
	}
	if s.current != nil {
		state.QuestionText = s.current.Text
		state.Submissions = len(s.current.FakeAnswers)
		state.Votes = len(s.current.Votes)
	}
	return state
}

// CurrentQuestion returns a copy of the active question, if any.
func (s *Session) CurrentQuestion() (Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Question{}, false
	}
	q := *s.current
	q.FakeAnswers = make(map[string]string, len(s.current.FakeAnswers))
	for k, v := range s.current.FakeAnswers {
		q.FakeAnswers[k] = v
	}
	q.Votes = make(map[string]string, len(s.current.Votes))
	for k, v := range s.current.Votes {
		q.Votes[k] = v
	}
	return q, true
}

func (s *Session) scoresCopyLocked() map[string]int {
	scores := make(map[string]int, len(s.scores))
	for id, score := range s.scores {
		scores[id] = score
	}
	return scores
}

func (s *Session) submissionProgressLocked() Progress {
	expected := s.nonGameMasterCountLocked()
	count := len(s.current.FakeAnswers)
	return Progress{Count: count, Expected: expected, AllIn: expected > 0 && count == expected}
}

func (s *Session) votingProgressLocked() Progress {
	expected := s.nonGameMasterCountLocked()
	count := len(s.current.Votes)
	return Progress{Count: count, Expected: expected, AllIn: expected > 0 && count == expected}
}

func (s *Session) nonGameMasterCountLocked() int {
	count := 0
	for _, p := range s.players {
		if !p.IsGameMaster {
			count++
		}
	}
	return count
}
