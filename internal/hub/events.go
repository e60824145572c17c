package hub

import (
	"github.com/bluffparty/bluffparty/internal/game"
)

// EventType identifies a real-time message sent to clients.
type EventType string

const (
	EventPlayerJoined          EventType = "PLAYER_JOINED"
	EventQuestionSubmitted     EventType = "QUESTION_SUBMITTED"
	EventAnswerSubmitted       EventType = "ANSWER_SUBMITTED"
	EventVotingPhaseStarted    EventType = "VOTING_PHASE_STARTED"
	EventVoteSubmitted         EventType = "VOTE_SUBMITTED"
	EventResultsReady          EventType = "RESULTS_READY"
	EventSubmissionsEndedEarly EventType = "SUBMISSIONS_ENDED_EARLY"
	EventVotingEndedEarly      EventType = "VOTING_ENDED_EARLY"
	EventNextRoundStarted      EventType = "NEXT_ROUND_STARTED"
	EventGameStateUpdate       EventType = "GAME_STATE_UPDATE"
	EventAutoModeProgress      EventType = "AUTO_MODE_PROGRESS"
	EventAutoTimerCancelled    EventType = "AUTO_TIMER_CANCELLED"
	EventPlayerConnected       EventType = "PLAYER_CONNECTED"
	EventPlayerDisconnected    EventType = "PLAYER_DISCONNECTED"
	EventDiceQuestionSelected  EventType = "DICE_QUESTION_SELECTED"
	EventQuestionEdited        EventType = "QUESTION_EDITED"
)

// Event is the wire envelope for every real-time message.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// PlayerJoinedPayload announces a new player to the session.
type PlayerJoinedPayload struct {
	Player       game.Player `json:"player"`
	TotalPlayers int         `json:"total_players"`
}

// QuestionSubmittedPayload announces a manually started question.
type QuestionSubmittedPayload struct {
	Question    string     `json:"question"`
	GameState   game.Phase `json:"game_state"`
	RoundNumber int        `json:"round_number"`
}

// AnswerSubmittedPayload reports decoy submission progress.
type AnswerSubmittedPayload struct {
	SubmissionsCount int  `json:"submissions_count"`
	TotalExpected    int  `json:"total_expected"`
	AllSubmitted     bool `json:"all_submitted"`
}

// VotingPhaseStartedPayload carries the shuffled answer list shown
// during voting. Nothing in it indicates which answer is correct.
type VotingPhaseStartedPayload struct {
	GameState game.Phase `json:"game_state"`
	Answers   []string   `json:"answers"`
	Message   string     `json:"message,omitempty"`
}

// VoteSubmittedPayload reports voting progress.
type VoteSubmittedPayload struct {
	VotesCount   int  `json:"votes_count"`
	TotalPlayers int  `json:"total_players"`
	AllVoted     bool `json:"all_voted"`
}

// ResultsReadyPayload carries round results and per-round deltas.
type ResultsReadyPayload struct {
	GameState   game.Phase     `json:"game_state"`
	Results     game.Results   `json:"results"`
	RoundScores map[string]int `json:"round_scores"`
	Message     string         `json:"message,omitempty"`
}

// NextRoundStartedPayload announces a manual reset.
type NextRoundStartedPayload struct {
	GameState   game.Phase `json:"game_state"`
	RoundNumber int        `json:"round_number"`
}

// GameStateUpdatePayload is the scheduler-driven transition envelope.
// Fields irrelevant to the transition are omitted.
type GameStateUpdatePayload struct {
	GameState      game.Phase          `json:"game_state"`
	Question       string              `json:"question,omitempty"`
	RoundNumber    int                 `json:"round_number,omitempty"`
	Answers        []string            `json:"answers,omitempty"`
	Results        *game.Results       `json:"results,omitempty"`
	RoundScores    map[string]int      `json:"round_scores,omitempty"`
	AutomaticMode  bool                `json:"is_automatic_mode"`
	QuestionSource game.QuestionSource `json:"question_source,omitempty"`
}

// AutoModeProgressPayload is one countdown tick.
type AutoModeProgressPayload struct {
	CurrentPhase  string `json:"current_phase"`
	TimeRemaining int    `json:"time_remaining"`
	TotalTime     int    `json:"total_time"`
}

// AutoTimerCancelledPayload reports a manual cancellation.
type AutoTimerCancelledPayload struct {
	Message string `json:"message"`
}

// PlayerConnectedPayload reports a connection coming up.
type PlayerConnectedPayload struct {
	PlayerID string `json:"player_id"`
}

// PlayerDisconnectedPayload reports a connection going away.
type PlayerDisconnectedPayload struct {
	PlayerID string `json:"player_id"`
}

// DiceQuestionSelectedPayload carries a randomly drawn question the
// game master may edit before use.
type DiceQuestionSelectedPayload struct {
	Question       string              `json:"question"`
	Answer         string              `json:"answer"`
	CanEdit        bool                `json:"can_edit"`
	QuestionIndex  int                 `json:"question_index"`
	QuestionSource game.QuestionSource `json:"question_source"`
}

// QuestionEditedPayload announces an edited question going live.
type QuestionEditedPayload struct {
	Question       string              `json:"question"`
	GameState      game.Phase          `json:"game_state"`
	RoundNumber    int                 `json:"round_number"`
	QuestionSource game.QuestionSource `json:"question_source"`
}
