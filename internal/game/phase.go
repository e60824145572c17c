package game

import "fmt"

// Phase describes one segment of the round lifecycle.
type Phase int

const (
	// PhaseWaitingForPlayers is the idle state between rounds.
	PhaseWaitingForPlayers Phase = iota
	// PhaseQuestion indicates a question is being prepared.
	PhaseQuestion
	// PhaseSubmission indicates players are writing decoy answers.
	PhaseSubmission
	// PhaseVoting indicates players are voting on the answer list.
	PhaseVoting
	// PhaseResults indicates round results are on display.
	PhaseResults
	// PhaseEnded indicates the session has been explicitly ended.
	PhaseEnded
	// PhaseAutoSetup indicates automatic mode is being configured.
	PhaseAutoSetup
)

var phaseNames = map[Phase]string{
	PhaseWaitingForPlayers: "waiting_for_players",
	PhaseQuestion:          "question_phase",
	PhaseSubmission:        "submission_phase",
	PhaseVoting:            "voting_phase",
	PhaseResults:           "results_phase",
	PhaseEnded:             "game_ended",
	PhaseAutoSetup:         "auto_mode_setup",
}

// String returns the wire name of the phase.
func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalJSON encodes the phase as its wire name.
func (p Phase) MarshalJSON() ([]byte, error) {
	name, ok := phaseNames[p]
	if !ok {
		return nil, fmt.Errorf("unknown phase %d", int(p))
	}
	return []byte(`"` + name + `"`), nil
}

// HasQuestion reports whether a phase carries an active question.
func (p Phase) HasQuestion() bool {
	switch p {
	case PhaseQuestion, PhaseSubmission, PhaseVoting, PhaseResults:
		return true
	}
	return false
}
