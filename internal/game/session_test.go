package game

import (
	"errors"
	"testing"

	"github.com/bluffparty/bluffparty/internal/apperr"
)

func TestNewSessionGameMaster(t *testing.T) {
	s := NewSession("ABC123", "Morgan")

	gm, ok := s.Player(s.GameMasterID())
	if !ok {
		t.Fatalf("game master missing from player map")
	}
	if !gm.IsGameMaster {
		t.Fatalf("game master flag not set")
	}
	if gm.Pseudonym != "Morgan" {
		t.Fatalf("expected pseudonym Morgan, got %q", gm.Pseudonym)
	}
	if s.Phase() != PhaseWaitingForPlayers {
		t.Fatalf("expected waiting phase, got %v", s.Phase())
	}
	if s.Round() != 0 {
		t.Fatalf("expected round 0, got %d", s.Round())
	}

	for _, p := range s.Snapshot().Players {
		if p.ID != s.GameMasterID() && p.IsGameMaster {
			t.Fatalf("player %s has game master flag set", p.ID)
		}
	}
}

func TestAddPlayerPseudonymValidation(t *testing.T) {
	tests := []struct {
		name      string
		pseudonym string
	}{
		{name: "exact duplicate", pseudonym: "Alice"},
		{name: "case-insensitive duplicate", pseudonym: "ALICE"},
		{name: "mixed case duplicate", pseudonym: "aLiCe"},
		{name: "duplicate of game master", pseudonym: "morgan"},
		{name: "empty", pseudonym: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession("ABC123", "Morgan")
			if _, err := s.AddPlayer("Alice"); err != nil {
				t.Fatalf("add Alice: %v", err)
			}
			before := s.PlayerCount()

			_, err := s.AddPlayer(tt.pseudonym)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if s.PlayerCount() != before {
				t.Fatalf("player set changed after rejected join")
			}
		})
	}
}

func TestStartQuestionPhaseFromAnyPhase(t *testing.T) {
	s := NewSession("ABC123", "Morgan")

	s.StartQuestionPhase("Q1", "A1", SourceManual)
	if s.Phase() != PhaseSubmission {
		t.Fatalf("expected submission phase, got %v", s.Phase())
	}
	if s.Round() != 1 {
		t.Fatalf("expected round 1, got %d", s.Round())
	}

	// Restarting mid-round is legal and bumps the counter.
	s.StartQuestionPhase("Q2", "A2", SourceManual)
	if s.Round() != 2 {
		t.Fatalf("expected round 2, got %d", s.Round())
	}
	q, ok := s.CurrentQuestion()
	if !ok || q.Text != "Q2" {
		t.Fatalf("expected fresh question Q2, got %+v", q)
	}
	if len(q.FakeAnswers) != 0 || len(q.Votes) != 0 {
		t.Fatalf("restart kept stale submissions")
	}
}

func TestSubmitFakeAnswerGuards(t *testing.T) {
	s := NewSession("ABC123", "Morgan")
	alice, _ := s.AddPlayer("Alice")

	if _, err := s.SubmitFakeAnswer(alice.ID, "X"); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("expected invalid state without question, got %v", err)
	}

	s.StartQuestionPhase("Q", "C", SourceManual)

	if _, err := s.SubmitFakeAnswer(s.GameMasterID(), "X"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden for game master, got %v", err)
	}

	if _, err := s.BeginVoting(); err != nil {
		t.Fatalf("begin voting: %v", err)
	}
	if _, err := s.SubmitFakeAnswer(alice.ID, "X"); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("expected invalid state outside submission phase, got %v", err)
	}

	q, _ := s.CurrentQuestion()
	if len(q.FakeAnswers) != 0 {
		t.Fatalf("rejected submissions mutated state: %v", q.FakeAnswers)
	}
}

func TestSubmitFakeAnswerOverwrite(t *testing.T) {
	s := NewSession("ABC123", "Morgan")
	alice, _ := s.AddPlayer("Alice")
	s.StartQuestionPhase("Q", "C", SourceManual)

	if _, err := s.SubmitFakeAnswer(alice.ID, "first"); err != nil {
		t.Fatalf("first submission: %v", err)
	}
	progress, err := s.SubmitFakeAnswer(alice.ID, "second")
	if err != nil {
		t.Fatalf("resubmission should overwrite, got %v", err)
	}
	if progress.Count != 1 {
		t.Fatalf("expected 1 submission after overwrite, got %d", progress.Count)
	}

	q, _ := s.CurrentQuestion()
	if q.FakeAnswers[alice.ID] != "second" {
		t.Fatalf("expected overwritten decoy, got %q", q.FakeAnswers[alice.ID])
	}
}

func TestSubmitVoteGuardsAndOverwrite(t *testing.T) {
	s := NewSession("ABC123", "Morgan")
	alice, _ := s.AddPlayer("Alice")
	s.StartQuestionPhase("Q", "C", SourceManual)

	if _, err := s.SubmitVote(alice.ID, "C"); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("expected invalid state before voting, got %v", err)
	}

	if _, err := s.SubmitFakeAnswer(alice.ID, "X"); err != nil {
		t.Fatalf("submit decoy: %v", err)
	}
	if _, err := s.BeginVoting(); err != nil {
		t.Fatalf("begin voting: %v", err)
	}

	if _, err := s.SubmitVote(alice.ID, "X"); err != nil {
		t.Fatalf("vote: %v", err)
	}
	progress, err := s.SubmitVote(alice.ID, "C")
	if err != nil {
		t.Fatalf("revote should overwrite, got %v", err)
	}
	if progress.Count != 1 {
		t.Fatalf("expected 1 vote after overwrite, got %d", progress.Count)
	}

	q, _ := s.CurrentQuestion()
	if q.Votes[alice.ID] != "C" {
		t.Fatalf("expected overwritten vote, got %q", q.Votes[alice.ID])
	}
}

func TestShuffledAnswersContainCorrectOnce(t *testing.T) {
	s := NewSession("ABC123", "Morgan")
	alice, _ := s.AddPlayer("Alice")
	bob, _ := s.AddPlayer("Bob")
	s.StartQuestionPhase("Q", "C", SourceManual)
	s.SubmitFakeAnswer(alice.ID, "X")
	s.SubmitFakeAnswer(bob.ID, "Y")

	answers, err := s.BeginVoting()
	if err != nil {
		t.Fatalf("begin voting: %v", err)
	}
	if len(answers) != 3 {
		t.Fatalf("expected 3 answers, got %d", len(answers))
	}

	correct := 0
	seen := map[string]bool{}
	for _, a := range answers {
		seen[a] = true
		if a == "C" {
			correct++
		}
	}
	if correct != 1 {
		t.Fatalf("expected correct answer exactly once, got %d", correct)
	}
	if !seen["X"] || !seen["Y"] {
		t.Fatalf("missing decoys in %v", answers)
	}
}

func TestScoringDecoyVotes(t *testing.T) {
	s := NewSession("ABC123", "M")
	a, _ := s.AddPlayer("A")
	b, _ := s.AddPlayer("B")
	s.StartQuestionPhase("Q", "C", SourceManual)
	s.SubmitFakeAnswer(a.ID, "X")
	s.SubmitFakeAnswer(b.ID, "Y")
	if _, err := s.BeginVoting(); err != nil {
		t.Fatalf("begin voting: %v", err)
	}
	s.SubmitVote(a.ID, "X")
	s.SubmitVote(b.ID, "X")
	s.SubmitVote(s.GameMasterID(), "X")

	results, deltas, err := s.FinishVoting()
	if err != nil {
		t.Fatalf("finish voting: %v", err)
	}

	if deltas[a.ID] != 3 {
		t.Fatalf("expected A round delta 3, got %d", deltas[a.ID])
	}
	if deltas[b.ID] != 0 {
		t.Fatalf("expected B round delta 0, got %d", deltas[b.ID])
	}
	if results.Scores[a.ID] != 3 || results.Scores[b.ID] != 0 {
		t.Fatalf("cumulative scores wrong: %v", results.Scores)
	}
	if results.VoteCounts["X"] != 3 {
		t.Fatalf("expected 3 votes for X, got %d", results.VoteCounts["X"])
	}
	if s.Phase() != PhaseResults {
		t.Fatalf("expected results phase, got %v", s.Phase())
	}
}

func TestScoringCorrectVote(t *testing.T) {
	s := NewSession("ABC123", "M")
	a, _ := s.AddPlayer("A")
	b, _ := s.AddPlayer("B")
	s.StartQuestionPhase("Q", "C", SourceManual)
	s.SubmitFakeAnswer(a.ID, "X")
	s.SubmitFakeAnswer(b.ID, "Y")
	if _, err := s.BeginVoting(); err != nil {
		t.Fatalf("begin voting: %v", err)
	}
	s.SubmitVote(a.ID, "X")
	s.SubmitVote(b.ID, "X")
	s.SubmitVote(s.GameMasterID(), "C")

	_, deltas, err := s.FinishVoting()
	if err != nil {
		t.Fatalf("finish voting: %v", err)
	}
	if deltas[a.ID] != 2 {
		t.Fatalf("expected A round delta 2, got %d", deltas[a.ID])
	}
	if deltas[s.GameMasterID()] != 1 {
		t.Fatalf("expected M round delta 1, got %d", deltas[s.GameMasterID()])
	}
}

func TestScoringOwnDecoyPlusCorrectVote(t *testing.T) {
	s := NewSession("ABC123", "M")
	a, _ := s.AddPlayer("A")
	b, _ := s.AddPlayer("B")
	s.StartQuestionPhase("Q", "C", SourceManual)
	s.SubmitFakeAnswer(a.ID, "X")
	s.SubmitFakeAnswer(b.ID, "Y")
	if _, err := s.BeginVoting(); err != nil {
		t.Fatalf("begin voting: %v", err)
	}
	// A's decoy draws a vote and A also votes correctly.
	s.SubmitVote(a.ID, "C")
	s.SubmitVote(b.ID, "X")

	_, deltas, err := s.FinishVoting()
	if err != nil {
		t.Fatalf("finish voting: %v", err)
	}
	if deltas[a.ID] != 2 {
		t.Fatalf("expected A to earn decoy vote plus correct vote, got %d", deltas[a.ID])
	}
}

func TestScoresAccumulateAcrossRounds(t *testing.T) {
	s := NewSession("ABC123", "M")
	a, _ := s.AddPlayer("A")
	b, _ := s.AddPlayer("B")

	for round := 0; round < 2; round++ {
		s.StartQuestionPhase("Q", "C", SourceManual)
		s.SubmitFakeAnswer(a.ID, "X")
		s.SubmitFakeAnswer(b.ID, "Y")
		if _, err := s.BeginVoting(); err != nil {
			t.Fatalf("begin voting: %v", err)
		}
		s.SubmitVote(b.ID, "X")
		if _, _, err := s.FinishVoting(); err != nil {
			t.Fatalf("finish voting: %v", err)
		}
		s.ResetForNextRound()
	}

	scores := s.Snapshot().Scores
	if scores[a.ID] != 2 {
		t.Fatalf("expected A cumulative score 2, got %d", scores[a.ID])
	}
	if s.Round() != 2 {
		t.Fatalf("expected round 2 after two rounds, got %d", s.Round())
	}
}

func TestResetForNextRound(t *testing.T) {
	s := NewSession("ABC123", "M")
	a, _ := s.AddPlayer("A")
	s.StartQuestionPhase("Q", "C", SourceManual)
	s.SubmitFakeAnswer(a.ID, "X")

	s.ResetForNextRound()

	if s.Phase() != PhaseWaitingForPlayers {
		t.Fatalf("expected waiting phase, got %v", s.Phase())
	}
	if _, ok := s.CurrentQuestion(); ok {
		t.Fatalf("question should be cleared after reset")
	}
	if s.Round() != 1 {
		t.Fatalf("round counter should survive reset, got %d", s.Round())
	}
}

func TestAutomaticModeConfiguration(t *testing.T) {
	s := NewSession("ABC123", "M")

	s.EnableAutomaticMode("set-1", &Timers{SubmissionSec: 5})
	if !s.AutomaticMode() {
		t.Fatalf("automatic mode not enabled")
	}
	if s.QuestionSetID() != "set-1" {
		t.Fatalf("expected question set set-1, got %q", s.QuestionSetID())
	}

	timers := s.Timers()
	if timers.SubmissionSec != 5 {
		t.Fatalf("expected submission override 5, got %d", timers.SubmissionSec)
	}
	if timers.VotingSec != DefaultTimers().VotingSec {
		t.Fatalf("unset voting timer should keep its default, got %d", timers.VotingSec)
	}

	s.MarkQuestionUsed(2)
	s.MarkQuestionUsed(7)
	used := s.UsedQuestions()
	if len(used) != 2 {
		t.Fatalf("expected 2 used indices, got %d", len(used))
	}

	s.DisableAutomaticMode()
	if s.AutomaticMode() {
		t.Fatalf("automatic mode still enabled after disable")
	}
}
