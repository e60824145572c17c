package server

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bluffparty/bluffparty/internal/apperr"
	"github.com/bluffparty/bluffparty/internal/game"
	"github.com/bluffparty/bluffparty/internal/hub"
	"github.com/bluffparty/bluffparty/internal/questions"
)

type createSessionRequest struct {
	GameMasterPseudonym string `json:"game_master_pseudonym"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
	PlayerID  string `json:"player_id"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.GameMasterPseudonym) == "" {
		writeError(w, apperr.New(apperr.CodeValidation, "game_master_pseudonym is required"))
		return
	}

	session := s.registry.Create(strings.TrimSpace(req.GameMasterPseudonym))
	writeJSON(w, http.StatusOK, createSessionResponse{
		SessionID: session.ID(),
		PlayerID:  session.GameMasterID(),
	})
}

type joinSessionRequest struct {
	Pseudonym string `json:"pseudonym"`
}

type joinSessionResponse struct {
	PlayerID     string     `json:"player_id"`
	SessionState game.State `json:"session_state"`
}

func (s *Server) handleJoinSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req joinSessionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	player, err := session.AddPlayer(req.Pseudonym)
	if err != nil {
		writeError(w, err)
		return
	}

	s.hub.Broadcast(session.ID(), hub.Event{
		Type: hub.EventPlayerJoined,
		Data: hub.PlayerJoinedPayload{
			Player:       player,
			TotalPlayers: session.PlayerCount(),
		},
	}, "")

	writeJSON(w, http.StatusOK, joinSessionResponse{
		PlayerID:     player.ID,
		SessionState: session.Snapshot(),
	})
}

type sessionStateResponse struct {
	game.State
	CurrentQuestion *currentQuestionInfo `json:"current_question,omitempty"`
	Answers         []string             `json:"answers,omitempty"`
}

type currentQuestionInfo struct {
	Text             string `json:"text"`
	SubmissionsCount int    `json:"submissions_count"`
	VotesCount       int    `json:"votes_count"`
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	session, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	state := session.Snapshot()
	resp := sessionStateResponse{State: state}
	if state.Phase.HasQuestion() {
		resp.CurrentQuestion = &currentQuestionInfo{
			Text:             state.QuestionText,
			SubmissionsCount: state.Submissions,
			VotesCount:       state.Votes,
		}
		if state.Phase == game.PhaseVoting {
			resp.Answers = session.ShuffledAnswers()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRemoveSession(w http.ResponseWriter, r *http.Request) {
	ref, err := s.requireGameMaster(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.registry.Remove(ref.session.ID()); err != nil {
		writeError(w, err)
		return
	}
	s.hub.RemoveSession(ref.session.ID())
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session removed"})
}

type submitQuestionRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func (s *Server) handleSubmitQuestion(w http.ResponseWriter, r *http.Request) {
	ref, err := s.requireGameMaster(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req submitQuestionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Question == "" || req.Answer == "" {
		writeError(w, apperr.New(apperr.CodeValidation, "question and answer are required"))
		return
	}

	// A manual question is a human override: any running countdown is
	// cancelled before the mutation becomes visible.
	s.scheduler.CancelCountdown(ref.session.ID())
	ref.session.StartQuestionPhase(req.Question, req.Answer, game.SourceManual)

	s.hub.Broadcast(ref.session.ID(), hub.Event{
		Type: hub.EventQuestionSubmitted,
		Data: hub.QuestionSubmittedPayload{
			Question:    req.Question,
			GameState:   ref.session.Phase(),
			RoundNumber: ref.session.Round(),
		},
	}, "")
	s.scheduler.Reschedule(ref.session.ID())

	writeJSON(w, http.StatusOK, map[string]string{"message": "Question submitted successfully"})
}

type submitAnswerRequest struct {
	FakeAnswer string `json:"fake_answer"`
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	ref, err := s.sessionRef(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req submitAnswerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	progress, err := ref.session.SubmitFakeAnswer(ref.playerID, req.FakeAnswer)
	if err != nil {
		writeError(w, err)
		return
	}

	s.hub.Broadcast(ref.session.ID(), hub.Event{
		Type: hub.EventAnswerSubmitted,
		Data: hub.AnswerSubmittedPayload{
			SubmissionsCount: progress.Count,
			TotalExpected:    progress.Expected,
			AllSubmitted:     progress.AllIn,
		},
	}, "")

	if progress.AllIn {
		s.advanceToVoting(ref.session, hub.EventVotingPhaseStarted, "")
		s.scheduler.Reschedule(ref.session.ID())
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Answer submitted successfully"})
}

type submitVoteRequest struct {
	VotedAnswer string `json:"voted_answer"`
}

func (s *Server) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	ref, err := s.sessionRef(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req submitVoteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	progress, err := ref.session.SubmitVote(ref.playerID, req.VotedAnswer)
	if err != nil {
		writeError(w, err)
		return
	}

	s.hub.Broadcast(ref.session.ID(), hub.Event{
		Type: hub.EventVoteSubmitted,
		Data: hub.VoteSubmittedPayload{
			VotesCount:   progress.Count,
			TotalPlayers: progress.Expected,
			AllVoted:     progress.AllIn,
		},
	}, "")

	if progress.AllIn {
		s.advanceToResults(ref.session, hub.EventResultsReady, "")
		s.scheduler.Reschedule(ref.session.ID())
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Vote submitted successfully"})
}

func (s *Server) handleEndSubmissions(w http.ResponseWriter, r *http.Request) {
	ref, err := s.requireGameMaster(r)
	if err != nil {
		writeError(w, err)
		return
	}

	s.scheduler.CancelCountdown(ref.session.ID())
	if err := s.advanceToVoting(ref.session, hub.EventSubmissionsEndedEarly, "Game master ended submission phase early"); err != nil {
		writeError(w, err)
		return
	}
	s.scheduler.Reschedule(ref.session.ID())
	writeJSON(w, http.StatusOK, map[string]string{"message": "Submissions ended successfully"})
}

func (s *Server) handleEndVoting(w http.ResponseWriter, r *http.Request) {
	ref, err := s.requireGameMaster(r)
	if err != nil {
		writeError(w, err)
		return
	}

	s.scheduler.CancelCountdown(ref.session.ID())
	if err := s.advanceToResults(ref.session, hub.EventVotingEndedEarly, "Game master ended voting early"); err != nil {
		writeError(w, err)
		return
	}
	s.scheduler.Reschedule(ref.session.ID())
	writeJSON(w, http.StatusOK, map[string]string{"message": "Voting ended successfully"})
}

func (s *Server) handleNextRound(w http.ResponseWriter, r *http.Request) {
	ref, err := s.requireGameMaster(r)
	if err != nil {
		writeError(w, err)
		return
	}

	s.scheduler.CancelCountdown(ref.session.ID())
	ref.session.ResetForNextRound()

	s.hub.Broadcast(ref.session.ID(), hub.Event{
		Type: hub.EventNextRoundStarted,
		Data: hub.NextRoundStartedPayload{
			GameState:   ref.session.Phase(),
			RoundNumber: ref.session.Round(),
		},
	}, "")
	s.scheduler.Reschedule(ref.session.ID())

	writeJSON(w, http.StatusOK, map[string]string{"message": "Next round started"})
}

// advanceToVoting closes submissions and broadcasts the shuffled
// answer list under the given event type.
func (s *Server) advanceToVoting(session *game.Session, eventType hub.EventType, message string) error {
	answers, err := session.BeginVoting()
	if err != nil {
		return err
	}
	s.hub.Broadcast(session.ID(), hub.Event{
		Type: eventType,
		Data: hub.VotingPhaseStartedPayload{
			GameState: session.Phase(),
			Answers:   answers,
			Message:   message,
		},
	}, "")
	return nil
}

// advanceToResults closes voting, scores the round, and broadcasts the
// results under the given event type.
func (s *Server) advanceToResults(session *game.Session, eventType hub.EventType, message string) error {
	results, roundScores, err := session.FinishVoting()
	if err != nil {
		return err
	}
	s.hub.Broadcast(session.ID(), hub.Event{
		Type: eventType,
		Data: hub.ResultsReadyPayload{
			GameState:   session.Phase(),
			Results:     results,
			RoundScores: roundScores,
			Message:     message,
		},
	}, "")
	return nil
}

type enableAutoModeRequest struct {
	QuestionSetID string       `json:"question_set_id"`
	Timers        *game.Timers `json:"timers,omitempty"`
}

func (s *Server) handleEnableAutoMode(w http.ResponseWriter, r *http.Request) {
	ref, err := s.requireGameMaster(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req enableAutoModeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if _, err := s.catalog.Get(req.QuestionSetID); err != nil {
		writeError(w, err)
		return
	}

	if err := s.scheduler.StartAutomatic(ref.session.ID(), req.QuestionSetID, req.Timers); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Automatic mode enabled successfully"})
}

func (s *Server) handleCancelAutoTimer(w http.ResponseWriter, r *http.Request) {
	ref, err := s.requireGameMaster(r)
	if err != nil {
		writeError(w, err)
		return
	}

	s.scheduler.CancelCountdown(ref.session.ID())

	s.hub.Broadcast(ref.session.ID(), hub.Event{
		Type: hub.EventAutoTimerCancelled,
		Data: hub.AutoTimerCancelledPayload{
			Message: "Automatic timer cancelled - manual control resumed",
		},
	}, "")

	writeJSON(w, http.StatusOK, map[string]string{"message": "Automatic timer cancelled"})
}

type diceQuestionResponse struct {
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	QuestionIndex int    `json:"question_index"`
	CanEdit       bool   `json:"can_edit"`
}

func (s *Server) handleDiceQuestion(w http.ResponseWriter, r *http.Request) {
	ref, err := s.requireGameMaster(r)
	if err != nil {
		writeError(w, err)
		return
	}

	// The bundled default set wins; otherwise fall back to the oldest
	// uploaded set.
	setID := questions.DefaultSetID
	if _, err := s.catalog.Get(setID); err != nil {
		sets := s.catalog.List()
		if len(sets) == 0 {
			writeError(w, apperr.New(apperr.CodeNotFound, "no question sets available"))
			return
		}
		setID = sets[0].ID
	}

	entry, index, err := s.catalog.GetRandom(setID, ref.session.UsedQuestions())
	if err != nil {
		writeError(w, err)
		return
	}

	s.hub.Broadcast(ref.session.ID(), hub.Event{
		Type: hub.EventDiceQuestionSelected,
		Data: hub.DiceQuestionSelectedPayload{
			Question:       entry.Question,
			Answer:         entry.Answer,
			CanEdit:        true,
			QuestionIndex:  index,
			QuestionSource: game.SourceDice,
		},
	}, "")

	writeJSON(w, http.StatusOK, diceQuestionResponse{
		Question:      entry.Question,
		Answer:        entry.Answer,
		QuestionIndex: index,
		CanEdit:       true,
	})
}

type editQuestionRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func (s *Server) handleEditQuestion(w http.ResponseWriter, r *http.Request) {
	ref, err := s.requireGameMaster(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req editQuestionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Question == "" || req.Answer == "" {
		writeError(w, apperr.New(apperr.CodeValidation, "question and answer are required"))
		return
	}

	s.scheduler.CancelCountdown(ref.session.ID())
	ref.session.StartEditedQuestion(req.Question, req.Answer)

	s.hub.Broadcast(ref.session.ID(), hub.Event{
		Type: hub.EventQuestionEdited,
		Data: hub.QuestionEditedPayload{
			Question:       req.Question,
			GameState:      ref.session.Phase(),
			RoundNumber:    ref.session.Round(),
			QuestionSource: game.SourceDice,
		},
	}, "")
	s.scheduler.Reschedule(ref.session.ID())

	writeJSON(w, http.StatusOK, map[string]string{"message": "Question edited and submitted successfully"})
}

const maxUploadBytes = 5 << 20

type questionSetSummary struct {
	SetID         string    `json:"set_id"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
}

func (s *Server) handleUploadQuestionSet(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apperr.Wrap(apperr.CodeValidation, "malformed multipart form", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperr.Wrap(apperr.CodeValidation, "file is required", err))
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		writeError(w, apperr.New(apperr.CodeValidation, "file must be a CSV"))
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, apperr.Wrap(apperr.CodeValidation, "failed to read upload", err))
		return
	}

	name := strings.TrimSuffix(header.Filename, ".csv")
	set, err := s.catalog.AddFromCSV(string(content), name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Question set uploaded successfully",
		"question_set": questionSetSummary{
			SetID:         set.ID,
			Name:          set.Name,
			Category:      set.Category,
			QuestionCount: len(set.Entries),
			CreatedAt:     set.CreatedAt,
		},
	})
}

func (s *Server) handleListQuestionSets(w http.ResponseWriter, r *http.Request) {
	sets := s.catalog.List()
	summaries := make([]questionSetSummary, 0, len(sets))
	for _, set := range sets {
		summaries = append(summaries, questionSetSummary{
			SetID:         set.ID,
			Name:          set.Name,
			Category:      set.Category,
			QuestionCount: len(set.Entries),
			CreatedAt:     set.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"question_sets": summaries})
}

const questionPreviewLimit = 10

func (s *Server) handleGetQuestionSet(w http.ResponseWriter, r *http.Request) {
	set, err := s.catalog.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	preview := set.Entries
	if len(preview) > questionPreviewLimit {
		preview = preview[:questionPreviewLimit]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"set_id":          set.ID,
		"name":            set.Name,
		"category":        set.Category,
		"questions":       preview,
		"total_questions": len(set.Entries),
		"created_at":      set.CreatedAt,
	})
}

func (s *Server) handleDeleteQuestionSet(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Delete(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Question set deleted successfully"})
}
