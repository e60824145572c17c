package game

// Player is one participant in a session. Exactly one player per
// session carries the game master flag, assigned at session creation.
type Player struct {
	ID           string `json:"player_id"`
	Pseudonym    string `json:"pseudonym"`
	IsGameMaster bool   `json:"is_game_master"`
	Connected    bool   `json:"connected"`
}

// QuestionSource tags where a question came from.
type QuestionSource string

const (
	// SourceManual marks a question typed in by the game master.
	SourceManual QuestionSource = "manual"
	// SourceCSV marks a question drawn from an imported question set.
	SourceCSV QuestionSource = "csv"
	// SourceDice marks a question drawn at random by the game master.
	SourceDice QuestionSource = "dice"
)

// Question holds the active round's prompt plus everything players
// have submitted against it.
type Question struct {
	Text          string            `json:"text"`
	CorrectAnswer string            `json:"correct_answer"`
	// FakeAnswers maps player id to submitted decoy. Never contains an
	// entry for the game master.
	FakeAnswers map[string]string `json:"fake_answers"`
	// Votes maps player id to the answer text they voted for.
	Votes          map[string]string `json:"votes"`
	Source         QuestionSource    `json:"source"`
	OriginalText   string            `json:"original_text,omitempty"`
	OriginalAnswer string            `json:"original_answer,omitempty"`
}

func newQuestion(text, answer string, source QuestionSource) *Question {
	return &Question{
		Text:          text,
		CorrectAnswer: answer,
		FakeAnswers:   make(map[string]string),
		Votes:         make(map[string]string),
		Source:        source,
	}
}
