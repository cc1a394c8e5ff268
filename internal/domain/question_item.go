package domain

import "strings"

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// DifficultyRank orders tiers for "highest level applied" promotion.
func DifficultyRank(tier string) int {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case DifficultyHard:
		return 2
	case DifficultyMedium:
		return 1
	default:
		return 0
	}
}

// QuestionItem is one exam question bound to a run and a user. The record is
// owned by the external question-bank service; this service only constructs
// and reads it.
type QuestionItem struct {
	ID       string `json:"id,omitempty"`
	RunID    string `json:"run_id"`
	UserID   string `json:"user_id"`
	Topic    string `json:"topic"`
	Subskill string `json:"subskill"`

	Structure  string `json:"structure"`
	Difficulty string `json:"difficulty"`
	Question   string `json:"question"`

	Options       map[string]string `json:"options"`
	CorrectOption string            `json:"correct_option"`

	SolutionEnglish    []string `json:"solution_english,omitempty"`
	SolutionPortuguese []string `json:"solution_portugues,omitempty"`
	HintEnglish        string   `json:"hint_english,omitempty"`
	HintPortuguese     string   `json:"hint_portugues,omitempty"`

	Figure         map[string]any `json:"figure,omitempty"`
	TargetMistakes []string       `json:"target_mistakes,omitempty"`
	Format         string         `json:"format,omitempty"`
	Representation string         `json:"representation,omitempty"`
	Source         string         `json:"source,omitempty"`

	Module int `json:"module"`

	// Post-attempt fields, written back on finalization.
	MarkedOption   *string `json:"marked_option,omitempty"`
	HintUsed       bool    `json:"hint_used"`
	SolutionViewed bool    `json:"solution_viewed"`
}

// AnsweredCorrectly compares the marked answer against the correct-answer
// marker case-insensitively.
func (q *QuestionItem) AnsweredCorrectly() bool {
	if q == nil || q.MarkedOption == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(*q.MarkedOption), strings.TrimSpace(q.CorrectOption))
}

// AnsweredItemPatch carries the per-item fields persisted on finalization.
type AnsweredItemPatch struct {
	ID             string  `json:"id"`
	RunID          string  `json:"run_id,omitempty"`
	UserID         string  `json:"user_id,omitempty"`
	MarkedOption   *string `json:"marked_option"`
	HintUsed       bool    `json:"hint_used"`
	SolutionViewed bool    `json:"solution_viewed"`
}
