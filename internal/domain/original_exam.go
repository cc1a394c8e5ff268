package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ExamQuestion is the stored shape of one fixed-bank question. It mirrors the
// generator payload so module questions map to QuestionItems the same way.
type ExamQuestion struct {
	Topic              string            `json:"topic"`
	Subskill           string            `json:"subskill"`
	Structure          string            `json:"structure"`
	Difficulty         string            `json:"difficulty"`
	Question           string            `json:"question"`
	Options            map[string]string `json:"options"`
	CorrectOption      string            `json:"correct_option"`
	SolutionEnglish    []string          `json:"solution_english,omitempty"`
	SolutionPortuguese []string          `json:"solution_portugues,omitempty"`
	HintEnglish        string            `json:"hint_english,omitempty"`
	HintPortuguese     string            `json:"hint_portugues,omitempty"`
	Figure             map[string]any    `json:"figure,omitempty"`
	Format             string            `json:"format,omitempty"`
	Representation     string            `json:"representation,omitempty"`
	Source             string            `json:"source,omitempty"`
}

type ExamMetadata struct {
	Title     string `json:"title,omitempty"`
	Threshold *int   `json:"threshold,omitempty"`
}

// OriginalExam is one pre-built fixed exam: a shared module 1 plus easy/hard
// variants of module 2. Module payloads are stored as JSON columns.
type OriginalExam struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ExamID      string         `gorm:"column:exam_id;uniqueIndex;not null" json:"exam_id"`
	IsActive    bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	IsAdaptive  bool           `gorm:"column:is_adaptive;not null;default:true" json:"is_adaptive"`
	Module1     datatypes.JSON `gorm:"type:jsonb;column:module_1" json:"module_1"`
	Module2Easy datatypes.JSON `gorm:"type:jsonb;column:module_2_easy" json:"module_2_easy"`
	Module2Hard datatypes.JSON `gorm:"type:jsonb;column:module_2_hard" json:"module_2_hard"`
	Metadata    datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (OriginalExam) TableName() string { return "original_exam" }

// OriginalExamMeta travels with module-1 items so the caller can request
// module 2 later.
type OriginalExamMeta struct {
	ExamID     string `json:"exam_id"`
	IsAdaptive bool   `json:"is_adaptive"`
	Threshold  int    `json:"threshold"`
}
