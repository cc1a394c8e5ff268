package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CompletedExam struct {
	ExamID           string    `json:"exam_id"`
	CompletedAt      time.Time `json:"completed_at"`
	AttemptID        string    `json:"attempt_id,omitempty"`
	Score            *int      `json:"score,omitempty"`
	TimeTakenMinutes *int      `json:"time_taken_minutes,omitempty"`
	Module1Score     *int      `json:"module_1_score,omitempty"`
	Module2Tier      string    `json:"module_2_tier,omitempty"`
}

// UserExamHistory tracks which fixed exams a user has completed, and which
// one is currently in progress. Completed entries are append-only.
type UserExamHistory struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID         string         `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	CurrentExamID  string         `gorm:"column:current_exam_id" json:"current_exam_id,omitempty"`
	CompletedExams datatypes.JSON `gorm:"type:jsonb;column:completed_exams" json:"completed_exams"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (UserExamHistory) TableName() string { return "user_exam_history" }
