package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RunModeAdaptive       = "ADAPTIVE"
	RunModeOriginal       = "ORIGINAL"
	RunModeCustomPractice = "CUSTOM_PRACTICE"

	RunStatusOpen      = "OPEN"
	RunStatusFinalized = "FINALIZED"
)

// PracticeRun is one attempt session at a set of exam questions. The user id
// is owned by the external identity service and kept as an opaque string.
type PracticeRun struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    string         `gorm:"column:user_id;not null;index" json:"user_id"`
	Mode      string         `gorm:"column:mode;not null" json:"mode"`
	Status    string         `gorm:"column:status;not null;index" json:"status"`
	CostWins  int            `gorm:"column:cost_wins;not null" json:"cost_wins"`
	StartedAt time.Time      `gorm:"column:started_at;not null;default:now()" json:"started_at"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (PracticeRun) TableName() string { return "practice_run" }

func (r *PracticeRun) IsOpen() bool {
	return r != nil && r.Status == RunStatusOpen
}
