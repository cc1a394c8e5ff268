package domain

import "time"

// StructureStat holds per-structure proficiency statistics. Hint and solution
// usage are stored as rates, not raw counts; counts are reconstructed as
// rate × attempts when needed, a deliberate precision/storage trade-off.
type StructureStat struct {
	Score            int        `json:"p_sc"`
	Attempts         int64      `json:"attempts_sc"`
	Correct          int64      `json:"correct_sc"`
	HintRate         float64    `json:"hints_rate_sc"`
	SolutionRate     float64    `json:"solutions_rate_sc"`
	EasySeen         bool       `json:"easy_seen_sc"`
	MediumSeen       bool       `json:"medium_seen_sc"`
	HardSeen         bool       `json:"hard_seen_sc"`
	MediumExposures  int64      `json:"medium_exposures_sc"`
	HardExposures    int64      `json:"hard_exposures_sc"`
	LastLevelApplied string     `json:"last_level_applied_sc"`
	Cooldown         int        `json:"cooldown_sc"`
	LastSeenAt       *time.Time `json:"last_seen_at_sc,omitempty"`
}

// SubskillStat aggregates its structures. MissedTwoSessions is nil when no
// finalized run exists to derive it from.
type SubskillStat struct {
	Attempts          int64                     `json:"attempts_s"`
	Correct           int64                     `json:"correct_s"`
	HintRate          float64                   `json:"hints_rate_s"`
	SolutionRate      float64                   `json:"solutions_rate_s"`
	EasySeen          bool                      `json:"easy_seen_s"`
	MediumSeen        bool                      `json:"medium_seen_s"`
	HardSeen          bool                      `json:"hard_seen_s"`
	StructuresSeen    int64                     `json:"structures_seen_s"`
	StructuresTotal   int64                     `json:"structures_total_s"`
	LastSeenAt        *time.Time                `json:"last_seen_at_s,omitempty"`
	MissedTwoSessions *bool                     `json:"missed_two_sessions,omitempty"`
	Structures        map[string]*StructureStat `json:"structures"`
}

type TopicStat struct {
	Subskills map[string]*SubskillStat `json:"subskills"`
}

// MasteryProfile is the full per-user proficiency tree. Its key set always
// equals the catalog's; aggregation changes statistics, never keys.
type MasteryProfile struct {
	UserID string                `json:"user_id"`
	Topics map[string]*TopicStat `json:"topics"`
}
