package services

import (
	"math"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/approva/simulado-backend/internal/catalog"
	"github.com/approva/simulado-backend/internal/domain"
)

// ScoreParams are the empirical tuning constants behind the proficiency
// heuristic. They are named here rather than inlined so product can
// recalibrate without touching the aggregation logic.
type ScoreParams struct {
	BaseScore              int
	AccuracyBonusThreshold float64
	AccuracyBonus          int
	HardAccuracyThreshold  float64
	HardBonus              int
	HintRateThreshold      float64
	HintPenalty            int
	SolutionRateThreshold  float64
	SolutionPenalty        int
	CooldownDays           int
	HistoryWindow          int
}

func DefaultScoreParams() ScoreParams {
	return ScoreParams{
		BaseScore:              50,
		AccuracyBonusThreshold: 0.85,
		AccuracyBonus:          3,
		HardAccuracyThreshold:  0.70,
		HardBonus:              2,
		HintRateThreshold:      0.5,
		HintPenalty:            2,
		SolutionRateThreshold:  0.5,
		SolutionPenalty:        2,
		CooldownDays:           2,
		HistoryWindow:          500,
	}
}

// ZeroProfile builds the blank per-user profile spanning the full catalog:
// every structure at the base score with the easy tier as highest applied.
func ZeroProfile(cat *catalog.Catalog, userID string, p ScoreParams) *domain.MasteryProfile {
	profile := &domain.MasteryProfile{
		UserID: userID,
		Topics: make(map[string]*domain.TopicStat, len(cat.Topics)),
	}
	for topicName, topic := range cat.Topics {
		ts := &domain.TopicStat{Subskills: make(map[string]*domain.SubskillStat, len(topic.Subskills))}
		for subName, sub := range topic.Subskills {
			ss := &domain.SubskillStat{
				StructuresTotal: int64(len(sub.Structures)),
				Structures:      make(map[string]*domain.StructureStat, len(sub.Structures)),
			}
			for structName := range sub.Structures {
				ss.Structures[structName] = &domain.StructureStat{
					Score:            p.BaseScore,
					LastLevelApplied: domain.DifficultyEasy,
				}
			}
			ts.Subskills[subName] = ss
		}
		profile.Topics[topicName] = ts
	}
	return profile
}

// RecomputeProfile rebuilds the whole mastery profile from scratch out of the
// user's answer history. It is a pure function of its inputs; finalization
// calls it and overwrites the stored profile wholesale, which avoids drift
// from partial updates at the cost of scaling with history size (hence the
// bounding window in params).
//
// history is expected newest first, as the question bank returns it. runs
// supply per-run timestamps for last-seen and session derivation;
// currentRunID names the run being finalized so it is excluded from the
// "missed last two sessions" window.
func RecomputeProfile(
	cat *catalog.Catalog,
	userID string,
	history []domain.QuestionItem,
	runs []*domain.PracticeRun,
	currentRunID string,
	now time.Time,
	p ScoreParams,
) *domain.MasteryProfile {
	profile := ZeroProfile(cat, userID, p)

	if p.HistoryWindow > 0 && len(history) > p.HistoryWindow {
		history = history[:p.HistoryWindow]
	}

	runTimes := make(map[string]time.Time, len(runs))
	for _, r := range runs {
		if r != nil {
			runTimes[r.ID.String()] = r.StartedAt
		}
	}

	// Hard-tier correct counts are recompute-local: the stored stat only
	// keeps hard exposures, and the ratio is rebuilt from scratch here.
	hardCorrect := make(map[*domain.StructureStat]int64)
	for i := range history {
		item := &history[i]
		if item.MarkedOption == nil {
			continue
		}
		if !cat.Contains(item.Topic, item.Subskill, item.Structure) {
			continue
		}
		st := profile.Topics[item.Topic].Subskills[item.Subskill].Structures[item.Structure]
		if domain.DifficultyRank(item.Difficulty) == 2 && item.AnsweredCorrectly() {
			hardCorrect[st]++
		}
		applyItem(st, item, runTimes[item.RunID], now, hardCorrect[st], p)
	}

	deriveSubskills(profile)
	deriveMissedSessions(profile, history, runs, currentRunID)
	return profile
}

// applyItem folds one answered item into a structure's stats. Hint and
// solution counts are reconstructed from rate × previous attempts since raw
// counts are not stored; the rounding loss is accepted.
func applyItem(st *domain.StructureStat, item *domain.QuestionItem, runAt time.Time, now time.Time, hardCorrect int64, p ScoreParams) {
	prevAttempts := st.Attempts
	st.Attempts++
	correct := item.AnsweredCorrectly()
	if correct {
		st.Correct++
	}

	hintCount := math.Round(st.HintRate * float64(prevAttempts))
	if item.HintUsed {
		hintCount++
	}
	st.HintRate = hintCount / float64(st.Attempts)

	solutionCount := math.Round(st.SolutionRate * float64(prevAttempts))
	if item.SolutionViewed {
		solutionCount++
	}
	st.SolutionRate = solutionCount / float64(st.Attempts)

	tier := domain.DifficultyRank(item.Difficulty)
	switch tier {
	case 2:
		st.HardSeen = true
		st.HardExposures++
	case 1:
		st.MediumSeen = true
		st.MediumExposures++
	default:
		st.EasySeen = true
	}
	if tier > domain.DifficultyRank(st.LastLevelApplied) {
		st.LastLevelApplied = item.Difficulty
	}

	if !runAt.IsZero() && (st.LastSeenAt == nil || runAt.After(*st.LastSeenAt)) {
		t := runAt
		st.LastSeenAt = &t
	}
	if st.LastSeenAt != nil {
		days := int(now.Sub(*st.LastSeenAt).Hours() / 24)
		st.Cooldown = max(0, p.CooldownDays-days)
	}

	st.Score = adjustScore(st, tier, hardCorrect, p)
}

// adjustScore nudges the previous score with bounded heuristic deltas and
// clamps to [0, 100]. The thresholds are tuning constants, not a model.
// The hard bonus stacks on the accuracy bonus and is gated on the hard-tier
// ratio alone, so strong overall accuracy cannot mask weak hard performance.
func adjustScore(st *domain.StructureStat, tier int, hardCorrect int64, p ScoreParams) int {
	score := st.Score
	accuracy := float64(st.Correct) / float64(st.Attempts)
	if accuracy >= p.AccuracyBonusThreshold {
		score += p.AccuracyBonus
		if tier == 2 && st.HardExposures > 0 &&
			float64(hardCorrect)/float64(st.HardExposures) >= p.HardAccuracyThreshold {
			score += p.HardBonus
		}
	}
	if st.HintRate > p.HintRateThreshold {
		score -= p.HintPenalty
	}
	if st.SolutionRate > p.SolutionRateThreshold {
		score -= p.SolutionPenalty
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// deriveSubskills rolls each subskill's structures up into its own stats.
func deriveSubskills(profile *domain.MasteryProfile) {
	for _, topic := range profile.Topics {
		for _, sub := range topic.Subskills {
			sub.Attempts = 0
			sub.Correct = 0
			sub.EasySeen, sub.MediumSeen, sub.HardSeen = false, false, false
			sub.StructuresSeen = 0
			sub.LastSeenAt = nil

			var hintCount, solutionCount float64
			for _, st := range sub.Structures {
				sub.Attempts += st.Attempts
				sub.Correct += st.Correct
				hintCount += math.Round(st.HintRate * float64(st.Attempts))
				solutionCount += math.Round(st.SolutionRate * float64(st.Attempts))
				sub.EasySeen = sub.EasySeen || st.EasySeen
				sub.MediumSeen = sub.MediumSeen || st.MediumSeen
				sub.HardSeen = sub.HardSeen || st.HardSeen
				if st.Attempts > 0 {
					sub.StructuresSeen++
				}
				if st.LastSeenAt != nil && (sub.LastSeenAt == nil || st.LastSeenAt.After(*sub.LastSeenAt)) {
					t := *st.LastSeenAt
					sub.LastSeenAt = &t
				}
			}
			if sub.Attempts > 0 {
				sub.HintRate = hintCount / float64(sub.Attempts)
				sub.SolutionRate = solutionCount / float64(sub.Attempts)
			} else {
				sub.HintRate = 0
				sub.SolutionRate = 0
			}
		}
	}
}

// deriveMissedSessions flags a subskill missed only when it appears in
// neither of the two most recently finalized runs (excluding the one being
// finalized). With no prior finalized run the flag stays nil.
func deriveMissedSessions(profile *domain.MasteryProfile, history []domain.QuestionItem, runs []*domain.PracticeRun, currentRunID string) {
	finalized := lo.Filter(runs, func(r *domain.PracticeRun, _ int) bool {
		return r != nil && r.Status == domain.RunStatusFinalized && r.ID.String() != currentRunID
	})
	if len(finalized) == 0 {
		return
	}
	sort.Slice(finalized, func(i, j int) bool {
		return finalized[i].StartedAt.After(finalized[j].StartedAt)
	})
	if len(finalized) > 2 {
		finalized = finalized[:2]
	}
	window := lo.SliceToMap(finalized, func(r *domain.PracticeRun) (string, struct{}) {
		return r.ID.String(), struct{}{}
	})

	seen := make(map[string]map[string]struct{})
	for i := range history {
		item := &history[i]
		if item.MarkedOption == nil {
			continue
		}
		if _, ok := window[item.RunID]; !ok {
			continue
		}
		if seen[item.Topic] == nil {
			seen[item.Topic] = make(map[string]struct{})
		}
		seen[item.Topic][item.Subskill] = struct{}{}
	}

	for topicName, topic := range profile.Topics {
		for subName, sub := range topic.Subskills {
			_, present := seen[topicName][subName]
			missed := !present
			sub.MissedTwoSessions = &missed
		}
	}
}
