package services

import (
	"math"
	"strings"

	"github.com/approva/simulado-backend/internal/domain"
)

// MaxQuestionsPerSelection caps how many questions a single selected
// structure can contribute to a custom practice plan.
const MaxQuestionsPerSelection = 5

// NormalizeLabel canonicalizes a topic/subskill/structure label so user
// input lines up with the catalog and generator vocabularies: lower-cased,
// trimmed, spaces and hyphens become underscores, "&" becomes "and", and
// anything outside [a-z0-9_] is dropped.
func NormalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "&", "and")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == ' ' || r == '-':
			b.WriteRune('_')
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeSelection returns a copy of sel with all three labels normalized.
func NormalizeSelection(sel domain.CustomPracticeSelection) domain.CustomPracticeSelection {
	return domain.CustomPracticeSelection{
		Topic:     NormalizeLabel(sel.Topic),
		Subskill:  NormalizeLabel(sel.Subskill),
		Structure: NormalizeLabel(sel.Structure),
	}
}

// BuildPlan distributes total across the selections and, within each
// selection, across difficulty tiers. Earlier selections absorb the
// remainder of total/len(selections); within a selection the hard tier
// absorbs rounding so the tiers always sum to the selection's count.
// Zero-count tiers are omitted.
func BuildPlan(selections []domain.CustomPracticeSelection, total int) []domain.PlanItem {
	if len(selections) == 0 || total < 1 {
		return nil
	}
	base := total / len(selections)
	extra := total % len(selections)

	plan := make([]domain.PlanItem, 0, len(selections)*3)
	for i, raw := range selections {
		count := base
		if i < extra {
			count++
		}
		if count == 0 {
			continue
		}
		sel := NormalizeSelection(raw)
		easy := int(math.Round(0.3 * float64(count)))
		medium := int(math.Round(0.4 * float64(count)))
		hard := count - easy - medium
		for _, tier := range []struct {
			difficulty string
			count      int
		}{
			{domain.DifficultyEasy, easy},
			{domain.DifficultyMedium, medium},
			{domain.DifficultyHard, hard},
		} {
			if tier.count <= 0 {
				continue
			}
			plan = append(plan, domain.PlanItem{
				Topic:      sel.Topic,
				Subskill:   sel.Subskill,
				Structure:  sel.Structure,
				Difficulty: tier.difficulty,
				Count:      tier.count,
			})
		}
	}
	return plan
}
