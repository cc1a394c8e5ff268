package services

import "github.com/approva/simulado-backend/internal/domain"

// DefaultModule2Threshold applies when an exam's metadata defines none.
const DefaultModule2Threshold = 16

// PickModule2Tier routes a user to the hard module 2 variant only when their
// module-1 correct count strictly exceeds the threshold. Pure and
// deterministic; equal-to-threshold stays easy.
func PickModule2Tier(module1Correct, threshold int) string {
	if module1Correct > threshold {
		return domain.DifficultyHard
	}
	return domain.DifficultyEasy
}

// ResolveThreshold extracts the per-exam threshold, falling back to the
// default.
func ResolveThreshold(meta *domain.ExamMetadata) int {
	if meta != nil && meta.Threshold != nil {
		return *meta.Threshold
	}
	return DefaultModule2Threshold
}
