package services

import (
	"testing"

	"github.com/approva/simulado-backend/internal/domain"
)

func TestPickModule2Tier_Boundary(t *testing.T) {
	if got := PickModule2Tier(16, 16); got != domain.DifficultyEasy {
		t.Fatalf("correct == threshold: got %q, want easy", got)
	}
	if got := PickModule2Tier(17, 16); got != domain.DifficultyHard {
		t.Fatalf("correct == threshold+1: got %q, want hard", got)
	}
	if got := PickModule2Tier(0, 16); got != domain.DifficultyEasy {
		t.Fatalf("zero correct: got %q, want easy", got)
	}
}

func TestPickModule2Tier_Monotonic(t *testing.T) {
	const threshold = 16
	prev := 0
	for correct := 0; correct <= 44; correct++ {
		rank := domain.DifficultyRank(PickModule2Tier(correct, threshold))
		if rank < prev {
			t.Fatalf("tier rank dropped at correct=%d", correct)
		}
		prev = rank
	}
}

func TestResolveThreshold(t *testing.T) {
	if got := ResolveThreshold(nil); got != DefaultModule2Threshold {
		t.Fatalf("nil metadata: got %d", got)
	}
	if got := ResolveThreshold(&domain.ExamMetadata{}); got != DefaultModule2Threshold {
		t.Fatalf("absent threshold: got %d", got)
	}
	custom := 20
	if got := ResolveThreshold(&domain.ExamMetadata{Threshold: &custom}); got != 20 {
		t.Fatalf("explicit threshold: got %d", got)
	}
}
