package rewards_test

import (
	"math"
	"testing"

	"github.com/p-n-ai/pai-quest/internal/catalog"
	"github.com/p-n-ai/pai-quest/internal/rewards"
)

func score(v int) *int { return &v }

func TestCalculate(t *testing.T) {
	greetings := catalog.Lesson{ID: 1, ExperienceReward: 50, CoinReward: 10}
	numbers := catalog.Lesson{ID: 2, ExperienceReward: 40, CoinReward: 8}
	odd := catalog.Lesson{ID: 4, ExperienceReward: 33, CoinReward: 7}

	tests := []struct {
		name      string
		lesson    catalog.Lesson
		score     *int
		wantXP    int
		wantCoins int
		wantBonus bool
	}{
		{"high score", greetings, score(95), 60, 12, true},
		{"threshold is inclusive", greetings, score(80), 60, 12, true},
		{"just below threshold", greetings, score(79), 50, 10, false},
		{"no score", greetings, nil, 50, 10, false},
		{"zero score", greetings, score(0), 50, 10, false},
		{"perfect score", numbers, score(100), 48, 9, true},
		{"floors fractions", odd, score(90), 39, 8, true},
		{"zero rewards", catalog.Lesson{ID: 5}, score(100), 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rewards.Calculate(tt.lesson, tt.score)
			if got.Experience != tt.wantXP {
				t.Errorf("Experience = %d, want %d", got.Experience, tt.wantXP)
			}
			if got.Coins != tt.wantCoins {
				t.Errorf("Coins = %d, want %d", got.Coins, tt.wantCoins)
			}
			if got.Bonus != tt.wantBonus {
				t.Errorf("Bonus = %v, want %v", got.Bonus, tt.wantBonus)
			}
		})
	}
}

func TestCalculate_MatchesFloorMultiplier(t *testing.T) {
	for base := 0; base <= 500; base++ {
		lesson := catalog.Lesson{ExperienceReward: base, CoinReward: base}
		got := rewards.Calculate(lesson, score(rewards.BonusThreshold))
		want := int(math.Floor(float64(base) * 12 / 10))
		if got.Experience != want || got.Coins != want {
			t.Fatalf("base %d: got %d/%d, want %d", base, got.Experience, got.Coins, want)
		}
	}
}
