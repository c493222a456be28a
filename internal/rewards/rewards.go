// Package rewards computes the experience and coins granted for a lesson.
package rewards

import "github.com/p-n-ai/pai-quest/internal/catalog"

const (
	// BonusThreshold is the lowest score that earns the high-score bonus.
	BonusThreshold = 80

	// The bonus multiplies rewards by bonusNum/bonusDen (1.2x).
	bonusNum = 6
	bonusDen = 5
)

// Reward is what a completion earns.
type Reward struct {
	Experience int  `json:"experience_earned"`
	Coins      int  `json:"coins_earned"`
	Bonus      bool `json:"bonus_applied"`
}

// Calculate returns the lesson's base rewards, raised by 1.2x and floored
// when score is present and at least BonusThreshold. A nil score never
// earns the bonus.
func Calculate(lesson catalog.Lesson, score *int) Reward {
	r := Reward{
		Experience: max(lesson.ExperienceReward, 0),
		Coins:      max(lesson.CoinReward, 0),
	}
	if score == nil || *score < BonusThreshold {
		return r
	}

	r.Experience = applyBonus(r.Experience)
	r.Coins = applyBonus(r.Coins)
	r.Bonus = true
	return r
}

// applyBonus is floor(base * 1.2) in integer arithmetic, exact for base >= 0.
func applyBonus(base int) int {
	return base * bonusNum / bonusDen
}
