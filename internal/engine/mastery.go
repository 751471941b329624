package engine

import (
	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
)

// EstimateMastery derives a [0,1] subject-mastery estimate from evaluated
// responses. Harder questions carry more weight, so clearing hard items moves
// the estimate further than clearing easy ones.
func EstimateMastery(scored []ScoredResponse) float64 {
	if len(scored) == 0 {
		return 0
	}

	var sum, weights float64
	for _, s := range scored {
		w := tierWeight(s.Question.Difficulty)
		sum += w * s.Result.QualityScore
		weights += w
	}
	if weights == 0 {
		return 0
	}
	return clamp(sum/weights, 0, 1)
}

func tierWeight(tier models.DifficultyTier) float64 {
	switch tier {
	case models.DifficultyEasy:
		return 1.0
	case models.DifficultyMedium:
		return 1.5
	case models.DifficultyHard:
		return 2.0
	}
	return 1.0
}

func tierIndex(tier models.DifficultyTier) float64 {
	switch tier {
	case models.DifficultyEasy:
		return 0
	case models.DifficultyMedium:
		return 1
	case models.DifficultyHard:
		return 2
	}
	return 1
}

// TierForMastery maps a mastery estimate onto the difficulty tier a student
// is currently working at.
func TierForMastery(mastery float64) models.DifficultyTier {
	switch {
	case mastery >= 0.7:
		return models.DifficultyHard
	case mastery >= 0.4:
		return models.DifficultyMedium
	default:
		return models.DifficultyEasy
	}
}
