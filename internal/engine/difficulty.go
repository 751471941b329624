package engine

import (
	"fmt"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
)

// WindowEntry is one evaluated response as seen by the difficulty controller.
type WindowEntry struct {
	QualityScore float64
	TimeSpentMs  int
}

// DifficultyController decides whether the next question should move up, down
// or stay, from a rolling window over the most recent evaluations. The window
// only ever rolls its oldest entry off; it is never reset on a direction
// change, so one lucky or unlucky answer cannot cause oscillation.
type DifficultyController struct {
	cfg Config
}

func NewDifficultyController(cfg Config) *DifficultyController {
	return &DifficultyController{cfg: cfg}
}

// Decide computes the adjustment for the current tier given the full ordered
// evaluation history; only the trailing window is considered. Entries with
// inconsistent data (negative time spent) are excluded from the mean instead
// of aborting the computation.
func (c *DifficultyController) Decide(current models.DifficultyTier, history []WindowEntry) models.DifficultyAdjustment {
	window := history
	if len(window) > c.cfg.WindowSize {
		window = window[len(window)-c.cfg.WindowSize:]
	}

	if len(window) < c.cfg.WindowSize {
		return models.DifficultyAdjustment{
			Direction: models.AdjustHold,
			NewTier:   current,
			Rationale: []string{fmt.Sprintf("insufficient window: %d of %d responses", len(window), c.cfg.WindowSize)},
		}
	}

	sum := 0.0
	valid := 0
	for _, entry := range window {
		if entry.TimeSpentMs < 0 {
			continue
		}
		sum += entry.QualityScore
		valid++
	}

	if valid == 0 {
		return models.DifficultyAdjustment{
			Direction: models.AdjustHold,
			NewTier:   current,
			Rationale: []string{"no valid responses in window"},
		}
	}

	mean := sum / float64(valid)

	switch {
	case mean >= c.cfg.IncreaseThreshold && current != models.DifficultyHard:
		next := stepUp(current)
		return models.DifficultyAdjustment{
			Direction: models.AdjustIncrease,
			NewTier:   next,
			Rationale: []string{
				fmt.Sprintf("mean quality %.2f over last %d responses >= %.2f", mean, valid, c.cfg.IncreaseThreshold),
			},
		}
	case mean <= c.cfg.DecreaseThreshold && current != models.DifficultyEasy:
		next := stepDown(current)
		return models.DifficultyAdjustment{
			Direction: models.AdjustDecrease,
			NewTier:   next,
			Rationale: []string{
				fmt.Sprintf("mean quality %.2f over last %d responses <= %.2f", mean, valid, c.cfg.DecreaseThreshold),
			},
		}
	}

	return models.DifficultyAdjustment{
		Direction: models.AdjustHold,
		NewTier:   current,
		Rationale: []string{fmt.Sprintf("mean quality %.2f within hold band", mean)},
	}
}

// Transitions are single-step only; the controller never jumps two tiers.
func stepUp(tier models.DifficultyTier) models.DifficultyTier {
	switch tier {
	case models.DifficultyEasy:
		return models.DifficultyMedium
	case models.DifficultyMedium:
		return models.DifficultyHard
	}
	return tier
}

func stepDown(tier models.DifficultyTier) models.DifficultyTier {
	switch tier {
	case models.DifficultyHard:
		return models.DifficultyMedium
	case models.DifficultyMedium:
		return models.DifficultyEasy
	}
	return tier
}
