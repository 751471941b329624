package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
)

// RecommendationGenerator ranks candidate lessons and interventions for a
// completed session. Accessibility compatibility is a hard filter; everything
// else is ranking.
type RecommendationGenerator struct {
	cfg Config
}

func NewRecommendationGenerator(cfg Config) *RecommendationGenerator {
	return &RecommendationGenerator{cfg: cfg}
}

type rankedLesson struct {
	lesson    models.Lesson
	score     float64
	levelFit  float64
	accomFit  float64
	cultFit   float64
	rationale string
}

// Recommend returns up to MaxRecommendations lessons for the session. The
// list is never empty for a completed session as long as the pool contains at
// least one compatible lesson: a mastery-matched safe pick is always included
// even when no difficulty was detected.
func (g *RecommendationGenerator) Recommend(
	session *models.AssessmentSession,
	difficulties []models.LearningDifficulty,
	mastery float64,
	pool []models.Lesson,
) []models.LearningRecommendation {
	profile := session.Accessibility()
	cultural := session.Cultural()

	needed := neededAccommodations(difficulties)
	studentLevel := mastery * 2 // easy=0 .. hard=2 scale

	var ranked []rankedLesson
	for _, lesson := range pool {
		if lesson.Subject != session.Subject {
			continue
		}
		if !accessible(lesson, profile) {
			continue
		}

		levelFit := 1 - math.Abs(tierIndex(lesson.Difficulty)-studentLevel)/2
		accomFit := accommodationFit(lesson, needed)
		cultFit := culturalFit(lesson, cultural)

		score := 0.35*levelFit + 0.35*accomFit + 0.2*cultFit
		ranked = append(ranked, rankedLesson{
			lesson:    lesson,
			score:     score,
			levelFit:  levelFit,
			accomFit:  accomFit,
			cultFit:   cultFit,
			rationale: rationaleFor(levelFit, accomFit, len(difficulties)),
		})
	}

	// Estimated time is the tie-break: shorter preferred.
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].lesson.EstimatedTimeMinutes < ranked[j].lesson.EstimatedTimeMinutes
	})

	limit := g.cfg.MaxRecommendations
	if limit <= 0 {
		limit = 5
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]models.LearningRecommendation, 0, len(ranked))
	safeIncluded := false
	safeTier := TierForMastery(mastery)
	for _, r := range ranked {
		priority := models.PriorityNormal
		if r.accomFit >= 0.5 && len(difficulties) > 0 {
			priority = models.PriorityHigh
		}
		if r.lesson.Difficulty == safeTier {
			safeIncluded = true
		}
		out = append(out, models.LearningRecommendation{
			LessonID:             r.lesson.ID,
			Title:                r.lesson.Title,
			Priority:             priority,
			Rationale:            r.rationale,
			EstimatedTimeMinutes: r.lesson.EstimatedTimeMinutes,
			CulturalFit:          r.cultFit,
			AccessibilityFit:     r.accomFit,
		})
	}

	// Guarantee one safe, mastery-matched pick even when nothing was detected.
	if !safeIncluded {
		if safe, ok := g.safePick(session, profile, cultural, safeTier, pool, out); ok {
			if len(out) >= limit && limit > 0 {
				out = out[:limit-1]
			}
			out = append(out, safe)
		}
	}

	return out
}

func (g *RecommendationGenerator) safePick(
	session *models.AssessmentSession,
	profile models.AccessibilityProfile,
	cultural models.CulturalContext,
	tier models.DifficultyTier,
	pool []models.Lesson,
	already []models.LearningRecommendation,
) (models.LearningRecommendation, bool) {
	chosen := models.Lesson{}
	found := false
	for _, lesson := range pool {
		if lesson.Subject != session.Subject || lesson.Difficulty != tier {
			continue
		}
		if !accessible(lesson, profile) {
			continue
		}
		skip := false
		for _, r := range already {
			if r.LessonID == lesson.ID {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		if !found || lesson.EstimatedTimeMinutes < chosen.EstimatedTimeMinutes {
			chosen = lesson
			found = true
		}
	}
	if !found {
		return models.LearningRecommendation{}, false
	}
	return models.LearningRecommendation{
		LessonID:             chosen.ID,
		Title:                chosen.Title,
		Priority:             models.PriorityLow,
		Rationale:            "matches current mastery level",
		EstimatedTimeMinutes: chosen.EstimatedTimeMinutes,
		CulturalFit:          culturalFit(chosen, cultural),
		AccessibilityFit:     accommodationFit(chosen, nil),
	}, true
}

// accessible is the hard filter: a lesson must not conflict with a declared
// accessibility constraint. Audio-only content is never offered to a
// hearing-impaired session without a text alternative, and text/visual-only
// content is never offered to a visually-impaired session without audio.
func accessible(lesson models.Lesson, profile models.AccessibilityProfile) bool {
	if !profile.Any() {
		return true
	}

	formats := lesson.FormatList()
	if len(formats) == 0 {
		// Untagged content is assumed multi-format.
		return true
	}

	if profile.Hearing && !hasAnyFormat(formats, "text", "visual", "interactive") {
		return false
	}
	if profile.Visual && !hasAnyFormat(formats, "audio", "interactive") {
		return false
	}
	if profile.Motor && !hasAnyFormat(formats, "text", "audio", "visual") {
		return false
	}
	return true
}

func hasAnyFormat(formats []string, wanted ...string) bool {
	for _, f := range formats {
		for _, w := range wanted {
			if f == w {
				return true
			}
		}
	}
	return false
}

func neededAccommodations(difficulties []models.LearningDifficulty) []string {
	seen := map[string]bool{}
	var out []string
	for _, d := range difficulties {
		for _, a := range d.RecommendedAccommodations {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	return out
}

// accommodationFit is the share of needed accommodations the lesson
// implements; 0.5 when nothing specific is needed.
func accommodationFit(lesson models.Lesson, needed []string) float64 {
	if len(needed) == 0 {
		return 0.5
	}
	provided := map[string]bool{}
	for _, a := range lesson.AccommodationList() {
		provided[a] = true
	}
	matched := 0
	for _, n := range needed {
		if provided[n] {
			matched++
		}
	}
	return float64(matched) / float64(len(needed))
}

func culturalFit(lesson models.Lesson, cultural models.CulturalContext) float64 {
	cultures := lesson.CultureList()
	if len(cultures) == 0 {
		return 0.7 // universal content
	}
	if cultural.Culture == "" {
		return 0.5
	}
	for _, c := range cultures {
		if c == cultural.Culture {
			return 1.0
		}
	}
	return 0.3
}

func rationaleFor(levelFit, accomFit float64, difficultyCount int) string {
	switch {
	case difficultyCount > 0 && accomFit >= 0.5:
		return "addresses detected learning-difficulty accommodations"
	case levelFit >= 0.75:
		return "targets the student's current working level"
	default:
		return fmt.Sprintf("partial fit: level %.2f, accommodations %.2f", levelFit, accomFit)
	}
}
