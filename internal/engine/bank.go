package engine

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
)

// ErrBankExhausted is returned when no unused question matches the session's
// subject at any difficulty tier.
var ErrBankExhausted = errors.New("question bank exhausted for session")

// Selector picks the next question for a session: unused, same subject,
// preferring the current difficulty tier and falling back to the nearest
// tier when the exact one has run dry. One Selector is shared across all
// sessions, so draws from the rng are serialized here; session locks only
// order calls within a single session.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSelector(seed int64) *Selector {
	return &Selector{rng: rand.New(rand.NewSource(seed))}
}

func (s *Selector) pick(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// Next chooses one question from pool. used holds question IDs already asked
// in this session.
func (s *Selector) Next(session *models.AssessmentSession, pool []models.Question, used map[uint]bool) (*models.Question, error) {
	byTier := make(map[models.DifficultyTier][]*models.Question)
	for i := range pool {
		q := &pool[i]
		if q.Subject != session.Subject || used[q.ID] {
			continue
		}
		byTier[q.Difficulty] = append(byTier[q.Difficulty], q)
	}

	for _, tier := range tierFallbackOrder(session.CurrentDifficulty) {
		candidates := byTier[tier]
		if len(candidates) == 0 {
			continue
		}
		return candidates[s.pick(len(candidates))], nil
	}
	return nil, ErrBankExhausted
}

// tierFallbackOrder lists tiers nearest-first from the current one, easier
// before harder on ties so a depleted tier degrades gently.
func tierFallbackOrder(current models.DifficultyTier) []models.DifficultyTier {
	switch current {
	case models.DifficultyEasy:
		return []models.DifficultyTier{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard}
	case models.DifficultyHard:
		return []models.DifficultyTier{models.DifficultyHard, models.DifficultyMedium, models.DifficultyEasy}
	default:
		return []models.DifficultyTier{models.DifficultyMedium, models.DifficultyEasy, models.DifficultyHard}
	}
}

// PresentedQuestion is the student-facing rendering of a question after
// cultural and accessibility overlays are applied. The scoring key and
// metadata stay on the embedded question.
type PresentedQuestion struct {
	Question      *models.Question `json:"question"`
	Text          string           `json:"text"`
	RenderingHint string           `json:"rendering_hint,omitempty"`
}

// Present resolves the variant text for the session's declared cultural
// context and accessibility profile. Accessibility overlays win over cultural
// ones when both exist, since they change how the content is consumed rather
// than how it reads.
func Present(question *models.Question, session *models.AssessmentSession) PresentedQuestion {
	presented := PresentedQuestion{Question: question, Text: question.Text}

	cultural := session.Cultural()
	if cultural.Culture != "" {
		if v, ok := question.CulturalVariant(cultural.Culture); ok {
			presented.Text = v.Text
			presented.RenderingHint = v.RenderingHint
		}
	}

	profile := session.Accessibility()
	for _, need := range accessibilityNeeds(profile) {
		if v, ok := question.AccessibilityVariant(need); ok {
			presented.Text = v.Text
			presented.RenderingHint = v.RenderingHint
			break
		}
	}
	return presented
}

func accessibilityNeeds(profile models.AccessibilityProfile) []string {
	var needs []string
	if profile.Visual {
		needs = append(needs, "visual")
	}
	if profile.Hearing {
		needs = append(needs, "hearing")
	}
	if profile.Motor {
		needs = append(needs, "motor")
	}
	if profile.Cognitive {
		needs = append(needs, "cognitive")
	}
	return needs
}
