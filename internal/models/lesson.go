package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Lesson is a candidate item for the recommendation pool: a lesson or a
// targeted intervention, tagged with the delivery formats it supports and the
// accommodations it implements.
type Lesson struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	Subject    Subject        `json:"subject" gorm:"not null;index;size:50"`
	Title      string         `json:"title" gorm:"not null;size:200"`
	Difficulty DifficultyTier `json:"difficulty" gorm:"default:medium;index"`

	EstimatedTimeMinutes int `json:"estimated_time_minutes" gorm:"default:15"`

	// Delivery formats: "text", "audio", "visual", "interactive"
	Formats datatypes.JSON `json:"formats" gorm:"type:jsonb"`
	// Accommodation tags this lesson implements, matched against
	// LearningDifficulty.RecommendedAccommodations
	Accommodations datatypes.JSON `json:"accommodations" gorm:"type:jsonb"`
	// Culture codes the content was authored or localized for
	Cultures datatypes.JSON `json:"cultures" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func decodeStrings(raw datatypes.JSON) []string {
	var out []string
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return out
}

func (l *Lesson) FormatList() []string        { return decodeStrings(l.Formats) }
func (l *Lesson) AccommodationList() []string { return decodeStrings(l.Accommodations) }
func (l *Lesson) CultureList() []string       { return decodeStrings(l.Cultures) }

// HasFormat reports whether the lesson supports a delivery format.
func (l *Lesson) HasFormat(format string) bool {
	for _, f := range l.FormatList() {
		if f == format {
			return true
		}
	}
	return false
}
