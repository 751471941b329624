package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	// Source identifies this service in every published event
	Source = "adaptive-assessment-service"

	// Event types consumed by downstream learner-profile and notification services
	TypeSessionCompleted   = "assessment.session_completed"
	TypeSessionAbandoned   = "assessment.session_abandoned"
	TypeDifficultyDetected = "assessment.difficulty_detected"
)

// Event is the envelope for every message this service publishes.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent builds an envelope with a fresh ID and timestamp.
func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    Source,
		Version:   "1.0",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher abstracts the message broker so services can be tested
// without one.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// SessionCompletedEvent is the payload for TypeSessionCompleted.
type SessionCompletedEvent struct {
	SessionID       string  `json:"session_id"`
	StudentID       string  `json:"student_id"`
	Subject         string  `json:"subject"`
	Score           float64 `json:"score"`
	Mastery         float64 `json:"mastery"`
	ResponseCount   int     `json:"response_count"`
	DifficultyCount int     `json:"difficulty_count"`
}

// SessionAbandonedEvent is the payload for TypeSessionAbandoned.
type SessionAbandonedEvent struct {
	SessionID     string `json:"session_id"`
	StudentID     string `json:"student_id"`
	Subject       string `json:"subject"`
	ResponseCount int    `json:"response_count"`
	Reason        string `json:"reason"` // "cancelled" or "expired"
}

// DifficultyDetectedEvent is the payload for TypeDifficultyDetected, one per
// finding so consumers can route by severity.
type DifficultyDetectedEvent struct {
	SessionID      string   `json:"session_id"`
	StudentID      string   `json:"student_id"`
	Subject        string   `json:"subject"`
	DifficultyType string   `json:"difficulty_type"`
	Severity       string   `json:"severity"`
	Confidence     float64  `json:"confidence"`
	Accommodations []string `json:"accommodations"`
}
