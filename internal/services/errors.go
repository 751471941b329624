package services

import (
	"errors"
	"fmt"
)

// ===== SERVICE ERRORS =====

var (
	ErrSessionNotFound  = errors.New("assessment session not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrLessonNotFound   = errors.New("lesson not found")
	ErrResultNotFound   = errors.New("assessment result not found")

	// ErrSessionNotActive covers submissions against sessions that were never
	// activated or already reached a terminal status
	ErrSessionNotActive = errors.New("assessment session is not active")

	ErrSessionTerminal = errors.New("assessment session already finished")

	// ErrBankExhausted surfaces when the question pool has no unseen question
	// left for the session's subject
	ErrBankExhausted = errors.New("no unseen question available for session")

	ErrSessionNotCompleted = errors.New("assessment session has no results yet")

	// ErrQuestionNotIssued rejects answers to questions the session was never
	// asked
	ErrQuestionNotIssued = errors.New("question was not issued to this session")
)

// StateError carries the offending status alongside the sentinel so handlers
// can report what state the session was actually in.
type StateError struct {
	SessionID string
	Status    string
	Op        string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s session %s in status %q", e.Op, e.SessionID, e.Status)
}

func (e *StateError) Unwrap() error {
	return ErrSessionNotActive
}

func NewStateError(sessionID, status, op string) *StateError {
	return &StateError{SessionID: sessionID, Status: status, Op: op}
}
