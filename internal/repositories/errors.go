package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// NotFoundError identifies a missing row across all repositories so services
// can map it to a 404 regardless of which entity was asked for.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// IsNotFoundError reports whether err represents a missing record, either our
// typed error or gorm's sentinel.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var nf *NotFoundError
	return errors.As(err, &nf) || errors.Is(err, gorm.ErrRecordNotFound)
}
