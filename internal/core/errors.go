package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrLowConfidence         = fmt.Errorf("%w: confidence below floor", ErrInvalidInput)
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrConflictingUpdate     = errors.New("conflicting update")
	ErrInconsistent          = errors.New("inconsistent state")
	ErrNotFound              = errors.New("not found")
	ErrDuplicate             = errors.New("duplicate")
)

// Unavailable marks err as a transient collaborator failure.
func Unavailable(what string, err error) error {
	return fmt.Errorf("%s: %w: %w", what, ErrDependencyUnavailable, err)
}
