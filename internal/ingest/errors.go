package ingest

import (
	"errors"
	"fmt"
)

// ErrNotFound signals a lookup by id that matched nothing.
var ErrNotFound = errors.New("not found")

// ValidationError rejects a request before any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InvalidParentError means a chapter referenced a story that does not exist
// or is not a story record.
type InvalidParentError struct {
	StoryID string
}

func (e *InvalidParentError) Error() string {
	return fmt.Sprintf("story %s not found", e.StoryID)
}

// PersistenceError wraps a repository write or lookup failure for one item.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
