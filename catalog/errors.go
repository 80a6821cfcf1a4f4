package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation error")

	ErrNotFound      = errors.New("not found")
	ErrGuideNotFound = fmt.Errorf("guide %w", ErrNotFound)
	ErrTrackNotFound = fmt.Errorf("track %w", ErrNotFound)

	// ErrStorage is matched by every *StorageError.
	ErrStorage = errors.New("storage failure")
)

// FieldError describes one invalid input field.
//
// Loc is the path to the field, e.g. ["body", "tracks", 0, "duration"].
type FieldError struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// ValidationError is returned for malformed, missing or out-of-range input.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%v: %s", f.Loc, f.Msg))
	}
	return "validation error: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StorageError is returned when the backing medium fails.
// It is fatal to the operation and never retried.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: storage failure: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// StorageFailure wraps err in a *StorageError, or returns nil.
func StorageFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
