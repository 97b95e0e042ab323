package entities

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedMatch is returned when a match payload lacks required metadata or roster fields
	ErrMalformedMatch = errors.New("malformed match payload")

	// ErrAccountNotFound is returned when an account is not tracked
	ErrAccountNotFound = errors.New("tracked account not found")

	// ErrAccountAlreadyTracked is returned when registering an account twice
	ErrAccountAlreadyTracked = errors.New("account is already tracked")

	// ErrInvalidRequest wraps validation failures of roster operations
	ErrInvalidRequest = errors.New("invalid request")
)

// SourceUnavailableError is returned when the match source answers with a non-success status
type SourceUnavailableError struct {
	Status int
	Body   string
}

func (e *SourceUnavailableError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("match source unavailable: status %d", e.Status)
	}
	return fmt.Sprintf("match source unavailable: status %d, body: %s", e.Status, e.Body)
}

// IsSourceUnavailable reports whether err wraps a SourceUnavailableError
func IsSourceUnavailable(err error) bool {
	var sue *SourceUnavailableError
	return errors.As(err, &sue)
}
