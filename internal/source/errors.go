package source

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a source has no value for a name.
	ErrNotFound = errors.New("not found")
	// ErrNoSource is returned when a Set has no source registered for a kind.
	ErrNoSource = errors.New("source not configured")
)

// LookupError ties a failed lookup to the source and name that caused it.
type LookupError struct {
	Source string
	Name   string
	Err    error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s lookup %q: %v", e.Source, e.Name, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}
