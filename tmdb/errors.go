package tmdb

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrFetchFailed is the single error kind surfaced for any failed fetch
	ErrFetchFailed = errors.New("an error has occurred while fetching data")
	// ErrInvalidConfig indicates invalid client configuration
	ErrInvalidConfig = errors.New("invalid tmdb configuration")
)

// FetchError records why a fetch failed. Its message is always the generic
// ErrFetchFailed text and it unwraps only to ErrFetchFailed; Cause and
// StatusCode exist for logs.
type FetchError struct {
	Kind       Kind
	Endpoint   string
	StatusCode int
	Cause      error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	return ErrFetchFailed.Error()
}

// Unwrap exposes the sentinel so errors.Is(err, ErrFetchFailed) holds
func (e *FetchError) Unwrap() error {
	return ErrFetchFailed
}

// Detail describes the underlying cause for diagnostics
func (e *FetchError) Detail() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Kind, e.Endpoint, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Endpoint, e.Cause)
}
