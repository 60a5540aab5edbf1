package view

import (
	"fmt"

	"github.com/s0up4200/marquee/query"
	"github.com/s0up4200/marquee/tmdb"
)

// State is the display state of one section
type State int

const (
	// StateLoading means the section's data has not arrived
	StateLoading State = iota
	// StateFailed means the section's fetch failed
	StateFailed
	// StateReady means the section's data is available
	StateReady
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateFailed:
		return "failed"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Remote holds exactly one of: nothing yet, an error, or a value
type Remote[T any] struct {
	State State
	Value T
	Err   error
}

// Loading returns a Remote in the loading state
func Loading[T any]() Remote[T] {
	return Remote[T]{State: StateLoading}
}

// Failed returns a Remote carrying err
func Failed[T any](err error) Remote[T] {
	return Remote[T]{State: StateFailed, Err: err}
}

// Ready returns a Remote carrying value
func Ready[T any](value T) Remote[T] {
	return Remote[T]{State: StateReady, Value: value}
}

func (r Remote[T]) IsLoading() bool { return r.State == StateLoading }
func (r Remote[T]) IsFailed() bool  { return r.State == StateFailed }
func (r Remote[T]) IsReady() bool   { return r.State == StateReady }

// FromEntry maps a cache entry to a Remote. A successful entry whose value is
// not a T is reported as failed.
func FromEntry[T any](e query.Entry) Remote[T] {
	switch e.Status {
	case query.StatusError:
		return Failed[T](e.Err)
	case query.StatusSuccess:
		value, ok := e.Value.(T)
		if !ok {
			var want T
			return Failed[T](fmt.Errorf("%w: %s entry holds %T, want %T", tmdb.ErrFetchFailed, e.Key.Kind, e.Value, want))
		}
		return Ready(value)
	default:
		return Loading[T]()
	}
}

// As narrows an untyped section state to T
func As[T any](r Remote[any]) Remote[T] {
	switch r.State {
	case StateFailed:
		return Failed[T](r.Err)
	case StateReady:
		value, ok := r.Value.(T)
		if !ok {
			var want T
			return Failed[T](fmt.Errorf("%w: section holds %T, want %T", tmdb.ErrFetchFailed, r.Value, want))
		}
		return Ready(value)
	default:
		return Loading[T]()
	}
}
