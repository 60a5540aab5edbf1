package query

import "time"

// Status is the lifecycle state of a cache entry
type Status int

const (
	// StatusPending means the request has not settled
	StatusPending Status = iota
	// StatusError means the request failed
	StatusError
	// StatusSuccess means the value is available
	StatusSuccess
)

// String returns the string representation of a Status
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusError:
		return "error"
	case StatusSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// Entry is a point-in-time snapshot of a cached request
type Entry struct {
	Key       Key
	Status    Status
	Value     any
	Err       error
	UpdatedAt time.Time
}

// Settled reports whether the entry has left the pending state
func (e Entry) Settled() bool {
	return e.Status != StatusPending
}

// record is the mutable cell behind an Entry. It is only touched with the
// owning cache's mutex held.
type record struct {
	entry Entry
	done  chan struct{}
	subs  map[string]*Subscription
}
