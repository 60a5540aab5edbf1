package query

import (
	"context"
)

// Store is an optional second tier behind the in-memory cache. A cold
// process consults it before going to the network and writes resolved
// values through to it. Implementations must be safe for concurrent use.
type Store interface {
	// Load returns the stored value for key; ok is false on a miss
	Load(ctx context.Context, key Key) (value any, ok bool, err error)

	// Save stores a resolved value
	Save(ctx context.Context, key Key, value any) error

	// Close releases any resources held by the store
	Close() error
}
