package store

import (
	"context"
	"errors"
)

// State is the lifecycle state of a stored preview.
type State string

const (
	StatePending State = "pending"
	StateLoaded  State = "loaded"
	StateFailed  State = "failed"
)

var (
	// ErrNotFound is returned by Get when no object exists for the key.
	ErrNotFound = errors.New("store: object not found")
	// ErrUnavailable wraps any failure of the underlying storage backend.
	ErrUnavailable = errors.New("store: unavailable")
)

// Metadata is stored alongside every object.
// ContentType is empty for pending entries.
type Metadata struct {
	State       State
	ContentType string
}

// ObjectStore is a durable key/value blob store with per-object metadata.
// Objects are never expired or purged by the store itself.
//
// Implementations must be thread-safe!
type ObjectStore interface {
	// Head returns the metadata of the object stored under key, without the payload.
	// The boolean is false if no object exists.
	Head(ctx context.Context, key string) (Metadata, bool, error)
	// Get returns the payload and metadata of the object stored under key.
	// It returns ErrNotFound if no object exists.
	Get(ctx context.Context, key string) ([]byte, Metadata, error)
	// Put stores the object under key, fully replacing any previous object.
	Put(ctx context.Context, key string, data []byte, meta Metadata) error
}
