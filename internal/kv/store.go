// Package kv is the client-local key-value persistence used for session state and
// usage counters. Values are opaque bytes; writes are atomic per key.
package kv

import (
	"context"
	"errors"
)

var (
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("kv: store closed")
	// ErrNotCounter is returned by Incr when the stored value is not a decimal count.
	ErrNotCounter = errors.New("kv: value is not a counter")
)

// Store is the persistence contract injected into the session and usage packages.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists keys starting with prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	Close() error
}

// Counter is implemented by stores that can add to a decimal counter in one
// atomic step, across processes sharing the same backing file.
type Counter interface {
	// Incr adds delta to the counter at key, treating a missing key as zero, and
	// returns the new value.
	Incr(ctx context.Context, key string, delta int) (int, error)
}
