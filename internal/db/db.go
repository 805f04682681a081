// Package db defines the storage contracts shared by the catalog store
// and the optional Redis-backed cache tier.
package db

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for storage operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
)

// Op constants map to command names for error context.
const (
	OpGet  = "GET"
	OpSet  = "SET"
	OpPing = "PING"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// KVStore provides the key-value operations needed by the shared
// embedding cache. Consumers use this narrow interface, not a concrete
// client.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Pinger checks store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}
