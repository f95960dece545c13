// Package storage defines the durable key/value store backing device identity
// and session persistence. Backends hold single-string values keyed by name
// (access_token, refresh_token, device_id); nothing outside this package
// touches the underlying medium directly.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value has been stored under the key.
var ErrNotFound = errors.New("storage: key not found")

// ErrBackendUnavailable wraps transport or I/O failures of the underlying store.
var ErrBackendUnavailable = errors.New("storage: backend unavailable")

// Backend is the minimal persistence contract. Implementations must be safe
// for concurrent use and must treat Set as an atomic overwrite.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
