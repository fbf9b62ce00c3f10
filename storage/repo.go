// Package storage defines the key/value persistence used for client-side
// state such as the authenticated session and user preferences.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when nothing is stored under the key.
var ErrNotFound = errors.New("storage: key not found")

// Repo persists opaque values under store-scoped keys.
type Repo interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Closer is implemented by repos holding connections or file handles.
type Closer interface {
	Close() error
}
