// Package backendstore implements the backend node's persistence layer
// and the dispatcher that turns db_set/db_get/db_delete wire requests
// into calls against it.
package backendstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get/Delete when the key has no row.
var ErrNotFound = errors.New("backendstore: key not found")

// Backend is the persistence contract the dispatcher depends on, so
// tests can substitute an in-memory store for a live PostgreSQL
// instance.
type Backend interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error // ErrNotFound if no row existed
	Close()
}
