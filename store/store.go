// Package store contains the persistence adapters the console core reads
// from at startup and writes through after each mutation. The remote
// (MongoDB) adapter additionally pushes full replacement snapshots back into
// the in-memory state; the local (SQLite) adapter is the single-user
// backend and the migration source.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/loaa/reading-console/models"
)

// DefaultEventLimit bounds how many recent events a load returns.
const DefaultEventLimit = 200

// opTimeout bounds every remote call; a timeout surfaces as a StorageError.
const opTimeout = 5 * time.Second

// Store is the persistence adapter contract consumed by the core.
// Subscriptions are optional: backends without realtime pushes return nil
// without ever invoking the callback.
type Store interface {
	LoadUsers(ctx context.Context) (map[string]models.User, error)
	LoadBooks(ctx context.Context) ([]models.Book, error)
	// LoadEvents returns at most limit events ordered by timestamp
	// descending.
	LoadEvents(ctx context.Context, limit int) ([]models.Event, error)

	SaveUser(ctx context.Context, u models.User) error
	DeleteUser(ctx context.Context, username string) error
	SaveBook(ctx context.Context, b models.Book) error
	DeleteBook(ctx context.Context, id int64) error
	// AppendEvent assigns an identity when the event has none and returns
	// the stored event. Re-appending an already-stored identity is not an
	// error (migration is at-least-once).
	AppendEvent(ctx context.Context, e models.Event) (models.Event, error)

	SubscribeBooks(ctx context.Context, fn func([]models.Book)) error
	SubscribeEvents(ctx context.Context, fn func([]models.Event)) error
	SubscribeUsers(ctx context.Context, fn func(map[string]models.User)) error

	Close(ctx context.Context) error
}

// Marker persists the one-time migration completion flag.
type Marker interface {
	MigrationDone(ctx context.Context) (bool, error)
	SetMigrationDone(ctx context.Context) error
}

// StorageError wraps any persistence I/O failure. Commands surface it as a
// failed result without mutating local state.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
