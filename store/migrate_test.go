package store

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loaa/reading-console/models"
)

func seedLocal(t *testing.T) *Memory {
	t.Helper()
	local := NewMemory()
	ctx := context.Background()

	require.NoError(t, local.SaveUser(ctx, models.User{
		Username: "loaa", Password: "books!2026", Role: models.RoleAdmin, Active: true,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, local.SaveUser(ctx, models.User{
		Username: "bob", Password: "x", Role: models.RoleMember, Active: true,
		CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, local.SaveBook(ctx, models.Book{ID: 1, Owner: "loaa", Title: "Demian", Author: "Hesse", TotalPages: 220, PagesRead: 120}))
	require.NoError(t, local.SaveBook(ctx, models.Book{ID: 5, Owner: "bob", Title: "Dune", Author: "Herbert", TotalPages: 600}))
	_, err := local.AppendEvent(ctx, models.Event{
		ID: "ev-1", Type: models.EventProgress, ActingUser: "loaa", BookID: 1,
		ToPages: 120, DeltaPages: 120, Timestamp: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return local
}

func TestMigrateCopiesEverything(t *testing.T) {
	local := seedLocal(t)
	remote := NewMemory()
	ctx := context.Background()

	res, err := Migrate(ctx, local, local, remote, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, res.AlreadyDone)
	assert.Equal(t, 2, res.UsersCopied)
	assert.Equal(t, 2, res.BooksCopied)
	assert.Equal(t, 1, res.EventsCopied)

	users, _ := remote.LoadUsers(ctx)
	assert.Len(t, users, 2)
	books, _ := remote.LoadBooks(ctx)
	assert.Len(t, books, 2)
	events, _ := remote.LoadEvents(ctx, 0)
	require.Len(t, events, 1)
	assert.Equal(t, "ev-1", events[0].ID)

	done, err := local.MigrationDone(ctx)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestMigrateIdempotent(t *testing.T) {
	local := seedLocal(t)
	remote := NewMemory()
	ctx := context.Background()

	_, err := Migrate(ctx, local, local, remote, zerolog.Nop())
	require.NoError(t, err)
	writesAfterFirst := remote.Writes()

	res, err := Migrate(ctx, local, local, remote, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, res.AlreadyDone)
	assert.Zero(t, res.UsersCopied+res.BooksCopied+res.EventsCopied)
	assert.Equal(t, writesAfterFirst, remote.Writes(), "a completed migration never writes again")
}

func TestMigrateSkipsRecordsAlreadyRemote(t *testing.T) {
	local := seedLocal(t)
	remote := NewMemory()
	ctx := context.Background()

	// Simulate an earlier partial run: one user and one book already copied.
	require.NoError(t, remote.SaveUser(ctx, models.User{Username: "bob", Password: "remote-pw", Role: models.RoleMember, Active: true}))
	require.NoError(t, remote.SaveBook(ctx, models.Book{ID: 5, Owner: "bob", Title: "Dune", Author: "Herbert", TotalPages: 600, PagesRead: 50}))

	res, err := Migrate(ctx, local, local, remote, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 1, res.UsersCopied)
	assert.Equal(t, 1, res.BooksCopied)

	// Remote copies win; the local duplicates are not re-written.
	users, _ := remote.LoadUsers(ctx)
	assert.Equal(t, "remote-pw", users["bob"].Password)
	books, _ := remote.LoadBooks(ctx)
	require.Len(t, books, 2)
	for _, b := range books {
		if b.ID == 5 {
			assert.Equal(t, 50, b.PagesRead)
		}
	}
}

func TestMigrateEmptyLocalMarksDone(t *testing.T) {
	local := NewMemory()
	remote := NewMemory()
	ctx := context.Background()

	res, err := Migrate(ctx, local, local, remote, zerolog.Nop())
	require.NoError(t, err)
	assert.Zero(t, res.UsersCopied+res.BooksCopied+res.EventsCopied)
	assert.Zero(t, remote.Writes())

	done, err := local.MigrationDone(ctx)
	require.NoError(t, err)
	assert.True(t, done, "an empty local store still completes the migration")
}

func TestMigrateEventReappendTolerated(t *testing.T) {
	local := seedLocal(t)
	remote := NewMemory()
	ctx := context.Background()

	// The event from a partial run is already remote; re-appending it is a
	// no-op, not a failure.
	_, err := remote.AppendEvent(ctx, models.Event{ID: "ev-1", Type: models.EventProgress, ActingUser: "loaa", BookID: 1})
	require.NoError(t, err)

	_, err = Migrate(ctx, local, local, remote, zerolog.Nop())
	require.NoError(t, err)
	events, _ := remote.LoadEvents(ctx, 0)
	assert.Len(t, events, 1)
}
