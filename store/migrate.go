package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// MigrationResult reports what one migration run did.
type MigrationResult struct {
	AlreadyDone  bool
	UsersCopied  int
	BooksCopied  int
	EventsCopied int
}

// Migrate copies pre-existing local-only state into the remote store the
// first time the remote-backed console runs. The marker is set only after
// every write succeeded, so a failed run re-checks on the next launch;
// records written by an earlier partial run are detected as already present
// and skipped. Event copies are at-least-once: re-appending a stored
// identity is tolerated by the stores.
func Migrate(ctx context.Context, local Store, marker Marker, remote Store, log zerolog.Logger) (MigrationResult, error) {
	var res MigrationResult

	done, err := marker.MigrationDone(ctx)
	if err != nil {
		return res, fmt.Errorf("migration: %w", err)
	}
	if done {
		res.AlreadyDone = true
		log.Debug().Msg("migration already completed")
		return res, nil
	}

	localUsers, err := local.LoadUsers(ctx)
	if err != nil {
		return res, fmt.Errorf("migration: %w", err)
	}
	localBooks, err := local.LoadBooks(ctx)
	if err != nil {
		return res, fmt.Errorf("migration: %w", err)
	}
	localEvents, err := local.LoadEvents(ctx, DefaultEventLimit)
	if err != nil {
		return res, fmt.Errorf("migration: %w", err)
	}

	if len(localUsers) == 0 && len(localBooks) == 0 && len(localEvents) == 0 {
		if err := marker.SetMigrationDone(ctx); err != nil {
			return res, fmt.Errorf("migration: %w", err)
		}
		log.Info().Msg("no local data to migrate")
		return res, nil
	}

	remoteUsers, err := remote.LoadUsers(ctx)
	if err != nil {
		return res, fmt.Errorf("migration: %w", err)
	}
	remoteBooks, err := remote.LoadBooks(ctx)
	if err != nil {
		return res, fmt.Errorf("migration: %w", err)
	}
	remoteBookIDs := make(map[int64]bool, len(remoteBooks))
	for _, b := range remoteBooks {
		remoteBookIDs[b.ID] = true
	}

	for name, u := range localUsers {
		if _, ok := remoteUsers[name]; ok {
			continue
		}
		if err := remote.SaveUser(ctx, u); err != nil {
			return res, fmt.Errorf("migration: user %s: %w", name, err)
		}
		res.UsersCopied++
	}

	for _, b := range localBooks {
		if remoteBookIDs[b.ID] {
			continue
		}
		if err := remote.SaveBook(ctx, b); err != nil {
			return res, fmt.Errorf("migration: book %d: %w", b.ID, err)
		}
		res.BooksCopied++
	}

	for _, e := range localEvents {
		if _, err := remote.AppendEvent(ctx, e); err != nil {
			return res, fmt.Errorf("migration: event %s: %w", e.ID, err)
		}
		res.EventsCopied++
	}

	if err := marker.SetMigrationDone(ctx); err != nil {
		return res, fmt.Errorf("migration: %w", err)
	}
	log.Info().
		Int("users", res.UsersCopied).
		Int("books", res.BooksCopied).
		Int("events", res.EventsCopied).
		Msg("local data migrated to remote store")
	return res, nil
}
