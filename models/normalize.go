package models

import (
	"time"

	"github.com/google/uuid"
)

// Normalization fills in fields that older snapshots may lack. It runs once
// when records are deserialized from a persistence backend; call sites can
// then rely on fully populated records.

// NormalizeUser defaults the role to member and backfills CreatedAt.
func NormalizeUser(u User, now time.Time) User {
	switch u.Role {
	case RoleAdmin, RoleMember:
	default:
		u.Role = RoleMember
	}
	if u.Username == BootstrapAdmin {
		u.Role = RoleAdmin
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	return u
}

// NormalizeBook defaults the owner to the bootstrap admin, guarantees a
// non-nil comment slice, floors negative page counts and clamps PagesRead.
func NormalizeBook(b Book, now time.Time) Book {
	if b.Owner == "" {
		b.Owner = BootstrapAdmin
	}
	if b.Author == "" {
		b.Author = "Unknown"
	}
	if b.Comments == nil {
		b.Comments = []Comment{}
	}
	if b.TotalPages < 0 {
		b.TotalPages = 0
	}
	if b.PagesRead < 0 {
		b.PagesRead = 0
	}
	if b.TotalPages > 0 && b.PagesRead > b.TotalPages {
		b.PagesRead = b.TotalPages
	}
	if b.LastUpdate.IsZero() {
		b.LastUpdate = now
	}
	return b
}

// NormalizeEvent assigns a stable identity to events that predate identity
// assignment so snapshot pushes can be deduplicated.
func NormalizeEvent(e Event, now time.Time) Event {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OwnerUser == "" {
		e.OwnerUser = e.ActingUser
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	return e
}
