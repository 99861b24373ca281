package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercent(t *testing.T) {
	b := Book{PagesRead: 0, TotalPages: 0}
	assert.Equal(t, 0, b.Percent())

	b = Book{PagesRead: 156, TotalPages: 552}
	assert.Equal(t, 28, b.Percent())

	b = Book{PagesRead: 220, TotalPages: 220}
	assert.Equal(t, 100, b.Percent())
	assert.True(t, b.Finished())

	// A book edited below its progress reads above 100% until the next
	// update.
	b = Book{PagesRead: 300, TotalPages: 200}
	assert.Equal(t, 150, b.Percent())
}

func TestNormalizeBook(t *testing.T) {
	now := time.Now()

	b := NormalizeBook(Book{ID: 1, Title: "Demian"}, now)
	assert.Equal(t, BootstrapAdmin, b.Owner)
	assert.Equal(t, "Unknown", b.Author)
	require.NotNil(t, b.Comments)
	assert.Empty(t, b.Comments)
	assert.Equal(t, now, b.LastUpdate)

	b = NormalizeBook(Book{ID: 2, Owner: "bob", PagesRead: 500, TotalPages: 320}, now)
	assert.Equal(t, "bob", b.Owner)
	assert.Equal(t, 320, b.PagesRead, "progress clamps to total on load")

	b = NormalizeBook(Book{ID: 3, PagesRead: -5, TotalPages: -1}, now)
	assert.Equal(t, 0, b.PagesRead)
	assert.Equal(t, 0, b.TotalPages)
}

func TestNormalizeUser(t *testing.T) {
	now := time.Now()

	u := NormalizeUser(User{Username: "bob"}, now)
	assert.Equal(t, RoleMember, u.Role)
	assert.Equal(t, now, u.CreatedAt)

	u = NormalizeUser(User{Username: BootstrapAdmin, Role: RoleMember}, now)
	assert.Equal(t, RoleAdmin, u.Role, "bootstrap admin always holds the admin role")
}

func TestNormalizeEventAssignsIdentity(t *testing.T) {
	now := time.Now()

	e := NormalizeEvent(Event{Type: EventProgress, ActingUser: "bob"}, now)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "bob", e.OwnerUser)
	assert.Equal(t, now, e.Timestamp)

	e2 := NormalizeEvent(Event{ID: "fixed", OwnerUser: "alice", Timestamp: now}, now)
	assert.Equal(t, "fixed", e2.ID)
	assert.Equal(t, "alice", e2.OwnerUser)
}
