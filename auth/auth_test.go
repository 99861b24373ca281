package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loaa/reading-console/models"
)

type fakeDirectory map[string]models.User

func (d fakeDirectory) UserByName(name string) (models.User, bool) {
	u, ok := d[name]
	return u, ok
}

func TestLogin(t *testing.T) {
	dir := fakeDirectory{
		"loaa":  {Username: "loaa", Password: "books!2026", Role: models.RoleAdmin, Active: true},
		"bob":   {Username: "bob", Password: "x", Role: models.RoleMember, Active: true},
		"stale": {Username: "stale", Password: "x", Role: models.RoleMember, Active: false},
	}

	t.Run("success binds user and role", func(t *testing.T) {
		s := NewSession()
		require.NoError(t, s.Login(dir, "loaa", "books!2026"))
		assert.Equal(t, "loaa", s.CurrentUser)
		assert.Equal(t, models.RoleAdmin, s.CurrentRole)
	})

	t.Run("wrong password", func(t *testing.T) {
		s := NewSession()
		assert.ErrorIs(t, s.Login(dir, "bob", "wrong"), ErrInvalidCredentials)
		assert.Equal(t, models.RoleGuest, s.CurrentRole)
	})

	t.Run("unknown user", func(t *testing.T) {
		s := NewSession()
		assert.ErrorIs(t, s.Login(dir, "nobody", "x"), ErrInvalidCredentials)
	})

	t.Run("inactive user", func(t *testing.T) {
		s := NewSession()
		assert.ErrorIs(t, s.Login(dir, "stale", "x"), ErrInvalidCredentials)
	})

	t.Run("logout resets to guest", func(t *testing.T) {
		s := NewSession()
		require.NoError(t, s.Login(dir, "bob", "x"))
		s.Logout()
		assert.Equal(t, "guest", s.CurrentUser)
		assert.Equal(t, models.RoleGuest, s.CurrentRole)
	})
}

func TestCanMutate(t *testing.T) {
	member := &Session{CurrentUser: "bob", CurrentRole: models.RoleMember}
	admin := &Session{CurrentUser: "bob", CurrentRole: models.RoleAdmin}
	guest := NewSession()

	assert.False(t, CanMutate(member, "alice"), "member may not touch another's book")
	assert.True(t, CanMutate(admin, "alice"), "admin may touch anyone's book")
	assert.True(t, CanMutate(member, "bob"), "owner may touch their own book")
	assert.False(t, CanMutate(guest, "alice"))
}

func TestRequireChecks(t *testing.T) {
	guest := NewSession()
	member := &Session{CurrentUser: "bob", CurrentRole: models.RoleMember}
	admin := &Session{CurrentUser: "loaa", CurrentRole: models.RoleAdmin}

	assert.ErrorIs(t, RequireAuthenticated(guest), ErrLoginRequired)
	assert.NoError(t, RequireAuthenticated(member))
	assert.NoError(t, RequireAuthenticated(admin))

	assert.ErrorIs(t, RequireAdmin(guest), ErrAdminOnly)
	assert.ErrorIs(t, RequireAdmin(member), ErrAdminOnly)
	assert.NoError(t, RequireAdmin(admin))
}
