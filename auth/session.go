package auth

import (
	"errors"

	"github.com/loaa/reading-console/models"
)

// ErrInvalidCredentials is returned for a missing user, an inactive user, or
// a password mismatch. The three cases are indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Directory is the read surface Login needs from the user directory.
type Directory interface {
	UserByName(username string) (models.User, bool)
}

// Session tracks the identity and role bound to one command stream. Only
// Login and Logout may change it.
type Session struct {
	CurrentUser string
	CurrentRole string
}

// NewSession returns a guest session.
func NewSession() *Session {
	return &Session{CurrentUser: "guest", CurrentRole: models.RoleGuest}
}

// Login verifies the credentials against the directory and, on success,
// binds the session to the user's name and stored role.
func (s *Session) Login(dir Directory, username, password string) error {
	u, ok := dir.UserByName(username)
	if !ok || !u.Active || u.Password != password {
		return ErrInvalidCredentials
	}
	s.CurrentUser = u.Username
	s.CurrentRole = u.Role
	return nil
}

// Logout always succeeds and resets the session to guest.
func (s *Session) Logout() {
	s.CurrentUser = "guest"
	s.CurrentRole = models.RoleGuest
}

// Authenticated reports whether the session is bound to a real user.
func (s *Session) Authenticated() bool {
	return s.CurrentRole != models.RoleGuest
}
