package auth

import (
	"errors"

	"github.com/loaa/reading-console/models"
)

// Permission errors returned by the checks below. Handlers surface them as a
// PermissionDenied result; none of them terminate the session.
var (
	ErrAdminOnly     = errors.New("permission denied: admin only")
	ErrLoginRequired = errors.New("permission denied: login required")
	ErrNotOwner      = errors.New("permission denied: not the owner")
)

// CanMutate reports whether the session may mutate a resource owned by
// resourceOwner: admins always, everyone else only their own resources.
func CanMutate(s *Session, resourceOwner string) bool {
	if s.CurrentRole == models.RoleAdmin {
		return true
	}
	return resourceOwner == s.CurrentUser
}

// RequireAdmin fails with ErrAdminOnly unless the session holds the admin role.
func RequireAdmin(s *Session) error {
	if s.CurrentRole != models.RoleAdmin {
		return ErrAdminOnly
	}
	return nil
}

// RequireAuthenticated fails with ErrLoginRequired for guest sessions.
func RequireAuthenticated(s *Session) error {
	if !s.Authenticated() {
		return ErrLoginRequired
	}
	return nil
}
