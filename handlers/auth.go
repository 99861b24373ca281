package handlers

import (
	"context"
	"fmt"

	"github.com/loaa/reading-console/auth"
	"github.com/loaa/reading-console/models"
)

func (c *Console) cmdLogin(ctx context.Context, args []string) Result {
	if len(args) != 2 {
		return fail(usage("login <username> <password>"))
	}
	if err := c.Session.Login(c.State, args[0], args[1]); err != nil {
		return fail(err)
	}
	return ok(fmt.Sprintf("Logged in as %s (%s).", c.Session.CurrentUser, c.Session.CurrentRole))
}

func (c *Console) cmdLogout(ctx context.Context, args []string) Result {
	c.Session.Logout()
	return ok("Logged out.")
}

// cmdChangepass sets the acting user's own password. The old password must
// match before anything is written.
func (c *Console) cmdChangepass(ctx context.Context, args []string) Result {
	if err := auth.RequireAuthenticated(c.Session); err != nil {
		return fail(err)
	}
	if len(args) != 2 {
		return fail(usage("changepass <oldPassword> <newPassword>"))
	}
	oldPassword, newPassword := args[0], args[1]
	if newPassword == "" {
		return fail(usage("changepass <oldPassword> <newPassword>"))
	}
	u, exists := c.State.UserByName(c.Session.CurrentUser)
	if !exists {
		return fail(&NotFoundError{Kind: "user", Key: c.Session.CurrentUser})
	}
	if u.Password != oldPassword {
		return fail(auth.ErrInvalidCredentials)
	}

	prev := u
	u.Password = newPassword
	ev := models.Event{
		Type:       models.EventPasswordSelf,
		ActingUser: c.Session.CurrentUser,
		TargetUser: c.Session.CurrentUser,
		Timestamp:  c.Now(),
	}
	if err := c.persistUser(ctx, &prev, u, ev); err != nil {
		return fail(err)
	}
	return ok("Password changed.")
}
