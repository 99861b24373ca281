package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/loaa/reading-console/auth"
	"github.com/loaa/reading-console/models"
)

func (c *Console) cmdCreateUser(ctx context.Context, args []string) Result {
	if err := auth.RequireAdmin(c.Session); err != nil {
		return fail(err)
	}
	if len(args) != 2 {
		return fail(usage("createuser <name> <password>"))
	}
	name := strings.TrimSpace(strings.ToLower(args[0]))
	password := args[1]
	if name == "" || password == "" {
		return fail(usage("createuser <name> <password>"))
	}
	if _, exists := c.State.UserByName(name); exists {
		return fail(ErrAlreadyExists)
	}

	now := c.Now()
	u := models.User{
		Username:  name,
		Password:  password,
		Role:      models.RoleMember,
		Active:    true,
		CreatedAt: now,
	}
	ev := models.Event{
		Type:       models.EventUserAdd,
		ActingUser: c.Session.CurrentUser,
		TargetUser: name,
		Timestamp:  now,
	}
	if err := c.persistUser(ctx, nil, u, ev); err != nil {
		return fail(err)
	}
	return ok(fmt.Sprintf("User %s created (member).", name))
}

func (c *Console) cmdRemoveUser(ctx context.Context, args []string) Result {
	if err := auth.RequireAdmin(c.Session); err != nil {
		return fail(err)
	}
	if len(args) != 1 {
		return fail(usage("removeuser <name>"))
	}
	name := strings.TrimSpace(strings.ToLower(args[0]))
	if name == models.BootstrapAdmin {
		return fail(ErrProtectedAccount)
	}
	u, exists := c.State.UserByName(name)
	if !exists {
		return fail(&NotFoundError{Kind: "user", Key: name})
	}

	ev := models.Event{
		Type:       models.EventUserRemove,
		ActingUser: c.Session.CurrentUser,
		TargetUser: name,
		Timestamp:  c.Now(),
	}
	if err := c.persistUserRemoval(ctx, u, ev); err != nil {
		return fail(err)
	}
	return ok(fmt.Sprintf("User %s removed.", name))
}

func (c *Console) cmdListUsers(ctx context.Context, args []string) Result {
	if err := auth.RequireAdmin(c.Session); err != nil {
		return fail(err)
	}
	users := c.State.Users()
	if len(users) == 0 {
		return ok("No users.")
	}
	var admins, members []string
	for _, u := range users {
		status := ""
		if !u.Active {
			status = " (inactive)"
		}
		line := fmt.Sprintf("  %s%s", u.Username, status)
		if u.Role == models.RoleAdmin {
			admins = append(admins, line)
		} else {
			members = append(members, line)
		}
	}
	lines := []string{"admins:"}
	lines = append(lines, admins...)
	lines = append(lines, "members:")
	if len(members) == 0 {
		lines = append(lines, "  (none)")
	} else {
		lines = append(lines, members...)
	}
	return ok(lines...)
}

func (c *Console) cmdSetpass(ctx context.Context, args []string) Result {
	if err := auth.RequireAdmin(c.Session); err != nil {
		return fail(err)
	}
	if len(args) != 2 {
		return fail(usage("setpass <name> <newPassword>"))
	}
	name := strings.TrimSpace(strings.ToLower(args[0]))
	newPassword := args[1]
	if name == "" || newPassword == "" {
		return fail(usage("setpass <name> <newPassword>"))
	}
	u, exists := c.State.UserByName(name)
	if !exists {
		return fail(&NotFoundError{Kind: "user", Key: name})
	}

	prev := u
	u.Password = newPassword
	ev := models.Event{
		Type:       models.EventPasswordAdmin,
		ActingUser: c.Session.CurrentUser,
		TargetUser: name,
		Timestamp:  c.Now(),
	}
	if err := c.persistUser(ctx, &prev, u, ev); err != nil {
		return fail(err)
	}
	return ok(fmt.Sprintf("Password reset for %s.", name))
}
