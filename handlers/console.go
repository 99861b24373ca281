// Package handlers maps console command tokens to handlers. Each handler
// validates its arguments, consults authorization, performs at most one
// catalog/directory mutation plus one event-log append, and returns a
// single result for the caller to render. Handlers never write to any UI
// surface themselves.
package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/loaa/reading-console/auth"
	"github.com/loaa/reading-console/models"
	"github.com/loaa/reading-console/state"
	"github.com/loaa/reading-console/store"
)

// Result is the single outcome of one command: either output lines or an
// error, never both.
type Result struct {
	Lines []string
	Err   error
}

func ok(lines ...string) Result { return Result{Lines: lines} }

func fail(err error) Result { return Result{Err: err} }

// Console owns the application state for one command stream: the explicit
// replacement for the original's top-level mutable globals.
type Console struct {
	State   *state.State
	Store   store.Store
	Session *auth.Session

	// Now is swappable in tests; defaults to time.Now.
	Now func() time.Time
}

func NewConsole(st *state.State, s store.Store, session *auth.Session) *Console {
	return &Console{State: st, Store: s, Session: session, Now: time.Now}
}

type handlerFunc func(c *Console, ctx context.Context, args []string) Result

var commands = map[string]handlerFunc{
	"help":       (*Console).cmdHelp,
	"list":       (*Console).cmdList,
	"view":       (*Console).cmdView,
	"search":     (*Console).cmdSearch,
	"stats":      (*Console).cmdStats,
	"feed":       (*Console).cmdFeed,
	"streak":     (*Console).cmdStreak,
	"activity":   (*Console).cmdActivity,
	"login":      (*Console).cmdLogin,
	"logout":     (*Console).cmdLogout,
	"changepass": (*Console).cmdChangepass,
	"createuser": (*Console).cmdCreateUser,
	"removeuser": (*Console).cmdRemoveUser,
	"listusers":  (*Console).cmdListUsers,
	"setpass":    (*Console).cmdSetpass,
	"add":        (*Console).cmdAdd,
	"edit":       (*Console).cmdEdit,
	"update":     (*Console).cmdUpdate,
	"comment":    (*Console).cmdComment,
	"remove":     (*Console).cmdRemove,
}

// Dispatch routes one already-tokenized command line. The first token is the
// case-insensitive command name; an unknown name is a recoverable result,
// never fatal.
func (c *Console) Dispatch(ctx context.Context, args []string) Result {
	if len(args) == 0 {
		return ok()
	}
	name := strings.ToLower(args[0])
	h, found := commands[name]
	if !found {
		return ok("Unknown command: " + name)
	}
	return h(c, ctx, args[1:])
}

func (c *Console) cmdHelp(ctx context.Context, args []string) Result {
	return ok(
		"Available commands:",
		"  help                          - show this help",
		"  list [owner]                  - list books, optionally one user's",
		"  view <id>                     - view book details and comments",
		"  search <text>                 - search by title/author",
		"  stats                         - aggregate reading stats",
		"  feed [user]                   - recent activity grouped by book",
		"  streak [user|all]             - 7-day reading streak",
		"  activity                      - most recent activity",
		"  login <user>                  - log in",
		"  logout                        - back to guest",
		"  changepass                    - change your own password",
		"Authenticated:",
		"  add <title> <author> <pages>  - add a book you own",
		"  edit <id> [title=] [author=] [pages=]",
		"  update <id> <pagesRead>       - update reading progress",
		"  comment <id> <text>           - comment on any book",
		"  remove <id>                   - remove a book you own",
		"Admin-only:",
		"  createuser <name>             - create a member account",
		"  removeuser <name>             - remove an account",
		"  listusers                     - list accounts by role",
		"  setpass <name>                - reset a member's password",
	)
}

// persistBook writes the book mutation and its event, then applies both to
// the in-memory state. The event is never appended for a write that did not
// durably succeed; if the event append fails, the book write is rolled back
// to its previous record so log and catalog stay consistent.
func (c *Console) persistBook(ctx context.Context, prev *models.Book, b models.Book, ev models.Event) (models.Event, error) {
	if err := c.Store.SaveBook(ctx, b); err != nil {
		return models.Event{}, err
	}
	stored, err := c.Store.AppendEvent(ctx, ev)
	if err != nil {
		if prev != nil {
			_ = c.Store.SaveBook(ctx, *prev)
		} else {
			_ = c.Store.DeleteBook(ctx, b.ID)
		}
		return models.Event{}, err
	}
	c.State.PutBook(b)
	c.State.AppendEvent(stored)
	return stored, nil
}

// persistBookRemoval mirrors persistBook for deletes.
func (c *Console) persistBookRemoval(ctx context.Context, removed models.Book, ev models.Event) error {
	if err := c.Store.DeleteBook(ctx, removed.ID); err != nil {
		return err
	}
	stored, err := c.Store.AppendEvent(ctx, ev)
	if err != nil {
		_ = c.Store.SaveBook(ctx, removed)
		return err
	}
	c.State.DeleteBook(removed.ID)
	c.State.AppendEvent(stored)
	return nil
}

// persistUser writes a directory mutation and its event, applying both to
// memory only after the writes confirm. prev is the record to restore when
// the event append fails (nil for a brand-new user).
func (c *Console) persistUser(ctx context.Context, prev *models.User, u models.User, ev models.Event) error {
	if err := c.Store.SaveUser(ctx, u); err != nil {
		return err
	}
	stored, err := c.Store.AppendEvent(ctx, ev)
	if err != nil {
		if prev != nil {
			_ = c.Store.SaveUser(ctx, *prev)
		} else {
			_ = c.Store.DeleteUser(ctx, u.Username)
		}
		return err
	}
	c.State.PutUser(u)
	c.State.AppendEvent(stored)
	return nil
}

// persistUserRemoval mirrors persistUser for deletes.
func (c *Console) persistUserRemoval(ctx context.Context, removed models.User, ev models.Event) error {
	if err := c.Store.DeleteUser(ctx, removed.Username); err != nil {
		return err
	}
	stored, err := c.Store.AppendEvent(ctx, ev)
	if err != nil {
		_ = c.Store.SaveUser(ctx, removed)
		return err
	}
	c.State.DeleteUser(removed.Username)
	c.State.AppendEvent(stored)
	return nil
}
