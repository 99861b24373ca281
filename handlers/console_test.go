package handlers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loaa/reading-console/auth"
	"github.com/loaa/reading-console/models"
	"github.com/loaa/reading-console/state"
	"github.com/loaa/reading-console/store"
)

func newTestConsole(t *testing.T) *Console {
	t.Helper()
	st := state.New()
	mem := store.NewMemory()
	ctx := context.Background()

	admin := models.User{
		Username:  models.BootstrapAdmin,
		Password:  models.BootstrapAdminPassword,
		Role:      models.RoleAdmin,
		Active:    true,
		CreatedAt: time.Now(),
	}
	require.NoError(t, mem.SaveUser(ctx, admin))
	st.PutUser(admin)

	c := NewConsole(st, mem, auth.NewSession())
	c.Now = func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) }
	return c
}

func dispatch(t *testing.T, c *Console, line string) Result {
	t.Helper()
	return c.Dispatch(context.Background(), strings.Fields(line))
}

func mustOK(t *testing.T, c *Console, line string) Result {
	t.Helper()
	res := dispatch(t, c, line)
	require.NoError(t, res.Err, "command %q", line)
	return res
}

// TestFullScenario walks the path a new shared console goes through: admin
// boots, adds a book, tracks progress, comments, creates a member who is
// then denied access to the admin's book, and finally removes the book.
func TestFullScenario(t *testing.T) {
	c := newTestConsole(t)

	mustOK(t, c, "login loaa books!2026")
	assert.Equal(t, models.RoleAdmin, c.Session.CurrentRole)

	res := c.Dispatch(context.Background(), []string{"add", "Demian", "Hermann Hesse", "220"})
	require.NoError(t, res.Err)
	assert.Contains(t, res.Lines[0], "id 1")

	b, found := c.State.BookByID(1)
	require.True(t, found)
	assert.Equal(t, "loaa", b.Owner)
	assert.Equal(t, 0, b.PagesRead)

	mustOK(t, c, "update 1 120")
	b, _ = c.State.BookByID(1)
	assert.Equal(t, 120, b.PagesRead)

	events := c.State.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, models.EventProgress, events[0].Type)
	assert.Equal(t, 0, events[0].FromPages)
	assert.Equal(t, 120, events[0].ToPages)
	assert.Equal(t, 120, events[0].DeltaPages)

	res = c.Dispatch(context.Background(), []string{"comment", "1", "Reread"})
	require.NoError(t, res.Err)
	b, _ = c.State.BookByID(1)
	require.Len(t, b.Comments, 1)
	assert.Equal(t, 120, b.Comments[0].PagesAt)

	mustOK(t, c, "createuser bob x")
	bob, exists := c.State.UserByName("bob")
	require.True(t, exists)
	assert.Equal(t, models.RoleMember, bob.Role)

	mustOK(t, c, "logout")
	mustOK(t, c, "login bob x")

	res = dispatch(t, c, "update 1 200")
	assert.ErrorIs(t, res.Err, auth.ErrNotOwner)
	b, _ = c.State.BookByID(1)
	assert.Equal(t, 120, b.PagesRead, "denied command must not mutate")

	mustOK(t, c, "logout")
	mustOK(t, c, "login loaa books!2026")
	mustOK(t, c, "remove 1")
	_, found = c.State.BookByID(1)
	assert.False(t, found)
	events = c.State.Events()
	assert.Equal(t, models.EventBookRemove, events[0].Type)
	assert.Empty(t, c.State.Books(""))
}

func TestProgressClamp(t *testing.T) {
	c := newTestConsole(t)
	mustOK(t, c, "login loaa books!2026")
	c.Dispatch(context.Background(), []string{"add", "Blindness", "Saramago", "320"})

	mustOK(t, c, "update 1 9999")
	b, _ := c.State.BookByID(1)
	assert.Equal(t, 320, b.PagesRead)

	// Progress can go backward; the delta is negative.
	mustOK(t, c, "update 1 100")
	ev := c.State.Events()[0]
	assert.Equal(t, -220, ev.DeltaPages)
}

func TestIDAssignmentNoReuse(t *testing.T) {
	c := newTestConsole(t)
	mustOK(t, c, "login loaa books!2026")
	ctx := context.Background()
	c.Dispatch(ctx, []string{"add", "A", "a", "10"})
	c.Dispatch(ctx, []string{"add", "B", "b", "10"})
	c.Dispatch(ctx, []string{"add", "C", "c", "10"})
	mustOK(t, c, "remove 3")
	c.Dispatch(ctx, []string{"add", "D", "d", "10"})

	books := c.State.Books("")
	require.Len(t, books, 3)
	assert.Equal(t, int64(4), books[2].ID, "ids are never reused")
}

func TestOwnershipImmutableUnderEdit(t *testing.T) {
	c := newTestConsole(t)
	mustOK(t, c, "login loaa books!2026")
	ctx := context.Background()
	c.Dispatch(ctx, []string{"add", "A", "a", "100"})
	mustOK(t, c, "createuser bob x")

	// Even an admin editing every field leaves the owner untouched.
	res := c.Dispatch(ctx, []string{"edit", "1", "title=New", "author=Someone", "pages=300"})
	require.NoError(t, res.Err)
	b, _ := c.State.BookByID(1)
	assert.Equal(t, "loaa", b.Owner)
	assert.Equal(t, "New", b.Title)
	assert.Equal(t, 300, b.TotalPages)
}

func TestEditBelowProgressKeepsPages(t *testing.T) {
	c := newTestConsole(t)
	mustOK(t, c, "login loaa books!2026")
	ctx := context.Background()
	c.Dispatch(ctx, []string{"add", "A", "a", "400"})
	mustOK(t, c, "update 1 300")

	res := c.Dispatch(ctx, []string{"edit", "1", "pages=200"})
	require.NoError(t, res.Err)
	b, _ := c.State.BookByID(1)
	assert.Equal(t, 300, b.PagesRead, "edit does not clamp; the book reads >100% until the next update")
	assert.Equal(t, 200, b.TotalPages)

	mustOK(t, c, "update 1 250")
	b, _ = c.State.BookByID(1)
	assert.Equal(t, 200, b.PagesRead)
}

func TestBootstrapAdminProtected(t *testing.T) {
	c := newTestConsole(t)
	mustOK(t, c, "login loaa books!2026")

	res := dispatch(t, c, "removeuser loaa")
	assert.ErrorIs(t, res.Err, ErrProtectedAccount)
	_, exists := c.State.UserByName(models.BootstrapAdmin)
	assert.True(t, exists)
}

func TestPermissionMatrix(t *testing.T) {
	c := newTestConsole(t)
	ctx := context.Background()

	// Guest: reads fine, mutations denied.
	assert.NoError(t, dispatch(t, c, "list").Err)
	assert.NoError(t, dispatch(t, c, "stats").Err)
	assert.ErrorIs(t, c.Dispatch(ctx, []string{"add", "A", "a", "10"}).Err, auth.ErrLoginRequired)
	assert.ErrorIs(t, dispatch(t, c, "createuser eve pw").Err, auth.ErrAdminOnly)

	// Member: own books fine, admin surface denied.
	mustOK(t, c, "login loaa books!2026")
	mustOK(t, c, "createuser bob x")
	mustOK(t, c, "logout")
	mustOK(t, c, "login bob x")
	assert.NoError(t, c.Dispatch(ctx, []string{"add", "Mine", "me", "50"}).Err)
	assert.ErrorIs(t, dispatch(t, c, "listusers").Err, auth.ErrAdminOnly)
	assert.ErrorIs(t, dispatch(t, c, "setpass bob y").Err, auth.ErrAdminOnly)
}

func TestCommentAllowedOnAnyBook(t *testing.T) {
	c := newTestConsole(t)
	ctx := context.Background()
	mustOK(t, c, "login loaa books!2026")
	c.Dispatch(ctx, []string{"add", "Shared", "x", "100"})
	mustOK(t, c, "createuser bob x")
	mustOK(t, c, "logout")
	mustOK(t, c, "login bob x")

	res := c.Dispatch(ctx, []string{"comment", "1", "nice", "one"})
	require.NoError(t, res.Err)
	b, _ := c.State.BookByID(1)
	require.Len(t, b.Comments, 1)
	assert.Equal(t, "bob", b.Comments[0].Author)
	assert.Equal(t, "nice one", b.Comments[0].Text)
	ev := c.State.Events()[0]
	assert.Equal(t, models.EventComment, ev.Type)
	assert.Equal(t, 0, ev.DeltaPages)
}

func TestUsageAndUnknown(t *testing.T) {
	c := newTestConsole(t)

	res := dispatch(t, c, "view")
	var ue *UsageError
	assert.ErrorAs(t, res.Err, &ue)

	res = dispatch(t, c, "view abc")
	assert.ErrorAs(t, res.Err, &ue)

	res = dispatch(t, c, "frobnicate 1 2")
	require.NoError(t, res.Err)
	assert.Contains(t, res.Lines[0], "Unknown command")

	mustOK(t, c, "login loaa books!2026")
	res = dispatch(t, c, "view 99")
	var nf *NotFoundError
	assert.ErrorAs(t, res.Err, &nf)
}

func TestChangepassRequiresOldPassword(t *testing.T) {
	c := newTestConsole(t)
	mustOK(t, c, "login loaa books!2026")
	mustOK(t, c, "createuser bob old")
	mustOK(t, c, "logout")
	mustOK(t, c, "login bob old")

	res := dispatch(t, c, "changepass wrong new")
	assert.ErrorIs(t, res.Err, auth.ErrInvalidCredentials)

	mustOK(t, c, "changepass old new")
	mustOK(t, c, "logout")
	assert.Error(t, dispatch(t, c, "login bob old").Err)
	mustOK(t, c, "login bob new")
}

func TestSetpassAndRemoveUser(t *testing.T) {
	c := newTestConsole(t)
	mustOK(t, c, "login loaa books!2026")
	mustOK(t, c, "createuser bob x")

	res := dispatch(t, c, "createuser bob again")
	assert.ErrorIs(t, res.Err, ErrAlreadyExists)

	mustOK(t, c, "setpass bob fresh")
	bob, _ := c.State.UserByName("bob")
	assert.Equal(t, "fresh", bob.Password)

	mustOK(t, c, "removeuser bob")
	_, exists := c.State.UserByName("bob")
	assert.False(t, exists)

	var nf *NotFoundError
	assert.ErrorAs(t, dispatch(t, c, "removeuser bob").Err, &nf)
}

func TestStorageFailureLeavesStateUntouched(t *testing.T) {
	c := newTestConsole(t)
	mustOK(t, c, "login loaa books!2026")
	c.Dispatch(context.Background(), []string{"add", "A", "a", "100"})

	failing := &failingStore{Store: c.Store}
	c.Store = failing

	res := dispatch(t, c, "update 1 50")
	require.Error(t, res.Err)
	b, _ := c.State.BookByID(1)
	assert.Equal(t, 0, b.PagesRead, "no local mutation without a confirmed write")
	for _, ev := range c.State.Events() {
		assert.NotEqual(t, 50, ev.ToPages, "no event for a write that did not succeed")
	}
}

type failingStore struct {
	store.Store
}

func (f *failingStore) SaveBook(ctx context.Context, b models.Book) error {
	return &store.StorageError{Op: "save book", Err: context.DeadlineExceeded}
}
