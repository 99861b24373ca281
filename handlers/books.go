package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/loaa/reading-console/auth"
	"github.com/loaa/reading-console/models"
)

func formatBookLine(b *models.Book) string {
	return fmt.Sprintf("[#%d] %s (%s) - %d%% [%s]", b.ID, b.Title, b.Author, b.Percent(), b.Owner)
}

func (c *Console) cmdList(ctx context.Context, args []string) Result {
	owner := ""
	if len(args) > 0 {
		owner = args[0]
	}
	books := c.State.Books(owner)
	if len(books) == 0 {
		return ok("No books in database.")
	}
	lines := make([]string, 0, len(books))
	for i := range books {
		lines = append(lines, formatBookLine(&books[i]))
	}
	return ok(lines...)
}

func (c *Console) cmdView(ctx context.Context, args []string) Result {
	if len(args) != 1 {
		return fail(usage("view <id>"))
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fail(usage("view <id>"))
	}
	b, found := c.State.BookByID(id)
	if !found {
		return fail(&NotFoundError{Kind: "book", Key: args[0]})
	}
	lines := []string{
		fmt.Sprintf("[#%d] %s", b.ID, b.Title),
		fmt.Sprintf(" author    : %s", b.Author),
		fmt.Sprintf(" owner     : %s", b.Owner),
		fmt.Sprintf(" progress  : %d/%d (%d%%)", b.PagesRead, b.TotalPages, b.Percent()),
		fmt.Sprintf(" updated   : %s", b.LastUpdate.Local().Format("2006-01-02 15:04")),
	}
	if len(b.Comments) == 0 {
		lines = append(lines, " comments  : (none)")
	} else {
		lines = append(lines, " comments  :")
		start := 0
		if len(b.Comments) > 3 {
			start = len(b.Comments) - 3
		}
		for _, cm := range b.Comments[start:] {
			lines = append(lines, fmt.Sprintf("  - %s (%s, at p.%d)", cm.Text, cm.Author, cm.PagesAt))
		}
	}
	return ok(lines...)
}

func (c *Console) cmdSearch(ctx context.Context, args []string) Result {
	query := strings.ToLower(strings.Join(args, " "))
	if query == "" {
		return fail(usage(`search <text>`))
	}
	var lines []string
	for _, b := range c.State.Books("") {
		if strings.Contains(strings.ToLower(b.Title), query) ||
			strings.Contains(strings.ToLower(b.Author), query) {
			lines = append(lines, formatBookLine(&b))
		}
	}
	if len(lines) == 0 {
		return ok("No matches.")
	}
	return ok(lines...)
}

func (c *Console) cmdAdd(ctx context.Context, args []string) Result {
	if err := auth.RequireAuthenticated(c.Session); err != nil {
		return fail(err)
	}
	if len(args) != 3 {
		return fail(usage(`add <title> <author> <totalPages>`))
	}
	title := strings.TrimSpace(args[0])
	author := strings.TrimSpace(args[1])
	totalPages, err := strconv.Atoi(args[2])
	if err != nil || totalPages <= 0 || title == "" {
		return fail(usage(`add <title> <author> <totalPages>`))
	}
	if author == "" {
		author = "Unknown"
	}

	now := c.Now()
	b := models.Book{
		ID:         c.State.NextBookID(),
		Owner:      c.Session.CurrentUser,
		Title:      title,
		Author:     author,
		TotalPages: totalPages,
		PagesRead:  0,
		Comments:   []models.Comment{},
		LastUpdate: now,
	}
	ev := models.Event{
		Type:       models.EventBookAdd,
		ActingUser: c.Session.CurrentUser,
		OwnerUser:  b.Owner,
		BookID:     b.ID,
		BookTitle:  b.Title,
		Timestamp:  now,
	}
	if _, err := c.persistBook(ctx, nil, b, ev); err != nil {
		return fail(err)
	}
	return ok(fmt.Sprintf("Book added with id %d.", b.ID))
}

func (c *Console) cmdEdit(ctx context.Context, args []string) Result {
	if err := auth.RequireAuthenticated(c.Session); err != nil {
		return fail(err)
	}
	if len(args) < 2 {
		return fail(usage(`edit <id> [title=<text>] [author=<text>] [pages=<n>]`))
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fail(usage(`edit <id> [title=<text>] [author=<text>] [pages=<n>]`))
	}
	b, found := c.State.BookByID(id)
	if !found {
		return fail(&NotFoundError{Kind: "book", Key: args[0]})
	}
	if !auth.CanMutate(c.Session, b.Owner) {
		return fail(auth.ErrNotOwner)
	}

	for _, arg := range args[1:] {
		key, value, okSplit := strings.Cut(arg, "=")
		if !okSplit {
			return fail(usage(`edit <id> [title=<text>] [author=<text>] [pages=<n>]`))
		}
		switch strings.ToLower(key) {
		case "title":
			if strings.TrimSpace(value) == "" {
				return fail(usage("title cannot be empty"))
			}
			b.Title = value
		case "author":
			b.Author = value
		case "pages":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return fail(usage("pages must be a non-negative number"))
			}
			// Lowering pages below the current progress is allowed; the
			// book reads above 100% until the next update, matching the
			// original console.
			b.TotalPages = n
		default:
			return fail(usage(`edit <id> [title=<text>] [author=<text>] [pages=<n>]`))
		}
	}
	b.LastUpdate = c.Now()

	// Edits refresh the record without appending an event, so write the
	// book directly rather than through persistBook.
	if err := c.Store.SaveBook(ctx, b); err != nil {
		return fail(err)
	}
	c.State.PutBook(b)
	return ok(fmt.Sprintf("Book #%d updated.", b.ID))
}

func (c *Console) cmdUpdate(ctx context.Context, args []string) Result {
	if err := auth.RequireAuthenticated(c.Session); err != nil {
		return fail(err)
	}
	if len(args) != 2 {
		return fail(usage("update <id> <pagesRead>"))
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	pages, perr := strconv.Atoi(args[1])
	if err != nil || id <= 0 || perr != nil || pages < 0 {
		return fail(usage("update <id> <pagesRead>"))
	}
	b, found := c.State.BookByID(id)
	if !found {
		return fail(&NotFoundError{Kind: "book", Key: args[0]})
	}
	if !auth.CanMutate(c.Session, b.Owner) {
		return fail(auth.ErrNotOwner)
	}

	prev := b
	from := b.PagesRead
	to := pages
	if b.TotalPages > 0 && to > b.TotalPages {
		to = b.TotalPages
	}
	now := c.Now()
	b.PagesRead = to
	b.LastUpdate = now

	ev := models.Event{
		Type:       models.EventProgress,
		ActingUser: c.Session.CurrentUser,
		OwnerUser:  b.Owner,
		BookID:     b.ID,
		BookTitle:  b.Title,
		FromPages:  from,
		ToPages:    to,
		DeltaPages: to - from,
		Timestamp:  now,
	}
	if _, err := c.persistBook(ctx, &prev, b, ev); err != nil {
		return fail(err)
	}
	return ok(fmt.Sprintf("Updated book #%d to %d pages (%d%%).", b.ID, b.PagesRead, b.Percent()))
}

func (c *Console) cmdComment(ctx context.Context, args []string) Result {
	if err := auth.RequireAuthenticated(c.Session); err != nil {
		return fail(err)
	}
	if len(args) < 1 {
		return fail(usage(`comment <id> <text>`))
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fail(usage(`comment <id> <text>`))
	}
	text := strings.TrimSpace(strings.Join(args[1:], " "))
	if text == "" {
		return fail(ErrEmptyText)
	}
	b, found := c.State.BookByID(id)
	if !found {
		return fail(&NotFoundError{Kind: "book", Key: args[0]})
	}

	prev := b
	now := c.Now()
	b.Comments = append(b.Comments, models.Comment{
		Author:    c.Session.CurrentUser,
		Text:      text,
		PagesAt:   b.PagesRead,
		Timestamp: now,
	})
	b.LastUpdate = now

	ev := models.Event{
		Type:        models.EventComment,
		ActingUser:  c.Session.CurrentUser,
		OwnerUser:   b.Owner,
		BookID:      b.ID,
		BookTitle:   b.Title,
		FromPages:   b.PagesRead,
		ToPages:     b.PagesRead,
		DeltaPages:  0,
		CommentText: text,
		Timestamp:   now,
	}
	if _, err := c.persistBook(ctx, &prev, b, ev); err != nil {
		return fail(err)
	}
	return ok(fmt.Sprintf("Comment added to #%d.", b.ID))
}

func (c *Console) cmdRemove(ctx context.Context, args []string) Result {
	if err := auth.RequireAuthenticated(c.Session); err != nil {
		return fail(err)
	}
	if len(args) != 1 {
		return fail(usage("remove <id>"))
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fail(usage("remove <id>"))
	}
	b, found := c.State.BookByID(id)
	if !found {
		return fail(&NotFoundError{Kind: "book", Key: args[0]})
	}
	if !auth.CanMutate(c.Session, b.Owner) {
		return fail(auth.ErrNotOwner)
	}

	ev := models.Event{
		Type:       models.EventBookRemove,
		ActingUser: c.Session.CurrentUser,
		OwnerUser:  b.Owner,
		BookID:     b.ID,
		BookTitle:  b.Title,
		Timestamp:  c.Now(),
	}
	if err := c.persistBookRemoval(ctx, b, ev); err != nil {
		return fail(err)
	}
	return ok(fmt.Sprintf("Removed book #%d (%s).", b.ID, b.Title))
}
