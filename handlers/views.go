package handlers

import (
	"context"
	"fmt"

	"github.com/loaa/reading-console/models"
	"github.com/loaa/reading-console/service"
)

// Read-only projections over the event log and catalog. No authorization is
// consulted and no events are appended here.

func (c *Console) cmdStats(ctx context.Context, args []string) Result {
	st := service.ComputeStats(c.State.Books(""))
	return ok(
		fmt.Sprintf("books       : %d", st.TotalBooks),
		fmt.Sprintf("in progress : %d", st.InProgress),
		fmt.Sprintf("finished    : %d", st.Finished),
		fmt.Sprintf("pages read  : %d", st.TotalPagesRead),
	)
}

func (c *Console) cmdFeed(ctx context.Context, args []string) Result {
	feed := service.ComputeFeed(c.State.Events())
	if len(args) > 0 {
		owner := args[0]
		filtered := feed[:0]
		for _, of := range feed {
			if of.Owner == owner {
				filtered = append(filtered, of)
			}
		}
		feed = filtered
	}
	if len(feed) == 0 {
		return ok("No recent activity.")
	}
	var lines []string
	for _, of := range feed {
		lines = append(lines, of.Owner+":")
		for _, bf := range of.Books {
			lines = append(lines, fmt.Sprintf("  [#%d] %s", bf.BookID, bf.BookTitle))
			for _, e := range bf.Events {
				lines = append(lines, "    "+feedLine(e))
			}
		}
	}
	return ok(lines...)
}

func (c *Console) cmdStreak(ctx context.Context, args []string) Result {
	user := c.Session.CurrentUser
	if len(args) > 0 {
		user = args[0]
	}
	st := service.ComputeStreak(c.State.Events(), user, c.Now())
	return ok(
		fmt.Sprintf("streak for %s", st.User),
		fmt.Sprintf("  consecutive days : %d", st.ConsecutiveDays),
		fmt.Sprintf("  pages this week  : %d", st.WeekPages),
		fmt.Sprintf("  daily average    : %d", st.DailyAverage),
	)
}

func (c *Console) cmdActivity(ctx context.Context, args []string) Result {
	summary := service.Summary(c.State.Events())
	if summary == "" {
		return ok("No activity yet.")
	}
	return ok(summary)
}

func feedLine(e models.Event) string {
	switch e.Type {
	case models.EventProgress:
		return fmt.Sprintf("%d -> %d pages (%+d)", e.FromPages, e.ToPages, e.DeltaPages)
	case models.EventComment:
		return fmt.Sprintf("comment: %s", e.CommentText)
	case models.EventBookAdd:
		return "added"
	default:
		return e.Type
	}
}
