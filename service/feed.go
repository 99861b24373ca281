package service

import (
	"fmt"
	"sort"

	"github.com/loaa/reading-console/models"
)

// FeedEntriesPerBook is how many recent events each book group shows.
const FeedEntriesPerBook = 3

// BookFeed groups the recent events of one book.
type BookFeed struct {
	BookID    int64          `json:"bookId"`
	BookTitle string         `json:"bookTitle"`
	Events    []models.Event `json:"events"` // newest first, at most FeedEntriesPerBook
}

// OwnerFeed groups book feeds under the owning user.
type OwnerFeed struct {
	Owner string     `json:"owner"`
	Books []BookFeed `json:"books"`
}

// feedEventTypes are the event types that appear in the activity feed.
func feedEvent(t string) bool {
	return t == models.EventProgress || t == models.EventComment || t == models.EventBookAdd
}

// Dedupe drops events sharing an identity, keeping the first occurrence.
// Snapshot pushes can replay events the client already appended locally.
func Dedupe(events []models.Event) []models.Event {
	seen := make(map[string]bool, len(events))
	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		if e.ID != "" && seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		out = append(out, e)
	}
	return out
}

// ComputeFeed groups progress/comment/book_add events by owner, then by
// book, each book showing its most recent entries first. Owners and books
// are ordered by their most recent activity.
func ComputeFeed(events []models.Event) []OwnerFeed {
	events = Dedupe(events)

	type bookKey struct {
		owner string
		id    int64
	}
	byBook := make(map[bookKey][]models.Event)
	titles := make(map[bookKey]string)
	for _, e := range events {
		if !feedEvent(e.Type) {
			continue
		}
		k := bookKey{owner: e.OwnerUser, id: e.BookID}
		byBook[k] = append(byBook[k], e)
		if titles[k] == "" {
			titles[k] = e.BookTitle
		}
	}

	byOwner := make(map[string][]BookFeed)
	for k, evs := range byBook {
		sort.SliceStable(evs, func(i, j int) bool { return evs[i].Timestamp.After(evs[j].Timestamp) })
		if len(evs) > FeedEntriesPerBook {
			evs = evs[:FeedEntriesPerBook]
		}
		byOwner[k.owner] = append(byOwner[k.owner], BookFeed{BookID: k.id, BookTitle: titles[k], Events: evs})
	}

	out := make([]OwnerFeed, 0, len(byOwner))
	for owner, books := range byOwner {
		sort.SliceStable(books, func(i, j int) bool {
			return books[i].Events[0].Timestamp.After(books[j].Events[0].Timestamp)
		})
		out = append(out, OwnerFeed{Owner: owner, Books: books})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Books[0].Events[0].Timestamp.After(out[j].Books[0].Events[0].Timestamp)
	})
	return out
}

// Summary renders the most recent event as a human sentence, or "" when the
// log is empty. Events are expected newest first.
func Summary(events []models.Event) string {
	events = Dedupe(events)
	if len(events) == 0 {
		return ""
	}
	e := events[0]
	switch e.Type {
	case models.EventProgress:
		return fmt.Sprintf("%s read to page %d of %q (%+d)", e.ActingUser, e.ToPages, e.BookTitle, e.DeltaPages)
	case models.EventComment:
		return fmt.Sprintf("%s commented on %q: %s", e.ActingUser, e.BookTitle, e.CommentText)
	case models.EventBookAdd:
		return fmt.Sprintf("%s added %q", e.ActingUser, e.BookTitle)
	case models.EventBookRemove:
		return fmt.Sprintf("%s removed %q", e.ActingUser, e.BookTitle)
	case models.EventUserAdd:
		return fmt.Sprintf("%s created user %s", e.ActingUser, e.TargetUser)
	case models.EventUserRemove:
		return fmt.Sprintf("%s removed user %s", e.ActingUser, e.TargetUser)
	case models.EventPasswordSelf:
		return fmt.Sprintf("%s changed their password", e.ActingUser)
	case models.EventPasswordAdmin:
		return fmt.Sprintf("%s reset the password of %s", e.ActingUser, e.TargetUser)
	default:
		return fmt.Sprintf("%s: %s", e.ActingUser, e.Type)
	}
}
