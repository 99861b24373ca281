package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loaa/reading-console/models"
)

func TestComputeFeedGrouping(t *testing.T) {
	now := time.Now()
	var events []models.Event
	// Five progress events on bob's book #1, newest last.
	for i := 0; i < 5; i++ {
		events = append(events, models.Event{
			ID:        fmt.Sprintf("b1-%d", i),
			Type:      models.EventProgress,
			OwnerUser: "bob",
			BookID:    1,
			BookTitle: "Demian",
			ToPages:   (i + 1) * 10,
			Timestamp: now.Add(time.Duration(i) * time.Minute),
		})
	}
	events = append(events,
		models.Event{ID: "a1", Type: models.EventBookAdd, OwnerUser: "alice", BookID: 2, BookTitle: "Blindness", Timestamp: now.Add(time.Hour)},
		models.Event{ID: "a2", Type: models.EventComment, OwnerUser: "alice", BookID: 2, BookTitle: "Blindness", CommentText: "dense", Timestamp: now.Add(2 * time.Hour)},
		// user management noise never reaches the feed
		models.Event{ID: "u1", Type: models.EventUserAdd, ActingUser: "loaa", TargetUser: "bob", Timestamp: now.Add(3 * time.Hour)},
	)

	feed := ComputeFeed(events)
	require.Len(t, feed, 2)

	// alice first: her activity is the most recent
	assert.Equal(t, "alice", feed[0].Owner)
	require.Len(t, feed[0].Books, 1)
	assert.Len(t, feed[0].Books[0].Events, 2)
	assert.Equal(t, "a2", feed[0].Books[0].Events[0].ID, "newest first inside a book")

	assert.Equal(t, "bob", feed[1].Owner)
	require.Len(t, feed[1].Books, 1)
	assert.Len(t, feed[1].Books[0].Events, FeedEntriesPerBook, "book groups are capped")
	assert.Equal(t, 50, feed[1].Books[0].Events[0].ToPages)
}

func TestComputeFeedDeduplicates(t *testing.T) {
	now := time.Now()
	e := models.Event{ID: "e1", Type: models.EventProgress, OwnerUser: "bob", BookID: 1, BookTitle: "Demian", Timestamp: now}
	feed := ComputeFeed([]models.Event{e, e})
	require.Len(t, feed, 1)
	assert.Len(t, feed[0].Books[0].Events, 1)
}

func TestSummary(t *testing.T) {
	now := time.Now()
	assert.Empty(t, Summary(nil))

	events := []models.Event{
		{Type: models.EventProgress, ActingUser: "bob", BookTitle: "Demian", ToPages: 120, DeltaPages: 120, Timestamp: now},
		{Type: models.EventBookAdd, ActingUser: "bob", BookTitle: "Demian", Timestamp: now.Add(-time.Minute)},
	}
	assert.Equal(t, `bob read to page 120 of "Demian" (+120)`, Summary(events))

	comment := []models.Event{{Type: models.EventComment, ActingUser: "alice", BookTitle: "Blindness", CommentText: "dense", Timestamp: now}}
	assert.Equal(t, `alice commented on "Blindness": dense`, Summary(comment))
}
