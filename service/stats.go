// Package service computes the read-side projections shown in the side
// panel: aggregate stats, the per-user activity feed, the reading streak and
// the "recent activity" summary. Everything here is a pure function over the
// current books and events; nothing is cached or mutated.
package service

import "github.com/loaa/reading-console/models"

type Stats struct {
	TotalBooks     int `json:"totalBooks"`
	Finished       int `json:"finished"`
	InProgress     int `json:"inProgress"`
	TotalPagesRead int `json:"totalPagesRead"`
}

// ComputeStats aggregates the catalog counters shown in the stats panel.
func ComputeStats(books []models.Book) Stats {
	var st Stats
	st.TotalBooks = len(books)
	for i := range books {
		b := &books[i]
		if b.Finished() {
			st.Finished++
		}
		if b.InProgress() {
			st.InProgress++
		}
		st.TotalPagesRead += b.PagesRead
	}
	return st
}
