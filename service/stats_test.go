package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loaa/reading-console/models"
)

func TestComputeStats(t *testing.T) {
	books := []models.Book{
		{ID: 1, PagesRead: 156, TotalPages: 552}, // in progress
		{ID: 2, PagesRead: 220, TotalPages: 220}, // finished
		{ID: 3, PagesRead: 0, TotalPages: 320},   // untouched
		{ID: 4, PagesRead: 50, TotalPages: 0},    // no total: neither finished nor in progress
	}

	st := ComputeStats(books)
	assert.Equal(t, 4, st.TotalBooks)
	assert.Equal(t, 1, st.Finished)
	assert.Equal(t, 1, st.InProgress)
	assert.Equal(t, 426, st.TotalPagesRead)
}

func TestComputeStatsEmpty(t *testing.T) {
	st := ComputeStats(nil)
	assert.Zero(t, st.TotalBooks)
	assert.Zero(t, st.TotalPagesRead)
}
