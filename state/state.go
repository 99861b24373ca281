// Package state holds the in-memory copy of users, books and events for one
// console process. Mutating command handlers write to the persistence
// backend first and apply here only after the write confirms; the remote
// backend additionally pushes full replacement snapshots through the
// Replace methods from its subscription goroutine.
package state

import (
	"sort"
	"sync"
	"time"

	"github.com/loaa/reading-console/models"
)

// MaxEvents bounds the recent-event window kept in memory and displayed.
const MaxEvents = 200

type State struct {
	mu     sync.RWMutex
	users  map[string]models.User
	books  []models.Book // ascending id
	events []models.Event // newest first
}

func New() *State {
	return &State{users: make(map[string]models.User)}
}

// ---------------- users ----------------

// UserByName implements auth.Directory.
func (s *State) UserByName(username string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	return u, ok
}

// Users returns all users ordered by username.
func (s *State) Users() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// PutUser applies a confirmed user write.
func (s *State) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Username] = u
}

// DeleteUser applies a confirmed user removal.
func (s *State) DeleteUser(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, username)
}

// ReplaceUsers swaps the whole directory for a pushed snapshot.
func (s *State) ReplaceUsers(users map[string]models.User) {
	now := time.Now()
	normalized := make(map[string]models.User, len(users))
	for name, u := range users {
		if u.Username == "" {
			u.Username = name
		}
		normalized[u.Username] = models.NormalizeUser(u, now)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = normalized
}

// ---------------- books ----------------

// BookByID returns a copy of the book, if present.
func (s *State) BookByID(id int64) (models.Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.books {
		if s.books[i].ID == id {
			return cloneBook(s.books[i]), true
		}
	}
	return models.Book{}, false
}

// Books returns copies of all books in ascending id order, optionally
// filtered by owner.
func (s *State) Books(filterOwner string) []models.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Book, 0, len(s.books))
	for i := range s.books {
		if filterOwner != "" && s.books[i].Owner != filterOwner {
			continue
		}
		out = append(out, cloneBook(s.books[i]))
	}
	return out
}

// NextBookID assigns max(existing)+1, or 1 when the catalog is empty.
// Removed ids are never reused while a higher id remains.
func (s *State) NextBookID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var max int64
	for i := range s.books {
		if s.books[i].ID > max {
			max = s.books[i].ID
		}
	}
	return max + 1
}

// PutBook applies a confirmed book write, keeping ascending id order.
func (s *State) PutBook(b models.Book) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.books {
		if s.books[i].ID == b.ID {
			s.books[i] = b
			return
		}
	}
	s.books = append(s.books, b)
	sort.Slice(s.books, func(i, j int) bool { return s.books[i].ID < s.books[j].ID })
}

// DeleteBook applies a confirmed book removal.
func (s *State) DeleteBook(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.books {
		if s.books[i].ID == id {
			s.books = append(s.books[:i], s.books[i+1:]...)
			return
		}
	}
}

// ReplaceBooks swaps the whole catalog for a pushed snapshot.
func (s *State) ReplaceBooks(books []models.Book) {
	now := time.Now()
	normalized := make([]models.Book, 0, len(books))
	for _, b := range books {
		normalized = append(normalized, models.NormalizeBook(b, now))
	}
	sort.Slice(normalized, func(i, j int) bool { return normalized[i].ID < normalized[j].ID })
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books = normalized
}

// ---------------- events ----------------

// Events returns a copy of the recent-event window, newest first.
func (s *State) Events() []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Event, len(s.events))
	copy(out, s.events)
	return out
}

// AppendEvent applies a confirmed log append. Events already present (the
// backend may have pushed them back via a snapshot) are dropped by identity.
func (s *State) AppendEvent(e models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == e.ID {
			return
		}
	}
	s.events = append([]models.Event{e}, s.events...)
	if len(s.events) > MaxEvents {
		s.events = s.events[:MaxEvents]
	}
}

// ReplaceEvents swaps the recent-event window for a pushed snapshot,
// deduplicating by event identity so a flaky push never double counts in
// the derived views.
func (s *State) ReplaceEvents(events []models.Event) {
	now := time.Now()
	seen := make(map[string]bool, len(events))
	deduped := make([]models.Event, 0, len(events))
	for _, e := range events {
		e = models.NormalizeEvent(e, now)
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		deduped = append(deduped, e)
	}
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Timestamp.After(deduped[j].Timestamp)
	})
	if len(deduped) > MaxEvents {
		deduped = deduped[:MaxEvents]
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = deduped
}

func cloneBook(b models.Book) models.Book {
	c := b
	c.Comments = make([]models.Comment, len(b.Comments))
	copy(c.Comments, b.Comments)
	return c
}
