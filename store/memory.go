package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/loaa/reading-console/models"
)

// Memory is an in-process Store used by tests and as a throwaway backend.
// It also implements Marker so migration runs can be exercised end to end.
type Memory struct {
	mu       sync.Mutex
	users    map[string]models.User
	books    map[int64]models.Book
	events   []models.Event
	migrated bool
	writes   int
}

func NewMemory() *Memory {
	return &Memory{
		users: make(map[string]models.User),
		books: make(map[int64]models.Book),
	}
}

// Writes counts every mutating call since creation.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *Memory) LoadUsers(ctx context.Context) (map[string]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]models.User, len(m.users))
	for k, v := range m.users {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) LoadBooks(ctx context.Context) ([]models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Book, 0, len(m.books))
	for _, b := range m.books {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) LoadEvents(ctx context.Context, limit int) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Event, len(m.events))
	copy(out, m.events)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) SaveUser(ctx context.Context, u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.users[u.Username] = u
	return nil
}

func (m *Memory) DeleteUser(ctx context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	delete(m.users, username)
	return nil
}

func (m *Memory) SaveBook(ctx context.Context, b models.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.books[b.ID] = b
	return nil
}

func (m *Memory) DeleteBook(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	delete(m.books, id)
	return nil
}

func (m *Memory) AppendEvent(ctx context.Context, e models.Event) (models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	for i := range m.events {
		if m.events[i].ID == e.ID {
			return m.events[i], nil
		}
	}
	m.events = append(m.events, e)
	return e, nil
}

func (m *Memory) SubscribeBooks(ctx context.Context, fn func([]models.Book)) error { return nil }

func (m *Memory) SubscribeEvents(ctx context.Context, fn func([]models.Event)) error { return nil }

func (m *Memory) SubscribeUsers(ctx context.Context, fn func(map[string]models.User)) error {
	return nil
}

func (m *Memory) Close(ctx context.Context) error { return nil }

func (m *Memory) MigrationDone(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.migrated, nil
}

func (m *Memory) SetMigrationDone(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.migrated = true
	return nil
}
