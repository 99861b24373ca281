package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/loaa/reading-console/models"
)

// SQLite is the local persistence adapter: the single-user backend and the
// source the migration step copies from. It has no realtime pushes, so the
// Subscribe methods are no-ops.
type SQLite struct {
	db *sql.DB

	appendEventStmt *sql.Stmt
}

// NewSQLite opens (or creates) the database at dbPath and applies schema
// migrations.
func NewSQLite(dbPath string) (*SQLite, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLite{db: db}
	if s.appendEventStmt, err = db.Prepare(`INSERT OR IGNORE INTO events
        (id,type,acting_user,owner_user,book_id,book_title,from_pages,to_pages,delta_pages,comment_text,target_user,timestamp)
        VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const schemaVersion = 1

func applySchema(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            username TEXT PRIMARY KEY,
            password TEXT NOT NULL,
            role TEXT NOT NULL,
            active INTEGER NOT NULL DEFAULT 1,
            created_at TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY,
            owner TEXT NOT NULL,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            total_pages INTEGER NOT NULL,
            pages_read INTEGER NOT NULL,
            comments TEXT NOT NULL DEFAULT '[]',
            last_update TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS events (
            id TEXT PRIMARY KEY,
            type TEXT NOT NULL,
            acting_user TEXT NOT NULL,
            owner_user TEXT,
            book_id INTEGER,
            book_title TEXT,
            from_pages INTEGER,
            to_pages INTEGER,
            delta_pages INTEGER,
            comment_text TEXT,
            target_user TEXT,
            timestamp TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp DESC);`,
		`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, schemaVersion); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return tx.Commit()
}

// Close releases the prepared statement and closes the DB.
func (s *SQLite) Close(ctx context.Context) error {
	if s.appendEventStmt != nil {
		s.appendEventStmt.Close()
	}
	return s.db.Close()
}

func (s *SQLite) LoadUsers(ctx context.Context) (map[string]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT username,password,role,active,created_at FROM users`)
	if err != nil {
		return nil, storageErr("load users", err)
	}
	defer rows.Close()

	users := make(map[string]models.User)
	for rows.Next() {
		var u models.User
		var active int
		var createdAt string
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &active, &createdAt); err != nil {
			return nil, storageErr("load users", err)
		}
		u.Active = active != 0
		u.CreatedAt = parseTime(createdAt)
		users[u.Username] = u
	}
	return users, rows.Err()
}

func (s *SQLite) LoadBooks(ctx context.Context) ([]models.Book, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,owner,title,author,total_pages,pages_read,comments,last_update FROM books ORDER BY id`)
	if err != nil {
		return nil, storageErr("load books", err)
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		var b models.Book
		var comments, lastUpdate string
		if err := rows.Scan(&b.ID, &b.Owner, &b.Title, &b.Author, &b.TotalPages, &b.PagesRead, &comments, &lastUpdate); err != nil {
			return nil, storageErr("load books", err)
		}
		if err := json.Unmarshal([]byte(comments), &b.Comments); err != nil {
			b.Comments = []models.Comment{}
		}
		b.LastUpdate = parseTime(lastUpdate)
		books = append(books, b)
	}
	return books, rows.Err()
}

func (s *SQLite) LoadEvents(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT
        id,type,acting_user,COALESCE(owner_user,''),COALESCE(book_id,0),COALESCE(book_title,''),
        COALESCE(from_pages,0),COALESCE(to_pages,0),COALESCE(delta_pages,0),
        COALESCE(comment_text,''),COALESCE(target_user,''),timestamp
        FROM events ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, storageErr("load events", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		var ts string
		if err := rows.Scan(&e.ID, &e.Type, &e.ActingUser, &e.OwnerUser, &e.BookID, &e.BookTitle,
			&e.FromPages, &e.ToPages, &e.DeltaPages, &e.CommentText, &e.TargetUser, &ts); err != nil {
			return nil, storageErr("load events", err)
		}
		e.Timestamp = parseTime(ts)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *SQLite) SaveUser(ctx context.Context, u models.User) error {
	active := 0
	if u.Active {
		active = 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO users(username,password,role,active,created_at)
        VALUES(?,?,?,?,?)
        ON CONFLICT(username) DO UPDATE SET password=excluded.password, role=excluded.role, active=excluded.active`,
		u.Username, u.Password, u.Role, active, formatTime(u.CreatedAt))
	return storageErr("save user", err)
}

func (s *SQLite) DeleteUser(ctx context.Context, username string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE username=?`, username)
	return storageErr("delete user", err)
}

func (s *SQLite) SaveBook(ctx context.Context, b models.Book) error {
	comments, err := json.Marshal(b.Comments)
	if err != nil {
		return storageErr("save book", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO books(id,owner,title,author,total_pages,pages_read,comments,last_update)
        VALUES(?,?,?,?,?,?,?,?)
        ON CONFLICT(id) DO UPDATE SET
            title=excluded.title, author=excluded.author,
            total_pages=excluded.total_pages, pages_read=excluded.pages_read,
            comments=excluded.comments, last_update=excluded.last_update`,
		b.ID, b.Owner, b.Title, b.Author, b.TotalPages, b.PagesRead, string(comments), formatTime(b.LastUpdate))
	return storageErr("save book", err)
}

func (s *SQLite) DeleteBook(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id=?`, id)
	return storageErr("delete book", err)
}

func (s *SQLite) AppendEvent(ctx context.Context, e models.Event) (models.Event, error) {
	e = models.NormalizeEvent(e, time.Now())
	_, err := s.appendEventStmt.ExecContext(ctx,
		e.ID, e.Type, e.ActingUser, e.OwnerUser, e.BookID, e.BookTitle,
		e.FromPages, e.ToPages, e.DeltaPages, e.CommentText, e.TargetUser, formatTime(e.Timestamp))
	if err != nil {
		return models.Event{}, storageErr("append event", err)
	}
	return e, nil
}

func (s *SQLite) SubscribeBooks(ctx context.Context, fn func([]models.Book)) error { return nil }

func (s *SQLite) SubscribeEvents(ctx context.Context, fn func([]models.Event)) error { return nil }

func (s *SQLite) SubscribeUsers(ctx context.Context, fn func(map[string]models.User)) error {
	return nil
}

// migratedKey is the meta row guarding the one-time remote migration.
const migratedKey = "remote_migrated"

func (s *SQLite) MigrationDone(ctx context.Context) (bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key=?`, migratedKey).Scan(&v)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storageErr("read migration marker", err)
	}
	return v == "1", nil
}

func (s *SQLite) SetMigrationDone(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO meta(key,value) VALUES(?, '1')
        ON CONFLICT(key) DO UPDATE SET value='1'`, migratedKey)
	return storageErr("set migration marker", err)
}

// Timestamps are stored as RFC 3339 text so lexical order matches time order.

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
