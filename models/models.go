package models

import (
	"math"
	"time"
)

// Role constants for session and user authorization.
const (
	RoleGuest  = "guest"
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// BootstrapAdmin is the distinguished account that is created at first boot
// and can never be deleted.
const (
	BootstrapAdmin         = "loaa"
	BootstrapAdminPassword = "books!2026"
)

type User struct {
	Username string `bson:"_id" json:"username"`
	// Password is an opaque secret compared for equality. It is stored in
	// plaintext, a weakness inherited from the original console and kept
	// deliberately rather than silently patched.
	Password  string    `bson:"password" json:"-"`
	Role      string    `bson:"role" json:"role"`
	Active    bool      `bson:"active" json:"active"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

type Comment struct {
	Author    string    `bson:"author" json:"author"`
	Text      string    `bson:"text" json:"text"`
	PagesAt   int       `bson:"pagesAt" json:"pagesAt"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

type Book struct {
	ID     int64  `bson:"_id" json:"id"`
	Owner  string `bson:"owner" json:"owner"` // fixed at creation, never reassigned
	Title  string `bson:"title" json:"title"`
	Author string `bson:"author" json:"author"`
	// PagesRead never exceeds TotalPages when TotalPages > 0, except
	// transiently after an edit lowers TotalPages (matching the original).
	TotalPages int       `bson:"totalPages" json:"totalPages"`
	PagesRead  int       `bson:"pagesRead" json:"pagesRead"`
	Comments   []Comment `bson:"comments" json:"comments"`
	LastUpdate time.Time `bson:"lastUpdate" json:"lastUpdate"`
}

// Percent returns the rounded completion percentage, 0 when TotalPages is 0.
func (b *Book) Percent() int {
	if b.TotalPages <= 0 {
		return 0
	}
	return int(math.Round(float64(b.PagesRead) / float64(b.TotalPages) * 100))
}

// Finished reports whether the book has been read to the end.
func (b *Book) Finished() bool {
	return b.TotalPages > 0 && b.PagesRead >= b.TotalPages
}

// InProgress reports whether the book is started but not finished.
func (b *Book) InProgress() bool {
	return b.PagesRead > 0 && b.PagesRead < b.TotalPages
}

// Event types recorded in the append-only log.
const (
	EventBookAdd       = "book_add"
	EventBookRemove    = "book_remove"
	EventProgress      = "progress"
	EventComment       = "comment"
	EventUserAdd       = "user_add"
	EventUserRemove    = "user_remove"
	EventPasswordSelf  = "password_self"
	EventPasswordAdmin = "password_admin"
)

// Event is one immutable record of a state-changing action. Events are only
// ever appended, never edited or reordered.
type Event struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Type        string    `bson:"type" json:"type"`
	ActingUser  string    `bson:"actingUser" json:"actingUser"`
	OwnerUser   string    `bson:"ownerUser,omitempty" json:"ownerUser,omitempty"`
	BookID      int64     `bson:"bookId,omitempty" json:"bookId,omitempty"`
	BookTitle   string    `bson:"bookTitle,omitempty" json:"bookTitle,omitempty"`
	FromPages   int       `bson:"fromPages,omitempty" json:"fromPages,omitempty"`
	ToPages     int       `bson:"toPages,omitempty" json:"toPages,omitempty"`
	DeltaPages  int       `bson:"deltaPages,omitempty" json:"deltaPages,omitempty"`
	CommentText string    `bson:"commentText,omitempty" json:"commentText,omitempty"`
	TargetUser  string    `bson:"targetUser,omitempty" json:"targetUser,omitempty"`
	Timestamp   time.Time `bson:"timestamp" json:"timestamp"`
}
