package handlers

import (
	"errors"
	"fmt"
)

// Command error taxonomy. Every one of these is local and recoverable: the
// dispatcher reports it as the command's single outcome message and the
// session continues with the next command.

// UsageError reports malformed or missing arguments. No state is mutated.
type UsageError struct {
	Usage string
}

func (e *UsageError) Error() string { return "usage: " + e.Usage }

func usage(s string) error { return &UsageError{Usage: s} }

// NotFoundError reports an unknown book id or username.
type NotFoundError struct {
	Kind string // "book" or "user"
	Key  string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("no %s %s", e.Kind, e.Key) }

var (
	// ErrAlreadyExists reports a duplicate username on createuser.
	ErrAlreadyExists = errors.New("username already exists")
	// ErrProtectedAccount reports an attempt to delete the bootstrap admin.
	ErrProtectedAccount = errors.New("this account is protected and cannot be removed")
	// ErrEmptyText reports a comment with no text.
	ErrEmptyText = errors.New("no comment text")
)
