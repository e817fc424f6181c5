// Package store defines persistence for events and users. Implementations
// live in the memory and mongo subpackages.
package store

import (
	"context"
	"errors"

	"roomcal/internal/model"
)

var (
	// ErrNotFound is returned when no record matches the requested id.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when an insert violates a unique key.
	ErrDuplicate = errors.New("duplicate key")
)

// EventFilter narrows FindEvents. A nil RoomID matches every room.
type EventFilter struct {
	RoomID *int
}

// Matches reports whether ev passes the filter.
func (f EventFilter) Matches(ev model.Event) bool {
	return f.RoomID == nil || ev.RoomID == *f.RoomID
}

// EventStore persists events. Every method returns only after the write
// is durable in the backing store.
type EventStore interface {
	FindEvents(ctx context.Context, filter EventFilter) ([]model.Event, error)
	FindEvent(ctx context.Context, id string) (model.Event, error)
	// InsertEvent stores ev under a newly generated id and returns it.
	InsertEvent(ctx context.Context, ev model.Event) (model.Event, error)
	// UpdateEvent overwrites the fields set in in and returns the
	// updated record.
	UpdateEvent(ctx context.Context, id string, in model.EventInput) (model.Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// UserStore persists users created at first sign-in.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (model.User, error)
	// InsertUser fails with ErrDuplicate when the email or Google id is
	// already taken.
	InsertUser(ctx context.Context, u model.User) (model.User, error)
}

// Store is the full persistence surface the server needs.
type Store interface {
	EventStore
	UserStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
