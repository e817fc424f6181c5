package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"roomcal/internal/model"
	"roomcal/internal/store"
)

// Store keeps events and users in process memory. It is used by
// `serve --store memory` during development and by tests.
type Store struct {
	mu     sync.RWMutex
	order  []string
	events map[string]model.Event
	users  []model.User
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{events: make(map[string]model.Event)}
}

var _ store.Store = (*Store)(nil)

// FindEvents returns matching events in insertion order.
func (s *Store) FindEvents(_ context.Context, filter store.EventFilter) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Event, 0, len(s.order))
	for _, id := range s.order {
		ev := s.events[id]
		if filter.Matches(ev) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *Store) FindEvent(_ context.Context, id string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[id]
	if !ok {
		return model.Event{}, fmt.Errorf("event %s: %w", id, store.ErrNotFound)
	}
	return ev, nil
}

// InsertEvent persists a new event in memory.
func (s *Store) InsertEvent(_ context.Context, ev model.Event) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev.ID = uuid.NewString()
	s.events[ev.ID] = ev
	s.order = append(s.order, ev.ID)
	return ev, nil
}

func (s *Store) UpdateEvent(_ context.Context, id string, in model.EventInput) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[id]
	if !ok {
		return model.Event{}, fmt.Errorf("event %s: %w", id, store.ErrNotFound)
	}
	ev = in.Apply(ev)
	ev.ID = id
	s.events[id] = ev
	return ev, nil
}

func (s *Store) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return fmt.Errorf("event %s: %w", id, store.ErrNotFound)
	}
	delete(s.events, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("user %s: %w", email, store.ErrNotFound)
}

func (s *Store) InsertUser(_ context.Context, u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == u.Email || (u.GoogleID != "" && existing.GoogleID == u.GoogleID) {
			return model.User{}, fmt.Errorf("user %s: %w", u.Email, store.ErrDuplicate)
		}
	}
	u.ID = uuid.NewString()
	s.users = append(s.users, u)
	return u, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close(context.Context) error { return nil }
