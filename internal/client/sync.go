package client

import (
	"context"
	"slices"
	"sync"

	appLog "roomcal/internal/log"
	"roomcal/internal/model"
)

// API is the subset of the server API that Sync depends on.
type API interface {
	FetchEvents(ctx context.Context, roomID int) ([]model.Event, error)
	CreateEvent(ctx context.Context, in model.EventInput) (model.Event, error)
	UpdateEvent(ctx context.Context, id string, in model.EventInput) (model.Event, error)
	DeleteEvent(ctx context.Context, id string) (Ack, error)
}

// Sync holds the local copy of one room's events. Mutations reach the
// local list only after the server confirms them; on failure the list is
// left as it was.
type Sync struct {
	api API

	mu     sync.Mutex
	roomID int
	events []model.Event
	// gen increments on every refresh or room switch. A fetch that
	// completes under an older generation is dropped.
	gen uint64
}

// NewSync returns a Sync for roomID with an empty list.
func NewSync(api API, roomID int) *Sync {
	return &Sync{api: api, roomID: roomID}
}

// RoomID returns the room currently shown.
func (s *Sync) RoomID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// SelectRoom switches rooms. The local list is cleared and any in-flight
// refresh for the previous room is discarded.
func (s *Sync) SelectRoom(roomID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if roomID == s.roomID {
		return
	}
	s.roomID = roomID
	s.events = nil
	s.gen++
}

// Events returns a copy of the local list.
func (s *Sync) Events() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

// Refresh replaces the local list with the server's. A failed fetch is
// logged and leaves the list unchanged.
func (s *Sync) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.gen++
	gen, roomID := s.gen, s.roomID
	s.mu.Unlock()

	evs, err := s.api.FetchEvents(ctx, roomID)
	if err != nil {
		appLog.Error("refresh events failed", err, "room", roomID)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		appLog.Debug("discarding stale refresh", "room", roomID)
		return nil
	}
	s.events = evs
	return nil
}

// Create saves a new event and appends the stored copy.
func (s *Sync) Create(ctx context.Context, in model.EventInput) (model.Event, error) {
	ev, err := s.api.CreateEvent(ctx, in)
	if err != nil {
		appLog.Error("create event failed", err)
		return model.Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.RoomID == s.roomID {
		s.events = append(s.events, ev)
	}
	return ev, nil
}

// Update saves changes to id and replaces the local record with the
// server's response. An event moved to another room leaves the list.
func (s *Sync) Update(ctx context.Context, id string, in model.EventInput) (model.Event, error) {
	ev, err := s.api.UpdateEvent(ctx, id, in)
	if err != nil {
		appLog.Error("update event failed", err, "id", id)
		return model.Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.events, func(e model.Event) bool { return e.ID == ev.ID })
	switch {
	case i < 0 && ev.RoomID == s.roomID:
		s.events = append(s.events, ev)
	case i >= 0 && ev.RoomID != s.roomID:
		s.events = slices.Delete(s.events, i, i+1)
	case i >= 0:
		s.events[i] = ev
	}
	return ev, nil
}

// Delete removes id on the server, then locally.
func (s *Sync) Delete(ctx context.Context, id string) error {
	if _, err := s.api.DeleteEvent(ctx, id); err != nil {
		appLog.Error("delete event failed", err, "id", id)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = slices.DeleteFunc(s.events, func(e model.Event) bool { return e.ID == id })
	return nil
}
