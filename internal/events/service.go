// Package events maps event requests onto an EventStore: room scoping,
// defaults, validation and the create/update decision.
package events

import (
	"context"
	"fmt"
	"sort"

	appLog "roomcal/internal/log"
	"roomcal/internal/model"
	"roomcal/internal/store"
)

// RoomScope selects which rooms a listing covers. Build one with
// ForRoom or AllRooms.
type RoomScope struct {
	all  bool
	room int
}

// ForRoom scopes a listing to exactly one room.
func ForRoom(id int) RoomScope { return RoomScope{room: id} }

// AllRooms is the explicit opt-in for listing every room's events.
func AllRooms() RoomScope { return RoomScope{all: true} }

func (s RoomScope) filter() store.EventFilter {
	if s.all {
		return store.EventFilter{}
	}
	room := s.room
	return store.EventFilter{RoomID: &room}
}

func (s RoomScope) String() string {
	if s.all {
		return "all"
	}
	return fmt.Sprint(s.room)
}

// Service implements list/get/save/delete over a store.EventStore.
type Service struct {
	store        store.EventStore
	rooms        map[int]model.Room
	defaultColor string
}

// NewService returns a Service. Events may only reference rooms in rooms;
// an empty list disables the room check.
func NewService(st store.EventStore, rooms []model.Room, defaultColor string) *Service {
	if defaultColor == "" {
		defaultColor = model.DefaultColor
	}
	byID := make(map[int]model.Room, len(rooms))
	for _, r := range rooms {
		byID[r.ID] = r
	}
	return &Service{store: st, rooms: byID, defaultColor: defaultColor}
}

// Rooms returns the configured rooms ordered by id.
func (s *Service) Rooms() []model.Room {
	out := make([]model.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// HasRoom reports whether id names a configured room.
func (s *Service) HasRoom(id int) bool {
	if len(s.rooms) == 0 {
		return true
	}
	_, ok := s.rooms[id]
	return ok
}

func (s *Service) List(ctx context.Context, scope RoomScope) ([]model.Event, error) {
	evs, err := s.store.FindEvents(ctx, scope.filter())
	if err != nil {
		return nil, fmt.Errorf("list events for room %s: %w", scope, err)
	}
	return evs, nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Event, error) {
	return s.store.FindEvent(ctx, id)
}

// Save performs the create or update named by req. created reports
// which one happened.
func (s *Service) Save(ctx context.Context, req model.SaveRequest) (ev model.Event, created bool, err error) {
	switch req.Kind {
	case model.SaveCreate:
		ev, err = s.create(ctx, req.Input)
		return ev, err == nil, err
	case model.SaveUpdate:
		ev, err = s.update(ctx, req.ID, req.Input)
		return ev, false, err
	default:
		return model.Event{}, false, fmt.Errorf("unknown save kind %d", req.Kind)
	}
}

func (s *Service) create(ctx context.Context, in model.EventInput) (model.Event, error) {
	if err := in.Validate(true); err != nil {
		return model.Event{}, err
	}
	if !s.HasRoom(*in.RoomID) {
		return model.Event{}, model.Invalid("roomId", fmt.Sprintf("%d is not a known room", *in.RoomID))
	}

	ev := in.Apply(model.Event{})
	if ev.Color == "" {
		ev.Color = s.defaultColor
	}

	saved, err := s.store.InsertEvent(ctx, ev)
	if err != nil {
		return model.Event{}, fmt.Errorf("create event: %w", err)
	}
	appLog.Debug("event created", "id", saved.ID, "room", saved.RoomID, "date", saved.Date.String())
	return saved, nil
}

func (s *Service) update(ctx context.Context, id string, in model.EventInput) (model.Event, error) {
	if id == "" {
		return model.Event{}, model.Invalid("id", "is required for update")
	}
	if err := in.Validate(false); err != nil {
		return model.Event{}, err
	}
	if in.RoomID != nil && !s.HasRoom(*in.RoomID) {
		return model.Event{}, model.Invalid("roomId", fmt.Sprintf("%d is not a known room", *in.RoomID))
	}
	// A cleared color resets to the default.
	if in.Color != nil && *in.Color == "" {
		in.Color = model.Ptr(s.defaultColor)
	}

	saved, err := s.store.UpdateEvent(ctx, id, in)
	if err != nil {
		return model.Event{}, fmt.Errorf("update event: %w", err)
	}
	appLog.Debug("event updated", "id", saved.ID)
	return saved, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	appLog.Debug("event deleted", "id", id)
	return nil
}

// ImportEvents creates every input in roomID, overriding any room the
// inputs carry. It stops at the first failure and returns what was
// created so far.
func (s *Service) ImportEvents(ctx context.Context, roomID int, inputs []model.EventInput) ([]model.Event, error) {
	out := make([]model.Event, 0, len(inputs))
	for i, in := range inputs {
		in.RoomID = model.Ptr(roomID)
		ev, err := s.create(ctx, in)
		if err != nil {
			return out, fmt.Errorf("import event %d: %w", i, err)
		}
		out = append(out, ev)
	}
	appLog.Info("events imported", "room", roomID, "count", len(out))
	return out, nil
}
