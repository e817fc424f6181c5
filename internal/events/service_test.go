package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"roomcal/internal/model"
	"roomcal/internal/store"
	"roomcal/internal/store/memory"
)

var testRooms = []model.Room{{ID: 1, Name: "Room A"}, {ID: 2, Name: "Room B"}, {ID: 3, Name: "Room C"}}

func newTestService() (*Service, *memory.Store) {
	st := memory.NewStore()
	return NewService(st, testRooms, ""), st
}

func standupInput() model.EventInput {
	return model.EventInput{
		Title:     model.Ptr("Standup"),
		Date:      model.Ptr(model.NewDate(2024, time.March, 5)),
		StartTime: model.Ptr("09:00"),
		EndTime:   model.Ptr("09:15"),
		RoomID:    model.Ptr(1),
	}
}

func TestSaveCreate_DefaultsColor(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	ev, created, err := svc.Save(ctx, model.CreateRequest(standupInput()))
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if !created {
		t.Error("expected created=true")
	}
	if ev.Color != "#4CAF50" {
		t.Errorf("Color = %q, want #4CAF50", ev.Color)
	}

	got, err := svc.Get(ctx, ev.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	want := model.Event{
		ID:        ev.ID,
		Title:     "Standup",
		Date:      model.NewDate(2024, time.March, 5),
		StartTime: "09:00",
		EndTime:   "09:15",
		Color:     "#4CAF50",
		RoomID:    1,
	}
	if got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestSaveCreate_KeepsColor(t *testing.T) {
	svc, _ := newTestService()
	in := standupInput()
	in.Color = model.Ptr("#123456")

	ev, _, err := svc.Save(context.Background(), model.CreateRequest(in))
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if ev.Color != "#123456" {
		t.Errorf("Color = %q, want #123456", ev.Color)
	}
}

func TestSaveCreate_Validation(t *testing.T) {
	tests := []struct {
		name  string
		patch func(*model.EventInput)
		field string
	}{
		{"missing title", func(in *model.EventInput) { in.Title = nil }, "title"},
		{"blank title", func(in *model.EventInput) { in.Title = model.Ptr("   ") }, "title"},
		{"missing date", func(in *model.EventInput) { in.Date = nil }, "date"},
		{"missing room", func(in *model.EventInput) { in.RoomID = nil }, "roomId"},
		{"unknown room", func(in *model.EventInput) { in.RoomID = model.Ptr(9) }, "roomId"},
		{"bad start", func(in *model.EventInput) { in.StartTime = model.Ptr("9am") }, "startTime"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st := newTestService()
			in := standupInput()
			tt.patch(&in)

			_, _, err := svc.Save(context.Background(), model.CreateRequest(in))
			if !errors.Is(err, model.ErrValidation) {
				t.Fatalf("Save() error = %v, want validation error", err)
			}
			var verr *model.ValidationError
			if errors.As(err, &verr) && verr.Field != tt.field {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
			all, _ := st.FindEvents(context.Background(), store.EventFilter{})
			if len(all) != 0 {
				t.Errorf("store was mutated: %+v", all)
			}
		})
	}
}

func TestListScopesByRoom(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	room1 := standupInput()
	room2 := standupInput()
	room2.Title = model.Ptr("Planning")
	room2.RoomID = model.Ptr(2)
	for _, in := range []model.EventInput{room1, room2} {
		if _, _, err := svc.Save(ctx, model.CreateRequest(in)); err != nil {
			t.Fatal(err)
		}
	}

	got, err := svc.List(ctx, ForRoom(2))
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Planning" || got[0].RoomID != 2 {
		t.Errorf("List(room 2) = %+v", got)
	}

	all, err := svc.List(ctx, AllRooms())
	if err != nil {
		t.Fatalf("List(all) error: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List(all) returned %d events, want 2", len(all))
	}

	empty, _ := svc.List(ctx, ForRoom(3))
	if len(empty) != 0 {
		t.Errorf("List(room 3) = %+v", empty)
	}
}

func TestSaveUpdate_TitleOnly(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	orig, _, err := svc.Save(ctx, model.CreateRequest(standupInput()))
	if err != nil {
		t.Fatal(err)
	}

	updated, created, err := svc.Save(ctx, model.UpdateRequest(orig.ID, model.EventInput{Title: model.Ptr("Daily sync")}))
	if err != nil {
		t.Fatalf("Save(update) error: %v", err)
	}
	if created {
		t.Error("expected created=false for update")
	}

	got, err := svc.Get(ctx, orig.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got != updated {
		t.Errorf("Get() = %+v, Save returned %+v", got, updated)
	}
	if got.ID != orig.ID || got.Title != "Daily sync" {
		t.Errorf("updated = %+v", got)
	}
	if got.Date != orig.Date || got.StartTime != orig.StartTime || got.EndTime != orig.EndTime {
		t.Errorf("untouched fields changed: before %+v after %+v", orig, got)
	}
}

func TestSaveUpdate_NotFound(t *testing.T) {
	svc, _ := newTestService()
	_, _, err := svc.Save(context.Background(), model.UpdateRequest("missing", model.EventInput{Title: model.Ptr("x")}))
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestSaveUpdate_RejectsBlankTitle(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	orig, _, _ := svc.Save(ctx, model.CreateRequest(standupInput()))

	_, _, err := svc.Save(ctx, model.UpdateRequest(orig.ID, model.EventInput{Title: model.Ptr("")}))
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("got %v, want validation error", err)
	}
	got, _ := svc.Get(ctx, orig.ID)
	if got.Title != "Standup" {
		t.Errorf("title changed to %q", got.Title)
	}
}

func TestSaveUpdate_EmptyColorResetsDefault(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	in := standupInput()
	in.Color = model.Ptr("#FF0000")
	orig, _, err := svc.Save(ctx, model.CreateRequest(in))
	if err != nil {
		t.Fatal(err)
	}

	updated, _, err := svc.Save(ctx, model.UpdateRequest(orig.ID, model.EventInput{Color: model.Ptr("")}))
	if err != nil {
		t.Fatalf("Save(update) error: %v", err)
	}
	if updated.Color != model.DefaultColor {
		t.Errorf("color = %q, want %q", updated.Color, model.DefaultColor)
	}
	if got, _ := svc.Get(ctx, orig.ID); got.Color != model.DefaultColor {
		t.Errorf("stored color = %q", got.Color)
	}
}

func TestDelete(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	ev, _, _ := svc.Save(ctx, model.CreateRequest(standupInput()))

	if err := svc.Delete(ctx, ev.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := svc.Get(ctx, ev.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get after delete: %v", err)
	}

	keep, _, _ := svc.Save(ctx, model.CreateRequest(standupInput()))
	if err := svc.Delete(ctx, "does-not-exist"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Delete(missing) = %v, want ErrNotFound", err)
	}
	all, _ := st.FindEvents(ctx, store.EventFilter{})
	if len(all) != 1 || all[0].ID != keep.ID {
		t.Errorf("store mutated by failed delete: %+v", all)
	}
}

func TestImportEvents(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	a := standupInput()
	a.RoomID = model.Ptr(1)
	b := model.EventInput{Title: model.Ptr("Offsite"), Date: model.Ptr(model.NewDate(2024, time.April, 1))}

	got, err := svc.ImportEvents(ctx, 3, []model.EventInput{a, b})
	if err != nil {
		t.Fatalf("ImportEvents() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("imported %d events, want 2", len(got))
	}
	for _, ev := range got {
		if ev.RoomID != 3 {
			t.Errorf("event %q landed in room %d", ev.Title, ev.RoomID)
		}
	}

	bad := []model.EventInput{b, {Date: model.Ptr(model.NewDate(2024, time.April, 2))}}
	partial, err := svc.ImportEvents(ctx, 2, bad)
	if err == nil {
		t.Fatal("expected error for event without title")
	}
	if len(partial) != 1 {
		t.Errorf("partial import = %d events, want 1", len(partial))
	}
}

func TestRooms(t *testing.T) {
	svc := NewService(memory.NewStore(), []model.Room{{ID: 3, Name: "C"}, {ID: 1, Name: "A"}}, "")
	rooms := svc.Rooms()
	if len(rooms) != 2 || rooms[0].ID != 1 || rooms[1].ID != 3 {
		t.Errorf("Rooms() = %+v", rooms)
	}
	if svc.HasRoom(2) {
		t.Error("room 2 should be unknown")
	}
}
