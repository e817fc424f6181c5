package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"roomcal/internal/model"
)

// ModalState is the state of the event edit dialog.
type ModalState int

const (
	ModalClosed ModalState = iota
	ModalCreating
	ModalEditing
	ModalConfirmingDelete
)

func (s ModalState) String() string {
	switch s {
	case ModalClosed:
		return "closed"
	case ModalCreating:
		return "creating"
	case ModalEditing:
		return "editing"
	case ModalConfirmingDelete:
		return "confirming-delete"
	default:
		return fmt.Sprintf("ModalState(%d)", int(s))
	}
}

// ErrInvalidTransition is returned when an action does not apply to the
// current state.
var ErrInvalidTransition = errors.New("invalid modal transition")

// Modal drives creating, editing and deleting one event through Sync.
// Only a successful save or delete closes it.
type Modal struct {
	sync    *Sync
	state   ModalState
	draft   model.EventInput
	editing model.Event
}

// NewModal returns a closed modal bound to s.
func NewModal(s *Sync) *Modal {
	return &Modal{sync: s}
}

func (m *Modal) State() ModalState { return m.state }

// Draft returns the form contents.
func (m *Modal) Draft() model.EventInput { return m.draft }

// Editing returns the event being edited, if any.
func (m *Modal) Editing() (model.Event, bool) {
	if m.state != ModalEditing && m.state != ModalConfirmingDelete {
		return model.Event{}, false
	}
	return m.editing, true
}

// OpenCreate opens an empty form for date in the current room.
func (m *Modal) OpenCreate(date model.Date) error {
	if m.state != ModalClosed {
		return fmt.Errorf("%w: open create while %s", ErrInvalidTransition, m.state)
	}
	m.draft = model.EventInput{
		Title:  model.Ptr(""),
		Date:   model.Ptr(date),
		RoomID: model.Ptr(m.sync.RoomID()),
	}
	m.state = ModalCreating
	return nil
}

// OpenEdit opens the form pre-filled with ev.
func (m *Modal) OpenEdit(ev model.Event) error {
	if m.state != ModalClosed {
		return fmt.Errorf("%w: open edit while %s", ErrInvalidTransition, m.state)
	}
	m.editing = ev
	m.draft = model.InputFromEvent(ev)
	m.state = ModalEditing
	return nil
}

// Edit applies change to the draft.
func (m *Modal) Edit(change func(*model.EventInput)) error {
	if m.state != ModalCreating && m.state != ModalEditing {
		return fmt.Errorf("%w: edit while %s", ErrInvalidTransition, m.state)
	}
	change(&m.draft)
	return nil
}

// Save submits the draft. A blank title is rejected locally without a
// request and the modal stays open. On a server error the modal also
// stays open with the draft intact.
func (m *Modal) Save(ctx context.Context) (model.Event, error) {
	if m.state != ModalCreating && m.state != ModalEditing {
		return model.Event{}, fmt.Errorf("%w: save while %s", ErrInvalidTransition, m.state)
	}
	if m.draft.Title == nil || strings.TrimSpace(*m.draft.Title) == "" {
		return model.Event{}, model.Invalid("title", "is required")
	}

	var (
		ev  model.Event
		err error
	)
	if m.state == ModalCreating {
		ev, err = m.sync.Create(ctx, m.draft)
	} else {
		ev, err = m.sync.Update(ctx, m.editing.ID, m.draft)
	}
	if err != nil {
		return model.Event{}, err
	}
	m.Close()
	return ev, nil
}

// RequestDelete asks for confirmation before deleting the edited event.
func (m *Modal) RequestDelete() error {
	if m.state != ModalEditing {
		return fmt.Errorf("%w: delete while %s", ErrInvalidTransition, m.state)
	}
	m.state = ModalConfirmingDelete
	return nil
}

// CancelDelete returns to the edit form.
func (m *Modal) CancelDelete() error {
	if m.state != ModalConfirmingDelete {
		return fmt.Errorf("%w: cancel delete while %s", ErrInvalidTransition, m.state)
	}
	m.state = ModalEditing
	return nil
}

// ConfirmDelete deletes the edited event. On failure the modal returns
// to the edit form.
func (m *Modal) ConfirmDelete(ctx context.Context) error {
	if m.state != ModalConfirmingDelete {
		return fmt.Errorf("%w: confirm delete while %s", ErrInvalidTransition, m.state)
	}
	if err := m.sync.Delete(ctx, m.editing.ID); err != nil {
		m.state = ModalEditing
		return err
	}
	m.Close()
	return nil
}

// Close discards the draft from any state.
func (m *Modal) Close() {
	m.state = ModalClosed
	m.draft = model.EventInput{}
	m.editing = model.Event{}
}
