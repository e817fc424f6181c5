package web

import (
	"encoding/json"
	"net/http"

	"roomcal/internal/events"
	"roomcal/internal/model"
)

const eventNotFound = "Event not found"

// saveEventBody is the legacy upsert payload: event fields plus an
// optional id under either "id" or "_id".
type saveEventBody struct {
	ID      string `json:"id,omitempty"`
	MongoID string `json:"_id,omitempty"`
	model.EventInput
}

func (b saveEventBody) request() model.SaveRequest {
	id := b.ID
	if id == "" {
		id = b.MongoID
	}
	if id == "" {
		return model.CreateRequest(b.EventInput)
	}
	return model.UpdateRequest(id, b.EventInput)
}

// handleListEvents serves GET /api/events?roomId=N. roomId=all lists
// every room; omitting roomId is only allowed when the server is
// configured for room-unaware clients.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	var scope events.RoomScope
	switch raw := r.URL.Query().Get("roomId"); raw {
	case "all":
		scope = events.AllRooms()
	case "":
		if !s.cfg.AllowUnfilteredList {
			writeError(w, http.StatusBadRequest, "roomId is required (use roomId=all for every room)")
			return
		}
		scope = events.AllRooms()
	default:
		id, err := parseRoomID(raw)
		if err != nil {
			writeServiceError(w, err, "")
			return
		}
		scope = events.ForRoom(id)
	}

	evs, err := s.deps.Events.List(r.Context(), scope)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, evs)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.deps.Events.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, eventNotFound)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// handleSaveEvent serves the legacy POST /api/events upsert. The presence
// of an id decides create (201) versus update (200).
func (s *Server) handleSaveEvent(w http.ResponseWriter, r *http.Request) {
	var body saveEventBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event payload: "+err.Error())
		return
	}
	s.save(w, r, body.request())
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var body saveEventBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event payload: "+err.Error())
		return
	}
	s.save(w, r, model.UpdateRequest(r.PathValue("id"), body.EventInput))
}

func (s *Server) save(w http.ResponseWriter, r *http.Request, req model.SaveRequest) {
	ev, created, err := s.deps.Events.Save(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, eventNotFound)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, ev)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Events.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err, eventNotFound)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Event deleted"})
}
