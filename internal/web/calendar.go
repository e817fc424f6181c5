package web

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"roomcal/internal/calendar"
	"roomcal/internal/events"
	"roomcal/internal/ics"
	appLog "roomcal/internal/log"
	"roomcal/internal/model"
)

// handleCalendar serves GET /api/calendar?roomId=N&view=week&date=2024-03-05.
// date defaults to today in the configured timezone.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	roomID, err := parseRoomID(q.Get("roomId"))
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	mode, err := calendar.ParseViewMode(q.Get("view"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ref := s.engine.Today()
	if raw := q.Get("date"); raw != "" {
		if ref, err = model.ParseDate(raw); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	evs, err := s.deps.Events.List(r.Context(), events.ForRoom(roomID))
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	view := s.engine.BuildView(ref, mode, evs)
	view.RoomID = roomID
	writeJSON(w, http.StatusOK, view)
}

// handleRoomICS exports one room as text/calendar.
func (s *Server) handleRoomICS(w http.ResponseWriter, r *http.Request) {
	roomID, err := parseRoomID(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	var room model.Room
	found := false
	for _, rm := range s.deps.Events.Rooms() {
		if rm.ID == roomID {
			room, found = rm, true
			break
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, "Room not found")
		return
	}

	evs, err := s.deps.Events.List(r.Context(), events.ForRoom(roomID))
	if err != nil {
		writeServiceError(w, err, "")
		return
	}

	var buf bytes.Buffer
	if err := ics.Export(&buf, room, evs, s.engine.Location, time.Now()); err != nil {
		appLog.Error("ics export failed", err, "room", roomID)
		writeError(w, http.StatusInternalServerError, "failed to export calendar")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="room-%d.ics"`, roomID))
	_, _ = w.Write(buf.Bytes())
}
