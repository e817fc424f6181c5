package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"roomcal/internal/auth"
	"roomcal/internal/calendar"
	"roomcal/internal/config"
	"roomcal/internal/events"
	"roomcal/internal/model"
	"roomcal/internal/monitor"
	"roomcal/internal/store/memory"
)

type fakeFetcher struct{}

func (fakeFetcher) FetchProfile(_ context.Context, token string) (auth.Profile, error) {
	if token != "good" {
		return auth.Profile{}, errors.New("invalid credentials")
	}
	return auth.Profile{GoogleID: "g1", Email: "ada@example.com", Name: "Ada", Picture: "https://example.com/a.png"}, nil
}

func newTestServer(t *testing.T, mutate func(*config.Config, *Deps)) *httptest.Server {
	t.Helper()
	cfg := config.DefaultConfig()
	st := memory.NewStore()
	deps := Deps{
		Events: events.NewService(st, cfg.ModelRooms(), cfg.DefaultColor),
		Auth:   auth.NewService(st, fakeFetcher{}),
	}
	if mutate != nil {
		mutate(cfg, &deps)
	}
	s := NewServer(cfg, deps, false)
	s.SetClock(func() time.Time { return time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC) })
	server := httptest.NewServer(s.Handler())
	t.Cleanup(server.Close)
	return server
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

const standupJSON = `{"title":"Standup","date":"2024-03-05","startTime":"09:00","endTime":"09:15","roomId":1}`

func TestCreateEvent(t *testing.T) {
	server := newTestServer(t, nil)

	resp, data := do(t, http.MethodPost, server.URL+"/api/events", standupJSON)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, body %s", resp.StatusCode, data)
	}
	ev := decode[model.Event](t, data)
	if ev.ID == "" || ev.Color != "#4CAF50" || ev.Title != "Standup" || ev.RoomID != 1 {
		t.Errorf("created = %+v", ev)
	}

	resp, data = do(t, http.MethodGet, server.URL+"/api/events/"+ev.ID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET status = %d", resp.StatusCode)
	}
	if got := decode[model.Event](t, data); got != ev {
		t.Errorf("GET = %+v, want %+v", got, ev)
	}
}

func TestCreateEvent_BrowserTimestamp(t *testing.T) {
	server := newTestServer(t, func(cfg *config.Config, _ *Deps) { cfg.Timezone = "Asia/Kolkata" })
	t.Cleanup(func() { model.SetTimestampLocation(nil) })

	body := `{"title":"Standup","date":"2024-03-04T18:30:00.000Z","roomId":1}`
	resp, data := do(t, http.MethodPost, server.URL+"/api/events", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, body %s", resp.StatusCode, data)
	}
	if ev := decode[model.Event](t, data); ev.Date != model.NewDate(2024, time.March, 5) {
		t.Errorf("date = %v, want 2024-03-05", ev.Date)
	}
}

func TestCreateEvent_Invalid(t *testing.T) {
	server := newTestServer(t, nil)

	tests := map[string]string{
		"missing title": `{"date":"2024-03-05","roomId":1}`,
		"bad date":      `{"title":"x","date":"March 5","roomId":1}`,
		"unknown room":  `{"title":"x","date":"2024-03-05","roomId":42}`,
		"not json":      `{"title":`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			resp, data := do(t, http.MethodPost, server.URL+"/api/events", body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, body %s", resp.StatusCode, data)
			}
			if msg := decode[map[string]string](t, data)["message"]; msg == "" {
				t.Errorf("missing message in %s", data)
			}
		})
	}
}

func TestUpsertUpdate(t *testing.T) {
	server := newTestServer(t, nil)
	_, data := do(t, http.MethodPost, server.URL+"/api/events", standupJSON)
	orig := decode[model.Event](t, data)

	for _, key := range []string{"_id", "id"} {
		body := `{"` + key + `":"` + orig.ID + `","title":"Renamed by ` + key + `"}`
		resp, data := do(t, http.MethodPost, server.URL+"/api/events", body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("update via %s: status = %d, body %s", key, resp.StatusCode, data)
		}
		got := decode[model.Event](t, data)
		if got.ID != orig.ID || got.Title != "Renamed by "+key {
			t.Errorf("update via %s = %+v", key, got)
		}
		if got.Date != orig.Date || got.StartTime != orig.StartTime || got.EndTime != orig.EndTime {
			t.Errorf("update via %s changed untouched fields: %+v", key, got)
		}
	}

	resp, data := do(t, http.MethodPost, server.URL+"/api/events", `{"_id":"nope","title":"x"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("update of missing id: status = %d", resp.StatusCode)
	}
	if msg := decode[map[string]string](t, data)["message"]; msg != "Event not found" {
		t.Errorf("message = %q", msg)
	}
}

func TestPutEvent(t *testing.T) {
	server := newTestServer(t, nil)
	_, data := do(t, http.MethodPost, server.URL+"/api/events", standupJSON)
	orig := decode[model.Event](t, data)

	resp, data := do(t, http.MethodPut, server.URL+"/api/events/"+orig.ID, `{"color":"#000"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d, body %s", resp.StatusCode, data)
	}
	if got := decode[model.Event](t, data); got.Color != "#000" || got.Title != "Standup" {
		t.Errorf("PUT = %+v", got)
	}

	resp, _ = do(t, http.MethodPut, server.URL+"/api/events/missing", `{"title":"x"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("PUT missing: status = %d", resp.StatusCode)
	}
}

func TestListEvents(t *testing.T) {
	server := newTestServer(t, nil)
	do(t, http.MethodPost, server.URL+"/api/events", standupJSON)
	do(t, http.MethodPost, server.URL+"/api/events", `{"title":"Planning","date":"2024-03-06","roomId":2}`)

	resp, data := do(t, http.MethodGet, server.URL+"/api/events?roomId=2", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	room2 := decode[[]model.Event](t, data)
	if len(room2) != 1 || room2[0].Title != "Planning" {
		t.Errorf("room 2 = %+v", room2)
	}

	_, data = do(t, http.MethodGet, server.URL+"/api/events?roomId=3", "")
	if got := strings.TrimSpace(string(data)); got != "[]" {
		t.Errorf("empty room body = %s, want []", got)
	}

	_, data = do(t, http.MethodGet, server.URL+"/api/events?roomId=all", "")
	if all := decode[[]model.Event](t, data); len(all) != 2 {
		t.Errorf("roomId=all returned %d events", len(all))
	}

	resp, _ = do(t, http.MethodGet, server.URL+"/api/events", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unfiltered list: status = %d, want 400", resp.StatusCode)
	}
	resp, _ = do(t, http.MethodGet, server.URL+"/api/events?roomId=abc", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("roomId=abc: status = %d, want 400", resp.StatusCode)
	}
}

func TestListEvents_LegacyUnfiltered(t *testing.T) {
	server := newTestServer(t, func(cfg *config.Config, _ *Deps) { cfg.AllowUnfilteredList = true })
	do(t, http.MethodPost, server.URL+"/api/events", standupJSON)

	resp, data := do(t, http.MethodGet, server.URL+"/api/events", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if all := decode[[]model.Event](t, data); len(all) != 1 {
		t.Errorf("got %d events", len(all))
	}
}

func TestDeleteEvent(t *testing.T) {
	server := newTestServer(t, nil)
	_, data := do(t, http.MethodPost, server.URL+"/api/events", standupJSON)
	ev := decode[model.Event](t, data)

	resp, data := do(t, http.MethodDelete, server.URL+"/api/events/"+ev.ID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("DELETE status = %d", resp.StatusCode)
	}
	if msg := decode[map[string]string](t, data)["message"]; msg != "Event deleted" {
		t.Errorf("message = %q", msg)
	}

	resp, _ = do(t, http.MethodGet, server.URL+"/api/events/"+ev.ID, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET after delete: status = %d", resp.StatusCode)
	}
	resp, _ = do(t, http.MethodDelete, server.URL+"/api/events/"+ev.ID, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second DELETE: status = %d", resp.StatusCode)
	}
}

func TestGoogleAuth(t *testing.T) {
	server := newTestServer(t, nil)

	resp, data := do(t, http.MethodPost, server.URL+"/api/auth/google", `{"credential":"good"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, data)
	}
	res := decode[model.AuthResult](t, data)
	if !res.Success || res.User.ID == "" || res.User.Email != "ada@example.com" || res.User.GoogleID != "g1" {
		t.Errorf("auth result = %+v", res)
	}

	resp, data = do(t, http.MethodPost, server.URL+"/api/auth/google", `{"credential":"bad"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad credential: status = %d", resp.StatusCode)
	}
	fail := decode[map[string]any](t, data)
	if fail["success"] != false || fail["message"] != "Authentication failed" {
		t.Errorf("failure body = %s", data)
	}
}

func TestRooms(t *testing.T) {
	server := newTestServer(t, nil)
	_, data := do(t, http.MethodGet, server.URL+"/api/rooms", "")
	rooms := decode[[]model.Room](t, data)
	if len(rooms) != 3 || rooms[0].Name != "Room A" {
		t.Errorf("rooms = %+v", rooms)
	}
}

func TestCalendarView(t *testing.T) {
	server := newTestServer(t, nil)
	do(t, http.MethodPost, server.URL+"/api/events", standupJSON)
	do(t, http.MethodPost, server.URL+"/api/events", `{"title":"All hands","date":"2024-03-05","roomId":1}`)

	resp, data := do(t, http.MethodGet, server.URL+"/api/calendar?roomId=1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, data)
	}
	month := decode[calendar.View](t, data)
	if month.Header != "March 2024" || month.LeadingBlanks != 5 || len(month.Days) != 31 {
		t.Errorf("month view = %s, %d blanks, %d days", month.Header, month.LeadingBlanks, len(month.Days))
	}
	day5 := month.Days[4]
	if !day5.Today || len(day5.Events) != 2 || day5.Events[0].Title != "Standup" {
		t.Errorf("March 5 = %+v", day5)
	}
	if month.Next != model.NewDate(2024, time.April, 1) {
		t.Errorf("next = %v", month.Next)
	}

	_, data = do(t, http.MethodGet, server.URL+"/api/calendar?roomId=1&view=day&date=2024-03-05", "")
	day := decode[calendar.View](t, data)
	if len(day.Hours) != 24 || len(day.Hours[9].Events) != 1 || len(day.Unscheduled) != 1 {
		t.Errorf("day view hours=%d h9=%d unscheduled=%d", len(day.Hours), len(day.Hours[9].Events), len(day.Unscheduled))
	}

	_, data = do(t, http.MethodGet, server.URL+"/api/calendar?roomId=1&view=week&date=2024-02-28", "")
	if week := decode[calendar.View](t, data); week.Header != "Feb 25 - Mar 2, 2024" || len(week.Days) != 7 {
		t.Errorf("week view = %+v", week)
	}

	for _, q := range []string{"roomId=x", "roomId=1&view=year", "roomId=1&date=yesterday"} {
		resp, _ := do(t, http.MethodGet, server.URL+"/api/calendar?"+q, "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestRoomICS(t *testing.T) {
	server := newTestServer(t, nil)
	do(t, http.MethodPost, server.URL+"/api/events", standupJSON)

	resp, data := do(t, http.MethodGet, server.URL+"/api/rooms/1/calendar.ics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(string(data), "SUMMARY:Standup") {
		t.Errorf("export missing event:\n%s", data)
	}

	resp, _ = do(t, http.MethodGet, server.URL+"/api/rooms/9/calendar.ics", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown room: status = %d", resp.StatusCode)
	}
}

type togglePinger struct{ err error }

func (p *togglePinger) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	server := newTestServer(t, nil)
	resp, _ := do(t, http.MethodGet, server.URL+"/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health without check: status = %d", resp.StatusCode)
	}

	pinger := &togglePinger{err: errors.New("down")}
	check := monitor.NewStoreCheck(pinger, time.Second)
	check.Run(context.Background())
	server = newTestServer(t, func(_ *config.Config, d *Deps) { d.Health = check })

	resp, data := do(t, http.MethodGet, server.URL+"/health", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	if body := decode[healthResponse](t, data); body.Status != "degraded" || body.Store == nil || body.Store.Error != "down" {
		t.Errorf("body = %s", data)
	}

	pinger.err = nil
	check.Run(context.Background())
	resp, _ = do(t, http.MethodGet, server.URL+"/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("after recovery: status = %d", resp.StatusCode)
	}
}

func TestCORS(t *testing.T) {
	server := newTestServer(t, nil)

	req, _ := http.NewRequest(http.MethodOptions, server.URL+"/api/events", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Allow-Origin = %q", got)
	}

	req, _ = http.NewRequest(http.MethodGet, server.URL+"/api/rooms", nil)
	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin got Allow-Origin %q", got)
	}
}
