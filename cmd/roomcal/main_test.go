package main

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"roomcal/internal/auth"
	"roomcal/internal/config"
	"roomcal/internal/events"
	"roomcal/internal/session"
	"roomcal/internal/store/memory"
	"roomcal/internal/web"
)

type fakeFetcher struct{}

func (fakeFetcher) FetchProfile(_ context.Context, token string) (auth.Profile, error) {
	if token != "good" {
		return auth.Profile{}, errors.New("invalid credentials")
	}
	return auth.Profile{GoogleID: "g1", Email: "ada@example.com", Name: "Ada"}, nil
}

func startServer(t *testing.T) string {
	t.Helper()
	cfg := config.DefaultConfig()
	st := memory.NewStore()
	srv := web.NewServer(cfg, web.Deps{
		Events: events.NewService(st, cfg.ModelRooms(), cfg.DefaultColor),
		Auth:   auth.NewService(st, fakeFetcher{}),
	}, false)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

// run executes one CLI invocation against server and returns stdout.
func run(t *testing.T, server, sessionPath string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	argv := append([]string{"roomcal", "--server", server, "--session", sessionPath, "--log-level", "error"}, args...)
	if err := app.Run(context.Background(), argv); err != nil {
		t.Fatalf("roomcal %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func TestClientCommands(t *testing.T) {
	server := startServer(t)
	sessionPath := filepath.Join(t.TempDir(), "session.json")

	if out := run(t, server, sessionPath, "login", "--credential", "good"); !strings.Contains(out, "ada@example.com") {
		t.Fatalf("login output = %q", out)
	}
	st, err := session.NewFileStore(sessionPath).Load()
	if err != nil || !st.SignedIn() {
		t.Fatalf("session after login = %+v, %v", st, err)
	}

	if out := run(t, server, sessionPath, "rooms"); !strings.Contains(out, "Room B") {
		t.Fatalf("rooms output = %q", out)
	}

	out := run(t, server, sessionPath, "events", "add", "--room", "1",
		"--title", "Standup", "--date", "2024-03-05", "--start", "09:00", "--end", "09:15")
	if !strings.HasPrefix(out, "Created ") {
		t.Fatalf("add output = %q", out)
	}
	id := strings.Fields(out)[1]

	if out := run(t, server, sessionPath, "events", "edit", "--title", "Retro", id); !strings.Contains(out, "Retro") {
		t.Fatalf("edit output = %q", out)
	}

	out = run(t, server, sessionPath, "events", "list", "--room", "1")
	if !strings.Contains(out, id) || !strings.Contains(out, "09:00-09:15") || !strings.Contains(out, "Retro") {
		t.Fatalf("list output = %q", out)
	}

	out = run(t, server, sessionPath, "view", "--room", "1", "--mode", "day", "--date", "2024-03-05")
	if !strings.Contains(out, "Tuesday, March 5, 2024") || !strings.Contains(out, "Retro") {
		t.Fatalf("view output = %q", out)
	}

	out = run(t, server, sessionPath, "export", "--room", "1", "--remote")
	if !strings.Contains(out, "BEGIN:VCALENDAR") || !strings.Contains(out, "SUMMARY:Retro") {
		t.Fatalf("export output = %q", out)
	}

	if out := run(t, server, sessionPath, "events", "delete", "--yes", id); !strings.Contains(out, "Deleted") {
		t.Fatalf("delete output = %q", out)
	}
	if out := run(t, server, sessionPath, "events", "list", "--room", "1"); strings.Contains(out, id) {
		t.Fatalf("event still listed after delete: %q", out)
	}

	run(t, server, sessionPath, "theme", "dark")
	run(t, server, sessionPath, "logout")
	st, err = session.NewFileStore(sessionPath).Load()
	if err != nil || st.SignedIn() || !st.DarkMode {
		t.Fatalf("session after logout = %+v, %v", st, err)
	}
}

func TestServeRejectsUnknownStore(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	err := app.Run(context.Background(), []string{"roomcal", "--config", cfgPath, "--log-level", "error", "serve", "--store", "mongdb"})
	if err == nil || !strings.Contains(err.Error(), "mongdb") {
		t.Fatalf("err = %v, want unknown driver error", err)
	}
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer
	if !confirm(&out, strings.NewReader("yes\n"), "Delete?") {
		t.Error("yes should confirm")
	}
	if confirm(&out, strings.NewReader("\n"), "Delete?") {
		t.Error("empty answer should not confirm")
	}
	if !strings.Contains(out.String(), "Delete? [y/N]") {
		t.Errorf("prompt = %q", out.String())
	}
}
