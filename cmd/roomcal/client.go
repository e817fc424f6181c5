package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"roomcal/internal/calendar"
	"roomcal/internal/client"
	"roomcal/internal/model"
	"roomcal/internal/session"
)

// clientEnv is what every client command works with: the API client and
// the session, loaded once per invocation.
type clientEnv struct {
	api   *client.Client
	store *session.FileStore
	state session.State
	out   io.Writer
}

func newClientEnv(cmd *cli.Command) (*clientEnv, error) {
	fs, err := sessionStore(cmd)
	if err != nil {
		return nil, err
	}
	st, err := fs.Load()
	if err != nil {
		return nil, err
	}
	return &clientEnv{
		api:   client.New(cmd.String("server"), &http.Client{Timeout: cmd.Duration("timeout")}),
		store: fs,
		state: st,
		out:   cmd.Root().Writer,
	}, nil
}

func sessionStore(cmd *cli.Command) (*session.FileStore, error) {
	if path := cmd.String("session"); path != "" {
		return session.NewFileStore(path), nil
	}
	return session.DefaultFileStore()
}

func (e *clientEnv) requireSignIn() error {
	if !e.state.SignedIn() {
		return cli.Exit("not signed in; run `roomcal login --credential TOKEN` first", 1)
	}
	return nil
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "sign in with a Google OAuth access token",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "credential",
				Usage:    "Google access token",
				Required: true,
				Sources:  cli.EnvVars("GOOGLE_ACCESS_TOKEN"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, err := newClientEnv(cmd)
			if err != nil {
				return err
			}
			cred := cmd.String("credential")
			res, err := env.api.SignIn(ctx, cred)
			if err != nil {
				return err
			}
			env.state.SignIn(&oauth2.Token{AccessToken: cred, TokenType: "Bearer"}, res.User)
			if err := env.store.Save(env.state); err != nil {
				return err
			}
			fmt.Fprintf(env.out, "Signed in as %s <%s>\n", res.User.DisplayName, res.User.Email)
			return nil
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "forget the signed-in user",
		Action: func(_ context.Context, cmd *cli.Command) error {
			fs, err := sessionStore(cmd)
			if err != nil {
				return err
			}
			if err := fs.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.Root().Writer, "Signed out")
			return nil
		},
	}
}

func themeCommand() *cli.Command {
	return &cli.Command{
		Name:      "theme",
		Usage:     "show or set the saved theme",
		ArgsUsage: "[dark|light]",
		Action: func(_ context.Context, cmd *cli.Command) error {
			env, err := newClientEnv(cmd)
			if err != nil {
				return err
			}
			switch arg := cmd.Args().First(); arg {
			case "":
			case "dark", "light":
				env.state.DarkMode = arg == "dark"
				if err := env.store.Save(env.state); err != nil {
					return err
				}
			default:
				return cli.Exit(fmt.Sprintf("unknown theme %q", arg), 1)
			}
			theme := "light"
			if env.state.DarkMode {
				theme = "dark"
			}
			fmt.Fprintln(env.out, theme)
			return nil
		},
	}
}

func roomsCommand() *cli.Command {
	return &cli.Command{
		Name:  "rooms",
		Usage: "list rooms",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, err := newClientEnv(cmd)
			if err != nil {
				return err
			}
			rooms, err := env.api.Rooms(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(env.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, r := range rooms {
				fmt.Fprintf(tw, "%d\t%s\n", r.ID, r.Name)
			}
			return tw.Flush()
		},
	}
}

// eventFieldFlags are shared by add and edit. Only flags given on the
// command line are applied.
func eventFieldFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title"},
		&cli.StringFlag{Name: "date", Usage: "YYYY-MM-DD"},
		&cli.StringFlag{Name: "start", Usage: "start time HH:MM"},
		&cli.StringFlag{Name: "end", Usage: "end time HH:MM"},
		&cli.StringFlag{Name: "description"},
		&cli.StringFlag{Name: "color", Usage: "hex color such as #4CAF50"},
	}
}

func applyEventFlags(cmd *cli.Command, in *model.EventInput) error {
	set := func(name string, dst **string) {
		if cmd.IsSet(name) {
			*dst = model.Ptr(cmd.String(name))
		}
	}
	set("title", &in.Title)
	set("start", &in.StartTime)
	set("end", &in.EndTime)
	set("description", &in.Description)
	set("color", &in.Color)
	if cmd.IsSet("date") {
		d, err := model.ParseDate(cmd.String("date"))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		in.Date = &d
	}
	return nil
}

func eventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "list and edit a room's events",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "list a room's events",
				Flags:  []cli.Flag{roomFlag()},
				Action: runEventsList,
			},
			{
				Name:   "add",
				Usage:  "create an event",
				Flags:  append([]cli.Flag{roomFlag()}, eventFieldFlags()...),
				Action: runEventsAdd,
			},
			{
				Name:      "edit",
				Usage:     "change fields of an event",
				ArgsUsage: "ID",
				Flags:     append(eventFieldFlags(), &cli.IntFlag{Name: "room", Usage: "move the event to another room"}),
				Action:    runEventsEdit,
			},
			{
				Name:      "delete",
				Usage:     "delete an event",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
				},
				Action: runEventsDelete,
			},
		},
	}
}

func runEventsList(ctx context.Context, cmd *cli.Command) error {
	env, err := newClientEnv(cmd)
	if err != nil {
		return err
	}
	if err := env.requireSignIn(); err != nil {
		return err
	}
	sync := client.NewSync(env.api, int(cmd.Int("room")))
	if err := sync.Refresh(ctx); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(env.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTIME\tTITLE")
	for _, ev := range sync.Events() {
		span := ev.StartTime
		if ev.EndTime != "" {
			span += "-" + ev.EndTime
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ev.ID, ev.Date, span, ev.Title)
	}
	return tw.Flush()
}

func runEventsAdd(ctx context.Context, cmd *cli.Command) error {
	env, err := newClientEnv(cmd)
	if err != nil {
		return err
	}
	if err := env.requireSignIn(); err != nil {
		return err
	}

	date := model.DateOf(time.Now())
	if cmd.IsSet("date") {
		if date, err = model.ParseDate(cmd.String("date")); err != nil {
			return cli.Exit(err.Error(), 1)
		}
	}

	modal := client.NewModal(client.NewSync(env.api, int(cmd.Int("room"))))
	if err := modal.OpenCreate(date); err != nil {
		return err
	}
	var flagErr error
	_ = modal.Edit(func(in *model.EventInput) { flagErr = applyEventFlags(cmd, in) })
	if flagErr != nil {
		return flagErr
	}
	ev, err := modal.Save(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "Created %s (%s on %s)\n", ev.ID, ev.Title, ev.Date)
	return nil
}

func runEventsEdit(ctx context.Context, cmd *cli.Command) error {
	env, err := newClientEnv(cmd)
	if err != nil {
		return err
	}
	if err := env.requireSignIn(); err != nil {
		return err
	}
	id := cmd.Args().First()
	if id == "" {
		return cli.Exit("event id is required", 1)
	}

	ev, err := env.api.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	modal := client.NewModal(client.NewSync(env.api, ev.RoomID))
	if err := modal.OpenEdit(ev); err != nil {
		return err
	}
	var flagErr error
	_ = modal.Edit(func(in *model.EventInput) {
		flagErr = applyEventFlags(cmd, in)
		if cmd.IsSet("room") {
			in.RoomID = model.Ptr(int(cmd.Int("room")))
		}
	})
	if flagErr != nil {
		return flagErr
	}
	updated, err := modal.Save(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "Updated %s (%s on %s)\n", updated.ID, updated.Title, updated.Date)
	return nil
}

func runEventsDelete(ctx context.Context, cmd *cli.Command) error {
	env, err := newClientEnv(cmd)
	if err != nil {
		return err
	}
	if err := env.requireSignIn(); err != nil {
		return err
	}
	id := cmd.Args().First()
	if id == "" {
		return cli.Exit("event id is required", 1)
	}

	ev, err := env.api.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	modal := client.NewModal(client.NewSync(env.api, ev.RoomID))
	if err := modal.OpenEdit(ev); err != nil {
		return err
	}
	if err := modal.RequestDelete(); err != nil {
		return err
	}
	if !cmd.Bool("yes") && !confirm(env.out, os.Stdin, fmt.Sprintf("Delete %q on %s?", ev.Title, ev.Date)) {
		_ = modal.CancelDelete()
		modal.Close()
		fmt.Fprintln(env.out, "Cancelled")
		return nil
	}
	if err := modal.ConfirmDelete(ctx); err != nil {
		return err
	}
	fmt.Fprintf(env.out, "Deleted %s\n", id)
	return nil
}

func confirm(w io.Writer, r io.Reader, prompt string) bool {
	fmt.Fprintf(w, "%s [y/N] ", prompt)
	line, _ := bufio.NewReader(r).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func viewCommand() *cli.Command {
	return &cli.Command{
		Name:  "view",
		Usage: "print a month, week or day of a room",
		Flags: []cli.Flag{
			roomFlag(),
			&cli.StringFlag{Name: "mode", Value: string(calendar.ViewMonth), Usage: "month, week or day"},
			&cli.StringFlag{Name: "date", Usage: "reference date YYYY-MM-DD (default today on the server)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, err := newClientEnv(cmd)
			if err != nil {
				return err
			}
			if err := env.requireSignIn(); err != nil {
				return err
			}

			mode, err := calendar.ParseViewMode(cmd.String("mode"))
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			var ref model.Date
			if raw := cmd.String("date"); raw != "" {
				if ref, err = model.ParseDate(raw); err != nil {
					return cli.Exit(err.Error(), 1)
				}
			}

			// The server owns week start and timezone.
			v, err := env.api.View(ctx, int(cmd.Int("room")), mode, ref)
			if err != nil {
				return err
			}
			env.state.RoomID = v.RoomID
			env.state.View = v.Mode
			env.state.Reference = v.Date
			return calendar.RenderView(env.out, v)
		},
	}
}
