package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"roomcal/internal/config"
	"roomcal/internal/events"
	"roomcal/internal/ics"
	appLog "roomcal/internal/log"
	"roomcal/internal/model"
)

func roomFlag() *cli.IntFlag {
	return &cli.IntFlag{
		Name:     "room",
		Usage:    "room id",
		Required: true,
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write a room's events to stdout as iCalendar",
		Flags: []cli.Flag{
			roomFlag(),
			&cli.StringFlag{Name: "out", Usage: "write to a file instead of stdout"},
			&cli.BoolFlag{Name: "remote", Usage: "download from --server instead of reading the store"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("remote") {
				return exportRemote(ctx, cmd)
			}
			cfg, svc, done, err := openEventService(ctx, cmd)
			if err != nil {
				return err
			}
			defer done()

			room, err := findRoom(svc, int(cmd.Int("room")))
			if err != nil {
				return err
			}
			evs, err := svc.List(ctx, events.ForRoom(room.ID))
			if err != nil {
				return err
			}

			w := cmd.Root().Writer
			if path := cmd.String("out"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := ics.Export(w, room, evs, cfg.Location(), time.Now()); err != nil {
				return err
			}
			appLog.Info("room exported", "room", room.ID, "events", len(evs))
			return nil
		},
	}
}

func exportRemote(ctx context.Context, cmd *cli.Command) error {
	env, err := newClientEnv(cmd)
	if err != nil {
		return err
	}
	body, err := env.api.ExportICS(ctx, int(cmd.Int("room")))
	if err != nil {
		return err
	}
	if path := cmd.String("out"); path != "" {
		return os.WriteFile(path, body, 0o644)
	}
	_, err = env.out.Write(body)
	return err
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "create events in a room from an ICS feed URL or file",
		Flags: []cli.Flag{
			roomFlag(),
			&cli.StringFlag{
				Name:     "source",
				Usage:    "ICS URL (http/https) or local path",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "expand-days",
				Usage: "expand recurring events over this many days from today (0 imports the first occurrence only)",
				Value: 90,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, svc, done, err := openEventService(ctx, cmd)
			if err != nil {
				return err
			}
			defer done()

			room, err := findRoom(svc, int(cmd.Int("room")))
			if err != nil {
				return err
			}

			fetcher := ics.NewFetcher(cfg.ICSCacheDir, nil)
			res, err := fetcher.Fetch(ctx, ics.Source{
				ID:       fmt.Sprintf("room-%d", room.ID),
				Location: cmd.String("source"),
			})
			if err != nil {
				return err
			}
			parsed, err := ics.ParseICS(res.Source, res.Body)
			if err != nil {
				return err
			}
			if days := int(cmd.Int("expand-days")); days > 0 {
				from := model.DateOf(time.Now().In(cfg.Location())).In(cfg.Location())
				parsed, err = ics.Expand(parsed, ics.ExpandWindow{From: from, To: from.AddDate(0, 0, days)})
				if err != nil {
					return err
				}
			}

			created, err := svc.ImportEvents(ctx, room.ID, ics.ToInputs(parsed, cfg.Location()))
			fmt.Fprintf(cmd.Root().Writer, "Imported %d of %d events into %s\n", len(created), len(parsed), room.Name)
			return err
		},
	}
}

// openEventService connects to the configured store for offline
// commands. Unlike serve, an unreachable store is an error here.
func openEventService(ctx context.Context, cmd *cli.Command) (*config.Config, *events.Service, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		if st != nil {
			closeStore(st)
		}
		return nil, nil, nil, err
	}
	svc := events.NewService(st, cfg.ModelRooms(), cfg.DefaultColor)
	return cfg, svc, func() { closeStore(st) }, nil
}

func findRoom(svc *events.Service, id int) (model.Room, error) {
	for _, r := range svc.Rooms() {
		if r.ID == id {
			return r, nil
		}
	}
	return model.Room{}, cli.Exit(fmt.Sprintf("unknown room %d", id), 1)
}
