package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"roomcal/internal/auth"
	"roomcal/internal/config"
	"roomcal/internal/events"
	appLog "roomcal/internal/log"
	"roomcal/internal/monitor"
	"roomcal/internal/store"
	"roomcal/internal/store/memory"
	mongostore "roomcal/internal/store/mongo"
	"roomcal/internal/web"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "HTTP listen address (overrides config if set)",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "store driver, mongo or memory (overrides config if set)",
			},
		},
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if v := cmd.String("listen"); v != "" {
		cfg.Listen = v
	}
	if v := cmd.String("store"); v != "" {
		cfg.Store.Driver = v
		cfg.Normalize()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("--store: %w", err)
		}
	}

	appLog.Info("effective config",
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"week_start", cfg.WeekStart,
		"rooms", len(cfg.Rooms),
		"store", cfg.Store.Driver,
		"store_check", cfg.StoreCheck,
	)

	st, err := openStore(ctx, cfg)
	if st == nil {
		return err
	}
	if err != nil {
		// The driver keeps reconnecting; /health reports the outage.
		appLog.Error("store not reachable at startup, serving anyway", err)
	}
	defer closeStore(st)

	check := monitor.NewStoreCheck(st, time.Duration(cfg.Store.OpTimeoutSec)*time.Second)
	check.Run(ctx)
	if _, err := monitor.Schedule(ctx, cfg.StoreCheck, check); err != nil {
		return err
	}

	fetcher := auth.GoogleFetcher{Endpoint: cfg.Google.Endpoint}
	srv := web.NewServer(cfg, web.Deps{
		Events: events.NewService(st, cfg.ModelRooms(), cfg.DefaultColor),
		Auth:   auth.NewService(st, fetcher),
		Health: check,
	}, cmd.Bool("debug"))

	err = web.Serve(ctx, cfg.Listen, srv.Handler())
	appLog.Info("roomcal exiting")
	return err
}

// loadConfig reads --config (or the default path), then applies env
// overrides and validates.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")
	if path == "" {
		p, err := config.GetServerConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, err := config.Load(path)
	if cfg == nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err != nil {
		appLog.Error("failed to write default config", err, "config_path", path)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// openStore returns the configured store. A mongo store whose first ping
// failed is returned together with the error.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Store.Driver == "memory" {
		appLog.Info("using in-memory store, data is lost on exit")
		return memory.NewStore(), nil
	}

	st, err := mongostore.Connect(ctx, mongostore.Options{
		URI:            cfg.Store.URI,
		Database:       cfg.Store.Database,
		ConnectTimeout: time.Duration(cfg.Store.ConnectTimeoutSec) * time.Second,
		OpTimeout:      time.Duration(cfg.Store.OpTimeoutSec) * time.Second,
		Location:       cfg.Location(),
	})
	if st == nil {
		return nil, err
	}
	return st, err
}

func closeStore(st store.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := st.Close(ctx); err != nil {
		appLog.Error("store close failed", err)
	}
}
