package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	appLog "roomcal/internal/log"
)

const version = "0.3.0"

func main() {
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := newApp().Run(ctx, os.Args); err != nil {
		appLog.Error("roomcal failed", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "roomcal",
		Usage:   "shared per-room calendar: REST server and terminal client",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "server config file (default ~/.config/roomcal/config.yaml)",
				Sources: cli.EnvVars("ROOMCAL_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info or error",
				Value:   "info",
				Sources: cli.EnvVars("ROOMCAL_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "server",
				Usage:   "base URL of the roomcal server (client commands)",
				Value:   "http://localhost:3000",
				Sources: cli.EnvVars("ROOMCAL_SERVER"),
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "per-request timeout for client commands",
				Value: 15 * time.Second,
			},
			&cli.StringFlag{
				Name:  "session",
				Usage: "client session file (default ~/.config/roomcal/session.json)",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level := appLog.ParseLevel(cmd.String("log-level"))
			if cmd.Bool("debug") {
				level = appLog.LevelDebug
			}
			appLog.SetLevel(level)
			return ctx, nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			exportCommand(),
			importCommand(),
			loginCommand(),
			logoutCommand(),
			themeCommand(),
			roomsCommand(),
			eventsCommand(),
			viewCommand(),
		},
	}
}
