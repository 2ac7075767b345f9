package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	common := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "TOML config file (default $XDG_CONFIG_HOME/feedhandler/config.toml)",
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "env file loaded before the config",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "SQLite database path",
			},
		}
	}

	return &cli.Command{
		Name:  "feedhandler",
		Usage: "create resources for important feed documents",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API and the background worker",
				Flags: append(common(),
					&cli.IntFlag{
						Name:  "port",
						Usage: "HTTP server port",
					},
				),
				Action: serveAction,
			},
			{
				Name:  "run",
				Usage: "handle a JSON feed file once and print the outcomes",
				Flags: append(common(),
					&cli.StringFlag{
						Name:     "file",
						Usage:    "feed file, - for stdin",
						Required: true,
					},
				),
				Action: runAction,
			},
		},
	}
}
