package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/saltyorg/norm/cli"
	"github.com/saltyorg/norm/database"
	"github.com/saltyorg/norm/internal/config"
	"github.com/saltyorg/norm/internal/models"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app, err := config.Load()
	if err != nil {
		config.Exit("norm", err)
	}

	root := cli.NewRootCommand(cli.Options{
		Name:  "norm",
		Build: cli.BuildInfo{Version: version, Commit: commit, Date: date},
		Log:   app.Log,
		Setup: func(ctx context.Context) (*database.Manager, error) {
			m, err := database.Open(ctx, app.DB)
			if err != nil {
				return nil, err
			}
			if _, err := models.Register(m); err != nil {
				_ = m.Close()
				return nil, err
			}
			log.Debug().Strs("tables", m.Tables()).Msg("Models registered")
			return m, nil
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		config.Exit("norm", err)
	}
}
