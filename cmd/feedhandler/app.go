package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/cwygoda/feedhandler/internal/adapter/creator"
	"github.com/cwygoda/feedhandler/internal/adapter/sqlite"
	"github.com/cwygoda/feedhandler/internal/config"
	"github.com/cwygoda/feedhandler/internal/domain"
	"github.com/cwygoda/feedhandler/internal/logger"
)

// app holds the wiring shared by all commands.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	repo     *sqlite.Repository
	registry *creator.Registry
	handler  *domain.FeedHandler
	docs     *domain.DocService
}

func newAppFromFlags(cmd *cli.Command) (*app, error) {
	if err := config.LoadDotEnv(cmd.String("env")); err != nil {
		return nil, err
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if db := cmd.String("db"); db != "" {
		cfg.DBPath = config.ExpandPath(db)
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	repo, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("open database: %w", err)
	}

	registry, err := creator.FromConfig(repo, cfg.Creators)
	if err != nil {
		repo.Close()
		log.Sync()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		repo:     repo,
		registry: registry,
		handler:  domain.NewFeedHandler(repo),
		docs:     domain.NewDocService(repo),
	}, nil
}

func (a *app) Close() {
	if err := a.repo.Close(); err != nil {
		a.log.Warn("close database", zap.Error(err))
	}
	_ = a.log.Sync()
}

func (a *app) creatorNames() []string {
	var names []string
	for _, c := range a.registry.Creators() {
		names = append(names, c.Name())
	}
	return names
}

func withApp(fn func(ctx context.Context, a *app, cmd *cli.Command) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		a, err := newAppFromFlags(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a, cmd)
	}
}
