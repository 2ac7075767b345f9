package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	httpAdapter "github.com/cwygoda/feedhandler/internal/adapter/http"
	"github.com/cwygoda/feedhandler/internal/worker"
)

const shutdownTimeout = 10 * time.Second

var serveAction = withApp(func(ctx context.Context, a *app, cmd *cli.Command) error {
	a.log.Info("starting feedhandler",
		zap.Int("port", a.cfg.Port),
		zap.String("db", a.cfg.DBPath),
		zap.Strings("creators", a.creatorNames()),
	)

	if recovered, err := a.docs.RecoverStale(ctx); err != nil {
		a.log.Warn("failed to recover stale docs", zap.Error(err))
	} else if recovered > 0 {
		a.log.Info("recovered stale docs", zap.Int64("count", recovered))
	}

	addr := fmt.Sprintf(":%d", a.cfg.Port)
	srv := httpAdapter.NewServer(httpAdapter.Deps{
		Docs:      a.docs,
		Resources: a.repo,
		Handler:   a.handler,
		Creator:   a.registry,
		Logger:    a.log,
	}, addr, a.cfg.Secret)

	w := worker.New(a.docs, a.handler, a.registry, a.cfg.PollInterval, a.cfg.BatchSize, a.log)

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(workerCtx)
	}()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("HTTP server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutting down")
	case serveErr = <-errCh:
		a.log.Error("HTTP server error", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("HTTP server shutdown error", zap.Error(err))
	}

	// The database closes after the worker has stopped.
	stopWorker()
	wg.Wait()

	a.log.Info("shutdown complete")
	return serveErr
})
