package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/cwygoda/feedhandler/internal/domain"
	"github.com/cwygoda/feedhandler/internal/feed"
)

var runAction = withApp(func(ctx context.Context, a *app, cmd *cli.Command) error {
	docs, err := readFeed(cmd.String("file"))
	if err != nil {
		return err
	}

	out := a.handler.Handle(ctx, docs, a.registry)

	failed := 0
	for _, doc := range out {
		if doc.Status == domain.StatusFailed {
			failed++
		}
	}
	a.log.Info("feed handled",
		zap.Int("received", len(docs)),
		zap.Int("emitted", len(out)),
		zap.Int("failed", failed),
	)

	w := cmd.Root().Writer
	if w == nil {
		w = os.Stdout
	}
	return feed.Encode(w, out)
})

func readFeed(path string) ([]domain.Doc, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open feed: %w", err)
		}
		defer f.Close()
		r = f
	}
	return feed.Decode(r)
}
