package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cwygoda/feedhandler/internal/domain"
)

// Worker polls for pending docs and runs them through the feed handler.
type Worker struct {
	svc          *domain.DocService
	handler      *domain.FeedHandler
	creator      domain.ResourceCreator
	pollInterval time.Duration
	batchSize    int
	log          *zap.Logger
}

// New creates a new worker.
func New(svc *domain.DocService, handler *domain.FeedHandler, creator domain.ResourceCreator,
	pollInterval time.Duration, batchSize int, log *zap.Logger) *Worker {
	return &Worker{
		svc:          svc,
		handler:      handler,
		creator:      creator,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		log:          log,
	}
}

// Run starts the worker loop until context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info("worker started", zap.Duration("poll_interval", w.pollInterval), zap.Int("batch_size", w.batchSize))
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker shutting down")
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	docs, err := w.svc.GetPending(ctx, w.batchSize)
	if err != nil {
		w.log.Error("poll failed", zap.Error(err))
		return
	}
	if len(docs) == 0 {
		return
	}

	claimed := make([]domain.Doc, 0, len(docs))
	for _, doc := range docs {
		if err := w.svc.MarkProcessing(ctx, doc.ID); err != nil {
			w.log.Warn("claim failed", zap.Int64("doc_id", doc.ID), zap.Error(err))
			continue
		}
		claimed = append(claimed, doc)
	}
	if len(claimed) == 0 {
		return
	}

	w.processBatch(ctx, claimed)
}

func (w *Worker) processBatch(ctx context.Context, batch []domain.Doc) {
	log := w.log.With(zap.String("batch_id", uuid.NewString()))

	outcomes := make(map[int64]domain.Doc, len(batch))
	for _, doc := range w.handler.Handle(ctx, batch, w.creator) {
		outcomes[doc.ID] = doc
	}

	var processed, failed, skipped int
	for _, doc := range batch {
		out, ok := outcomes[doc.ID]
		if !ok {
			skipped++
			w.record(log, doc.ID, "skip", w.svc.MarkSkipped(ctx, doc.ID))
			continue
		}

		switch out.Status {
		case domain.StatusProcessed:
			processed++
			var resourceID int64
			if out.Resource != nil {
				resourceID = out.Resource.ID
			}
			w.record(log, doc.ID, "complete", w.svc.MarkProcessed(ctx, doc.ID, resourceID))
		default:
			failed++
			log.Warn("doc failed",
				zap.Int64("doc_id", doc.ID),
				zap.Int64("api_id", doc.APIID),
				zap.Stringer("kind", domain.KindOf(out.Err)),
				zap.Error(out.Err),
			)
			w.record(log, doc.ID, "fail", w.svc.MarkFailed(ctx, doc.ID, out.Err.Error()))
		}
	}

	log.Info("batch done",
		zap.Int("docs", len(batch)),
		zap.Int("processed", processed),
		zap.Int("failed", failed),
		zap.Int("skipped", skipped),
	)
}

func (w *Worker) record(log *zap.Logger, id int64, op string, err error) {
	if err != nil {
		log.Error("record outcome failed", zap.Int64("doc_id", id), zap.String("op", op), zap.Error(err))
	}
}
