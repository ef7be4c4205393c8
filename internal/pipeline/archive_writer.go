package pipeline

import (
	"context"
	"log/slog"
	"time"

	"fleet-monitor/alerting/internal/domain"
	"fleet-monitor/alerting/internal/metrics"
)

type BatchInserter interface {
	InsertBatches(ctx context.Context, batches []*domain.AlertBatch) error
}

// ArchiveWriter groups alert batches and writes them to long-term storage
// either when the group is full or when the flush interval passes.
type ArchiveWriter struct {
	ch         <-chan *domain.AlertBatch
	db         BatchInserter
	batchSize  int
	flushMS    int
	retryDelay time.Duration
	logger     *slog.Logger
}

func NewArchiveWriter(
	ch <-chan *domain.AlertBatch,
	db BatchInserter,
	batchSize int,
	flushMS int,
	logger *slog.Logger,
) *ArchiveWriter {
	if batchSize <= 0 {
		batchSize = 1
	}
	if flushMS <= 0 {
		flushMS = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchiveWriter{
		ch:         ch,
		db:         db,
		batchSize:  batchSize,
		flushMS:    flushMS,
		retryDelay: 500 * time.Millisecond,
		logger:     logger.With("component", "archive_writer"),
	}
}

func (w *ArchiveWriter) Run(ctx context.Context) {
	pending := make([]*domain.AlertBatch, 0, w.batchSize)
	ticker := time.NewTicker(time.Duration(w.flushMS) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case b, ok := <-w.ch:
			if !ok {
				if len(pending) > 0 {
					w.flush(context.WithoutCancel(ctx), pending)
				}
				return
			}
			pending = append(pending, b)
			if len(pending) >= w.batchSize {
				w.flush(ctx, pending)
				pending = pending[:0]
			}

		case <-ticker.C:
			if len(pending) > 0 {
				w.flush(ctx, pending)
				pending = pending[:0]
			}

		case <-ctx.Done():
			if len(pending) > 0 {
				w.flush(context.WithoutCancel(ctx), pending)
			}
			return
		}
	}
}

func (w *ArchiveWriter) flush(ctx context.Context, pending []*domain.AlertBatch) {
	err := w.db.InsertBatches(ctx, pending)
	if err != nil {
		w.logger.Warn("archive write failed, retrying", "batches", len(pending), "error", err)
		time.Sleep(w.retryDelay)
		err = w.db.InsertBatches(ctx, pending)
		if err != nil {
			w.logger.Error("archive write permanently failed", "batches", len(pending), "error", err)
			metrics.ArchiveWriteFailure.Add(int64(len(pending)))
			return
		}
	}
	metrics.ArchiveWriteSuccess.Add(int64(len(pending)))
}
