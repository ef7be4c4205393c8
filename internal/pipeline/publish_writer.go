package pipeline

import (
	"context"
	"log/slog"

	"fleet-monitor/alerting/internal/domain"
)

type BatchPublisher interface {
	PublishBatch(ctx context.Context, b *domain.AlertBatch) error
}

// PublishWriter forwards each alert batch to a message bus (Redis pub/sub or
// Kafka). A failed publish is logged and the batch is dropped.
type PublishWriter struct {
	ch     <-chan *domain.AlertBatch
	pub    BatchPublisher
	logger *slog.Logger
}

func NewPublishWriter(
	name string,
	ch <-chan *domain.AlertBatch,
	pub BatchPublisher,
	logger *slog.Logger,
) *PublishWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &PublishWriter{
		ch:     ch,
		pub:    pub,
		logger: logger.With("component", name),
	}
}

func (w *PublishWriter) Run(ctx context.Context) {
	for {
		select {
		case b, ok := <-w.ch:
			if !ok {
				return
			}
			if err := w.pub.PublishBatch(ctx, b); err != nil {
				w.logger.Error("publish failed",
					"event_id", b.EventID,
					"driver_id", b.DriverID,
					"error", err,
				)
			}

		case <-ctx.Done():
			return
		}
	}
}
