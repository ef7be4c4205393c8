package pipeline

import (
	"context"
	"log/slog"

	"fleet-monitor/alerting/internal/domain"
	"fleet-monitor/alerting/internal/metrics"
	"fleet-monitor/alerting/internal/registry"
)

type Broadcaster interface {
	Broadcast(key registry.Key, msg string) int
}

type BatchLog interface {
	Append(b domain.AlertBatch) bool
}

type BatchSink interface {
	Dispatch(b *domain.AlertBatch)
}

// Coordinator turns one telemetry event into alerts, records them and pushes
// each audience its message.
type Coordinator struct {
	rules  []domain.AlertRule
	log    BatchLog
	hub    Broadcaster
	sink   BatchSink
	logger *slog.Logger
}

// NewCoordinator wires the evaluation path. sink may be nil when no external
// sink is configured.
func NewCoordinator(log BatchLog, hub Broadcaster, sink BatchSink, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		rules:  domain.DefaultAlertRules,
		log:    log,
		hub:    hub,
		sink:   sink,
		logger: logger.With("component", "coordinator"),
	}
}

// Handle evaluates ev and fans out the result. An empty batch means no rule
// fired and nothing was recorded or sent.
func (c *Coordinator) Handle(ctx context.Context, ev domain.TelemetryEvent) domain.AlertBatch {
	metrics.EventsReceived.Add(1)

	batch := domain.NewBatch(ev, domain.EvaluateRules(c.rules, ev))
	if batch.Empty() {
		return batch
	}

	c.log.Append(batch)
	metrics.AlertBatches.Add(1)
	metrics.AlertsRaised.Add(int64(len(batch.Alerts)))

	driverKey := registry.KeyFor(domain.RoleDriver, ev.DriverID)
	passengerKey := registry.KeyFor(domain.RolePassenger, ev.PassengerID)
	dispatcherKey := registry.KeyFor(domain.RoleDispatcher, 0)

	for _, a := range batch.Alerts {
		// Broadcast skips empty messages and missing audiences on its own.
		c.hub.Broadcast(driverKey, a.DriverMessage)
		c.hub.Broadcast(passengerKey, a.PassengerMessage)
		c.hub.Broadcast(dispatcherKey, a.DispatcherMessage)
	}

	if c.sink != nil {
		c.sink.Dispatch(&batch)
	}

	c.logger.InfoContext(ctx, "alerts raised",
		"event_id", ev.ID,
		"driver_id", ev.DriverID,
		"passenger_id", ev.PassengerID,
		"alerts", len(batch.Alerts),
	)
	return batch
}
