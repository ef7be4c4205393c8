package stream

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"fleet-monitor/alerting/internal/domain"
)

type mockWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func sampleBatch() *domain.AlertBatch {
	return &domain.AlertBatch{
		EventID:     11,
		DriverID:    7,
		PassengerID: 3,
		CreatedAt:   time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC),
		Alerts: []domain.Alert{
			{Kind: domain.RuleRouteDeviation, DriverMessage: "d", PassengerMessage: "p", DispatcherMessage: "x"},
		},
	}
}

func TestPublishBatch(t *testing.T) {
	w := &mockWriter{}
	p := &Producer{writer: w}

	if err := p.PublishBatch(context.Background(), sampleBatch()); err != nil {
		t.Fatalf("PublishBatch() error = %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("wrote %d messages, want 1", len(w.msgs))
	}

	msg := w.msgs[0]
	if string(msg.Key) != "7" {
		t.Errorf("key = %q, want driver id 7", msg.Key)
	}

	var got domain.AlertBatch
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("value is not a batch: %v", err)
	}
	if got.EventID != 11 || len(got.Alerts) != 1 || got.Alerts[0].Kind != domain.RuleRouteDeviation {
		t.Errorf("decoded batch = %+v", got)
	}
}

func TestPublishBatchWriterError(t *testing.T) {
	boom := errors.New("broker unreachable")
	p := &Producer{writer: &mockWriter{err: boom}}

	if err := p.PublishBatch(context.Background(), sampleBatch()); !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
}

func TestClose(t *testing.T) {
	w := &mockWriter{}
	p := &Producer{writer: w}
	p.Close()
	if !w.closed {
		t.Error("Close() did not close the writer")
	}
}
