package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"fleet-monitor/alerting/internal/domain"
)

// messageWriter is the part of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes alert batches to a Kafka topic, keyed by driver so one
// driver's alerts stay on one partition.
type Producer struct {
	writer messageWriter
}

func NewProducer(brokers []string, topic string) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{writer: w}
}

func batchMessage(b *domain.AlertBatch) (kafka.Message, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal alert batch: %w", err)
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(b.DriverID, 10)),
		Value: data,
		Time:  b.CreatedAt,
	}, nil
}

func (p *Producer) PublishBatch(ctx context.Context, b *domain.AlertBatch) error {
	msg, err := batchMessage(b)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close flushes pending messages and closes the connection.
func (p *Producer) Close() error {
	return p.writer.Close()
}
