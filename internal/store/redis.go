package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fleet-monitor/alerting/internal/config"
	"fleet-monitor/alerting/internal/domain"
)

const DispatchChannel = "dispatch:alerts"

// RedisStore mirrors alert batches onto Redis pub/sub so other services
// (dashboards, the mobile push gateway) can follow them.
type RedisStore struct {
	client       *redis.Client
	lastAlertTTL time.Duration
}

func NewRedisStore(ctx context.Context, cfg *config.Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     20,
		MinIdleConns: 5,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client, lastAlertTTL: cfg.LastAlertTTL}, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func DriverChannel(driverID int64) string {
	return fmt.Sprintf("driver:%d:alerts", driverID)
}

func lastAlertKey(driverID int64) string {
	return fmt.Sprintf("driver:%d:last_alert", driverID)
}

func lastAlertFields(b *domain.AlertBatch) map[string]any {
	kinds := make([]string, len(b.Alerts))
	for i, a := range b.Alerts {
		kinds[i] = string(a.Kind)
	}
	kindsJSON, _ := json.Marshal(kinds)

	return map[string]any{
		"event_id":     b.EventID,
		"passenger_id": b.PassengerID,
		"kinds":        string(kindsJSON),
		"created_at":   b.CreatedAt.Unix(),
	}
}

// PublishBatch sends b to the driver's channel and the dispatch channel and
// records it as the driver's latest alert, all in one pipeline.
func (r *RedisStore) PublishBatch(ctx context.Context, b *domain.AlertBatch) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal alert batch: %w", err)
	}

	key := lastAlertKey(b.DriverID)

	pipe := r.client.Pipeline()
	pipe.Publish(ctx, DriverChannel(b.DriverID), payload)
	pipe.Publish(ctx, DispatchChannel, payload)
	pipe.HSet(ctx, key, lastAlertFields(b))
	if r.lastAlertTTL > 0 {
		pipe.Expire(ctx, key, r.lastAlertTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}
