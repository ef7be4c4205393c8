package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleet-monitor/alerting/internal/config"
	"fleet-monitor/alerting/internal/domain"
)

// TimescaleStore archives alert batches. It is optional: the in-memory log
// serves history queries whether or not the archive is enabled.
type TimescaleStore struct {
	pool *pgxpool.Pool
}

func NewTimescaleStore(ctx context.Context, cfg *config.Config) (*TimescaleStore, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return &TimescaleStore{pool: pool}, nil
}

func (s *TimescaleStore) Close() {
	s.pool.Close()
}

func (s *TimescaleStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var alertColumns = []string{
	"created_at",
	"event_id",
	"driver_id",
	"passenger_id",
	"position",
	"rule_kind",
	"driver_message",
	"passenger_message",
	"dispatcher_message",
}

// alertRows flattens batches into one row per alert. position keeps the
// rule order within a batch.
func alertRows(batches []*domain.AlertBatch) [][]any {
	var rows [][]any
	for _, b := range batches {
		for i, a := range b.Alerts {
			rows = append(rows, []any{
				b.CreatedAt,
				b.EventID,
				b.DriverID,
				b.PassengerID,
				int16(i),
				string(a.Kind),
				a.DriverMessage,
				a.PassengerMessage,
				a.DispatcherMessage,
			})
		}
	}
	return rows
}

func (s *TimescaleStore) InsertBatches(ctx context.Context, batches []*domain.AlertBatch) error {
	rows := alertRows(batches)
	if len(rows) == 0 {
		return nil
	}

	_, err := s.pool.CopyFrom(
		ctx,
		pgx.Identifier{"driver_alerts"},
		alertColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("CopyFrom failed for %d alerts: %w", len(rows), err)
	}

	return nil
}
