package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"fleet-monitor/alerting/internal/config"
	"fleet-monitor/alerting/internal/domain"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found — using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config load failed: %v", err)
	}

	ctx := context.Background()

	fmt.Println("Connecting to TimescaleDB...")
	conn, err := pgx.Connect(ctx, cfg.DatabaseURL())
	if err != nil {
		log.Fatalf("Connection failed: %v\n\nMake sure TimescaleDB is running:\n  docker-compose up -d timescaledb", err)
	}
	defer conn.Close(ctx)
	fmt.Println("✓ Connected")

	step1_extensions(ctx, conn)
	step2_alerts_table(ctx, conn)
	step3_indexes(ctx, conn)
	step4_verify(ctx, conn)

	fmt.Println("\n✅ Alert archive initialised")
	fmt.Println("   Run next: ARCHIVE_ENABLED=true go run ./cmd/alertd")
}

// ─────────────────────────────────────────────────────────────
// Step 1 — Extensions
// ─────────────────────────────────────────────────────────────
func step1_extensions(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 1: Extensions ──────────────────────────")

	execOrFatal(ctx, conn,
		"CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE;",
		"timescaledb extension",
	)
}

// ─────────────────────────────────────────────────────────────
// Step 2 — driver_alerts table
// ─────────────────────────────────────────────────────────────
func step2_alerts_table(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 2: driver_alerts table ─────────────────")

	// One row per alert; (event_id, position) rebuilds a batch in rule order.
	execOrFatal(ctx, conn, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS driver_alerts (
			created_at          TIMESTAMPTZ  NOT NULL,

			event_id            BIGINT       NOT NULL,
			driver_id           BIGINT       NOT NULL,
			passenger_id        BIGINT       NOT NULL,
			position            SMALLINT     NOT NULL,

			rule_kind           TEXT         NOT NULL,

			-- Empty string means that audience was not notified
			driver_message      TEXT         NOT NULL DEFAULT '',
			passenger_message   TEXT         NOT NULL DEFAULT '',
			dispatcher_message  TEXT         NOT NULL DEFAULT '',

			CONSTRAINT chk_rule_kind CHECK (
				rule_kind IN ('%s', '%s', '%s', '%s')
			)
		);
	`,
		domain.RuleSpeedExceeded,
		domain.RuleHardAcceleration,
		domain.RuleHardBraking,
		domain.RuleRouteDeviation,
	), "driver_alerts table created")

	execOrFatal(ctx, conn, `
		SELECT create_hypertable(
			'driver_alerts',
			'created_at',
			if_not_exists => TRUE
		);
	`, "driver_alerts converted to hypertable")
}

// ─────────────────────────────────────────────────────────────
// Step 3 — Indexes
// ─────────────────────────────────────────────────────────────
func step3_indexes(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 3: Indexes ─────────────────────────────")

	indexes := []struct {
		name string
		sql  string
		why  string
	}{
		{
			name: "idx_alerts_driver_time",
			sql: `CREATE INDEX IF NOT EXISTS idx_alerts_driver_time
				  ON driver_alerts (driver_id, created_at DESC);`,
			why: "query: alert history for one driver",
		},
		{
			name: "idx_alerts_passenger_time",
			sql: `CREATE INDEX IF NOT EXISTS idx_alerts_passenger_time
				  ON driver_alerts (passenger_id, created_at DESC);`,
			why: "query: alerts a passenger was shown",
		},
		{
			name: "idx_alerts_kind_time",
			sql: `CREATE INDEX IF NOT EXISTS idx_alerts_kind_time
				  ON driver_alerts (rule_kind, created_at DESC);`,
			why: "query: dispatcher reports per rule",
		},
	}

	for _, idx := range indexes {
		execOrFatal(ctx, conn, idx.sql,
			fmt.Sprintf("%-40s ← %s", idx.name, idx.why),
		)
	}
}

// ─────────────────────────────────────────────────────────────
// Step 4 — Verify
// ─────────────────────────────────────────────────────────────
func step4_verify(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 4: Verification ────────────────────────")

	var hypertableName string
	err := conn.QueryRow(ctx, `
		SELECT hypertable_name
		FROM timescaledb_information.hypertables
		WHERE hypertable_name = 'driver_alerts'
	`).Scan(&hypertableName)
	if err != nil {
		log.Fatalf("driver_alerts is not a hypertable: %v", err)
	}
	fmt.Printf("  ✓ hypertable: %s (time partitioned)\n", hypertableName)

	var indexCount int
	err = conn.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM pg_indexes
		WHERE tablename = 'driver_alerts'
		AND indexname LIKE 'idx_%'
	`).Scan(&indexCount)
	if err != nil {
		log.Fatalf("Index check failed: %v", err)
	}
	fmt.Printf("  ✓ indexes created: %d\n", indexCount)
}

// execOrFatal runs a SQL statement and prints result or exits on error
func execOrFatal(ctx context.Context, conn *pgx.Conn, sql, label string) {
	_, err := conn.Exec(ctx, sql)
	if err != nil {
		log.Fatalf("FAILED — %s\nError: %v\nSQL: %s", label, err, sql)
	}
	fmt.Printf("  ✓ %s\n", label)
}
