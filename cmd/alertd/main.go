package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fleet-monitor/alerting/internal/alertlog"
	"fleet-monitor/alerting/internal/config"
	"fleet-monitor/alerting/internal/pipeline"
	"fleet-monitor/alerting/internal/registry"
	"fleet-monitor/alerting/internal/store"
	"fleet-monitor/alerting/internal/stream"
	transport "fleet-monitor/alerting/internal/transport/http"
	"fleet-monitor/alerting/internal/transport/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := registry.New(logger)
	history := alertlog.New()

	dispatcher := pipeline.NewDispatcher(
		sizeIf(cfg.ArchiveEnabled, cfg.ArchiveChannelSize),
		sizeIf(cfg.RedisEnabled, cfg.RedisChannelSize),
		sizeIf(cfg.KafkaEnabled, cfg.StreamChannelSize),
	)

	var (
		workers sync.WaitGroup
		checks  []transport.HealthCheck
		closers []func()
	)

	if cfg.ArchiveEnabled {
		db, err := store.NewTimescaleStore(ctx, cfg)
		if err != nil {
			slog.Error("archive connection failed", "error", err)
			os.Exit(1)
		}
		closers = append(closers, db.Close)
		checks = append(checks, transport.HealthCheck{Name: "archive", Ping: db.Ping})

		w := pipeline.NewArchiveWriter(dispatcher.ArchiveChan, db, cfg.ArchiveBatchSize, cfg.ArchiveFlushIntervalMS, logger)
		workers.Go(func() { w.Run(ctx) })
	}

	if cfg.RedisEnabled {
		rdb, err := store.NewRedisStore(ctx, cfg)
		if err != nil {
			slog.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		closers = append(closers, func() { rdb.Close() })
		checks = append(checks, transport.HealthCheck{Name: "redis", Ping: rdb.Ping})

		w := pipeline.NewPublishWriter("redis_publisher", dispatcher.RedisChan, rdb, logger)
		workers.Go(func() { w.Run(ctx) })
	}

	if cfg.KafkaEnabled {
		producer := stream.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		closers = append(closers, func() { producer.Close() })

		w := pipeline.NewPublishWriter("stream_publisher", dispatcher.StreamChan, producer, logger)
		workers.Go(func() { w.Run(ctx) })
	}

	coord := pipeline.NewCoordinator(history, reg, dispatcher, logger)

	router := transport.NewRouter(
		transport.NewHandler(coord, history, checks, logger),
		ws.NewHandler(reg, ws.Options{
			SendQueueSize: cfg.SendQueueSize,
			PingInterval:  cfg.WSPingInterval,
			WriteTimeout:  cfg.WSWriteTimeout,
			ReadTimeout:   cfg.WSReadTimeout,
		}, logger),
		transport.NewMiddleware(logger),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		slog.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http shutdown failed", "error", err)
		}
		// Hijacked websocket connections are not covered by Shutdown.
		reg.CloseAll()

		// Closing the sink channels lets the writers flush what they hold.
		dispatcher.Close()
		workers.Wait()
		cancel()

		for _, c := range closers {
			c()
		}
		close(done)
	}()

	slog.Info("alert service listening",
		"addr", srv.Addr,
		"archive", cfg.ArchiveEnabled,
		"redis", cfg.RedisEnabled,
		"kafka", cfg.KafkaEnabled,
	)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	<-done
	slog.Info("shutdown complete")
}

func sizeIf(enabled bool, size int) int {
	if !enabled {
		return 0
	}
	return size
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
