package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"fleet-monitor/alerting/internal/config"
	"fleet-monitor/alerting/internal/domain"
	"fleet-monitor/alerting/internal/store"
)

// Prints alert batches published by alertd (REDIS_ENABLED=true) as they
// arrive. With -driver it follows one driver, otherwise the dispatch channel.
func main() {
	driverID := flag.Int64("driver", -1, "follow a single driver's channel")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file — using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config load failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println("Connecting to Redis...")
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Connection failed: %v\n\nMake sure Redis is running:\n  docker-compose up -d redis", err)
	}
	fmt.Println("✓ Connected")

	channel := store.DispatchChannel
	if *driverID >= 0 {
		channel = store.DriverChannel(*driverID)
	}

	sub := client.Subscribe(ctx, channel)
	defer sub.Close()
	fmt.Printf("\n── Watching %s ─────────────────────────\n", channel)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			printBatch(msg.Payload)
		}
	}
}

func printBatch(payload string) {
	var b domain.AlertBatch
	if err := json.Unmarshal([]byte(payload), &b); err != nil {
		fmt.Printf("  ? unreadable payload: %v\n", err)
		return
	}

	fmt.Printf("\n  event %d  driver %d  passenger %d  %s\n",
		b.EventID, b.DriverID, b.PassengerID, b.CreatedAt.Format("15:04:05"))
	for _, a := range b.Alerts {
		fmt.Printf("  ✓ %-18s → %s\n", a.Kind, a.DispatcherMessage)
	}
}
