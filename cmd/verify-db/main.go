// verify-db checks connectivity to Postgres and Qdrant and prints row and
// point counts, so a fresh deployment can be sanity-checked before serving.
//
// Usage: go run ./cmd/verify-db
package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/joho/godotenv"

	"support-agent/internal/db"
	"support-agent/internal/kb"
)

var tables = []string{
	"products",
	"orders",
	"order_items",
	"shipping_rates",
	"support_tickets",
	"return_orders",
	"return_items",
}

func main() {
	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("[CONNECT] database: %v", err)
	}
	defer pool.Close()
	log.Println("[CONNECT] database ok")

	for _, table := range tables {
		var count int64
		if err := pool.QueryRow(ctx, "SELECT count(*) FROM "+table).Scan(&count); err != nil {
			log.Fatalf("[COUNT] %s: %v", table, err)
		}
		log.Printf("[COUNT] %-16s %d", table, count)
	}

	store, err := kb.NewStoreFromEnv(nil, slog.Default())
	if err != nil {
		log.Printf("[QDRANT] skipped: %v", err)
		return
	}
	defer store.Close()

	info := store.Info(ctx)
	if info.Status != "connected" {
		log.Fatalf("[QDRANT] %s: %s", info.Status, info.Message)
	}
	log.Printf("[QDRANT] collection %s ok, %d points", info.Collection, info.PointsCount)
}
