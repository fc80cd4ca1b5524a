package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rawblock/algostream/internal/algod"
	"github.com/rawblock/algostream/internal/api"
	"github.com/rawblock/algostream/internal/db"
	"github.com/rawblock/algostream/internal/indexer"
	"github.com/rawblock/algostream/internal/subscriber"
	"github.com/rawblock/algostream/pkg/models"
)

func main() {
	log.Println("Starting AlgoStream Subscription Engine...")

	// ─── Required Environment Variables ─────────────────────────────────
	// All credentials MUST come from environment variables. No fallback
	// defaults for security-sensitive values. Use a .env file for local
	// development: cp .env.example .env && edit .env
	// ────────────────────────────────────────────────────────────────────

	dbUrl := requireEnv("DATABASE_URL")

	dbConn, err := db.Connect(dbUrl)
	if err != nil {
		log.Printf("Warning: Failed to connect to PostgreSQL, continuing without watermark persistence. Error: %v", err)
		dbConn = nil
	} else {
		defer dbConn.Close()
		if err := dbConn.InitSchema(); err != nil {
			log.Printf("Warning: DB schema init failed: %v", err)
		}
	}

	algodClient, err := algod.NewClient(algod.Config{
		URL:   getEnvOrDefault("ALGOD_URL", "http://localhost:4001"),
		Token: requireEnv("ALGOD_TOKEN"),
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to connect to node: %v", err)
	}

	// The indexer is optional; without it catch-up falls back to the node.
	var history subscriber.HistorySource
	if indexerURL := os.Getenv("INDEXER_URL"); indexerURL != "" {
		indexerClient, err := indexer.NewClient(indexer.Config{
			URL:   indexerURL,
			Token: os.Getenv("INDEXER_TOKEN"),
		})
		if err != nil {
			log.Printf("Warning: Failed to connect to indexer, history catch-up disabled: %v", err)
		} else {
			history = indexerClient
		}
	}

	var store subscriber.WatermarkStore
	if dbConn != nil {
		store = dbConn.WatermarkStore(getEnvOrDefault("SUBSCRIBER_NAME", "algostream"))
	}

	// Example subscription: all payments above 1 Algo, and every app call.
	cfg := subscriber.Config{
		Filters: []models.NamedFilter{
			{
				Name:   "payments",
				Filter: models.Filter{Type: models.TypePay, MinAmount: uint64Ptr(1_000_000)},
			},
			{
				Name:   "app-calls",
				Filter: models.Filter{Type: models.TypeAppCall},
			},
		},
		MaxRoundsToSync:        100,
		MaxHistoryRoundsToSync: 1000,
		SyncBehaviour:          subscriber.CatchupWithHistory,
		Frequency:              4 * time.Second,
		WaitForBlockWhenAtTip:  true,
	}
	if history == nil {
		cfg.SyncBehaviour = subscriber.SyncOldestStartNow
	}

	sub, err := subscriber.New(cfg, algodClient, history, store)
	if err != nil {
		log.Fatalf("FATAL: Invalid subscription config: %v", err)
	}

	// Setup WebSocket Hub and forward matches to the dashboard stream.
	wsHub := api.NewHub()
	go wsHub.Run()
	for _, name := range sub.FilterNames() {
		sub.On(subscriber.TransactionEvent(name), api.BroadcastTransactions(wsHub, name))
	}
	sub.On(subscriber.EventPoll, api.BroadcastPollSummaries(wsHub))
	sub.On(subscriber.EventError, func(payload any) {
		log.Printf("[Engine] Subscription error: %v", payload)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sub.Start(ctx); err != nil {
			log.Printf("[Engine] Subscriber exited: %v", err)
		}
	}()

	// Stop cleanly on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		sub.Stop(sig.String())
		cancel()
	}()

	// Setup the Gin Router
	r := api.SetupRouter(sub, algodClient, dbConn, wsHub)

	port := getEnvOrDefault("PORT", "5339")

	// Start the server
	log.Printf("Engine running on :%s\n", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func uint64Ptr(v uint64) *uint64 { return &v }

// requireEnv reads a required environment variable and exits if it is not set.
// This prevents the binary from starting with missing critical configuration.
func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: Required environment variable %s is not set. "+
			"Copy .env.example to .env and fill in your values: cp .env.example .env", key)
	}
	return val
}

// getEnvOrDefault returns the env var value or a safe default for non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
