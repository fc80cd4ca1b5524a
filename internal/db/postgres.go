package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx
func Connect(connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL for watermark persistence")
	return &PostgresStore{pool: pool}, nil
}

// Close gracefully closes the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes the schema.sql file
func (s *PostgresStore) InitSchema() error {
	schemaBytes, err := os.ReadFile("internal/db/schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %v", err)
	}

	_, err = s.pool.Exec(context.Background(), string(schemaBytes))
	if err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}

	log.Println("Subscription schema initialized")
	return nil
}

// GetPool exposes the connection pool for other subsystems
func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}

// WatermarkStore binds the store to one named subscription. Each
// subscription owns a single row keyed by its name.
type WatermarkStore struct {
	store *PostgresStore
	name  string
}

func (s *PostgresStore) WatermarkStore(name string) *WatermarkStore {
	return &WatermarkStore{store: s, name: name}
}

// LoadWatermark returns the persisted watermark, or zero when the
// subscription has never saved one.
func (w *WatermarkStore) LoadWatermark(ctx context.Context) (uint64, error) {
	var round int64
	err := w.store.pool.QueryRow(ctx,
		`SELECT round FROM subscriber_watermark WHERE name = $1`, w.name).Scan(&round)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load watermark for %q: %v", w.name, err)
	}
	return uint64(round), nil
}

// SaveWatermark upserts the watermark row. The write is idempotent: saving
// the same round twice leaves a single row.
func (w *WatermarkStore) SaveWatermark(ctx context.Context, round uint64) error {
	sql := `
		INSERT INTO subscriber_watermark (name, round, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE
		SET round = EXCLUDED.round, updated_at = NOW();
	`
	if _, err := w.store.pool.Exec(ctx, sql, w.name, int64(round)); err != nil {
		return fmt.Errorf("failed to save watermark %d for %q: %v", round, w.name, err)
	}
	return nil
}
