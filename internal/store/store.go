// Package store is the Postgres-backed document store for tables, the lobby
// index and players. Table documents are stored as JSONB alongside a nonce
// column; replacement is guarded by comparing that nonce, which is what the
// optimistic-concurrency protocol leans on.
package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"

	"boxcars/internal/config"
)

var (
	database = config.GetEnv("BLUEPRINT_DB_DATABASE", "boxcars")
	password = config.GetEnv("BLUEPRINT_DB_PASSWORD", "postgres")
	username = config.GetEnv("BLUEPRINT_DB_USERNAME", "postgres")
	port     = config.GetEnv("BLUEPRINT_DB_PORT", "5432")
	host     = config.GetEnv("BLUEPRINT_DB_HOST", "localhost")
	schema   = config.GetEnv("BLUEPRINT_DB_SCHEMA", "public")
)

// ErrNotFound is returned when a lookup matches no document.
var ErrNotFound = fmt.Errorf("document not found")

// ErrConflict is returned when a guarded replace matched no row, meaning the
// document moved underneath the caller.
var ErrConflict = fmt.Errorf("nonce conflict on guarded replace")

// Service is the persistence surface shared by the server and worker.
type Service struct {
	pool *pgxpool.Pool
}

// ConnectionString assembles the Postgres URL from the environment.
func ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		username, password, host, port, database, schema)
}

// New opens the connection pool and verifies it with a ping.
func New(ctx context.Context) (*Service, error) {
	pool, err := pgxpool.New(ctx, ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening store pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store ping failed: %w", err)
	}

	log.Println("[STORE] Postgres connected successfully")
	return &Service{pool: pool}, nil
}

// Health reports connectivity and pool statistics.
func (s *Service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.pool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	poolStats := s.pool.Stat()
	stats["total_conns"] = fmt.Sprintf("%d", poolStats.TotalConns())
	stats["idle_conns"] = fmt.Sprintf("%d", poolStats.IdleConns())
	stats["acquired_conns"] = fmt.Sprintf("%d", poolStats.AcquiredConns())

	return stats
}

// Close releases the pool.
func (s *Service) Close() error {
	log.Println("[STORE] Disconnecting from Postgres")
	s.pool.Close()
	return nil
}
