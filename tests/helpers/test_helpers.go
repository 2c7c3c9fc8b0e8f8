package helpers

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"taskQuestAPI/services"
)

// SetupTestDB connects to the test database, bootstrapping the schema.
// Tests are skipped when no database is configured so the pure-unit suite
// runs anywhere.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if err := godotenv.Load("../../.env"); err != nil {
		_ = godotenv.Load()
	}

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL or DATABASE_URL not set; skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	if err := services.EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("Failed to ensure schema: %v", err)
	}

	return pool
}

// CleanupTestDB removes all task and statistics rows and closes the pool.
func CleanupTestDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()
	if _, err := pool.Exec(ctx, "DELETE FROM tasks"); err != nil {
		t.Logf("Warning: failed to clean tasks: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM stats_aggregate"); err != nil {
		t.Logf("Warning: failed to clean stats: %v", err)
	}
	pool.Close()
}
