package database

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestDatabaseURLEnv names the variable that enables integration tests.
const TestDatabaseURLEnv = "PICKEM_TEST_DATABASE_URL"

// SetupTestDB connects to the database named by PICKEM_TEST_DATABASE_URL and
// applies the schema. The test is skipped when the variable is unset.
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	url := os.Getenv(TestDatabaseURLEnv)
	if url == "" {
		t.Skipf("%s not set", TestDatabaseURLEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := NewDBFromURL(ctx, url)
	if err != nil {
		t.Fatalf("failed to create test database connection: %v", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(db.Close)
	return db
}

// TruncateTables clears every table between integration tests.
func TruncateTables(t *testing.T, db *DB) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := db.pool.Exec(ctx, "TRUNCATE optimization_jobs, match_override_history, match_odds, matches RESTART IDENTITY CASCADE")
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}
