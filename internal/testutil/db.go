package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"github.com/kjannette/market-etl/internal/db"
)

// SetupConnector returns a connector for integration tests and migrates the
// schema. Tests are skipped unless TEST_DATABASE_URL is set.
func SetupConnector(t *testing.T) *db.Connector {
	t.Helper()

	_ = godotenv.Load("../../.env")

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping")
	}

	c := db.NewConnector(dsn, 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Migrate(ctx, c, Logger(t)); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return c
}

// Truncate empties the named tables, now and again when the test ends.
func Truncate(t *testing.T, c *db.Connector, tables ...string) {
	t.Helper()

	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		conn, err := c.Connect(ctx)
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
		defer conn.Close(context.Background())
		for _, table := range tables {
			if _, err := conn.Exec(ctx, "TRUNCATE "+table); err != nil {
				t.Fatalf("truncate %s: %v", table, err)
			}
		}
	}
	run()
	t.Cleanup(run)
}

// Count returns the number of rows in table.
func Count(t *testing.T, c *db.Connector, table string) int {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn, err := c.Connect(ctx)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close(context.Background())

	var n int
	if err := conn.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
