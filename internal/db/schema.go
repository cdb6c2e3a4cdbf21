package db

import (
	"context"
	"fmt"
	"log/slog"
)

// Tables with a natural key declare it so ON CONFLICT DO NOTHING can skip
// reloads. crypto_rate, sp500_stock and articles are append-only.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS sp500_company (
		symbol          TEXT PRIMARY KEY,
		exchange        TEXT,
		short_name      TEXT,
		long_name       TEXT,
		sector          TEXT,
		industry        TEXT,
		price           DOUBLE PRECISION,
		market_cap      DOUBLE PRECISION,
		ebitda          DOUBLE PRECISION,
		revenue_growth  DOUBLE PRECISION,
		city            TEXT,
		state           TEXT,
		country         TEXT,
		employees       BIGINT,
		summary         TEXT,
		weight          DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS sp500_index (
		date         DATE PRIMARY KEY,
		index_value  DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS sp500_stock (
		date       DATE NOT NULL,
		symbol     TEXT NOT NULL,
		adj_close  DOUBLE PRECISION,
		close      DOUBLE PRECISION,
		high       DOUBLE PRECISION,
		low        DOUBLE PRECISION,
		open       DOUBLE PRECISION,
		volume     DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sp500_stock_date_symbol ON sp500_stock (date, symbol)`,
	`CREATE TABLE IF NOT EXISTS crypto_rate (
		timestamp     TIMESTAMPTZ NOT NULL,
		target        TEXT,
		date          DATE NOT NULL,
		currency      TEXT NOT NULL,
		rate          DOUBLE PRECISION,
		daily_return  DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS idx_crypto_rate_date ON crypto_rate (date, currency)`,
	`CREATE TABLE IF NOT EXISTS mastercard_stock (
		date            DATE PRIMARY KEY,
		open            DOUBLE PRECISION,
		high            DOUBLE PRECISION,
		low             DOUBLE PRECISION,
		close           DOUBLE PRECISION,
		adjusted_close  DOUBLE PRECISION,
		volume          DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS visa_stock (
		date            DATE PRIMARY KEY,
		open            DOUBLE PRECISION,
		high            DOUBLE PRECISION,
		low             DOUBLE PRECISION,
		close           DOUBLE PRECISION,
		adjusted_close  DOUBLE PRECISION,
		volume          DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS articles (
		title  TEXT,
		link   TEXT
	)`,
}

// Migrate creates the destination tables if they do not exist.
func Migrate(ctx context.Context, c *Connector, logger *slog.Logger) error {
	conn, err := c.Connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	for i, stmt := range schema {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	logger.Info("schema migrated", "statements", len(schema))
	return nil
}
