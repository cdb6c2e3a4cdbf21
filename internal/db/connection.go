package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

// Connector opens a fresh connection per call. Loaders hold no pool: each
// load owns its connection from open to close.
type Connector struct {
	dsn     string
	timeout time.Duration
}

func NewConnector(dsn string, connectTimeout time.Duration) *Connector {
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	return &Connector{dsn: dsn, timeout: connectTimeout}
}

func (c *Connector) Connect(ctx context.Context) (*pgx.Conn, error) {
	cfg, err := pgx.ParseConfig(c.dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.ConnectTimeout = c.timeout

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		conn.Close(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}
	return conn, nil
}

func TestConnection(ctx context.Context, c *Connector, logger *slog.Logger) error {
	conn, err := c.Connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	qctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var now time.Time
	if err := conn.QueryRow(qctx, "SELECT NOW()").Scan(&now); err != nil {
		return fmt.Errorf("test query: %w", err)
	}
	logger.Info("database connection successful", "server_time", now.Format(time.RFC3339))
	return nil
}
