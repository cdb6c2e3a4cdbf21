package loader

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kjannette/market-etl/internal/db"
)

// Conn is the part of *pgx.Conn a loader needs.
type Conn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Close(ctx context.Context) error
}

type ConnectFunc func(ctx context.Context) (Conn, error)

// FromConnector adapts a db.Connector to a ConnectFunc.
func FromConnector(c *db.Connector) ConnectFunc {
	return func(ctx context.Context) (Conn, error) {
		conn, err := c.Connect(ctx)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// Table describes a destination table. When Key is set, rows whose key
// already exists are skipped silently; otherwise every row is appended.
type Table[T any] struct {
	Name    string
	Columns []string
	Key     []string
	Args    func(T) []any
}

func (t Table[T]) InsertSQL() string {
	params := make([]string, len(t.Columns))
	for i := range t.Columns {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.Name, strings.Join(t.Columns, ", "), strings.Join(params, ", "))
	if len(t.Key) > 0 {
		sql += fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", strings.Join(t.Key, ", "))
	}
	return sql
}

type Loader[T any] struct {
	table   Table[T]
	sql     string
	connect ConnectFunc
	logger  *slog.Logger
}

func New[T any](table Table[T], connect ConnectFunc, logger *slog.Logger) *Loader[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader[T]{
		table:   table,
		sql:     table.InsertSQL(),
		connect: connect,
		logger:  logger.With("component", "loader", "table", table.Name),
	}
}

func (l *Loader[T]) Table() string { return l.table.Name }

// Load writes rows in a single transaction on a connection opened for this
// call and closed before returning. It reports how many rows were actually
// inserted; key conflicts count as skipped, not as errors.
func (l *Loader[T]) Load(ctx context.Context, rows []T) (inserted int64, err error) {
	if len(rows) == 0 {
		l.logger.Info("nothing to load")
		return 0, nil
	}
	start := time.Now()

	conn, err := l.connect(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", l.table.Name, err)
	}
	l.logger.Debug("database connection established")
	defer func() {
		if cerr := conn.Close(context.Background()); cerr != nil {
			l.logger.Warn("closing connection failed", "error", cerr)
		}
	}()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: begin: %w", l.table.Name, err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(context.Background()); rerr != nil {
				l.logger.Warn("rollback failed", "error", rerr)
			}
		}
	}()

	for i, row := range rows {
		tag, err := tx.Exec(ctx, l.sql, l.table.Args(row)...)
		if err != nil {
			return 0, fmt.Errorf("%s: row %d: %w", l.table.Name, i+1, err)
		}
		inserted += tag.RowsAffected()
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", l.table.Name, err)
	}

	l.logger.Info("load committed",
		"rows", len(rows),
		"inserted", inserted,
		"skipped", int64(len(rows))-inserted,
		"duration", time.Since(start),
	)
	return inserted, nil
}
