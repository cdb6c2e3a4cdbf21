package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeDB is an in-memory stand-in for PostgreSQL that understands the
// statements InsertSQL generates, including ON CONFLICT DO NOTHING.
type fakeDB struct {
	mu     sync.Mutex
	rows   map[string][][]any
	keys   map[string]map[string]bool
	opens  int
	closes int

	connectErr error
	commitErr  error
	failExecAt int
}

func newFakeDB() *fakeDB {
	return &fakeDB{rows: map[string][][]any{}, keys: map[string]map[string]bool{}}
}

func (d *fakeDB) connect(ctx context.Context) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.connectErr != nil {
		return nil, d.connectErr
	}
	d.opens++
	return &fakeConn{db: d}, nil
}

func (d *fakeDB) count(table string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rows[table])
}

type fakeConn struct {
	db *fakeDB
}

func (c *fakeConn) Begin(ctx context.Context) (pgx.Tx, error) {
	return &fakeTx{db: c.db, pendingKeys: map[string]bool{}}, nil
}

func (c *fakeConn) Close(ctx context.Context) error {
	c.db.mu.Lock()
	c.db.closes++
	c.db.mu.Unlock()
	return nil
}

type pendingRow struct {
	table string
	key   string
	args  []any
}

// fakeTx embeds pgx.Tx so it satisfies the interface; only the methods the
// loader calls are implemented.
type fakeTx struct {
	pgx.Tx
	db          *fakeDB
	execs       int
	pending     []pendingRow
	pendingKeys map[string]bool
	done        bool
	rolledBack  bool
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tx.execs++
	if tx.db.failExecAt == tx.execs {
		return pgconn.CommandTag{}, errors.New("value too long for type character varying(8)")
	}

	table, cols, conflict := parseInsert(sql)
	if len(cols) != len(args) {
		return pgconn.CommandTag{}, fmt.Errorf("got %d args for %d columns", len(args), len(cols))
	}

	key := ""
	if len(conflict) > 0 {
		var parts []string
		for _, k := range conflict {
			for i, c := range cols {
				if c == k {
					parts = append(parts, fmt.Sprint(args[i]))
				}
			}
		}
		key = table + "|" + strings.Join(parts, "|")

		tx.db.mu.Lock()
		exists := tx.db.keys[table][key]
		tx.db.mu.Unlock()
		if exists || tx.pendingKeys[key] {
			return pgconn.NewCommandTag("INSERT 0 0"), nil
		}
		tx.pendingKeys[key] = true
	}

	tx.pending = append(tx.pending, pendingRow{table: table, key: key, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	if tx.done {
		return pgx.ErrTxClosed
	}
	tx.done = true
	if tx.db.commitErr != nil {
		return tx.db.commitErr
	}
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	for _, p := range tx.pending {
		tx.db.rows[p.table] = append(tx.db.rows[p.table], p.args)
		if p.key != "" {
			if tx.db.keys[p.table] == nil {
				tx.db.keys[p.table] = map[string]bool{}
			}
			tx.db.keys[p.table][p.key] = true
		}
	}
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	if tx.done {
		return pgx.ErrTxClosed
	}
	tx.done = true
	tx.rolledBack = true
	return nil
}

// parseInsert understands "INSERT INTO t (a, b) VALUES (...) [ON CONFLICT (a) DO NOTHING]".
func parseInsert(sql string) (table string, cols, conflict []string) {
	fields := strings.Fields(sql)
	table = fields[2]
	cols = splitList(between(sql, "(", ")"))
	if i := strings.Index(sql, "ON CONFLICT"); i >= 0 {
		conflict = splitList(between(sql[i:], "(", ")"))
	}
	return table, cols, conflict
}

func between(s, open, close string) string {
	i := strings.Index(s, open)
	j := strings.Index(s[i:], close)
	return s[i+1 : i+j]
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
