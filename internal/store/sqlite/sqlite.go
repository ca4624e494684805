// Package sqlite provides an embedded document store backed by SQLite.
//
// Each collection is a table holding one JSON document per row:
//
//	CREATE TABLE "<collection>" (
//		id         TEXT PRIMARY KEY,
//		doc        TEXT NOT NULL,  -- JSON object, without the _id key
//		created_at TEXT NOT NULL
//	)
//
// Filters are evaluated with json_extract, so a string field such as
// `date` compares lexicographically exactly as it does in MongoDB.
//
// The database runs in WAL mode so that status queries can read while a
// sync is writing.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/steveyegge/tasksync/internal/store"
)

// DB wraps the SQLite connection and implements store.Store.
type DB struct {
	conn *sql.DB
	path string

	mu     sync.Mutex
	tables map[string]bool
}

var _ store.Store = (*DB)(nil)

// Open creates or opens the database file at path.
//
// The caller MUST call Close when done so the WAL is checkpointed.
//
// Example:
//
//	db, err := sqlite.Open("/var/lib/tasksync/tasks.db")
//	if err != nil {
//	    return err
//	}
//	defer db.Close(ctx)
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{
		conn:   conn,
		path:   path,
		tables: make(map[string]bool),
	}

	if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close(context.Background())
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close(context.Background())
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Path returns the database file location.
func (db *DB) Path() string {
	return db.path
}

// Ping implements store.Store.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database is closed")
	}
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Close checkpoints the WAL and closes the connection. Closing twice is a no-op.
func (db *DB) Close(ctx context.Context) error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// Collection implements store.Store.
func (db *DB) Collection(name string) store.Collection {
	return &collection{db: db, name: name}
}

var tablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ensureTable creates the backing table for a collection on first use.
func (db *DB) ensureTable(ctx context.Context, name string) error {
	if !tablePattern.MatchString(name) {
		return fmt.Errorf("invalid collection name %q", name)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.tables[name] {
		return nil
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
		id TEXT PRIMARY KEY,
		doc TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`, name)
	if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	db.tables[name] = true
	return nil
}

// collection implements store.Collection over one table.
type collection struct {
	db   *DB
	name string
}

func (c *collection) Name() string {
	return c.name
}

// where renders filter as a SQL predicate over the doc column.
func where(filter store.Filter) (string, []any, error) {
	if err := filter.Validate(); err != nil {
		return "", nil, err
	}
	if filter.IsAll() {
		return "", nil, nil
	}

	column := fmt.Sprintf("json_extract(doc, '$.%s')", filter.Field)
	if filter.Field == store.IDField {
		column = "id"
	}

	var op string
	switch filter.Op {
	case store.OpEq:
		op = "="
	case store.OpGte:
		op = ">="
	case store.OpLt:
		op = "<"
	}
	return fmt.Sprintf(" WHERE %s %s ?", column, op), []any{filter.Value}, nil
}

func (c *collection) Find(ctx context.Context, filter store.Filter) ([]store.Document, error) {
	if err := c.db.ensureTable(ctx, c.name); err != nil {
		return nil, err
	}

	clause, args, err := where(filter)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT id, doc FROM %q%s ORDER BY created_at ASC, id ASC", c.name, clause)
	rows, err := c.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.name, err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan %s document: %w", c.name, err)
		}

		doc, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s document %s: %w", c.name, id, err)
		}
		doc[store.IDField] = id
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", c.name, err)
	}

	return docs, nil
}

func (c *collection) InsertOne(ctx context.Context, doc store.Document) (string, error) {
	if err := c.db.ensureTable(ctx, c.name); err != nil {
		return "", err
	}

	body := doc.Clone()
	id, _ := body[store.IDField].(string)
	delete(body, store.IDField)
	if id == "" {
		id = uuid.NewString()
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}

	query := fmt.Sprintf("INSERT INTO %q (id, doc, created_at) VALUES (?, ?, ?)", c.name)
	_, err = c.db.conn.ExecContext(ctx, query, id, string(raw), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", c.name, err)
	}

	return id, nil
}

func (c *collection) DeleteMany(ctx context.Context, filter store.Filter) (int64, error) {
	if err := c.db.ensureTable(ctx, c.name); err != nil {
		return 0, err
	}

	clause, args, err := where(filter)
	if err != nil {
		return 0, err
	}

	res, err := c.db.conn.ExecContext(ctx, fmt.Sprintf("DELETE FROM %q%s", c.name, clause), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", c.name, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted rows in %s: %w", c.name, err)
	}
	return n, nil
}

func (c *collection) Count(ctx context.Context, filter store.Filter) (int64, error) {
	if err := c.db.ensureTable(ctx, c.name); err != nil {
		return 0, err
	}

	clause, args, err := where(filter)
	if err != nil {
		return 0, err
	}

	var count int64
	err = c.db.conn.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %q%s", c.name, clause), args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", c.name, err)
	}
	return count, nil
}

func (c *collection) GroupCount(ctx context.Context, field string, limit int) ([]store.GroupCount, error) {
	if err := store.ValidateField(field); err != nil {
		return nil, err
	}
	if err := c.db.ensureTable(ctx, c.name); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	path := "$." + field
	query := fmt.Sprintf(`
	SELECT CAST(json_extract(doc, '%[1]s') AS TEXT) AS k, COUNT(*)
	FROM %[2]q
	WHERE json_extract(doc, '%[1]s') IS NOT NULL
	GROUP BY k
	ORDER BY k DESC
	LIMIT ?
	`, path, c.name)

	rows, err := c.db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to group %s by %s: %w", c.name, field, err)
	}
	defer rows.Close()

	var groups []store.GroupCount
	for rows.Next() {
		var g store.GroupCount
		if err := rows.Scan(&g.Key, &g.Count); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}

	return groups, nil
}

// decode parses a stored JSON object, keeping numbers as json.Number so
// integers survive a read/write round trip unchanged.
func decode(raw string) (store.Document, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var doc store.Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = store.Document{}
	}
	return doc, nil
}
