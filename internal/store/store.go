// Package store provides the local embedded SQLite cache for rentora.
//
// The store is the device-side half of the offline-first model: every read is
// served from here, and every write lands here before any remote attempt is
// made. Rows carry two bookkeeping columns next to their business fields:
//
//   - is_synced: the remote store holds an up-to-date copy. Cleared on every
//     local mutation, set only after an acknowledged remote round-trip.
//   - is_deleted: local soft-delete tombstone. The row is hard-deleted only
//     after the remote delete is confirmed.
//
// The database runs in embedded mode using ncruces/go-sqlite3 with WAL for
// concurrent readers during writes. All access goes through SQLite's own
// locking; the store keeps no application-level locks or in-memory caches.
//
// Mutations publish change events to the Feed, which is how repositories
// expose reactive list queries without a UI framework underneath.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// schemaVersion is the local schema compatibility surface, persisted via
// PRAGMA user_version. Opening a database written by a newer schema triggers
// a destructive reset: the cache is rebuilt from remote on the next read.
const schemaVersion = 1

// Store wraps the embedded SQLite connection with rentora-specific queries.
type Store struct {
	conn *sql.DB
	path string
	feed *Feed
}

// Open creates a store at the specified path.
//
// The database is opened in embedded mode with WAL for concurrent reads and
// created along with its schema if it does not exist. The caller must call
// Close when done.
func Open(path string) (*Store, error) {
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

	s := &Store{
		conn: conn,
		path: path,
		feed: NewFeed(),
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := s.conn.Exec(pragma); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := s.InitSchema(context.Background()); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// RawDB returns the underlying sql.DB connection.
func (s *Store) RawDB() *sql.DB {
	return s.conn
}

// Feed returns the change feed publishing local mutations.
func (s *Store) Feed() *Feed {
	return s.feed
}

// Close checkpoints the WAL and closes the database connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	s.feed.Close()

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.conn = nil
	return nil
}

// InitSchema creates the schema if it doesn't exist. Idempotent.
//
// If the on-disk user_version is ahead of this build, the database was
// written by a newer schema and is reset destructively before recreating.
func (s *Store) InitSchema(ctx context.Context) error {
	var version int
	if err := s.conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if version > schemaVersion {
		if err := s.reset(ctx); err != nil {
			return fmt.Errorf("failed to reset incompatible database (version %d): %w", version, err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		number TEXT NOT NULL,
		monthly_rent INTEGER NOT NULL DEFAULT 0,
		is_occupied INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		is_synced INTEGER NOT NULL DEFAULT 0,
		is_deleted INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		room_id TEXT NOT NULL,
		room_number TEXT NOT NULL DEFAULT '',
		balance INTEGER NOT NULL DEFAULT 0,
		photo_path TEXT NOT NULL DEFAULT '',
		moved_in_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		is_synced INTEGER NOT NULL DEFAULT 0,
		is_deleted INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		tenant_name TEXT NOT NULL DEFAULT '',
		room_number TEXT NOT NULL DEFAULT '',
		amount INTEGER NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		paid_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		is_synced INTEGER NOT NULL DEFAULT 0,
		is_deleted INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		amount INTEGER NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		spent_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		is_synced INTEGER NOT NULL DEFAULT 0,
		is_deleted INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		photo_path TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		is_synced INTEGER NOT NULL DEFAULT 0,
		is_deleted INTEGER NOT NULL DEFAULT 0
	);

	-- Session and sync bookkeeping key-value pairs
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rooms_user ON rooms(user_id, is_deleted);
	CREATE INDEX IF NOT EXISTS idx_rooms_unsynced ON rooms(user_id, is_synced, is_deleted);
	CREATE INDEX IF NOT EXISTS idx_tenants_user ON tenants(user_id, is_deleted);
	CREATE INDEX IF NOT EXISTS idx_tenants_unsynced ON tenants(user_id, is_synced, is_deleted);
	CREATE INDEX IF NOT EXISTS idx_tenants_room ON tenants(room_id);
	CREATE INDEX IF NOT EXISTS idx_payments_user ON payments(user_id, is_deleted);
	CREATE INDEX IF NOT EXISTS idx_payments_unsynced ON payments(user_id, is_synced, is_deleted);
	CREATE INDEX IF NOT EXISTS idx_payments_tenant ON payments(tenant_id);
	CREATE INDEX IF NOT EXISTS idx_expenses_user ON expenses(user_id, is_deleted);
	CREATE INDEX IF NOT EXISTS idx_expenses_unsynced ON expenses(user_id, is_synced, is_deleted);
	`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	if _, err := s.conn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version=%d", schemaVersion)); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}

	return nil
}

// reset drops all application tables. Used when the on-disk schema is newer
// than this build; the cache refills from remote afterwards.
func (s *Store) reset(ctx context.Context) error {
	for _, table := range []string{"tenants", "rooms", "payments", "expenses", "profiles", "meta"} {
		if _, err := s.conn.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}
	}
	return nil
}

// Wipe removes every row from every table, including the session. Called on
// sign-out: the local cache is unconditionally discarded.
func (s *Store) Wipe(ctx context.Context) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"tenants", "rooms", "payments", "expenses", "profiles", "meta"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return fmt.Errorf("failed to wipe %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit wipe: %w", err)
	}

	for _, table := range []Table{TableTenants, TableRooms, TablePayments, TableExpenses, TableProfiles, TableSession} {
		s.feed.Publish(Event{Table: table})
	}
	return nil
}

// Counts reports the number of rows per state for one table. Used by the
// status command and the dashboard.
type Counts struct {
	Active   int
	Trashed  int
	Unsynced int
}

// TableCounts returns row counts for the named entity table.
func (s *Store) TableCounts(ctx context.Context, table Table) (Counts, error) {
	var c Counts
	query := fmt.Sprintf(`
	SELECT
		COUNT(*) FILTER (WHERE is_deleted = 0),
		COUNT(*) FILTER (WHERE is_deleted = 1),
		COUNT(*) FILTER (WHERE is_synced = 0 AND is_deleted = 0)
	FROM %s`, string(table))
	if err := s.conn.QueryRowContext(ctx, query).Scan(&c.Active, &c.Trashed, &c.Unsynced); err != nil {
		return Counts{}, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return c, nil
}

// timeToSQL formats a timestamp for storage. Zero times are stored as the
// zero RFC3339 string so round-trips stay lossless.
func timeToSQL(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// timeFromSQL parses a stored timestamp, returning the zero time on failure.
func timeFromSQL(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
