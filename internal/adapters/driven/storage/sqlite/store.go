package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/tdsync/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/tdsync/internal/core/ports/driven"
)

// dbFile is the database file name inside the data directory.
const dbFile = "tdsync.db"

// pragmas applied to every connection. WAL lets the dashboard read the
// ledger while serve is writing it.
const pragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

// Store owns the tdsync database and hands out the persistence ports
// backed by it.
type Store struct {
	db   *sql.DB
	path string

	// writeMu serialises read-then-write transactions. WAL readers cannot
	// upgrade to writers once another writer has committed.
	writeMu sync.Mutex

	now func() time.Time
}

// NewStore opens (creating if needed) dataDir/tdsync.db and applies pending
// migrations. An empty dataDir means ~/.tdsync/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".tdsync", "data")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite", path+pragmas)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path, now: time.Now}
	if err := s.migrate(context.Background(), migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CredentialStore returns the credential port.
func (s *Store) CredentialStore() driven.CredentialStore {
	return &credentialStore{store: s}
}

// EntityStore returns the entity store. The concrete type is returned so
// callers can use Count and Get alongside the port methods.
func (s *Store) EntityStore() *EntityStore {
	return &EntityStore{store: s}
}

// RunLedger returns the sync run ledger port.
func (s *Store) RunLedger() driven.RunLedger {
	return &runLedger{store: s}
}

// SchedulerStore returns the scheduler task port.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// SchemaVersion returns the highest applied migration, 0 for a new database.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// migration is one NNN_name.up.sql file.
type migration struct {
	version int
	name    string
}

// pendingMigrations lists the up migrations in fsys newer than current,
// oldest first. Files not named NNN_*.up.sql are ignored.
func pendingMigrations(fsys fs.FS, current int) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations: %w", err)
	}

	var pending []migration
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".up.sql") {
			continue
		}
		var v int
		if _, err := fmt.Sscanf(e.Name(), "%d_", &v); err != nil || v <= current {
			continue
		}
		pending = append(pending, migration{version: v, name: e.Name()})
	}
	slices.SortFunc(pending, func(a, b migration) int { return a.version - b.version })
	return pending, nil
}

// migrate applies each pending migration in its own transaction together
// with its schema_migrations row.
func (s *Store) migrate(ctx context.Context, fsys fs.FS) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	pending, err := pendingMigrations(fsys, current)
	if err != nil {
		return err
	}

	for _, m := range pending {
		body, err := fs.ReadFile(fsys, m.name)
		if err != nil {
			return fmt.Errorf("reading %s: %w", m.name, err)
		}
		if err := s.apply(ctx, m, string(body)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) apply(ctx context.Context, m migration, body string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("applying %s: %w", m.name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, body); err != nil {
		return fmt.Errorf("applying %s: %w", m.name, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		m.version, unixNano(s.now())); err != nil {
		return fmt.Errorf("recording %s: %w", m.name, err)
	}
	return tx.Commit()
}

// unixNano stores t as nanoseconds, with zero time stored as 0.
func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixNano()
}

// fromUnixNano is the inverse of unixNano.
func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// nullString stores an empty string as NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
