// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. It implements several stores through a single database connection:
//
//   - CredentialStore: the provider access token and its validity window
//   - EntityStore: local copies of Time Doctor users, projects, tasks and worklogs
//   - RunLedger: append-only record of sync windows
//   - SchedulerStore: background task state and history
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files;
// only the up files are applied automatically, each in a transaction that also
// records its version in schema_migrations. The down files are for manual rollback.
//
// # Data Location
//
// By default, the database is stored at ~/.tdsync/data/tdsync.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. Entity upserts are serialised
// inside the process; SQLite in WAL mode handles the rest.
package sqlite
