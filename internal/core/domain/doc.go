// Package domain defines the core business entities for tdsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Credential: The provider access token and its validity window
//   - RemoteEntity: User, Project, Task and Worklog records pulled from Time Doctor
//   - SyncWindow: One entity type and date range unit of sync work
//   - SyncRunRecord: An append-only ledger entry for a window
//   - RunReport: The outcome of one orchestrator run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
