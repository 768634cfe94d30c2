// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - ProviderClient: Fetches one page of remote records (Time Doctor connector)
//   - Authenticator: Exchanges the account secret for an access token
//   - CredentialStore: Durable record of the current Credential
//   - EntityStore: Upserts remote records into local storage
//   - RunLedger: Append-only record of sync windows
//   - SchedulerStore: Scheduler task state and history
//   - TokenProvider: Hands out a valid access token, refreshing on demand
//   - ConfigStore: Application configuration
//   - ConfigWatcher: Notices configuration edits made outside the process
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
