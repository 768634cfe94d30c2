// Package file provides file-based implementations of driven port interfaces.
//
// Adapters:
//   - ConfigStore: TOML configuration at ~/.tdsync/config.toml
//   - ConfigStore.Watch: fsnotify reload of that file for long-running commands
package file
