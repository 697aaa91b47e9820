// Package store defines the secure key-value contract pinlock persists
// through, and the backends that implement it.
//
// Backends:
//   - keyring: OS keychain (macOS Keychain, Secret Service, Windows Credential Manager)
//   - bbolt: single-file embedded database, one "secrets" bucket
//   - memory: in-process map, nothing survives a restart
//
// Values are text only. Callers encode binary data (base64) before storing it.
//
// All failures are reported through the sentinel errors in errors.go so
// callers can match them with errors.Is regardless of backend.
package store
