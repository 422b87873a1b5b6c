// Package store provides durable persistence for projects, version
// snapshots, and settings.
//
// Two implementations share the Store interface:
//   - SQLite: the production engine (ncruces/go-sqlite3 via database/sql).
//     Multi-record operations that must be atomic (project delete cascading
//     to its versions, version insert followed by retention trimming) run
//     inside a single transaction, so partial application is never
//     observable.
//   - Memory: in-process maps. Backs tests and the degraded mode entered
//     when the durable engine cannot be opened.
//
// Retention: each project keeps at most MaxVersionsPerProject snapshots;
// SaveVersion deletes the overflow (oldest by timestamp) in the same
// transaction as the insert.
package store
