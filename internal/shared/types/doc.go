// Package types provides shared data structures for the webpad backend.
//
// This package defines the core records used across all backend components,
// ensuring consistent persisted shapes.
//
// Core Types:
//   - Project: Named bundle of editor files plus feature flags
//   - VersionEntry: Immutable timestamped snapshot of a project's files
//   - Settings: Global singleton editor preferences
//   - EditorFiles: Logical language name to source text mapping
//   - ConsoleEntry: Transient console output record
//
// Timestamps on persisted records are integer milliseconds since the Unix
// epoch so that records round-trip exactly through JSON and SQLite.
package types
