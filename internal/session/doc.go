/*
Package session holds the live editing state and connects the persistence
layer to the preview pipeline.

# State

A session tracks one open project at a time: its persisted record, the
working copy of its files, and a dirty flag that is set by edits and
cleared only by a successful save. Version snapshots for the open project
are cached alongside.

# Debounced automation

Edits schedule two deferred actions, each through a single-slot debouncer:
an auto-save after thirty seconds of quiet (when the auto-save preference
is on) and a preview re-run after eight hundred milliseconds. Rapid typing
keeps replacing the pending slot, so at most one of each fires.

# Preview correlation

Every run mints a fresh channel identifier, activates it on the console
bridge, then launches the sandbox. Output from superseded runs carries an
old identifier and is discarded by the bridge, so the console only ever
shows the current run.

# Storage failures

The session stays usable when the store fails: the working copy and dirty
flag are kept, and subscribers receive a notice describing what was not
persisted.
*/
package session
