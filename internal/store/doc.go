// Package store provides the SQLite-backed record store.
//
// All records live in a single entries table keyed by id, with the category
// in the type column. Every lookup after creation filters on id AND type in
// one statement:
//
//   - Get:    SELECT ... WHERE id = ? AND type = ?
//   - Update: UPDATE ... WHERE id = ? AND type = ? RETURNING ...
//   - Delete: DELETE ... WHERE id = ? AND type = ? RETURNING ...
//
// so a record stored under one category is never visible through another.
//
// # Ordering
//
// List results are ordered by created_at ASC, id ASC COLLATE BINARY, which
// gives identical output for identical data regardless of page layout.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Schema changes are tracked with PRAGMA user_version.
package store
