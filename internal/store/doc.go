// Package store is the reference executor: it runs rendered SQL against a
// SQLite database and hands back raw rows.
//
// Store owns the connection and executes statements. Backend connects the
// builder to a Store by rendering each structure with a sqlgen.Generator
// before executing it.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - One open connection, so ":memory:" databases stay a single database
//
// Every statement is logged at debug level with a query_id (UUIDv7 by
// default) and, when Metrics are attached, counted and timed.
package store
