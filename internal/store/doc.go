// Package store provides the SQLite run journal.
//
// The journal is an append-only audit log with two tables:
//   - runs: one row per sync or delete invocation (shops, kinds, flags,
//     final counters)
//   - mutations: one row per remote write attempt made during a run
//
// The journal is written during a run and read back only by the history
// command. Reconciliation never consults it: every run starts from the live
// state of both deployments.
//
// # Ordering
//
// Mutations are ordered by their per-run seq (the executor's logical clock),
// never by timestamp. Runs are listed newest first by started_at, then id.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
