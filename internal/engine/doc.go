// Package engine implements the shopsync reconciliation core.
//
// The engine diffs definitions and entities of two deployments by natural
// key, translates cross-store references, and writes the difference to the
// target through a single Executor.
//
// ARCHITECTURE:
//
// Per pass (one owner kind, optionally one namespace):
//  1. Fetch source and target collections (remote.Fetcher).
//  2. Match by natural key: unmatched items are created, matched items are
//     updated. Deletion is a separate mode that never creates or updates.
//  3. Per entity, a fixed pipeline runs: backfill required fields, then
//     resolve references (Resolver), then hand the payload to the Executor.
//  4. Counters flow into a Result; results of nested passes are summed
//     into a Report tree.
//
// Single-threaded execution:
// Every remote call is awaited before the next one is issued. Passes never
// run concurrently; the platform enforces a per-deployment rate budget and
// the engine is its only client. The per-pass reference cache is therefore
// unlocked.
//
// Failure model:
//   - Transport errors and in-band rejections fail one item; the loop
//     continues. Only definition writes rejected with the feature-limit
//     reason are retried, once, with the pinned flag cleared.
//   - Unresolved references never fail an item; the value is blanked.
//   - The per-run limit is a soft governor checked before each item.
//
// Dry runs:
// The Executor is the only component that knows whether a run is a dry run.
// It answers with sentinel ids (model.DryRunID) so that downstream logic
// follows the same code paths.
package engine
