// Package ingest folds vulnerability-scan export files into the merge store.
//
// # Overview
//
// An ingest run is an explicit fold over the ordered list of source files:
//
//	store = fold(store, resolve(normalize(file)))
//
// Each file is normalized to canonical records, stamped with the issue label
// derived from its name, admission-checked, assigned recurrence counters
// against the store as it stands at that moment, and appended. After the
// last file the store is sorted (timestamp descending, nulls last) and
// persisted in one terminal step.
//
// # Recurrence
//
// An incoming row matches a stored record when every natural-key field
// (severity, ip, protocol, port, state, issue) compares equal after trimming
// AND the timestamps differ; identical timestamps mean the same observation,
// not a new recurrence. On a match the row's counter becomes
// max(matched counters) + 1, otherwise it stays 0.
//
// Resolution observes the store snapshot at the moment each file is folded
// in: rows of the same key within a single file are resolved before any of
// them is appended, so siblings do not count each other. That under-count is
// a deliberate property of snapshot-at-resolution-time semantics and is
// pinned by a test.
//
// # Failure isolation
//
// Per-file failures (unreadable, unrecognized schema, nothing admissible)
// skip that file: it is reported, left out of the ledger, and retried on the
// next run. A failure persisting the final store is fatal and the ledger is
// not advanced, so the run degrades to at-least-once rather than losing the
// "ledgered implies stored" invariant.
package ingest
