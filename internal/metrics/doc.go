// Package metrics provides lock-free counters and latency histograms for the
// emulator's testable properties (spec.md §8).
//
// # Design
//
// Counters are stored in cache-line-padded uint64 slots and incremented
// atomically via [sync/atomic.AddUint64]. Histograms use 8 fixed buckets
// (≤5ms … +Inf). Both are allocation-free on the write path.
//
// # Architecture boundaries
//
// This package owns metric storage and snapshot creation only; it has no
// exporter. Callers read a point-in-time Snapshot through Engine.
//
// # What this package must NOT do
//
//   - Perform I/O or network calls.
//   - Import any sibling package.
//   - Expose global metric registries.
package metrics
