// Package internal groups the emulator's private support packages: id
// generation, audit dispatch, and metrics counters. Three of their types
// reach the public cognitoemu API: cognitoemu.MetricID and
// cognitoemu.MetricsSnapshot are aliases of metrics types, and
// Builder.WithAuditSink takes an audit.Sink.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - id — UUID and opaque-secret generation (Sub, Session, origin_jti, refresh tokens)
//   - metrics — lock-free counters and latency histograms for the testable properties in spec.md §8
//
// # What this package must NOT do
//
//   - Export types to the public cognitoemu API beyond the three named above.
//   - Be imported by any package outside this module.
package internal
