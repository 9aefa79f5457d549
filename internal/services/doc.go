// Package services defines shared utilities consumed by the dispatcher and
// the downstream integrations it calls.
//
// Key responsibilities:
//   - Context helpers that stamp replay paths, watched directories, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the coarse reasons recorded in history and metrics.
//
// Use these helpers when wiring new integrations so error handling and
// observability stay uniform across the pipeline.
package services
