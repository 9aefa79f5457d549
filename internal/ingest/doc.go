// Package ingest connects directory watchers to the parse service.
//
// Watchers push Candidates onto a Queue; a single Dispatcher drains it in
// arrival order, waits for each file to stop growing, calls the parse
// service once, and records the outcome. Only one file is ever in flight:
// the parse service is not safe to call concurrently and replays arrive at
// match cadence, not in bulk.
package ingest
