// Package daemon coordinates the long-running recwatch process.
//
// It wires configuration, the processed-replay store, the dispatch history,
// the directory watchers, and the dispatcher into a single lifecycle with
// flock-based locking to prevent multiple instances against one state
// directory. Scan runs the same pipeline once over the files already present.
//
// Keep orchestration logic here: detection, stability, and dispatch live in
// their own packages while the daemon focuses on startup, shutdown, and
// high level coordination.
package daemon
