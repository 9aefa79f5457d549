// Package history keeps a SQLite ledger of dispatcher outcomes.
//
// The processed-replay state in package dedup answers "was this file already
// forwarded"; history answers "what happened and when" for operators. Every
// terminal outcome is appended, including ones that never produce a dedup
// record (disappeared, abandoned, cancelled). The ledger is informational:
// write failures are logged by the caller and never affect dispatch.
package history
