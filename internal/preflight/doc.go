// Package preflight provides readiness checks for the filesystem paths and
// services recwatch depends on.
//
// These checks run in two contexts:
//   - The daemon calls CheckDirectoryAccess for each watch target before
//     subscribing; a failing target is logged and skipped.
//   - The CLI "recwatch status" command uses RunAll to display health.
package preflight
