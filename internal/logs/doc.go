// Package logs reads the per-run log files the daemon writes.
//
// Latest finds the newest run log in a directory, Last returns its final
// lines with bounded memory, and Follow streams lines appended after an
// offset until the context ends. The `recwatch logs` command is built on it.
package logs
