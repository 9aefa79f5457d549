// Package daemonrun hosts the process-level entry points behind
// `recwatch run` and `recwatch scan`: signal handling, logger setup, log
// retention, and daemon construction.
package daemonrun
