// Package config loads, normalizes, and validates recwatch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// RECWATCH_PARSER_URL. The Config type centralizes every knob the daemon and
// CLI need so watch directories, stability timing, and the parse service
// endpoint are resolved in one pass.
//
// Unlike most settings files, the configuration document is mandatory: Load
// returns ErrConfigNotFound when no file exists so the daemon refuses to start
// with guessed settings. Create one with `recwatch config init`.
package config
