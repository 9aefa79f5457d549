// Package dedup persists which replay files have already been forwarded to
// the parse service.
//
// The Store interface is what the dispatcher depends on. FileStore backs it
// with a single JSON object keyed by absolute path that is rewritten
// atomically on every update. Missing or corrupt state loads as empty: losing
// the file only risks a repeated parse call, which the downstream service
// tolerates, so it is never fatal.
package dedup
