// Package kvstore provides the small key-value persistence layer the history
// store writes through.
//
// Three backends share the Store interface:
//
//   - file: a JSON object on disk guarded by an advisory flock and replaced
//     atomically via temp file + rename.
//   - sqlite: a single kv table in a WAL-mode SQLite database (modernc, no cgo).
//   - redis: plain GET/SET/DEL against a Redis server.
//
// Missing keys report ErrNotFound, which also matches services.ErrNotFound.
package kvstore
