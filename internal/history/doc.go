// Package history persists terminal generations as one JSON list under a
// single key, newest first and capped at MaxEntries.
//
// Persistence is best effort: read and write failures are logged as warnings
// and never surface to callers, and unreadable data loads as an empty list.
// Import is the exception; it reports input that is not a JSON list.
package history
