// Package services defines shared utilities consumed by the proxy, the
// tracker, and the storage backends.
//
// Key responsibilities:
//   - Context helpers that stamp generation IDs, provider task IDs, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (validation vs transient vs configuration) without string
//     matching.
//
// Use these helpers when wiring new components so error handling and
// observability stay uniform across the daemon and the CLI.
package services
