// Package preflight provides readiness checks for the filesystem paths,
// history backend and upstream provider that promptreel depends on.
//
// These checks run in two contexts:
//   - promptreeld calls RunAll at startup and logs each failure as a warning.
//   - "promptreel config validate" prints every result as a status line.
//
// Checks report results instead of returning errors so callers decide what
// is fatal.
package preflight
