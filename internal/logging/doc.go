// Package logging assembles structured slog loggers and formatting helpers used
// across promptreel.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers that tag log lines with
// generation IDs, provider task IDs, and request correlation IDs. The CLI logs
// to a file only so terminal output stays readable; the proxy daemon logs to
// stdout and its log file.
package logging
