// Package config loads, normalizes, and validates promptreel configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), exports .env files into the environment, reads TOML files, and
// honours environment fallbacks such as PROMPTREEL_PROVIDER_API_KEY and
// GEMINI_API_KEY. The Config type centralizes every knob promptreeld and the
// CLI need, from the proxy bind address to the history backend.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
