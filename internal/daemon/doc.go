// Package daemon coordinates the long-running promptreeld process.
//
// It owns the proxy server lifecycle and a flock-based lock under the data
// directory that prevents two proxies from sharing one configuration. Request
// handling lives in the proxy package; the daemon focuses on startup,
// shutdown, and status.
package daemon
