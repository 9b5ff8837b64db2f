// Package proxy implements the promptreeld HTTP surface: the thin layer that
// validates generation requests, forwards them to the configured provider, and
// reshapes provider answers into the public wire format.
//
// Routes:
//
//	POST /api/generate-video            submit a generation
//	GET  /api/generate-video?taskId=... check an upstream task
//	GET  /api/health                    liveness and accepted limits
//	GET  /metrics                       Prometheus metrics (optional)
//
// Every response carries an X-Request-ID header. CORS headers are applied
// before routing so browser preflights never reach the handlers, and the
// generation routes require a bearer token when proxy.api_token is set.
package proxy
