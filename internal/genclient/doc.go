// Package genclient talks to the promptreel proxy on behalf of the tracker and
// the CLI.
//
// Submit and CheckStatus never return errors: transport failures, non-2xx
// responses and undecodable bodies are folded into a failed Result so callers
// can treat every outcome as data. Health is the exception and propagates
// errors to its caller.
package genclient
