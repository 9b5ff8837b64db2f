// Package provider talks to the upstream video generation service on behalf
// of the promptreeld proxy.
//
// Two backends implement Provider:
//
//   - http: a generic REST API (POST /generations, GET /generations/{id}) with
//     bearer auth. Status checks retry on 408/429/5xx and network timeouts with
//     exponential backoff that honours Retry-After. Submissions are never
//     retried so a request cannot be billed twice.
//   - veo: Google's Veo models through google.golang.org/genai long-running
//     video operations.
//
// Provider-reported failures come back as an Outcome with StatusFailed. A
// returned error always means the provider could not be reached or answered
// with something unusable.
package provider
