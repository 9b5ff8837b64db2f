// Package api defines the wire-format types shared by the promptreeld proxy
// and the generation API client.
//
// # Key Types
//
// GenerateRequest: the submission body {prompt, duration, aspectRatio, style,
// quality}.
//
// GenerateResponse: the reshaped provider outcome {success, videoUrl, error,
// taskId, status, estimatedTime}. Success is false for provider-reported
// failures and for transport errors.
//
// HealthResponse: proxy liveness plus the accepted limits.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for browser consumers. Timestamps are RFC 3339.
// Optional response fields are omitted rather than sent empty.
package api
