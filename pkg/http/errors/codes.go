package errors

// Error codes for standardized error responses on the thin HTTP surface.
// The websocket transport's own error taxonomy lives in internal/engine;
// these cover only the handful of things the plain HTTP endpoints reject.
const (
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeInvalidToken = "invalid_token"

	ErrCodeNotFound = "not_found"

	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"
)
