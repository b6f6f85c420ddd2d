package llm

import "errors"

// ErrorCode aligns upstream HTTP status, retryability, and fallback policy
// across providers.
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "LLM_INVALID_REQUEST"
	ErrUnauthorized    ErrorCode = "LLM_UNAUTHORIZED"
	ErrForbidden       ErrorCode = "LLM_FORBIDDEN"
	ErrRateLimited     ErrorCode = "LLM_RATE_LIMITED"
	ErrQuotaExceeded   ErrorCode = "LLM_QUOTA_EXCEEDED"
	ErrModelOverloaded ErrorCode = "LLM_MODEL_OVERLOADED"
	ErrUpstreamTimeout ErrorCode = "LLM_UPSTREAM_TIMEOUT"
	ErrUpstreamError   ErrorCode = "LLM_UPSTREAM_ERROR"

	// ErrConstruction marks an adapter that could not establish a usable
	// remote client (missing credential, bad base URL). Always propagated.
	ErrConstruction ErrorCode = "LLM_CONSTRUCTION_FAILED"

	// ErrConfig marks total misconfiguration: the requested construction
	// failed and so did the last-resort baseline construction. This is the
	// one error the Router propagates to callers.
	ErrConfig ErrorCode = "LLM_CONFIG_INVALID"
)

// Error is the unified error type for adapter and router failures.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// IsConfigError reports whether err is the Router's unrecoverable
// configuration error, the only failure mode callers must handle.
func IsConfigError(err error) bool {
	var le *Error
	return errors.As(err, &le) && le.Code == ErrConfig
}
