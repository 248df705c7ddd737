package llmapi

import (
	"fmt"
	"time"
)

// ProviderError represents a non-2xx response from an LLM provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
	Retryable  bool
	RetryAfter *time.Duration // from the retry-after header, when present
	Cause      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] provider error (status=%d, retryable=%v): %s",
		e.Provider, e.StatusCode, e.Retryable, e.Body)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// RateLimitError is an HTTP 429 response. Always retryable.
type RateLimitError struct{ ProviderError }

// OverloadedError is a vendor-specific overload status (e.g. HTTP 529).
// Always retryable.
type OverloadedError struct{ ProviderError }

// AuthError is a 401/403 response. Never retryable.
type AuthError struct{ ProviderError }

// InvalidRequestError is a 400/422 response. Never retryable.
type InvalidRequestError struct{ ProviderError }

// TransportError is a network-level failure of a single attempt (connection
// refused, DNS, timeout) — no status code was received. Retryable, but the
// backoff never consults retry-after for it.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// NetworkError is surfaced when the retrying invoker exhausts its attempts
// on transport-level failures. It carries the attempt count and the last
// underlying error.
type NetworkError struct {
	Attempts int
	LastErr  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *NetworkError) Unwrap() error { return e.LastErr }

// ResponseParseError reports a malformed provider response body.
type ResponseParseError struct {
	Provider string
	Detail   string
	Cause    error
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("[%s] malformed response: %s", e.Provider, e.Detail)
}

func (e *ResponseParseError) Unwrap() error { return e.Cause }

// ErrorFromStatusCode maps an HTTP status code to the appropriate error type.
func ErrorFromStatusCode(provider string, statusCode int, body string, retryAfter *time.Duration) error {
	pe := ProviderError{
		Provider:   provider,
		StatusCode: statusCode,
		Body:       body,
		RetryAfter: retryAfter,
	}
	switch statusCode {
	case 400, 422:
		return &InvalidRequestError{ProviderError: pe}
	case 401, 403:
		return &AuthError{ProviderError: pe}
	case 429:
		pe.Retryable = true
		return &RateLimitError{ProviderError: pe}
	case 529:
		pe.Retryable = true
		return &OverloadedError{ProviderError: pe}
	case 500, 502, 503, 504:
		pe.Retryable = true
		return &pe
	default:
		return &pe
	}
}

// IsRetryable reports whether the error is safe to retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch e := err.(type) {
	case *RateLimitError:
		return true
	case *OverloadedError:
		return true
	case *TransportError:
		return true
	case *AuthError:
		return false
	case *InvalidRequestError:
		return false
	case *ResponseParseError:
		return false
	case *NetworkError:
		return false // already the terminal form
	case *ProviderError:
		return e.Retryable
	default:
		return false
	}
}

// retryAfterHint extracts the server-supplied retry-after delay, if the
// error is a status-code error that carried one.
func retryAfterHint(err error) (time.Duration, bool) {
	switch e := err.(type) {
	case *RateLimitError:
		if e.RetryAfter != nil {
			return *e.RetryAfter, true
		}
	case *OverloadedError:
		if e.RetryAfter != nil {
			return *e.RetryAfter, true
		}
	case *ProviderError:
		if e.RetryAfter != nil {
			return *e.RetryAfter, true
		}
	}
	return 0, false
}
