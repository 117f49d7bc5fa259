package llm

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
)

// ErrorKind classifies a generation failure.
type ErrorKind string

const (
	KindTransport      ErrorKind = "transport"
	KindRateLimit      ErrorKind = "rate_limit"
	KindInvalidRequest ErrorKind = "invalid_request"
)

// ErrEmptyResponse is returned when the API answers without any text content.
var ErrEmptyResponse = errors.New("no text content in API response")

// Error is a classified generation failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// TransportError wraps err as a transport failure.
func TransportError(err error) *Error {
	return &Error{Kind: KindTransport, Err: err}
}

// RateLimitError wraps err as a rate-limit failure.
func RateLimitError(err error) *Error {
	return &Error{Kind: KindRateLimit, Err: err}
}

// InvalidRequestError wraps err as a rejected request.
func InvalidRequestError(err error) *Error {
	return &Error{Kind: KindInvalidRequest, Err: err}
}

// KindOf returns the kind of a generation failure. Errors that were never
// classified are reported as transport failures.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransport
}

// classify maps an Anthropic SDK error to an *Error by HTTP status.
func classify(err error) *Error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return RateLimitError(err)
		case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
			return InvalidRequestError(err)
		}
	}
	return TransportError(err)
}
