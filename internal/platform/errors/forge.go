package errors

import (
	"context"
	stderrs "errors"
	"net/http"
)

// CodeForHTTPStatus classifies a forge response status into the error taxonomy
// 2xx maps to Unknown and callers should not build an error from it
func CodeForHTTPStatus(status int) ErrorCode {
	switch {
	case status == http.StatusNotFound:
		return ErrorCodeNotFound
	case status == http.StatusUnauthorized:
		return ErrorCodeUnauthorized
	case status == http.StatusUnprocessableEntity:
		return ErrorCodeUnprocessable
	case status == http.StatusTooManyRequests:
		return ErrorCodeTooManyRequests
	case status >= 200 && status < 300:
		return ErrorCodeUnknown
	default:
		// anything else is treated as a flaky forge and retried
		return ErrorCodeUnavailable
	}
}

// IsTerminal reports whether a status ends the retry loop
func IsTerminal(status int) bool {
	switch CodeForHTTPStatus(status) {
	case ErrorCodeNotFound, ErrorCodeUnauthorized, ErrorCodeUnprocessable:
		return true
	}
	return status == http.StatusOK
}

// IsFatal reports whether err must abort the whole run:
// rejected credentials or a cancelled / expired run context
func IsFatal(err error) bool {
	return IsCode(err, ErrorCodeUnauthorized) ||
		stderrs.Is(err, context.Canceled) ||
		stderrs.Is(err, context.DeadlineExceeded)
}
