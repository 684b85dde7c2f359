package provider

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
)

// IsTransient reports whether err is worth retrying: rate limits, overload,
// server errors and network failures. Cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch code := apiErr.StatusCode; {
		case code == http.StatusRequestTimeout,
			code == http.StatusConflict,
			code == http.StatusTooManyRequests,
			code >= http.StatusInternalServerError:
			return true
		default:
			return false
		}
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// StatusCode extracts the HTTP status of an API error, or 0.
func StatusCode(err error) int {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
