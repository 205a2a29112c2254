package predict

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// APIError is a non-success answer from the backend. Message holds the
// server-supplied "error" field when there was one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server returned status %d", e.StatusCode)
}

// Message turns an error from this package into text fit for a toast.
// Cancelled requests yield "".
func Message(err error) string {
	if err == nil || errors.Is(err, context.Canceled) {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fmt.Sprintf("Prediction failed (HTTP %d)", apiErr.StatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "The prediction service took too long to answer."
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return "Cannot reach the prediction service. Is the backend running?"
	}
	return err.Error()
}
