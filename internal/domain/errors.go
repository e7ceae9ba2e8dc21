package domain

import (
	"fmt"
	"net/http"
)

// UpstreamError is a non-2xx answer from an external service.
type UpstreamError struct {
	Service    string
	Operation  string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Service, e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Service, e.Operation, e.StatusCode, e.Body)
}

// Temporary reports whether a retry may succeed: 429 and 5xx only.
func (e *UpstreamError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
