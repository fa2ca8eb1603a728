package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrNotConfigured means no backend is available. Triggers are refused, not
// failed: callers treat this as a silent gate.
var ErrNotConfigured = errors.New("backend not configured")

// ErrMalformed means the final authoritative decode of a response failed.
var ErrMalformed = errors.New("malformed response")

// StatusError carries an HTTP status from a provider so errors can be
// categorized without string matching.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.Status, e.Body)
}

// Category is the human-readable error class surfaced to the display layer.
type Category string

const (
	CategoryNetwork   Category = "network"
	CategoryAuth      Category = "auth"
	CategoryTimeout   Category = "timeout"
	CategoryQuota     Category = "quota"
	CategoryMalformed Category = "malformed"
	CategoryUnknown   Category = "unknown"
)

// Categorize maps an error to a display category. context.Canceled is an
// internal control signal and should be filtered by callers before display;
// it categorizes as unknown here.
func Categorize(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	var stErr *StatusError
	if errors.As(err, &stErr) {
		switch {
		case stErr.Status == 401 || stErr.Status == 403:
			return CategoryAuth
		case stErr.Status == 429:
			return CategoryQuota
		case stErr.Status == 408 || stErr.Status == 504:
			return CategoryTimeout
		default:
			return CategoryNetwork
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	if errors.Is(err, ErrMalformed) {
		return CategoryMalformed
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CategoryTimeout
		}
		return CategoryNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return CategoryTimeout
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "api key"):
		return CategoryAuth
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota"):
		return CategoryQuota
	case strings.Contains(msg, "connection") || strings.Contains(msg, "no such host"):
		return CategoryNetwork
	}
	return CategoryUnknown
}
