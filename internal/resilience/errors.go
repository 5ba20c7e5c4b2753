package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// TransientError marks an error as safe to retry.
type TransientError struct {
	Err        error
	StatusCode int
	// RetryAfter is the wait the server asked for, zero when it did not.
	RetryAfter time.Duration
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps err as transient with an optional HTTP status.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// ClassifyResponse turns err, raised for a non-OK response, into a
// TransientError when the status is worth retrying. The Retry-After header
// is kept so the next attempt waits as long as the server asked.
func ClassifyResponse(resp *http.Response, err error) error {
	if !IsTransientHTTPStatus(resp.StatusCode) {
		return err
	}
	te := NewTransientError(err, resp.StatusCode)
	te.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	return te
}

// RetryAfter returns the server-requested wait carried by err, if any.
func RetryAfter(err error) time.Duration {
	var te *TransientError
	if errors.As(err, &te) {
		return te.RetryAfter
	}
	return 0
}

// parseRetryAfter reads delay-seconds or an HTTP date. Anything else, or a
// date in the past, is zero.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(max(secs, 0)) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// browserMarkers are lowercase fragments of network and navigation
// failures on collector sites that usually clear on a second visit.
var browserMarkers = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"navigation timeout",
	"net::err_connection",
	"net::err_network_changed",
	"target closed",
}

// IsTransient reports whether err is worth retrying. Cancellation of the
// caller's own context never is.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	for _, errno := range []syscall.Errno{syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED} {
		if errors.Is(err, errno) {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, m := range browserMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether a status code is worth retrying.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
