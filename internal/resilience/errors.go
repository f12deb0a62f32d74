// Package resilience wraps calls to the external forecast model
// service with retry, transient-error classification, and a circuit
// breaker. Nothing here is forecast-specific; it guards any flaky
// remote the engine grows to depend on.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError tags an error as retryable. StatusCode carries the
// HTTP status when the failure came from a response, zero otherwise.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps err as transient.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// Substrings that identify transient network failures once the typed
// error has been flattened by an HTTP client.
var transientTexts = []string{
	"connection reset by peer",
	"broken pipe",
	"no such host",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
}

// IsTransient reports whether err, anywhere in its chain, is worth
// retrying: an explicit TransientError, a network timeout, a connection
// level syscall failure, or a recognizably transient message.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	for _, errno := range []syscall.Errno{syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED} {
		if errors.Is(err, errno) {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, text := range transientTexts {
		if strings.Contains(msg, text) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether a response status warrants a
// retry. Client errors other than timeout and throttling do not.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}
