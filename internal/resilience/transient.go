package resilience

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// TransientError marks an upstream failure worth retrying.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

// Unwrap returns the wrapped error.
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(err error, statusCode int) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient reports whether err is a timeout, a dropped connection, a
// Postgres connection-class error or an explicit TransientError.
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

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// 08xxx connection exceptions, 57P01 admin shutdown, 40001 serialization.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P01" || pgErr.Code == "40001"
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"i/o timeout",
		"tls handshake timeout",
		"server closed idle connection",
		"too many requests",
		"gateway timeout",
		"bad gateway",
		"service unavailable",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// StatusError converts a non-2xx HTTP status into an error, transient for
// 408, 429 and 5xx gateway statuses.
func StatusError(statusCode int) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	err := fmt.Errorf("upstream returned %d %s", statusCode, http.StatusText(statusCode))
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return Transient(err, statusCode)
	}
	return err
}
