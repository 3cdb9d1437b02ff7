package retry

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Transient SQLSTATE classes and codes: connection exceptions, resource
// exhaustion, server-not-ready, and retriable concurrency failures.
const (
	classConnectionException  = "08"
	classInsufficientResource = "53"
	codeCannotConnectNow      = "57P03"
	codeSerializationFailure  = "40001"
	codeDeadlockDetected      = "40P01"
)

// transientSubstrings covers infrastructure errors that arrive as plain
// strings rather than typed pg errors (control-plane throttling, proxies).
var transientSubstrings = []string{
	"rate limit",
	"too many requests",
	"too many connections",
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"unexpected eof",
}

// Transient reports whether err is a failure expected to resolve itself on
// retry. Missing rows, constraint violations, malformed queries, and
// cancelled contexts are permanent.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, pgx.ErrNoRows) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := pgErr.Code
		return strings.HasPrefix(code, classConnectionException) ||
			strings.HasPrefix(code, classInsufficientResource) ||
			code == codeCannotConnectNow ||
			code == codeSerializationFailure ||
			code == codeDeadlockDetected
	}

	// The driver marks errors that occurred before the request hit the wire.
	if pgconn.SafeToRetry(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range transientSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
