package transport

import (
	"context"
	"errors"
	"net"
)

// Error is a failure to reach the upstream at all.
type Error struct {
	Op   string // "lookup", "dial" or "roundtrip"
	Host string
	Err  error
}

func (e *Error) Error() string {
	return "transport: " + e.Op + " " + e.Host + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the underlying failure was a timeout.
func (e *Error) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// IsError reports whether err is or wraps a transport *Error.
func IsError(err error) bool {
	var tErr *Error
	return errors.As(err, &tErr)
}

// wrap turns err into an *Error unless it already is one or the caller gave up.
func wrap(op, host string, err error) error {
	if err == nil || IsError(err) || errors.Is(err, context.Canceled) {
		return err
	}
	return &Error{Op: op, Host: host, Err: err}
}
