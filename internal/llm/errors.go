package llm

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
)

// ErrEmptyResponse is returned when a provider answers without any
// completion text.
var ErrEmptyResponse = errors.New("llm: empty completion")

// TransientError is a failure that may succeed on retry: no response,
// a timeout, a network error or a server-side status.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string { return e.err.Error() }

func (e *TransientError) Unwrap() error { return e.err }

func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError is a failure that must not be retried.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string { return e.err.Error() }

func (e *FatalError) Unwrap() error { return e.err }

func NewFatalError(err error) error {
	return &FatalError{err: err}
}

func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// byStatus classifies a failure that came with an HTTP status. A zero
// status means no response was received.
func byStatus(code int, err error) error {
	if code == 0 || code >= 500 {
		return NewTransientError(err)
	}
	return NewFatalError(err)
}

// byTransport classifies a failure raised below the HTTP layer. It returns
// nil when err is not a transport failure.
func byTransport(err error) error {
	if errors.Is(err, context.Canceled) {
		return NewFatalError(err)
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return NewTransientError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return NewTransientError(err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return NewTransientError(err)
	}
	return nil
}
