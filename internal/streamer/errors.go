package streamer

import (
	"errors"
	"fmt"
)

var (
	ErrNegotiation    = errors.New("negotiation failed")
	ErrNoAnswer       = errors.New("no SDP answer in call response")
	ErrStaleSession   = errors.New("session is no longer active")
	ErrChannelNotOpen = errors.New("data channel not open")
	ErrSignaling      = errors.New("signaling request failed")
)

// Error ties a failure to the step of the exchange that produced it.
type Error struct {
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *Error {
	return &Error{Op: op, Err: err, Details: details}
}
