package janus

import (
	"errors"
	"fmt"
)

var (
	ErrJoinFailed = errors.New("joining room failed")
	ErrNoSDP      = errors.New("publishing failed (no SDP)")
	ErrJanus      = errors.New("janus error")
	ErrClosed     = errors.New("transport closed")
	ErrPoll       = errors.New("long poll failed")
)

// Error ties a failure to the step of the room exchange that produced it.
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

// check turns a gateway error reply into an *Error.
func check(op string, r *Response) error {
	if r == nil {
		return WrapError(op, ErrJanus, "empty response")
	}
	if r.Janus == TypeError {
		if r.Error != nil {
			return WrapError(op, ErrJanus, fmt.Sprintf("%d %s", r.Error.Code, r.Error.Reason))
		}
		return NewError(op, ErrJanus)
	}
	return nil
}
