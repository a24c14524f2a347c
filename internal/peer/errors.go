package peer

import (
	"errors"
	"fmt"
)

var (
	ErrPeerLeft         = errors.New("peer left the session")
	ErrServerError      = errors.New("signaling server error")
	ErrTimeout          = errors.New("timeout")
	ErrConnectionClosed = errors.New("signaling connection closed")
	ErrUnexpectedFrame  = errors.New("unexpected probe frame")
)

type SignalingError struct {
	Op      string
	Err     error
	Details string
}

func (e *SignalingError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SignalingError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *SignalingError {
	return &SignalingError{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *SignalingError {
	return &SignalingError{Op: op, Err: err, Details: details}
}
