package rcon

import (
	"errors"
	"fmt"
)

var (
	ErrAuthFailed       = errors.New("rcon: authentication rejected")
	ErrNotAuthenticated = errors.New("rcon: not authenticated")
	ErrFrameTooLarge    = errors.New("rcon: frame too large")
	ErrMalformedFrame   = errors.New("rcon: malformed frame")
	ErrConnClosed       = errors.New("rcon: connection closed mid-frame")
)

// ConnError reports that the stream could not be opened.
type ConnError struct {
	Addr string
	Err  error
}

func (e *ConnError) Error() string { return fmt.Sprintf("rcon: connect %s: %v", e.Addr, e.Err) }
func (e *ConnError) Unwrap() error { return e.Err }

// ProtocolError reports a failed exchange on an open stream. The connection is not
// usable afterwards.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string { return fmt.Sprintf("rcon: %s: %v", e.Op, e.Err) }
func (e *ProtocolError) Unwrap() error { return e.Err }
