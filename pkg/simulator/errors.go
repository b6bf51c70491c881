package simulator

import (
	"errors"
	"fmt"
)

var (
	// ErrEndOfStream reports that the engine closed its output before the
	// expected reply line arrived.
	ErrEndOfStream = errors.New("unexpected end of reply stream")

	// ErrMissingPipe reports that a required stdio pipe was absent.
	ErrMissingPipe = errors.New("missing stdio pipe")

	// ErrClientClosed reports a request against a closed client.
	ErrClientClosed = errors.New("client is closed")
)

// ClientError is a transport-level failure: launching the engine, writing
// a request or reading a reply.
type ClientError struct {
	Op  string
	Err error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("simulator: %s: %v", e.Op, e.Err)
}

func (e *ClientError) Unwrap() error { return e.Err }

// FormatError is a malformed wire exchange: a request that cannot be
// serialized or a reply line that is not valid JSON, including invalid
// payload base64.
type FormatError struct {
	Op  string
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("simulator: %s: %v", e.Op, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// TypedDecodeError is a failure to reinterpret a structurally valid reply
// payload as a caller-supplied binary shape. It never indicates a
// transport or wire format problem.
type TypedDecodeError struct {
	Err error
}

func (e *TypedDecodeError) Error() string {
	return fmt.Sprintf("simulator: decode typed response: %v", e.Err)
}

func (e *TypedDecodeError) Unwrap() error { return e.Err }
