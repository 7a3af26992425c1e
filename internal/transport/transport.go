// Package transport defines the command channel a card dump runs over.
//
// Ownership boundary:
// - the Transport capability consumed by internal/desfire
// - the transport error taxonomy (always fatal to a dump)
//
// Concrete channels live in subpackages: sim (in-memory card), trace
// (record/replay) and remote (gRPC reader).
package transport

import (
	"errors"
	"fmt"
)

// Transport is a synchronous request/response channel to one card. One
// exchange may be outstanding at a time and implementations are not
// expected to be shared between concurrent dumps.
type Transport interface {
	Connect() error
	Transceive(command []byte) ([]byte, error)
	Close() error
	IsConnected() bool
}

// Identifier is implemented by transports that learn the card UID during
// anticollision.
type Identifier interface {
	UID() []byte
}

var (
	ErrClosed       = errors.New("transport: closed")
	ErrNotConnected = errors.New("transport: not connected")
	ErrBusy         = errors.New("transport: busy")
	ErrLinkLost     = errors.New("transport: link lost")
)

// Error is a channel-level failure. Any *Error aborts a dump.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns err as an *Error for op, leaving existing *Error values
// untouched.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return err
	}
	return &Error{Op: op, Err: err}
}

// IsTransport reports whether err is a channel-level failure.
func IsTransport(err error) bool {
	var te *Error
	return errors.As(err, &te)
}
