package desfire

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocol marks a card directory that cannot be walked. It aborts
	// the dump.
	ErrProtocol = errors.New("desfire: protocol error")

	ErrFrameOverflow = errors.New("desfire: additional frame overflow")
	ErrNoTagID       = errors.New("desfire: no tag id")
)

// DecodeError is a payload or settings blob that does not match its
// declared shape. The file is kept as Invalid content.
type DecodeError struct {
	FileID byte
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("desfire: file %02x: %s", e.FileID, e.Reason)
}

func decodeErrorf(fileID byte, format string, args ...any) error {
	return &DecodeError{FileID: fileID, Reason: fmt.Sprintf(format, args...)}
}
