package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrShortResponse   = errors.New("protocol: short response")
	ErrBadStatusWord   = errors.New("protocol: unexpected status word")
	ErrCommandTooLarge = errors.New("protocol: command data too large")
	ErrInvalidLength   = errors.New("protocol: invalid length")

	// ErrAccessDenied matches any StatusError the card raises because the
	// current authentication state does not allow the operation.
	ErrAccessDenied = errors.New("protocol: access denied")
)

// StatusError is a non-success status returned by the card for a command.
type StatusError struct {
	Command Command
	Status  Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("protocol: %s returned %s", e.Command, e.Status)
}

// Is reports access-denied statuses as ErrAccessDenied.
func (e *StatusError) Is(target error) bool {
	return target == ErrAccessDenied && e.Status.AccessDenied()
}

// IsStatus reports whether err carries the given card status.
func IsStatus(err error, status Status) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Status == status
}
