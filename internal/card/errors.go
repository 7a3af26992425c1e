package card

import "errors"

var (
	ErrUnknownKind          = errors.New("card: unknown card kind")
	ErrEmptyTagID           = errors.New("card: tag id required")
	ErrZeroScanTime         = errors.New("card: scanned_at required")
	ErrApplicationID        = errors.New("card: application id out of range")
	ErrDuplicateApplication = errors.New("card: duplicate application id")
	ErrDuplicateFile        = errors.New("card: duplicate file id")
	ErrMissingContent       = errors.New("card: file content required")
	ErrMissingSettings      = errors.New("card: file settings required")
	ErrContentMismatch      = errors.New("card: content does not match settings")
	ErrShortVersion         = errors.New("card: short manufacturing data")
)
