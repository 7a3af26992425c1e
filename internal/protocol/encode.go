package protocol

const (
	// WrapClass is the CLA byte for ISO 7816-4 wrapped native commands.
	WrapClass byte = 0x90

	// MaxCommandData is the largest data field a short APDU can carry.
	MaxCommandData = 0xFF
)

// Wrap encodes a native command as a short ISO 7816-4 APDU:
// CLA INS P1 P2 [Lc data] Le.
func Wrap(cmd Command, data []byte) ([]byte, error) {
	if len(data) > MaxCommandData {
		return nil, ErrCommandTooLarge
	}
	size := 5
	if len(data) > 0 {
		size += 1 + len(data)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, WrapClass, byte(cmd), 0x00, 0x00)
	if len(data) > 0 {
		buf = append(buf, byte(len(data)))
		buf = append(buf, data...)
	}
	buf = append(buf, 0x00)
	return buf, nil
}

// EncodeResponse frames a card response as data || 0x91 status. It is the
// card-side counterpart of Unwrap.
func EncodeResponse(status Status, data []byte) []byte {
	buf := make([]byte, len(data)+2)
	copy(buf, data)
	buf[len(data)] = statusWord1
	buf[len(data)+1] = byte(status)
	return buf
}
