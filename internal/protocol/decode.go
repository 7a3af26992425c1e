package protocol

import "fmt"

const statusWord1 byte = 0x91

// Unwrap splits a wrapped response into its data and native status.
func Unwrap(resp []byte) (Response, error) {
	if len(resp) < 2 {
		return Response{}, ErrShortResponse
	}
	sw1 := resp[len(resp)-2]
	if sw1 != statusWord1 {
		return Response{}, fmt.Errorf("%w: %02X%02X", ErrBadStatusWord, sw1, resp[len(resp)-1])
	}
	data := make([]byte, len(resp)-2)
	copy(data, resp[:len(resp)-2])
	return Response{Status: Status(resp[len(resp)-1]), Data: data}, nil
}

// ParseCommand is the card-side counterpart of Wrap. It returns the native
// command and its data field.
func ParseCommand(apdu []byte) (Command, []byte, error) {
	if len(apdu) < 5 {
		return 0, nil, ErrShortResponse
	}
	if apdu[0] != WrapClass {
		return 0, nil, fmt.Errorf("%w: class 0x%02X", ErrInvalidLength, apdu[0])
	}
	cmd := Command(apdu[1])
	if len(apdu) == 5 {
		return cmd, nil, nil
	}
	lc := int(apdu[4])
	if len(apdu) != 5+lc+1 {
		return 0, nil, fmt.Errorf("%w: lc=%d apdu=%d", ErrInvalidLength, lc, len(apdu))
	}
	data := make([]byte, lc)
	copy(data, apdu[5:5+lc])
	return cmd, data, nil
}
