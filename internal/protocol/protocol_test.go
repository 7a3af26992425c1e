package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestWrapWithoutData(t *testing.T) {
	got, err := Wrap(CmdGetVersion, nil)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	want := []byte{0x90, 0x60, 0x00, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("wrap mismatch: got % X want % X", got, want)
	}
}

func TestWrapWithData(t *testing.T) {
	got, err := Wrap(CmdSelectApplication, []byte{0x03, 0x00, 0x00})
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	want := []byte{0x90, 0x5A, 0x00, 0x00, 0x03, 0x03, 0x00, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("wrap mismatch: got % X want % X", got, want)
	}

	cmd, data, err := ParseCommand(got)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cmd != CmdSelectApplication || !bytes.Equal(data, []byte{0x03, 0x00, 0x00}) {
		t.Fatalf("parse mismatch: cmd=%s data=% X", cmd, data)
	}
}

func TestWrapRejectsOversizedData(t *testing.T) {
	_, err := Wrap(CmdReadData, make([]byte, MaxCommandData+1))
	if !errors.Is(err, ErrCommandTooLarge) {
		t.Fatalf("expected ErrCommandTooLarge, got %v", err)
	}
}

func TestUnwrap(t *testing.T) {
	resp, err := Unwrap([]byte{0x01, 0x02, 0x91, 0xAF})
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	if resp.Status != StatusAdditionalFrame {
		t.Fatalf("status mismatch: %s", resp.Status)
	}
	if !bytes.Equal(resp.Data, []byte{0x01, 0x02}) {
		t.Fatalf("data mismatch: % X", resp.Data)
	}
}

func TestUnwrapErrors(t *testing.T) {
	if _, err := Unwrap([]byte{0x91}); !errors.Is(err, ErrShortResponse) {
		t.Fatalf("expected ErrShortResponse, got %v", err)
	}
	if _, err := Unwrap([]byte{0x90, 0x00}); !errors.Is(err, ErrBadStatusWord) {
		t.Fatalf("expected ErrBadStatusWord, got %v", err)
	}
}

func TestEncodeResponseRoundTrip(t *testing.T) {
	raw := EncodeResponse(StatusOK, []byte{0xAA})
	resp, err := Unwrap(raw)
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	if resp.Status != StatusOK || !bytes.Equal(resp.Data, []byte{0xAA}) {
		t.Fatalf("round-trip mismatch: %+v", resp)
	}
}

func TestStatusErrorAccessDenied(t *testing.T) {
	for _, st := range []Status{StatusPermissionDenied, StatusAuthenticationError} {
		err := error(&StatusError{Command: CmdReadData, Status: st})
		if !errors.Is(err, ErrAccessDenied) {
			t.Fatalf("%s should match ErrAccessDenied", st)
		}
	}
	err := error(&StatusError{Command: CmdReadData, Status: StatusBoundaryError})
	if errors.Is(err, ErrAccessDenied) {
		t.Fatalf("boundary error must not match ErrAccessDenied")
	}
	if !IsStatus(err, StatusBoundaryError) {
		t.Fatalf("IsStatus should match boundary error")
	}
}

func TestUint24(t *testing.T) {
	buf := make([]byte, 3)
	PutUint24(buf, 0x123456)
	if !bytes.Equal(buf, []byte{0x56, 0x34, 0x12}) {
		t.Fatalf("put mismatch: % X", buf)
	}
	v, err := Uint24(buf)
	if err != nil || v != 0x123456 {
		t.Fatalf("uint24 mismatch: %x %v", v, err)
	}
	if _, err := Uint24([]byte{1, 2}); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}
}

func TestFileArgs(t *testing.T) {
	got := FileArgs(0x03, 0, 0)
	want := []byte{0x03, 0, 0, 0, 0, 0, 0}
	if !bytes.Equal(got, want) {
		t.Fatalf("file args mismatch: % X", got)
	}
}
