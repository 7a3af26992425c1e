// Package cardtest builds card models and simulated layouts for tests.
package cardtest

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"testing"
	"time"

	"github.com/danmuck/farectl/internal/card"
	"github.com/danmuck/farectl/internal/desfire"
	"github.com/danmuck/farectl/internal/transport/sim"
)

var (
	ScannedAt = time.Date(2024, 2, 14, 7, 45, 0, 0, time.UTC)
	UID       = []byte{0x04, 0x3A, 0x19, 0x62, 0xB2, 0x4C, 0x80}
)

// Tx encodes one 16-byte purse log record.
func Tx(kind byte, amount int32, secs uint32, userData string) []byte {
	rec := make([]byte, 16)
	rec[0] = kind
	a := uint32(amount) & 0xFFFFFF
	rec[1], rec[2], rec[3] = byte(a>>16), byte(a>>8), byte(a)
	binary.BigEndian.PutUint32(rec[4:8], secs)
	copy(rec[8:], []byte(userData))
	return rec
}

// PurseInfo builds a purse info file whose CAN is the 16 hex digits of can.
func PurseInfo(t testing.TB, can string) []byte {
	t.Helper()
	raw, err := hex.DecodeString(can)
	if err != nil || len(raw) != 8 {
		t.Fatalf("cardtest: can %q must be 16 hex digits", can)
	}
	info := make([]byte, 32)
	info[0] = 0x01
	copy(info[8:16], raw)
	return info
}

// PurseLayout is a simulated purse card: info, balance and log files in
// application 0x000003.
func PurseLayout(t testing.TB, can string, balance int32, records ...[]byte) sim.Layout {
	t.Helper()
	info := PurseInfo(t, can)
	files := []sim.File{
		{
			ID:       0x01,
			Settings: card.StandardSettings{Header: card.Header{FileType: card.FileTypeStandard}, FileSize: uint32(len(info))},
			Payload:  info,
		},
		{
			ID:       0x02,
			Settings: card.ValueSettings{Header: card.Header{FileType: card.FileTypeValue}, UpperLimit: 100000},
			Payload:  desfire.EncodeValue(balance),
		},
	}
	if records != nil {
		files = append(files, sim.File{
			ID: 0x03,
			Settings: card.RecordSettings{
				Header:         card.Header{FileType: card.FileTypeCyclicRecord},
				RecordSize:     16,
				MaxRecords:     30,
				CurrentRecords: uint32(len(records)),
			},
			Payload: bytes.Join(records, nil),
		})
	}
	return sim.Layout{UID: UID, Version: sim.DefaultVersion(UID), Apps: []sim.App{{ID: 0x000003, Files: files}}}
}

// Purse dumps PurseLayout through the full protocol path.
func Purse(t testing.TB, can string, balance int32, records ...[]byte) *card.Card {
	t.Helper()
	return Dump(t, PurseLayout(t, can, balance, records...))
}

// Dump reads l through a desfire session with a fixed clock.
func Dump(t testing.TB, l sim.Layout) *card.Card {
	t.Helper()
	s := desfire.NewSession(desfire.WithClock(func() time.Time { return ScannedAt }))
	c, err := s.Dump(sim.New(l))
	if err != nil {
		t.Fatalf("cardtest: dump: %v", err)
	}
	return c
}

// WithApps is a card holding only empty applications.
func WithApps(t testing.TB, ids ...uint32) *card.Card {
	t.Helper()
	l := sim.Layout{UID: UID, Version: sim.DefaultVersion(UID)}
	for _, id := range ids {
		l.Apps = append(l.Apps, sim.App{ID: id})
	}
	return Dump(t, l)
}
