package desfire_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/danmuck/farectl/internal/card"
	"github.com/danmuck/farectl/internal/desfire"
	"github.com/danmuck/farectl/internal/protocol"
	"github.com/danmuck/farectl/internal/testutil/testlog"
	"github.com/danmuck/farectl/internal/transport"
	"github.com/danmuck/farectl/internal/transport/sim"
)

var (
	fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	uid      = []byte{0x04, 0x52, 0x2A, 0x91, 0x3C, 0x5E, 0x80}
)

func newSession() *desfire.Session {
	return desfire.NewSession(desfire.WithClock(func() time.Time { return fixedNow }))
}

func valueFile(id byte, payload []byte) sim.File {
	return sim.File{
		ID:       id,
		Settings: card.ValueSettings{Header: card.Header{FileType: card.FileTypeValue}, UpperLimit: 100000},
		Payload:  payload,
	}
}

func standardFile(id byte, size uint32, payload []byte) sim.File {
	return sim.File{
		ID:       id,
		Settings: card.StandardSettings{Header: card.Header{FileType: card.FileTypeStandard}, FileSize: size},
		Payload:  payload,
	}
}

func recordFile(id byte, size, max uint32, payload []byte) sim.File {
	return sim.File{
		ID: id,
		Settings: card.RecordSettings{
			Header:         card.Header{FileType: card.FileTypeCyclicRecord},
			RecordSize:     size,
			MaxRecords:     max,
			CurrentRecords: uint32(len(payload)) / size,
		},
		Payload: payload,
	}
}

func layout(apps ...sim.App) sim.Layout {
	return sim.Layout{UID: uid, Version: sim.DefaultVersion(uid), Apps: apps}
}

func TestDumpSingleValueFile(t *testing.T) {
	testlog.Start(t)
	sc := sim.New(layout(sim.App{ID: 1, Files: []sim.File{valueFile(2, []byte{0xF4, 0x01, 0x00, 0x00})}}))

	c, err := newSession().Dump(sc)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	apps := c.Applications()
	if len(apps) != 1 || apps[0].ID() != 1 {
		t.Fatalf("unexpected applications: %+v", apps)
	}
	files := apps[0].Files()
	if len(files) != 1 || files[0].ID() != 2 {
		t.Fatalf("unexpected files: %+v", files)
	}
	counter, ok := files[0].Content().(card.Counter)
	if !ok || counter.Value != 500 {
		t.Fatalf("expected Counter(500), got %#v", files[0].Content())
	}
	if !c.ScannedAt().Equal(fixedNow) {
		t.Fatalf("scanned_at not from clock: %s", c.ScannedAt())
	}
	if !bytes.Equal(c.TagID(), uid) {
		t.Fatalf("tag id mismatch: % X", c.TagID())
	}
	if sc.Connects() != 1 || sc.IsConnected() {
		t.Fatalf("expected one connect and a released link, connects=%d connected=%v", sc.Connects(), sc.IsConnected())
	}
}

func TestDumpTransportFaultIsFatal(t *testing.T) {
	testlog.Start(t)
	sc := sim.New(layout(
		sim.App{ID: 1, Files: []sim.File{valueFile(2, desfire.EncodeValue(10))}},
		sim.App{ID: 2, Files: []sim.File{valueFile(1, desfire.EncodeValue(20))}},
	))
	sc.FailOn(func(ex sim.Exchange) bool {
		return ex.Command == protocol.CmdGetFileIDs && ex.Selected == 2
	}, transport.ErrLinkLost)

	c, err := newSession().Dump(sc)
	if c != nil {
		t.Fatalf("expected no card on fatal fault")
	}
	var te *transport.Error
	if !errors.As(err, &te) || !errors.Is(err, transport.ErrLinkLost) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if sc.Connects() != 1 || sc.Closes() != 1 {
		t.Fatalf("expected one connect and one close, connects=%d closes=%d", sc.Connects(), sc.Closes())
	}
	if sc.IsConnected() {
		t.Fatalf("link still held after fatal fault")
	}
	if _, err := newSession().Dump(sc); err != nil {
		t.Fatalf("dump after fault: %v", err)
	}
	if sc.Connects() != 2 || sc.Closes() != 2 {
		t.Fatalf("expected paired connect/close, connects=%d closes=%d", sc.Connects(), sc.Closes())
	}
}

func TestDumpAccessDeniedKeepsSiblings(t *testing.T) {
	testlog.Start(t)
	denied := standardFile(1, 4, []byte{1, 2, 3, 4})
	denied.ReadStatus = protocol.StatusPermissionDenied
	sc := sim.New(layout(sim.App{ID: 3, Files: []sim.File{
		denied,
		valueFile(2, desfire.EncodeValue(1234)),
	}}))

	c, err := newSession().Dump(sc)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	f, ok := c.File(3, 1)
	if !ok {
		t.Fatalf("file 1 dropped")
	}
	u, ok := f.Content().(card.Unauthorized)
	if !ok || u.Message == "" {
		t.Fatalf("expected Unauthorized with message, got %#v", f.Content())
	}
	if _, ok := f.Settings().(card.StandardSettings); !ok {
		t.Fatalf("settings obtained before the fault were lost: %#v", f.Settings())
	}
	f, _ = c.File(3, 2)
	if counter, ok := f.Content().(card.Counter); !ok || counter.Value != 1234 {
		t.Fatalf("sibling not decoded: %#v", f.Content())
	}
}

func TestDumpNeverDropsFiles(t *testing.T) {
	testlog.Start(t)
	authFail := standardFile(1, 4, nil)
	authFail.SettingsStatus = protocol.StatusAuthenticationError
	boundary := recordFile(2, 16, 4, nil)
	boundary.ReadStatus = protocol.StatusBoundaryError
	short := standardFile(3, 8, []byte{1, 2, 3})
	ragged := recordFile(4, 16, 4, make([]byte, 20))
	ragged.Settings = card.RecordSettings{Header: card.Header{FileType: card.FileTypeLinearRecord}, RecordSize: 16, MaxRecords: 4}
	badValue := valueFile(5, []byte{1, 2})
	good := standardFile(6, 2, []byte{0xCA, 0xFE})

	sc := sim.New(layout(
		sim.App{ID: 0x10, Files: []sim.File{authFail, boundary, short}},
		sim.App{ID: 0x20, Files: []sim.File{ragged, badValue, good}},
		sim.App{ID: 0x30},
	))
	c, err := newSession().Dump(sc)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	want := map[uint32][]card.ContentKind{
		0x10: {card.ContentUnauthorized, card.ContentInvalid, card.ContentInvalid},
		0x20: {card.ContentInvalid, card.ContentInvalid, card.ContentData},
		0x30: {},
	}
	for _, app := range c.Applications() {
		kinds := want[app.ID()]
		files := app.Files()
		if len(files) != len(kinds) {
			t.Fatalf("app %x: %d files, want %d", app.ID(), len(files), len(kinds))
		}
		for i, f := range files {
			if f.Content().Kind() != kinds[i] {
				t.Fatalf("app %x file %x: %s want %s", app.ID(), f.ID(), f.Content().Kind(), kinds[i])
			}
		}
	}
	f, _ := c.File(0x10, 1)
	if f.Settings() != nil {
		t.Fatalf("settings fetch failed, settings must be absent")
	}
}

func TestDumpChainsLongRecordFiles(t *testing.T) {
	testlog.Start(t)
	var payload []byte
	for i := 0; i < 10; i++ {
		payload = append(payload, bytes.Repeat([]byte{byte(i)}, 16)...)
	}
	sc := sim.New(layout(sim.App{ID: 3, Files: []sim.File{recordFile(3, 16, 10, payload)}}))
	c, err := newSession().Dump(sc)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	f, _ := c.File(3, 3)
	log, ok := f.Content().(card.Log)
	if !ok || log.Len() != 10 {
		t.Fatalf("expected 10 records, got %#v", f.Content())
	}
	for i := 0; i < 10; i++ {
		if log.Record(i)[0] != byte(i) {
			t.Fatalf("record %d out of order", i)
		}
	}
	var frames int
	for _, ex := range sc.Exchanges() {
		if ex.Command == protocol.CmdAdditionalFrame {
			frames++
		}
	}
	// 2 for GetVersion, 2 for 160 bytes of records
	if frames != 4 {
		t.Fatalf("expected 4 additional frames, got %d", frames)
	}
}

func TestDumpUnsupportedSettingsReadAsRecords(t *testing.T) {
	testlog.Start(t)
	raw := []byte{0x07, 0x00, 0x00, 0x00, 0x01}
	sc := sim.New(layout(sim.App{ID: 5, Files: []sim.File{{
		ID:       1,
		Settings: card.NewUnsupportedSettings(card.Header{FileType: 0x07}, raw),
		Payload:  []byte{0xDE, 0xAD},
	}}}))
	c, err := newSession().Dump(sc)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	f, _ := c.File(5, 1)
	d, ok := f.Content().(card.Data)
	if !ok || !bytes.Equal(d.Bytes(), []byte{0xDE, 0xAD}) {
		t.Fatalf("unexpected content: %#v", f.Content())
	}
}

func TestDumpMissingSettingsIsProtocolFault(t *testing.T) {
	testlog.Start(t)
	listed := standardFile(1, 0, nil)
	listed.SettingsStatus = protocol.StatusFileNotFound
	sc := sim.New(layout(sim.App{ID: 1, Files: []sim.File{listed}}))
	c, err := newSession().Dump(sc)
	if c != nil || !errors.Is(err, desfire.ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got card=%v err=%v", c, err)
	}
	if sc.IsConnected() {
		t.Fatalf("link must be released after a fatal fault")
	}
}

type plain struct {
	transport.Transport
}

func TestDumpTagIDFallsBackToVersionUID(t *testing.T) {
	testlog.Start(t)
	sc := sim.New(sim.Layout{UID: nil, Version: sim.DefaultVersion(uid)})
	c, err := newSession().Dump(plain{sc})
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	if !bytes.Equal(c.TagID(), uid) {
		t.Fatalf("expected uid from version, got % X", c.TagID())
	}
}

func TestDumpBusyTransport(t *testing.T) {
	testlog.Start(t)
	sc := sim.New(layout())
	if err := sc.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	_, err := newSession().Dump(sc)
	if !errors.Is(err, transport.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

// scripted answers each command code with a fixed response.
type scripted struct {
	connected bool
	closes    int
	answers   map[protocol.Command][]byte
}

func (s *scripted) Connect() error {
	s.connected = true
	return nil
}

func (s *scripted) IsConnected() bool { return s.connected }

func (s *scripted) Close() error {
	s.connected = false
	s.closes++
	return nil
}

func (s *scripted) Transceive(apdu []byte) ([]byte, error) {
	resp, ok := s.answers[protocol.Command(apdu[1])]
	if !ok {
		return protocol.EncodeResponse(protocol.StatusIllegalCommand, nil), nil
	}
	return resp, nil
}

func TestDumpDirectoryFaults(t *testing.T) {
	testlog.Start(t)
	version := protocol.EncodeResponse(protocol.StatusOK, sim.DefaultVersion(uid))
	cases := map[string]map[protocol.Command][]byte{
		"malformed aid list": {
			protocol.CmdGetVersion:        version,
			protocol.CmdGetApplicationIDs: protocol.EncodeResponse(protocol.StatusOK, []byte{1, 0, 0, 2}),
		},
		"application not found": {
			protocol.CmdGetVersion:        version,
			protocol.CmdGetApplicationIDs: protocol.EncodeResponse(protocol.StatusOK, []byte{1, 0, 0}),
			protocol.CmdSelectApplication: protocol.EncodeResponse(protocol.StatusApplicationNotFound, nil),
		},
		"duplicate application": {
			protocol.CmdGetVersion:        version,
			protocol.CmdGetApplicationIDs: protocol.EncodeResponse(protocol.StatusOK, []byte{1, 0, 0, 1, 0, 0}),
			protocol.CmdSelectApplication: protocol.EncodeResponse(protocol.StatusOK, nil),
			protocol.CmdGetFileIDs:        protocol.EncodeResponse(protocol.StatusOK, nil),
		},
		"endless chaining": {
			protocol.CmdGetVersion:      protocol.EncodeResponse(protocol.StatusAdditionalFrame, []byte{1}),
			protocol.CmdAdditionalFrame: protocol.EncodeResponse(protocol.StatusAdditionalFrame, []byte{1}),
		},
		"short version": {
			protocol.CmdGetVersion: protocol.EncodeResponse(protocol.StatusOK, []byte{4, 1}),
		},
	}
	for name, answers := range cases {
		tr := &scripted{answers: answers}
		c, err := newSession().Dump(tr)
		if c != nil || !errors.Is(err, desfire.ErrProtocol) {
			t.Fatalf("%s: expected ErrProtocol, got card=%v err=%v", name, c, err)
		}
		if tr.closes != 1 || tr.connected {
			t.Fatalf("%s: expected exactly one close, got %d", name, tr.closes)
		}
	}
}

func TestDumpWithoutReaderUIDUsesVersion(t *testing.T) {
	testlog.Start(t)
	versionUID := []byte{0x04, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66}
	l := sim.Layout{UID: uid, Version: sim.DefaultVersion(versionUID)}

	c, err := newSession().Dump(sim.New(l))
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	if !bytes.Equal(c.TagID(), uid) {
		t.Fatalf("default tag id = % X, want reader uid % X", c.TagID(), uid)
	}

	s := desfire.NewSession(desfire.WithClock(func() time.Time { return fixedNow }), desfire.WithoutReaderUID())
	c, err = s.Dump(sim.New(l))
	if err != nil {
		t.Fatalf("dump without reader uid: %v", err)
	}
	if !bytes.Equal(c.TagID(), versionUID) {
		t.Fatalf("tag id = % X, want version uid % X", c.TagID(), versionUID)
	}
}
