package sim

import (
	"bytes"

	"github.com/danmuck/farectl/internal/card"
	"github.com/danmuck/farectl/internal/desfire"
	"github.com/danmuck/farectl/internal/protocol"
)

// Layout is the declarative content of a simulated card.
type Layout struct {
	UID     []byte
	Version []byte
	Apps    []App
}

type App struct {
	ID    uint32
	Files []File
}

// File is one directory entry. Payload is what the matching read command
// returns: the raw bytes of a standard file, the 4 stored bytes of a value
// file, or the concatenated records of a record file.
type File struct {
	ID       byte
	Settings card.FileSettings
	Payload  []byte

	// SettingsStatus, when not OK, is returned for GetFileSettings.
	SettingsStatus protocol.Status
	// ReadStatus, when not OK, is returned for the content read.
	ReadStatus protocol.Status
}

// DefaultVersion builds a GetVersion blob carrying uid.
func DefaultVersion(uid []byte) []byte {
	v := []byte{
		0x04, 0x01, 0x01, 0x01, 0x00, 0x18, 0x05,
		0x04, 0x01, 0x01, 0x01, 0x04, 0x18, 0x05,
	}
	id := make([]byte, 7)
	copy(id, uid)
	v = append(v, id...)
	v = append(v, 0xBA, 0x54, 0x70, 0x91, 0x40, 0x23, 0x12)
	return v
}

// FromCard rebuilds a layout from a dumped card so it can be read again
// through the full protocol path. Unauthorized files answer
// PERMISSION_DENIED; Invalid files answer INTEGRITY_ERROR.
func FromCard(c *card.Card) Layout {
	l := Layout{UID: c.TagID(), Version: c.ManufacturingData()}
	if len(l.Version) < card.VersionLen {
		l.Version = DefaultVersion(l.UID)
	}
	for _, a := range c.Applications() {
		app := App{ID: a.ID()}
		for _, f := range a.Files() {
			app.Files = append(app.Files, fileFromCard(f))
		}
		l.Apps = append(l.Apps, app)
	}
	return l
}

func fileFromCard(f card.File) File {
	out := File{ID: f.ID(), Settings: f.Settings()}
	if out.Settings == nil {
		out.SettingsStatus = statusFor(f.Content())
		return out
	}
	switch c := f.Content().(type) {
	case card.Data:
		out.Payload = c.Bytes()
	case card.Counter:
		out.Payload = desfire.EncodeValue(c.Value)
	case card.Log:
		out.Payload = bytes.Join(c.Records(), nil)
	default:
		out.ReadStatus = statusFor(c)
	}
	return out
}

func statusFor(c card.FileContent) protocol.Status {
	if _, ok := c.(card.Unauthorized); ok {
		return protocol.StatusPermissionDenied
	}
	return protocol.StatusIntegrityError
}
