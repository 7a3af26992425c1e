// Package card is the immutable in-memory model of a dumped card.
//
// Values are built through New, NewApplication and NewFile (or a Builder),
// which refuse incomplete entities. Accessors hand out copies, so a *Card
// may be shared freely once built.
package card

import (
	"bytes"
	"fmt"
	"time"
)

// Kind names the card technology a model was read from.
type Kind string

const KindDESFire Kind = "mifare_desfire"

var knownKinds = map[Kind]struct{}{
	KindDESFire: {},
}

// MaxApplicationID is the largest 24-bit application id.
const MaxApplicationID = 0xFFFFFF

type Card struct {
	kind          Kind
	tagID         []byte
	scannedAt     time.Time
	manufacturing []byte
	apps          []Application
}

type Application struct {
	id    uint32
	files []File
}

type File struct {
	id       byte
	settings FileSettings
	content  FileContent
}

// NewFile validates that content is present and agrees with settings.
// Settings may be nil only for Unauthorized and Invalid content.
func NewFile(id byte, settings FileSettings, content FileContent) (File, error) {
	if content == nil {
		return File{}, fmt.Errorf("%w: file %02x", ErrMissingContent, id)
	}
	switch content.(type) {
	case Unauthorized, Invalid:
	default:
		if settings == nil {
			return File{}, fmt.Errorf("%w: file %02x", ErrMissingSettings, id)
		}
		if !contentFits(settings, content) {
			return File{}, fmt.Errorf("%w: file %02x %s with %s", ErrContentMismatch, id, settings.Kind(), content.Kind())
		}
	}
	return File{id: id, settings: settings, content: content}, nil
}

func contentFits(settings FileSettings, content FileContent) bool {
	switch settings.(type) {
	case StandardSettings, UnsupportedSettings:
		_, ok := content.(Data)
		return ok
	case ValueSettings:
		_, ok := content.(Counter)
		return ok
	case RecordSettings:
		_, ok := content.(Log)
		return ok
	default:
		return false
	}
}

func (f File) ID() byte { return f.id }

// Settings is nil when they could not be obtained.
func (f File) Settings() FileSettings { return f.settings }

func (f File) Content() FileContent { return f.content }

// NewApplication validates the 24-bit id and file id uniqueness. File order
// is kept.
func NewApplication(id uint32, files []File) (Application, error) {
	if id > MaxApplicationID {
		return Application{}, fmt.Errorf("%w: %x", ErrApplicationID, id)
	}
	seen := make(map[byte]struct{}, len(files))
	for _, f := range files {
		if f.content == nil {
			return Application{}, fmt.Errorf("%w: app %06x file %02x", ErrMissingContent, id, f.id)
		}
		if _, dup := seen[f.id]; dup {
			return Application{}, fmt.Errorf("%w: app %06x file %02x", ErrDuplicateFile, id, f.id)
		}
		seen[f.id] = struct{}{}
	}
	out := make([]File, len(files))
	copy(out, files)
	return Application{id: id, files: out}, nil
}

func (a Application) ID() uint32 { return a.id }

func (a Application) Files() []File {
	out := make([]File, len(a.files))
	copy(out, a.files)
	return out
}

func (a Application) File(id byte) (File, bool) {
	for _, f := range a.files {
		if f.id == id {
			return f, true
		}
	}
	return File{}, false
}

// New builds a validated Card. scannedAt is stored in UTC.
func New(kind Kind, tagID []byte, scannedAt time.Time, manufacturing []byte, apps []Application) (*Card, error) {
	if _, ok := knownKinds[kind]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if len(tagID) == 0 {
		return nil, ErrEmptyTagID
	}
	if scannedAt.IsZero() {
		return nil, ErrZeroScanTime
	}
	seen := make(map[uint32]struct{}, len(apps))
	for _, a := range apps {
		if a.id > MaxApplicationID {
			return nil, fmt.Errorf("%w: %x", ErrApplicationID, a.id)
		}
		if _, dup := seen[a.id]; dup {
			return nil, fmt.Errorf("%w: %06x", ErrDuplicateApplication, a.id)
		}
		seen[a.id] = struct{}{}
	}
	out := make([]Application, len(apps))
	copy(out, apps)
	return &Card{
		kind:          kind,
		tagID:         cloneBytes(tagID),
		scannedAt:     scannedAt.UTC().Round(0),
		manufacturing: cloneBytes(manufacturing),
		apps:          out,
	}, nil
}

func (c *Card) Kind() Kind { return c.kind }
func (c *Card) TagID() []byte { return cloneBytes(c.tagID) }
func (c *Card) ScannedAt() time.Time { return c.scannedAt }
func (c *Card) ManufacturingData() []byte { return cloneBytes(c.manufacturing) }

func (c *Card) Applications() []Application {
	out := make([]Application, len(c.apps))
	copy(out, c.apps)
	return out
}

func (c *Card) Application(id uint32) (Application, bool) {
	for _, a := range c.apps {
		if a.id == id {
			return a, true
		}
	}
	return Application{}, false
}

// File looks up one file by application and file id.
func (c *Card) File(appID uint32, fileID byte) (File, bool) {
	app, ok := c.Application(appID)
	if !ok {
		return File{}, false
	}
	return app.File(fileID)
}

// Equal reports whether two cards have the same canonical encoding.
func Equal(a, b *Card) bool {
	if a == nil || b == nil {
		return a == b
	}
	ea, err := a.MarshalJSON()
	if err != nil {
		return false
	}
	eb, err := b.MarshalJSON()
	if err != nil {
		return false
	}
	return bytes.Equal(ea, eb)
}

// Builder accumulates the parts of a Card during a dump.
type Builder struct {
	kind          Kind
	tagID         []byte
	scannedAt     time.Time
	manufacturing []byte
	apps          []Application
}

func NewBuilder(kind Kind) *Builder {
	return &Builder{kind: kind}
}

func (b *Builder) TagID(id []byte) *Builder {
	b.tagID = cloneBytes(id)
	return b
}

func (b *Builder) ScannedAt(t time.Time) *Builder {
	b.scannedAt = t
	return b
}

func (b *Builder) ManufacturingData(raw []byte) *Builder {
	b.manufacturing = cloneBytes(raw)
	return b
}

func (b *Builder) AddApplication(app Application) *Builder {
	b.apps = append(b.apps, app)
	return b
}

func (b *Builder) Build() (*Card, error) {
	return New(b.kind, b.tagID, b.scannedAt, b.manufacturing, b.apps)
}
