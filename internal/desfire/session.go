package desfire

import (
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/farectl/internal/card"
	"github.com/danmuck/farectl/internal/protocol"
	"github.com/danmuck/farectl/internal/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const uidOffset, uidLen = 14, 7

// Session dumps DESFire cards. A Session holds no per-dump state; it must
// still not be used for two concurrent dumps over the same transport.
type Session struct {
	now    func() time.Time
	logger zerolog.Logger
	// readerUID prefers the reader-reported UID over the GET_VERSION one.
	readerUID bool
}

type Option func(*Session)

// WithClock sets the source of scanned_at.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithoutReaderUID takes the tag id from GET_VERSION even when the
// transport reports a UID.
func WithoutReaderUID() Option {
	return func(s *Session) { s.readerUID = false }
}

func NewSession(opts ...Option) *Session {
	s := &Session{now: time.Now, logger: log.Logger, readerUID: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dump connects, walks every application and file, and returns the card.
// Per-file faults are kept in the model as Unauthorized or Invalid content.
// Transport and protocol faults abort the dump and no card is returned.
func (s *Session) Dump(t transport.Transport) (*card.Card, error) {
	if err := t.Connect(); err != nil {
		return nil, transport.Wrap("connect", err)
	}
	defer s.release(t)

	client := NewClient(t)
	version, err := client.GetVersion()
	if err != nil {
		return nil, directoryError("get version", err)
	}
	tagID, err := s.tagIDFor(t, version)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Hex("tag_id", tagID).Int("version_len", len(version)).Msg("desfire.Dump connected")

	appIDs, err := client.GetApplicationIDs()
	if err != nil {
		return nil, directoryError("get application ids", err)
	}

	b := card.NewBuilder(card.KindDESFire).
		TagID(tagID).
		ScannedAt(s.now()).
		ManufacturingData(version)

	for _, appID := range appIDs {
		app, err := s.dumpApplication(client, appID)
		if err != nil {
			return nil, err
		}
		b.AddApplication(app)
	}

	built, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	s.logger.Debug().Int("applications", len(appIDs)).Msg("desfire.Dump complete")
	return built, nil
}

// release closes t once per successful Connect. A link the fault already
// dropped reports ErrClosed or ErrNotConnected here, which is expected.
func (s *Session) release(t transport.Transport) {
	err := t.Close()
	switch {
	case err == nil:
	case errors.Is(err, transport.ErrClosed), errors.Is(err, transport.ErrNotConnected):
		s.logger.Debug().Err(err).Msg("desfire.Dump link already released")
	default:
		s.logger.Warn().Err(err).Msg("desfire.Dump close failed")
	}
}

func (s *Session) dumpApplication(client *Client, appID uint32) (card.Application, error) {
	if err := client.SelectApplication(appID); err != nil {
		return card.Application{}, directoryError(fmt.Sprintf("select application %06x", appID), err)
	}
	fileIDs, err := client.GetFileIDs()
	if err != nil {
		return card.Application{}, directoryError(fmt.Sprintf("get file ids of %06x", appID), err)
	}
	s.logger.Debug().Str("app", fmt.Sprintf("%06x", appID)).Int("files", len(fileIDs)).Msg("desfire.Dump application")

	files := make([]card.File, 0, len(fileIDs))
	for _, fileID := range fileIDs {
		f, err := s.dumpFile(client, appID, fileID)
		if err != nil {
			return card.Application{}, err
		}
		files = append(files, f)
	}
	app, err := card.NewApplication(appID, files)
	if err != nil {
		return card.Application{}, fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	return app, nil
}

// dumpFile returns an error only for faults that must abort the dump.
func (s *Session) dumpFile(client *Client, appID uint32, fileID byte) (card.File, error) {
	settings, content, err := readFile(client, fileID)
	if err != nil {
		if fatal(err) {
			return card.File{}, err
		}
		content = faultContent(err)
		s.logger.Warn().
			Str("app", fmt.Sprintf("%06x", appID)).
			Str("file", fmt.Sprintf("%02x", fileID)).
			Str("content", string(content.Kind())).
			Err(err).
			Msg("desfire.Dump file fault")
	}
	f, err := card.NewFile(fileID, settings, content)
	if err != nil {
		// Content that does not fit its settings never leaves readFile;
		// keep the file rather than drop it.
		f, _ = card.NewFile(fileID, settings, card.Invalid{Message: err.Error()})
	}
	return f, nil
}

// readFile fetches settings and reads the file by settings kind. Settings
// are returned whenever they were obtained, even alongside an error.
func readFile(client *Client, fileID byte) (card.FileSettings, card.FileContent, error) {
	rawSettings, err := client.GetFileSettings(fileID)
	if err != nil {
		if protocol.IsStatus(err, protocol.StatusFileNotFound) {
			return nil, nil, fmt.Errorf("%w: listed file %02x has no settings", ErrProtocol, fileID)
		}
		return nil, nil, err
	}
	settings, err := ParseSettings(fileID, rawSettings)
	if err != nil {
		return nil, nil, err
	}

	var content card.FileContent
	switch st := settings.(type) {
	case card.StandardSettings:
		payload, err := client.ReadData(fileID)
		if err != nil {
			return settings, nil, err
		}
		content, err = DecodeStandard(fileID, st, payload)
		if err != nil {
			return settings, nil, err
		}
	case card.ValueSettings:
		payload, err := client.GetValue(fileID)
		if err != nil {
			return settings, nil, err
		}
		content, err = DecodeValue(fileID, payload)
		if err != nil {
			return settings, nil, err
		}
	case card.RecordSettings:
		payload, err := client.ReadRecords(fileID)
		if err != nil {
			return settings, nil, err
		}
		content, err = DecodeRecords(fileID, st, payload)
		if err != nil {
			return settings, nil, err
		}
	case card.UnsupportedSettings:
		payload, err := client.ReadRecords(fileID)
		if err != nil {
			return settings, nil, err
		}
		content = card.NewData(payload)
	default:
		return settings, nil, decodeErrorf(fileID, "unhandled settings %T", settings)
	}
	return settings, content, nil
}

func fatal(err error) bool {
	return transport.IsTransport(err) || errors.Is(err, ErrProtocol)
}

func faultContent(err error) card.FileContent {
	if errors.Is(err, protocol.ErrAccessDenied) {
		return card.Unauthorized{Message: err.Error()}
	}
	return card.Invalid{Message: err.Error()}
}

// directoryError classifies a failure outside the per-file step. Every such
// failure is fatal; non-transport ones are reported as ErrProtocol.
func directoryError(step string, err error) error {
	if transport.IsTransport(err) || errors.Is(err, ErrProtocol) {
		return fmt.Errorf("%s: %w", step, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrProtocol, step, err)
}

func (s *Session) tagIDFor(t transport.Transport, version []byte) ([]byte, error) {
	if id, ok := t.(transport.Identifier); ok && s.readerUID {
		if uid := id.UID(); len(uid) > 0 {
			return uid, nil
		}
	}
	if len(version) < uidOffset+uidLen {
		return nil, fmt.Errorf("%w: %w: version is %d bytes", ErrProtocol, ErrNoTagID, len(version))
	}
	uid := make([]byte, uidLen)
	copy(uid, version[uidOffset:uidOffset+uidLen])
	return uid, nil
}
