package card

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

var ErrMalformed = errors.New("card: malformed encoding")

// hexBytes renders as a lowercase hex string.
type hexBytes []byte

func (h hexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(h))
}

func (h *hexBytes) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	*h = raw
	return nil
}

type cardWire struct {
	Kind          Kind      `json:"card_kind"`
	TagID         hexBytes  `json:"tag_id"`
	ScannedAt     string    `json:"scanned_at"`
	Manufacturing hexBytes  `json:"manufacturing_data"`
	Applications  []appWire `json:"applications"`
}

type appWire struct {
	ID    uint32     `json:"id"`
	Files []fileWire `json:"files"`
}

type fileWire struct {
	ID       byte          `json:"id"`
	Settings *settingsWire `json:"settings"`
	Content  contentWire   `json:"content"`
}

type settingsWire struct {
	Type         SettingsKind `json:"type"`
	FileType     FileType     `json:"file_type"`
	CommSettings byte         `json:"comm_settings"`
	AccessRights hexBytes     `json:"access_rights"`

	FileSize *uint32 `json:"file_size,omitempty"`

	LowerLimit           *int32 `json:"lower_limit,omitempty"`
	UpperLimit           *int32 `json:"upper_limit,omitempty"`
	LimitedCreditValue   *int32 `json:"limited_credit_value,omitempty"`
	LimitedCreditEnabled *bool  `json:"limited_credit_enabled,omitempty"`

	RecordSize     *uint32 `json:"record_size,omitempty"`
	MaxRecords     *uint32 `json:"max_records,omitempty"`
	CurrentRecords *uint32 `json:"current_records,omitempty"`

	Raw hexBytes `json:"raw,omitempty"`
}

type contentWire struct {
	Type    ContentKind `json:"type"`
	Data    *hexBytes   `json:"data,omitempty"`
	Value   *int32      `json:"value,omitempty"`
	Records []hexBytes  `json:"records,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Encode writes the canonical encoding of c.
func Encode(w io.Writer, c *Card) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

// Decode reads one canonically encoded card and validates it.
func Decode(r io.Reader) (*Card, error) {
	var c Card
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Card) MarshalJSON() ([]byte, error) {
	w := cardWire{
		Kind:          c.kind,
		TagID:         c.tagID,
		ScannedAt:     c.scannedAt.Format(time.RFC3339Nano),
		Manufacturing: c.manufacturing,
		Applications:  make([]appWire, 0, len(c.apps)),
	}
	for _, a := range c.apps {
		aw := appWire{ID: a.id, Files: make([]fileWire, 0, len(a.files))}
		for _, f := range a.files {
			fw := fileWire{ID: f.id, Settings: encodeSettings(f.settings)}
			cw, err := encodeContent(f.content)
			if err != nil {
				return nil, fmt.Errorf("app %06x file %02x: %w", a.id, f.id, err)
			}
			fw.Content = cw
			aw.Files = append(aw.Files, fw)
		}
		w.Applications = append(w.Applications, aw)
	}
	return json.Marshal(w)
}

// UnmarshalJSON is only meant for Decode and json.Unmarshal into a fresh
// value.
func (c *Card) UnmarshalJSON(b []byte) error {
	var w cardWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	scannedAt, err := time.Parse(time.RFC3339Nano, w.ScannedAt)
	if err != nil {
		return fmt.Errorf("%w: scanned_at: %v", ErrMalformed, err)
	}
	apps := make([]Application, 0, len(w.Applications))
	for _, aw := range w.Applications {
		files := make([]File, 0, len(aw.Files))
		for _, fw := range aw.Files {
			settings, err := decodeSettings(fw.Settings)
			if err != nil {
				return fmt.Errorf("app %06x file %02x: %w", aw.ID, fw.ID, err)
			}
			content, err := decodeContent(fw.Content)
			if err != nil {
				return fmt.Errorf("app %06x file %02x: %w", aw.ID, fw.ID, err)
			}
			f, err := NewFile(fw.ID, settings, content)
			if err != nil {
				return err
			}
			files = append(files, f)
		}
		app, err := NewApplication(aw.ID, files)
		if err != nil {
			return err
		}
		apps = append(apps, app)
	}
	built, err := New(w.Kind, w.TagID, scannedAt, w.Manufacturing, apps)
	if err != nil {
		return err
	}
	*c = *built
	return nil
}

func encodeSettings(s FileSettings) *settingsWire {
	if s == nil {
		return nil
	}
	h := s.Common()
	w := &settingsWire{
		Type:         s.Kind(),
		FileType:     h.FileType,
		CommSettings: h.CommSettings,
		AccessRights: h.AccessRights[:],
	}
	switch v := s.(type) {
	case StandardSettings:
		w.FileSize = &v.FileSize
	case ValueSettings:
		w.LowerLimit = &v.LowerLimit
		w.UpperLimit = &v.UpperLimit
		w.LimitedCreditValue = &v.LimitedCreditValue
		w.LimitedCreditEnabled = &v.LimitedCreditEnabled
	case RecordSettings:
		w.RecordSize = &v.RecordSize
		w.MaxRecords = &v.MaxRecords
		w.CurrentRecords = &v.CurrentRecords
	case UnsupportedSettings:
		w.Raw = v.raw
	}
	return w
}

func decodeSettings(w *settingsWire) (FileSettings, error) {
	if w == nil {
		return nil, nil
	}
	if len(w.AccessRights) != 2 {
		return nil, fmt.Errorf("%w: access_rights must be 2 bytes", ErrMalformed)
	}
	h := Header{FileType: w.FileType, CommSettings: w.CommSettings}
	copy(h.AccessRights[:], w.AccessRights)
	switch w.Type {
	case SettingsStandard:
		if w.FileSize == nil {
			return nil, missing("file_size")
		}
		return StandardSettings{Header: h, FileSize: *w.FileSize}, nil
	case SettingsValue:
		if w.LowerLimit == nil || w.UpperLimit == nil || w.LimitedCreditValue == nil || w.LimitedCreditEnabled == nil {
			return nil, missing("value limits")
		}
		return ValueSettings{
			Header:               h,
			LowerLimit:           *w.LowerLimit,
			UpperLimit:           *w.UpperLimit,
			LimitedCreditValue:   *w.LimitedCreditValue,
			LimitedCreditEnabled: *w.LimitedCreditEnabled,
		}, nil
	case SettingsRecord:
		if w.RecordSize == nil || w.MaxRecords == nil || w.CurrentRecords == nil {
			return nil, missing("record bounds")
		}
		return RecordSettings{
			Header:         h,
			RecordSize:     *w.RecordSize,
			MaxRecords:     *w.MaxRecords,
			CurrentRecords: *w.CurrentRecords,
		}, nil
	case SettingsUnsupported:
		return NewUnsupportedSettings(h, w.Raw), nil
	default:
		return nil, fmt.Errorf("%w: settings type %q", ErrMalformed, w.Type)
	}
}

func encodeContent(c FileContent) (contentWire, error) {
	switch v := c.(type) {
	case Data:
		data := hexBytes(v.bytes)
		return contentWire{Type: ContentData, Data: &data}, nil
	case Counter:
		value := v.Value
		return contentWire{Type: ContentCounter, Value: &value}, nil
	case Log:
		records := make([]hexBytes, len(v.records))
		for i, r := range v.records {
			records[i] = r
		}
		return contentWire{Type: ContentLog, Records: records}, nil
	case Unauthorized:
		return contentWire{Type: ContentUnauthorized, Message: v.Message}, nil
	case Invalid:
		return contentWire{Type: ContentInvalid, Message: v.Message}, nil
	default:
		return contentWire{}, fmt.Errorf("%w: content %T", ErrMalformed, c)
	}
}

func decodeContent(w contentWire) (FileContent, error) {
	switch w.Type {
	case ContentData:
		if w.Data == nil {
			return nil, missing("data")
		}
		return NewData(*w.Data), nil
	case ContentCounter:
		if w.Value == nil {
			return nil, missing("value")
		}
		return Counter{Value: *w.Value}, nil
	case ContentLog:
		records := make([][]byte, len(w.Records))
		for i, r := range w.Records {
			records[i] = r
		}
		return NewLog(records), nil
	case ContentUnauthorized:
		return Unauthorized{Message: w.Message}, nil
	case ContentInvalid:
		return Invalid{Message: w.Message}, nil
	default:
		return nil, fmt.Errorf("%w: content type %q", ErrMalformed, w.Type)
	}
}

func missing(field string) error {
	return fmt.Errorf("%w: missing %s", ErrMalformed, field)
}
