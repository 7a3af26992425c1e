package card

import "fmt"

// FileType is the file type byte reported by GetFileSettings.
type FileType byte

const (
	FileTypeStandard     FileType = 0x00
	FileTypeBackup       FileType = 0x01
	FileTypeValue        FileType = 0x02
	FileTypeLinearRecord FileType = 0x03
	FileTypeCyclicRecord FileType = 0x04
)

func (t FileType) String() string {
	switch t {
	case FileTypeStandard:
		return "standard"
	case FileTypeBackup:
		return "backup"
	case FileTypeValue:
		return "value"
	case FileTypeLinearRecord:
		return "linear_record"
	case FileTypeCyclicRecord:
		return "cyclic_record"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(t))
	}
}

type SettingsKind string

const (
	SettingsStandard    SettingsKind = "standard"
	SettingsValue       SettingsKind = "value"
	SettingsRecord      SettingsKind = "record"
	SettingsUnsupported SettingsKind = "unsupported"
)

// FileSettings is implemented only by the variants in this package:
// StandardSettings, ValueSettings, RecordSettings and UnsupportedSettings.
type FileSettings interface {
	Kind() SettingsKind
	Common() Header
	isFileSettings()
}

// Header is the part of the settings shared by every file type.
type Header struct {
	FileType     FileType
	CommSettings byte
	AccessRights [2]byte
}

func (h Header) Common() Header { return h }

// StandardSettings covers standard and backup data files.
type StandardSettings struct {
	Header
	FileSize uint32
}

func (StandardSettings) Kind() SettingsKind { return SettingsStandard }
func (StandardSettings) isFileSettings() {}

type ValueSettings struct {
	Header
	LowerLimit           int32
	UpperLimit           int32
	LimitedCreditValue   int32
	LimitedCreditEnabled bool
}

func (ValueSettings) Kind() SettingsKind { return SettingsValue }
func (ValueSettings) isFileSettings() {}

// RecordSettings covers linear and cyclic record files.
type RecordSettings struct {
	Header
	RecordSize     uint32
	MaxRecords     uint32
	CurrentRecords uint32
}

func (RecordSettings) Kind() SettingsKind { return SettingsRecord }
func (RecordSettings) isFileSettings() {}

// UnsupportedSettings keeps the raw settings of a file type this package
// does not model. Such files are read like record files.
type UnsupportedSettings struct {
	Header
	raw []byte
}

func NewUnsupportedSettings(h Header, raw []byte) UnsupportedSettings {
	return UnsupportedSettings{Header: h, raw: cloneBytes(raw)}
}

func (s UnsupportedSettings) Raw() []byte { return cloneBytes(s.raw) }
func (UnsupportedSettings) Kind() SettingsKind { return SettingsUnsupported }
func (UnsupportedSettings) isFileSettings() {}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
