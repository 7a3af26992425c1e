package desfire

import (
	"encoding/binary"

	"github.com/danmuck/farectl/internal/card"
	"github.com/danmuck/farectl/internal/protocol"
)

const (
	settingsHeaderLen   = 4
	standardSettingsLen = settingsHeaderLen + 3
	valueSettingsLen    = settingsHeaderLen + 13
	recordSettingsLen   = settingsHeaderLen + 9
)

// ParseSettings decodes a GetFileSettings response. Unknown file types are
// kept as UnsupportedSettings.
func ParseSettings(fileID byte, raw []byte) (card.FileSettings, error) {
	if len(raw) < settingsHeaderLen {
		return nil, decodeErrorf(fileID, "settings too short: %d bytes", len(raw))
	}
	h := card.Header{
		FileType:     card.FileType(raw[0]),
		CommSettings: raw[1],
		AccessRights: [2]byte{raw[2], raw[3]},
	}
	body := raw[settingsHeaderLen:]

	switch h.FileType {
	case card.FileTypeStandard, card.FileTypeBackup:
		if len(raw) < standardSettingsLen {
			return nil, decodeErrorf(fileID, "%s settings: %d bytes", h.FileType, len(raw))
		}
		size, _ := protocol.Uint24(body[0:3])
		return card.StandardSettings{Header: h, FileSize: size}, nil

	case card.FileTypeValue:
		if len(raw) < valueSettingsLen {
			return nil, decodeErrorf(fileID, "value settings: %d bytes", len(raw))
		}
		return card.ValueSettings{
			Header:               h,
			LowerLimit:           int32(binary.LittleEndian.Uint32(body[0:4])),
			UpperLimit:           int32(binary.LittleEndian.Uint32(body[4:8])),
			LimitedCreditValue:   int32(binary.LittleEndian.Uint32(body[8:12])),
			LimitedCreditEnabled: body[12] != 0,
		}, nil

	case card.FileTypeLinearRecord, card.FileTypeCyclicRecord:
		if len(raw) < recordSettingsLen {
			return nil, decodeErrorf(fileID, "%s settings: %d bytes", h.FileType, len(raw))
		}
		recordSize, _ := protocol.Uint24(body[0:3])
		maxRecords, _ := protocol.Uint24(body[3:6])
		current, _ := protocol.Uint24(body[6:9])
		return card.RecordSettings{
			Header:         h,
			RecordSize:     recordSize,
			MaxRecords:     maxRecords,
			CurrentRecords: current,
		}, nil

	default:
		return card.NewUnsupportedSettings(h, raw), nil
	}
}

// EncodeSettings is the inverse of ParseSettings.
func EncodeSettings(s card.FileSettings) []byte {
	h := s.Common()
	out := []byte{byte(h.FileType), h.CommSettings, h.AccessRights[0], h.AccessRights[1]}
	switch v := s.(type) {
	case card.StandardSettings:
		out = protocol.AppendUint24(out, v.FileSize)
	case card.ValueSettings:
		out = binary.LittleEndian.AppendUint32(out, uint32(v.LowerLimit))
		out = binary.LittleEndian.AppendUint32(out, uint32(v.UpperLimit))
		out = binary.LittleEndian.AppendUint32(out, uint32(v.LimitedCreditValue))
		if v.LimitedCreditEnabled {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
	case card.RecordSettings:
		out = protocol.AppendUint24(out, v.RecordSize)
		out = protocol.AppendUint24(out, v.MaxRecords)
		out = protocol.AppendUint24(out, v.CurrentRecords)
	case card.UnsupportedSettings:
		return v.Raw()
	}
	return out
}
