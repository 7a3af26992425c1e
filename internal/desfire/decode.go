package desfire

import (
	"encoding/binary"

	"github.com/danmuck/farectl/internal/card"
)

// ValueLen is the width of a value file counter.
const ValueLen = 4

// DecodeStandard checks the payload against the declared file size.
func DecodeStandard(fileID byte, s card.StandardSettings, payload []byte) (card.Data, error) {
	if uint32(len(payload)) != s.FileSize {
		return card.Data{}, decodeErrorf(fileID, "standard payload %d bytes, declared %d", len(payload), s.FileSize)
	}
	return card.NewData(payload), nil
}

// DecodeValue reverses the stored bytes and reads them as a big-endian
// two's-complement int32: [00 01 00 00] is 256.
func DecodeValue(fileID byte, payload []byte) (card.Counter, error) {
	if len(payload) != ValueLen {
		return card.Counter{}, decodeErrorf(fileID, "value payload %d bytes, want %d", len(payload), ValueLen)
	}
	reversed := make([]byte, ValueLen)
	for i, b := range payload {
		reversed[ValueLen-1-i] = b
	}
	return card.Counter{Value: int32(binary.BigEndian.Uint32(reversed))}, nil
}

// EncodeValue is the inverse of DecodeValue.
func EncodeValue(v int32) []byte {
	out := make([]byte, ValueLen)
	binary.LittleEndian.PutUint32(out, uint32(v))
	return out
}

// DecodeRecords splits a ReadRecords payload into records, keeping the
// order the card returned them in.
func DecodeRecords(fileID byte, s card.RecordSettings, payload []byte) (card.Log, error) {
	if s.RecordSize == 0 {
		return card.Log{}, decodeErrorf(fileID, "record size is zero")
	}
	size := int(s.RecordSize)
	if len(payload)%size != 0 {
		return card.Log{}, decodeErrorf(fileID, "record payload %d bytes is not a multiple of %d", len(payload), size)
	}
	count := len(payload) / size
	if uint32(count) > s.MaxRecords {
		return card.Log{}, decodeErrorf(fileID, "%d records exceeds max %d", count, s.MaxRecords)
	}
	records := make([][]byte, count)
	for i := range records {
		records[i] = payload[i*size : (i+1)*size]
	}
	return card.NewLog(records), nil
}
