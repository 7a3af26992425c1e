package protocol

// Uint24 decodes a 3-byte little-endian value.
func Uint24(b []byte) (uint32, error) {
	if len(b) != 3 {
		return 0, ErrInvalidLength
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16, nil
}

// PutUint24 encodes v as 3 little-endian bytes. The top byte of v is dropped.
func PutUint24(b []byte, v uint32) {
	_ = b[2]
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

// AppendUint24 appends v as 3 little-endian bytes.
func AppendUint24(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16))
}

// FileArgs encodes the file number, offset and length arguments shared by
// ReadData and ReadRecords. Zero offset and length select the whole file.
func FileArgs(fileID byte, offset, length uint32) []byte {
	buf := make([]byte, 0, 7)
	buf = append(buf, fileID)
	buf = AppendUint24(buf, offset)
	buf = AppendUint24(buf, length)
	return buf
}
