// Package trace records the exchanges of a dump to a stream and replays
// them later as a transport.
//
// A trace is a sequence of frames (internal/protocol/frame) whose payloads
// are TLV fields checked against internal/protocol/schema: one RecordOpen
// per connect, then one RecordExchange or RecordFault per command.
package trace

import (
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/farectl/internal/protocol/frame"
	"github.com/danmuck/farectl/internal/protocol/schema"
	"github.com/danmuck/farectl/internal/protocol/tlv"
)

var (
	ErrTraceMismatch  = errors.New("trace: command does not match recording")
	ErrTraceExhausted = errors.New("trace: no more recorded exchanges")
	ErrNoOpenRecord   = errors.New("trace: trace does not start with an open record")
)

// Record is one decoded trace frame.
type Record struct {
	Sequence  uint64
	Type      uint32
	Reader    string
	StartedAt uint64
	UID       []byte
	Command   []byte
	Response  []byte
	Error     string
	ElapsedUS uint64
}

func (r Record) fields() []tlv.Field {
	switch r.Type {
	case schema.RecordOpen:
		fields := []tlv.Field{
			tlv.String(schema.FieldReader, r.Reader),
			tlv.U64(schema.FieldStartedAt, r.StartedAt),
		}
		if len(r.UID) > 0 {
			fields = append(fields, tlv.Bytes(schema.FieldUID, r.UID))
		}
		return fields
	case schema.RecordFault:
		return []tlv.Field{
			tlv.Bytes(schema.FieldCommand, r.Command),
			tlv.String(schema.FieldError, r.Error),
			tlv.U64(schema.FieldElapsedUS, r.ElapsedUS),
		}
	default:
		return []tlv.Field{
			tlv.Bytes(schema.FieldCommand, r.Command),
			tlv.Bytes(schema.FieldResponse, r.Response),
			tlv.U64(schema.FieldElapsedUS, r.ElapsedUS),
		}
	}
}

// WriteRecord appends one record to w.
func WriteRecord(w io.Writer, r Record) error {
	fields := r.fields()
	if err := schema.Validate(r.Type, fields); err != nil {
		return err
	}
	f := frame.Frame{
		Header:  frame.Header{Sequence: r.Sequence, RecordType: r.Type},
		Payload: tlv.EncodeFields(fields),
	}
	if r.Type == schema.RecordFault {
		f.Header.Flags |= frame.FlagError
	}
	return frame.WriteFrame(w, f, frame.DefaultLimits())
}

// ReadRecords decodes every record in r until end of stream.
func ReadRecords(r io.Reader) ([]Record, error) {
	var out []Record
	for {
		f, err := frame.ReadFrame(r, frame.DefaultLimits())
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("trace: record %d: %w", len(out), err)
		}
		rec, err := decodeRecord(f)
		if err != nil {
			return nil, fmt.Errorf("trace: record %d: %w", len(out), err)
		}
		out = append(out, rec)
	}
}

func decodeRecord(f frame.Frame) (Record, error) {
	fields, err := tlv.DecodeFields(f.Payload)
	if err != nil {
		return Record{}, err
	}
	if err := schema.Validate(f.Header.RecordType, fields); err != nil {
		return Record{}, err
	}
	rec := Record{Sequence: f.Header.Sequence, Type: f.Header.RecordType}
	for _, field := range fields {
		switch field.ID {
		case schema.FieldReader:
			rec.Reader = string(field.Value)
		case schema.FieldStartedAt:
			rec.StartedAt, err = tlv.AsU64(field)
		case schema.FieldUID:
			rec.UID = field.Value
		case schema.FieldCommand:
			rec.Command = field.Value
		case schema.FieldResponse:
			rec.Response = field.Value
		case schema.FieldError:
			rec.Error = string(field.Value)
		case schema.FieldElapsedUS:
			rec.ElapsedUS, err = tlv.AsU64(field)
		}
		if err != nil {
			return Record{}, err
		}
	}
	return rec, nil
}
