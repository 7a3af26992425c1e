// Package schema declares the record types of an APDU trace and the fields
// each one must carry.
package schema

import (
	"fmt"

	"github.com/danmuck/farectl/internal/protocol/tlv"
	"github.com/rs/zerolog/log"
)

const (
	RecordOpen     uint32 = 1
	RecordExchange uint32 = 2
	RecordFault    uint32 = 3
)

const (
	FieldReader    uint16 = 1
	FieldStartedAt uint16 = 2
	// FieldUID is optional on RecordOpen.
	FieldUID uint16 = 3

	FieldCommand   uint16 = 10
	FieldResponse  uint16 = 11
	FieldError     uint16 = 12
	FieldElapsedUS uint16 = 13
)

type Requirement struct {
	ID   uint16
	Type uint8
}

type ValidationError struct {
	RecordType uint32
	FieldID    uint16
	Reason     string
}

func (e ValidationError) Error() string {
	if e.FieldID == 0 {
		return fmt.Sprintf("schema: record_type=%d: %s", e.RecordType, e.Reason)
	}
	return fmt.Sprintf("schema: record_type=%d field=%d: %s", e.RecordType, e.FieldID, e.Reason)
}

var requirements = map[uint32][]Requirement{
	RecordOpen: {
		{FieldReader, tlv.TypeString},
		{FieldStartedAt, tlv.TypeU64},
	},
	RecordExchange: {
		{FieldCommand, tlv.TypeBytes},
		{FieldResponse, tlv.TypeBytes},
		{FieldElapsedUS, tlv.TypeU64},
	},
	RecordFault: {
		{FieldCommand, tlv.TypeBytes},
		{FieldError, tlv.TypeString},
		{FieldElapsedUS, tlv.TypeU64},
	},
}

// Validate enforces required fields and their types for a record type.
// Unknown fields are ignored.
func Validate(recordType uint32, fields []tlv.Field) error {
	reqs, ok := requirements[recordType]
	if !ok {
		log.Error().Uint32("record_type", recordType).Msg("schema.Validate unknown record_type")
		return ValidationError{RecordType: recordType, Reason: "unknown record_type"}
	}
	for _, req := range reqs {
		f, found := tlv.GetField(fields, req.ID)
		if !found {
			log.Error().
				Uint32("record_type", recordType).
				Uint16("field_id", req.ID).
				Msg("schema.Validate missing field")
			return ValidationError{RecordType: recordType, FieldID: req.ID, Reason: "missing required field"}
		}
		if f.Type != req.Type {
			log.Error().
				Uint32("record_type", recordType).
				Uint16("field_id", req.ID).
				Uint8("got", f.Type).
				Uint8("want", req.Type).
				Msg("schema.Validate type mismatch")
			return ValidationError{RecordType: recordType, FieldID: req.ID, Reason: "type mismatch"}
		}
	}
	log.Trace().Uint32("record_type", recordType).Int("fields", len(fields)).Msg("schema.Validate ok")
	return nil
}
