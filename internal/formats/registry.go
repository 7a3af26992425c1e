package formats

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/farectl/internal/card"
	"github.com/rs/zerolog/log"
)

var (
	ErrFormatExists    = errors.New("format already exists")
	ErrFormatNil       = errors.New("format is nil")
	ErrInvalidMetadata = errors.New("invalid format metadata")
	ErrStubOrder       = errors.New("high-confidence format registered after a stub")
)

// Registry keeps formats in registration order; earlier entries win.
// Registration is not safe for concurrent use. Lookups are, once
// registration is done.
type Registry struct {
	items    []Format
	ids      map[string]struct{}
	stubSeen bool
}

func NewRegistry() *Registry {
	return &Registry{ids: make(map[string]struct{})}
}

// ValidateMetadata checks required metadata fields and id format.
func ValidateMetadata(meta Metadata) error {
	id := strings.TrimSpace(meta.ID)
	name := strings.TrimSpace(meta.Name)
	if id == "" || name == "" {
		return fmt.Errorf("%w: id and name are required", ErrInvalidMetadata)
	}
	if !isValidID(id) {
		return fmt.Errorf("%w: invalid id format %q", ErrInvalidMetadata, id)
	}
	switch meta.Confidence {
	case ConfidenceHigh, ConfidenceStub:
	default:
		return fmt.Errorf("%w: unknown confidence %q", ErrInvalidMetadata, meta.Confidence)
	}
	return nil
}

// Register appends f to the precedence order.
func (r *Registry) Register(f Format) error {
	if f == nil {
		return ErrFormatNil
	}
	meta := f.Metadata()
	if err := ValidateMetadata(meta); err != nil {
		return err
	}
	if _, ok := r.ids[meta.ID]; ok {
		return fmt.Errorf("%w: %s", ErrFormatExists, meta.ID)
	}
	if meta.Confidence == ConfidenceHigh && r.stubSeen {
		return fmt.Errorf("%w: %s", ErrStubOrder, meta.ID)
	}
	if meta.Confidence == ConfidenceStub {
		r.stubSeen = true
	}
	r.ids[meta.ID] = struct{}{}
	r.items = append(r.items, f)
	return nil
}

// Classify returns the first format that recognizes c. Later formats are
// not consulted.
func (r *Registry) Classify(c *card.Card) (Format, bool) {
	for _, f := range r.items {
		if f.Recognizes(c) {
			log.Debug().Str("format", f.Metadata().ID).Msg("formats.Classify match")
			return f, true
		}
	}
	log.Debug().Int("formats", len(r.items)).Msg("formats.Classify unrecognized")
	return nil, false
}

func (r *Registry) Identify(c *card.Card) (Identity, bool) {
	f, ok := r.Classify(c)
	if !ok {
		return Identity{}, false
	}
	id := f.ParseIdentity(c)
	id.Format = f.Metadata().ID
	return id, true
}

func (r *Registry) Decode(c *card.Card) (Result, bool) {
	f, ok := r.Classify(c)
	if !ok {
		return Result{}, false
	}
	res := f.ParseData(c)
	res.Format = f.Metadata().ID
	if res.Trips == nil {
		res.Trips = []Trip{}
	}
	return res, true
}

// List returns metadata in precedence order.
func (r *Registry) List() []Metadata {
	out := make([]Metadata, 0, len(r.items))
	for _, f := range r.items {
		out = append(out, f.Metadata())
	}
	return out
}

func isValidID(id string) bool {
	if id == "" {
		return false
	}
	lastSep := false
	for i := 0; i < len(id); i++ {
		c := id[i]
		isLower := c >= 'a' && c <= 'z'
		isDigit := c >= '0' && c <= '9'
		isSep := c == '.' || c == '-' || c == '_'
		if !(isLower || isDigit || isSep) {
			return false
		}
		if (i == 0 || i == len(id)-1) && isSep {
			return false
		}
		if isSep && lastSep {
			return false
		}
		lastSep = isSep
	}
	return true
}
