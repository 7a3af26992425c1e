// Package stub recognizes card families by application id alone. Stubs
// report an issuer but no serial, balance or trips, and must be registered
// after every full decoder.
package stub

import (
	"github.com/danmuck/farectl/internal/card"
	"github.com/danmuck/farectl/internal/formats"
)

// Format matches a card holding every one of Apps.
type Format struct {
	meta formats.Metadata
	apps []uint32
}

func New(id, name string, apps ...uint32) *Format {
	return &Format{
		meta: formats.Metadata{
			ID:          id,
			Name:        name,
			Description: "recognized by application id only",
			Confidence:  formats.ConfidenceStub,
		},
		apps: append([]uint32(nil), apps...),
	}
}

// Metrocard is Adelaide's Metrocard.
func Metrocard() *Format {
	return New("stub.metrocard", "Metrocard (Adelaide)", 0xB006F2)
}

// ATHop is Auckland's AT HOP card.
func ATHop() *Format {
	return New("stub.athop", "AT HOP", 0x4055, 0xFFFFFF)
}

func (f *Format) Metadata() formats.Metadata { return f.meta }

func (f *Format) Recognizes(c *card.Card) bool {
	if len(f.apps) == 0 {
		return false
	}
	for _, id := range f.apps {
		if _, ok := c.Application(id); !ok {
			return false
		}
	}
	return true
}

func (f *Format) ParseIdentity(*card.Card) formats.Identity {
	return formats.Identity{Issuer: f.meta.Name}
}

func (f *Format) ParseData(*card.Card) formats.Result {
	return formats.Result{Issuer: f.meta.Name, Trips: []formats.Trip{}}
}
