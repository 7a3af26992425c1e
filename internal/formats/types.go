package formats

import (
	"time"

	"github.com/danmuck/farectl/internal/card"
)

// Confidence tells the registry where a format may sit in the order.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	// ConfidenceStub formats only check for an application id and must be
	// registered after every high-confidence format.
	ConfidenceStub Confidence = "stub"
)

type Metadata struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Confidence  Confidence `json:"confidence"`
}

// Format decodes one transit card family. Recognizes must be pure. When it
// returns true, ParseIdentity and ParseData must succeed on the same card.
type Format interface {
	Metadata() Metadata
	Recognizes(c *card.Card) bool
	ParseIdentity(c *card.Card) Identity
	ParseData(c *card.Card) Result
}

type Identity struct {
	Format string `json:"format"`
	Issuer string `json:"issuer"`
	Serial string `json:"serial"`
}

// Money is an amount in minor units of Currency.
type Money struct {
	Minor    int64  `json:"minor"`
	Currency string `json:"currency"`
}

type RouteClass string

const (
	RouteKnownBus RouteClass = "bus"
	RouteOther    RouteClass = "other"
)

// Trip is one transaction log entry.
type Trip struct {
	Timestamp  time.Time  `json:"timestamp"`
	Amount     Money      `json:"amount"`
	Type       string     `json:"type"`
	Route      string     `json:"route,omitempty"`
	RouteClass RouteClass `json:"route_class"`
	Detail     string     `json:"detail,omitempty"`
	Raw        []byte     `json:"raw"`
}

type Result struct {
	Format  string `json:"format"`
	Issuer  string `json:"issuer"`
	Serial  string `json:"serial"`
	Balance *Money `json:"balance,omitempty"`
	Trips   []Trip `json:"trips"`
}
