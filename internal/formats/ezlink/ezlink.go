// Package ezlink decodes Singapore stored-value purse cards (EZ-Link, NETS
// FlashPay and other CEPAS issuers).
package ezlink

import (
	"encoding/hex"
	"strconv"

	"github.com/danmuck/farectl/internal/card"
	"github.com/danmuck/farectl/internal/formats"
)

const (
	// PurseApp holds the purse files.
	PurseApp uint32 = 0x000003

	PurseInfoFile byte = 0x01
	BalanceFile   byte = 0x02
	HistoryFile   byte = 0x03

	purseInfoMin      = 16
	canOffset, canLen = 8, 8

	Currency = "SGD"
)

type Format struct {
	routes *Routes
}

// New returns the decoder. A nil routes table uses DefaultRoutes.
func New(routes *Routes) *Format {
	if routes == nil {
		routes = DefaultRoutes()
	}
	return &Format{routes: routes}
}

func (f *Format) Metadata() formats.Metadata {
	return formats.Metadata{
		ID:          "sg.ezlink",
		Name:        "EZ-Link / NETS FlashPay",
		Description: "CEPAS purse balance and transaction log",
		Confidence:  formats.ConfidenceHigh,
	}
}

// Recognizes requires a readable purse info file whose serial starts with
// three decimal digits, and a decoded balance counter.
func (f *Format) Recognizes(c *card.Card) bool {
	serial, ok := serialOf(c)
	if !ok {
		return false
	}
	if _, err := strconv.Atoi(serial[:3]); err != nil {
		return false
	}
	_, ok = balanceOf(c)
	return ok
}

func (f *Format) ParseIdentity(c *card.Card) formats.Identity {
	serial, _ := serialOf(c)
	return formats.Identity{Issuer: Issuer(serial), Serial: serial}
}

func (f *Format) ParseData(c *card.Card) formats.Result {
	serial, _ := serialOf(c)
	balance, _ := balanceOf(c)
	return formats.Result{
		Issuer:  Issuer(serial),
		Serial:  serial,
		Balance: &formats.Money{Minor: int64(balance), Currency: Currency},
		Trips:   f.trips(c),
	}
}

// Issuer maps the first three digits of a serial to the issuing scheme.
func Issuer(serial string) string {
	if len(serial) < 3 {
		return "CEPAS"
	}
	switch serial[:3] {
	case "100":
		return "EZ-Link"
	case "111":
		return "NETS"
	default:
		return "CEPAS"
	}
}

func serialOf(c *card.Card) (string, bool) {
	f, ok := c.File(PurseApp, PurseInfoFile)
	if !ok {
		return "", false
	}
	data, ok := f.Content().(card.Data)
	if !ok || data.Len() < purseInfoMin {
		return "", false
	}
	return hex.EncodeToString(data.Bytes()[canOffset : canOffset+canLen]), true
}

func balanceOf(c *card.Card) (int32, bool) {
	f, ok := c.File(PurseApp, BalanceFile)
	if !ok {
		return 0, false
	}
	counter, ok := f.Content().(card.Counter)
	if !ok {
		return 0, false
	}
	return counter.Value, true
}

// trips yields one trip per log record in log order. A missing or
// unreadable log gives no trips.
func (f *Format) trips(c *card.Card) []formats.Trip {
	trips := []formats.Trip{}
	file, ok := c.File(PurseApp, HistoryFile)
	if !ok {
		return trips
	}
	log, ok := file.Content().(card.Log)
	if !ok {
		return trips
	}
	for _, rec := range log.Records() {
		tx := ParseTransaction(rec)
		route := tx.RouteCode()
		class := formats.RouteOther
		if route != "" && f.routes.IsBus(route) {
			class = formats.RouteKnownBus
		}
		trips = append(trips, formats.Trip{
			Timestamp:  tx.Time,
			Amount:     formats.Money{Minor: int64(tx.Amount), Currency: Currency},
			Type:       tx.Type.String(),
			Route:      route,
			RouteClass: class,
			Detail:     tx.UserData,
			Raw:        rec,
		})
	}
	return trips
}
