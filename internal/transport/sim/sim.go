// Package sim is an in-memory DESFire card behind the transport interface.
package sim

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/danmuck/farectl/internal/card"
	"github.com/danmuck/farectl/internal/desfire"
	"github.com/danmuck/farectl/internal/protocol"
	"github.com/danmuck/farectl/internal/transport"
)

// FrameSize is the largest data field the simulated card returns per frame.
const FrameSize = 59

// Exchange describes one command as the card sees it, for fault hooks.
type Exchange struct {
	Command  protocol.Command
	Data     []byte
	Selected uint32
}

type fault struct {
	match func(Exchange) bool
	err   error
}

// Card answers native commands from a Layout. It implements
// transport.Transport and transport.Identifier.
type Card struct {
	mu        sync.Mutex
	layout    Layout
	connected bool
	selected  *App
	pending   [][]byte
	faults    []fault
	log       []Exchange
	connects  int
	closes    int
}

func New(layout Layout) *Card {
	return &Card{layout: layout}
}

// FailOn makes the first exchange matching match fail with a transport
// error wrapping err, and drops the link.
func (c *Card) FailOn(match func(Exchange) bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faults = append(c.faults, fault{match: match, err: err})
}

func (c *Card) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return transport.ErrBusy
	}
	c.connected = true
	c.selected = nil
	c.pending = nil
	c.connects++
	return nil
}

func (c *Card) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	if !c.connected {
		return transport.ErrClosed
	}
	c.connected = false
	return nil
}

func (c *Card) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Card) UID() []byte {
	out := make([]byte, len(c.layout.UID))
	copy(out, c.layout.UID)
	return out
}

// Connects reports how many times Connect succeeded.
func (c *Card) Connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}

// Closes reports how many times Close was called, including calls on a
// link that was already down.
func (c *Card) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

// Exchanges returns every command received so far.
func (c *Card) Exchanges() []Exchange {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Exchange, len(c.log))
	copy(out, c.log)
	return out
}

func (c *Card) Transceive(apdu []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil, &transport.Error{Op: "transceive", Err: transport.ErrNotConnected}
	}
	cmd, data, err := protocol.ParseCommand(apdu)
	if err != nil {
		return protocol.EncodeResponse(protocol.StatusLengthError, nil), nil
	}
	ex := Exchange{Command: cmd, Data: data}
	if c.selected != nil {
		ex.Selected = c.selected.ID
	}
	c.log = append(c.log, ex)

	for i, f := range c.faults {
		if f.match(ex) {
			c.faults = append(c.faults[:i], c.faults[i+1:]...)
			c.connected = false
			return nil, &transport.Error{Op: "transceive", Err: f.err}
		}
	}

	if cmd == protocol.CmdAdditionalFrame {
		if len(c.pending) == 0 {
			return protocol.EncodeResponse(protocol.StatusIllegalCommand, nil), nil
		}
		return c.next(), nil
	}
	c.pending = nil

	status, body := c.handle(cmd, data)
	if status != protocol.StatusOK {
		return protocol.EncodeResponse(status, nil), nil
	}
	if cmd == protocol.CmdGetVersion {
		c.pending = versionFrames(body)
	} else {
		c.pending = frames(body)
	}
	return c.next(), nil
}

// next pops the next pending frame. Every frame but the last carries
// ADDITIONAL_FRAME.
func (c *Card) next() []byte {
	head := c.pending[0]
	c.pending = c.pending[1:]
	if len(c.pending) == 0 {
		c.pending = nil
		return protocol.EncodeResponse(protocol.StatusOK, head)
	}
	return protocol.EncodeResponse(protocol.StatusAdditionalFrame, head)
}

func frames(body []byte) [][]byte {
	out := [][]byte{}
	for len(body) > FrameSize {
		out = append(out, body[:FrameSize])
		body = body[FrameSize:]
	}
	return append(out, body)
}

// versionFrames splits GetVersion into the 7/7/14 byte frames real cards
// send.
func versionFrames(body []byte) [][]byte {
	out := [][]byte{}
	for i := 0; i < 2 && len(body) > 7; i++ {
		out = append(out, body[:7])
		body = body[7:]
	}
	return append(out, body)
}

func (c *Card) handle(cmd protocol.Command, data []byte) (protocol.Status, []byte) {
	switch cmd {
	case protocol.CmdGetVersion:
		return protocol.StatusOK, c.layout.Version

	case protocol.CmdGetApplicationIDs:
		out := make([]byte, 0, 3*len(c.layout.Apps))
		for _, a := range c.layout.Apps {
			out = protocol.AppendUint24(out, a.ID)
		}
		return protocol.StatusOK, out

	case protocol.CmdSelectApplication:
		if len(data) != 3 {
			return protocol.StatusLengthError, nil
		}
		id, _ := protocol.Uint24(data)
		if id == 0 {
			c.selected = nil
			return protocol.StatusOK, nil
		}
		for i := range c.layout.Apps {
			if c.layout.Apps[i].ID == id {
				c.selected = &c.layout.Apps[i]
				return protocol.StatusOK, nil
			}
		}
		return protocol.StatusApplicationNotFound, nil

	case protocol.CmdGetFileIDs:
		if c.selected == nil {
			return protocol.StatusPermissionDenied, nil
		}
		out := make([]byte, 0, len(c.selected.Files))
		for _, f := range c.selected.Files {
			out = append(out, f.ID)
		}
		return protocol.StatusOK, out

	case protocol.CmdGetFileSettings:
		f, status := c.file(data)
		if status != protocol.StatusOK {
			return status, nil
		}
		if f.SettingsStatus != protocol.StatusOK {
			return f.SettingsStatus, nil
		}
		if f.Settings == nil {
			return protocol.StatusFileIntegrityError, nil
		}
		return protocol.StatusOK, desfire.EncodeSettings(f.Settings)

	case protocol.CmdReadData, protocol.CmdGetValue, protocol.CmdReadRecords:
		f, status := c.file(data)
		if status != protocol.StatusOK {
			return status, nil
		}
		if f.ReadStatus != protocol.StatusOK {
			return f.ReadStatus, nil
		}
		if !readAllowed(cmd, f.Settings) {
			return protocol.StatusIllegalCommand, nil
		}
		return protocol.StatusOK, bytes.Clone(f.Payload)

	default:
		return protocol.StatusIllegalCommand, nil
	}
}

func (c *Card) file(data []byte) (*File, protocol.Status) {
	if c.selected == nil {
		return nil, protocol.StatusPermissionDenied
	}
	if len(data) == 0 {
		return nil, protocol.StatusLengthError
	}
	for i := range c.selected.Files {
		if c.selected.Files[i].ID == data[0] {
			return &c.selected.Files[i], protocol.StatusOK
		}
	}
	return nil, protocol.StatusFileNotFound
}

func readAllowed(cmd protocol.Command, s card.FileSettings) bool {
	switch s.(type) {
	case card.StandardSettings:
		return cmd == protocol.CmdReadData
	case card.ValueSettings:
		return cmd == protocol.CmdGetValue
	case card.RecordSettings, card.UnsupportedSettings:
		return cmd == protocol.CmdReadRecords
	default:
		return false
	}
}

func (c *Card) String() string {
	return fmt.Sprintf("sim(uid=%x apps=%d)", c.layout.UID, len(c.layout.Apps))
}
