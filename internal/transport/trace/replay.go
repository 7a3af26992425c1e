package trace

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/danmuck/farectl/internal/protocol/schema"
	"github.com/danmuck/farectl/internal/transport"
)

// Replay serves a recorded trace as a transport. Commands must arrive in
// the recorded order.
type Replay struct {
	mu        sync.Mutex
	records   []Record
	pos       int
	uid       []byte
	connected bool
}

// NewReplay loads a whole trace from r. Replay starts at the first open
// record.
func NewReplay(r io.Reader) (*Replay, error) {
	records, err := ReadRecords(r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || records[0].Type != schema.RecordOpen {
		return nil, ErrNoOpenRecord
	}
	return &Replay{records: records}, nil
}

func (p *Replay) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connected {
		return transport.ErrBusy
	}
	if p.pos >= len(p.records) || p.records[p.pos].Type != schema.RecordOpen {
		return ErrTraceExhausted
	}
	p.uid = p.records[p.pos].UID
	p.pos++
	p.connected = true
	return nil
}

func (p *Replay) Transceive(command []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return nil, &transport.Error{Op: "transceive", Err: transport.ErrNotConnected}
	}
	if p.pos >= len(p.records) || p.records[p.pos].Type == schema.RecordOpen {
		return nil, &transport.Error{Op: "transceive", Err: ErrTraceExhausted}
	}
	rec := p.records[p.pos]
	if !bytes.Equal(rec.Command, command) {
		return nil, &transport.Error{
			Op:  "transceive",
			Err: fmt.Errorf("%w: record %d has % X, got % X", ErrTraceMismatch, rec.Sequence, rec.Command, command),
		}
	}
	p.pos++
	if rec.Type == schema.RecordFault {
		p.connected = false
		return nil, &transport.Error{Op: "transceive", Err: errors.New(rec.Error)}
	}
	out := make([]byte, len(rec.Response))
	copy(out, rec.Response)
	return out, nil
}

func (p *Replay) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return transport.ErrClosed
	}
	p.connected = false
	return nil
}

func (p *Replay) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *Replay) UID() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]byte, len(p.uid))
	copy(out, p.uid)
	return out
}
