package trace

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/danmuck/farectl/internal/protocol/schema"
	"github.com/danmuck/farectl/internal/transport"
)

// Recorder passes every call through to an inner transport and appends the
// exchange to a trace stream.
type Recorder struct {
	mu     sync.Mutex
	inner  transport.Transport
	w      io.Writer
	reader string
	seq    uint64
	now    func() time.Time
}

func NewRecorder(inner transport.Transport, w io.Writer, reader string) *Recorder {
	return &Recorder{inner: inner, w: w, reader: reader, now: time.Now}
}

func (r *Recorder) Connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.inner.Connect(); err != nil {
		return err
	}
	rec := Record{
		Type:      schema.RecordOpen,
		Reader:    r.reader,
		StartedAt: uint64(r.now().UnixNano()),
	}
	if id, ok := r.inner.(transport.Identifier); ok {
		rec.UID = id.UID()
	}
	if err := r.write(rec); err != nil {
		// The caller sees a failed Connect and will not Close.
		if cerr := r.inner.Close(); cerr != nil {
			return errors.Join(err, cerr)
		}
		return err
	}
	return nil
}

func (r *Recorder) Transceive(command []byte) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := r.now()
	resp, err := r.inner.Transceive(command)
	elapsed := uint64(r.now().Sub(start).Microseconds())
	if err != nil {
		if werr := r.write(Record{Type: schema.RecordFault, Command: command, Error: err.Error(), ElapsedUS: elapsed}); werr != nil {
			return nil, errors.Join(err, werr)
		}
		return nil, err
	}
	if err := r.write(Record{Type: schema.RecordExchange, Command: command, Response: resp, ElapsedUS: elapsed}); err != nil {
		return nil, err
	}
	return resp, nil
}

func (r *Recorder) Close() error {
	return r.inner.Close()
}

func (r *Recorder) IsConnected() bool {
	return r.inner.IsConnected()
}

func (r *Recorder) UID() []byte {
	if id, ok := r.inner.(transport.Identifier); ok {
		return id.UID()
	}
	return nil
}

func (r *Recorder) write(rec Record) error {
	r.seq++
	rec.Sequence = r.seq
	if err := WriteRecord(r.w, rec); err != nil {
		return &transport.Error{Op: "trace", Err: err}
	}
	return nil
}
