package remote

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/danmuck/farectl/internal/transport"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Server exposes one local transport to a single remote session at a time.
type Server struct {
	UnimplementedReaderServer

	Transport transport.Transport
	// IdleTimeout releases a session that has made no call for this long.
	// Zero keeps a session until Close.
	IdleTimeout time.Duration

	mu     sync.Mutex
	active bool
	lease  *time.Timer
	// gen invalidates lease callbacks that fired before being stopped.
	gen uint64
}

var _ ReaderServer = (*Server)(nil)

func (s *Server) Connect(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return nil, status.Error(codes.FailedPrecondition, transport.ErrBusy.Error())
	}
	if err := s.Transport.Connect(); err != nil {
		log.Warn().Str("reader", in.GetValue()).Err(err).Msg("remote.Connect failed")
		return nil, mapErr(err)
	}
	s.active = true
	s.touch()
	var uid []byte
	if id, ok := s.Transport.(transport.Identifier); ok {
		uid = id.UID()
	}
	log.Info().Str("reader", in.GetValue()).Hex("uid", uid).Msg("remote.Connect")
	return wrapperspb.Bytes(uid), nil
}

func (s *Server) Transceive(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return nil, status.Error(codes.FailedPrecondition, transport.ErrNotConnected.Error())
	}
	resp, err := s.Transport.Transceive(in.GetValue())
	if err != nil {
		if !s.Transport.IsConnected() {
			s.release()
		} else {
			s.touch()
		}
		log.Warn().Err(err).Msg("remote.Transceive failed")
		return nil, mapErr(err)
	}
	s.touch()
	return wrapperspb.Bytes(resp), nil
}

func (s *Server) Close(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return wrapperspb.Bool(false), nil
	}
	s.release()
	if s.Transport.IsConnected() {
		if err := s.Transport.Close(); err != nil {
			return nil, mapErr(err)
		}
	}
	log.Info().Str("reader", in.GetValue()).Msg("remote.Close")
	return wrapperspb.Bool(true), nil
}

// touch restarts the idle lease. Callers hold s.mu.
func (s *Server) touch() {
	if s.IdleTimeout <= 0 {
		return
	}
	if s.lease != nil {
		s.lease.Stop()
	}
	s.gen++
	gen := s.gen
	s.lease = time.AfterFunc(s.IdleTimeout, func() { s.expire(gen) })
}

// release ends the session bookkeeping. Callers hold s.mu.
func (s *Server) release() {
	s.active = false
	s.gen++
	if s.lease != nil {
		s.lease.Stop()
		s.lease = nil
	}
}

func (s *Server) expire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || gen != s.gen {
		return
	}
	s.release()
	if s.Transport.IsConnected() {
		if err := s.Transport.Close(); err != nil {
			log.Warn().Err(err).Msg("remote.Server idle close failed")
		}
	}
	log.Warn().Dur("idle", s.IdleTimeout).Msg("remote.Server session expired")
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, transport.ErrBusy):
		return status.Error(codes.FailedPrecondition, transport.ErrBusy.Error())
	case errors.Is(err, transport.ErrNotConnected):
		return status.Error(codes.FailedPrecondition, transport.ErrNotConnected.Error())
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}
