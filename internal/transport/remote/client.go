// Package remote carries the transport interface over gRPC so a dump can
// run against a reader attached to another host.
package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/farectl/internal/auth"
	"github.com/danmuck/farectl/internal/transport"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client implements transport.Transport and transport.Identifier over a
// Reader service.
type Client struct {
	cc     *grpc.ClientConn
	client ReaderClient
	reader string

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
	// ConnectAttempts bounds Connect retries after a lost link. Busy and
	// other refusals are never retried.
	ConnectAttempts int
	Backoff         Backoff

	mu        sync.Mutex
	connected bool
	uid       []byte
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration
	// Reader names this client in server logs.
	Reader string
	TLS    TLSConfig
	// Token is sent as a bearer token on every call when set.
	Token string
	// ConnectAttempts and Backoff seed the client's reconnect policy.
	ConnectAttempts int
	Backoff         Backoff
}

func Dial(target string, opts DialOptions) (*Client, error) {
	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	creds := insecure.NewCredentials()
	if opts.TLS.Enabled {
		var err error
		if creds, err = ClientCredentials(opts.TLS); err != nil {
			return nil, err
		}
	}
	dialOpts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if opts.Token != "" {
		dialOpts = append(dialOpts, grpc.WithPerRPCCredentials(auth.Token(opts.Token)))
	}
	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	c := NewClient(cc, opts.Reader)
	if opts.ConnectAttempts > 0 {
		c.ConnectAttempts = opts.ConnectAttempts
		c.Backoff = opts.Backoff
	}
	return c, nil
}

// NewClient wraps an existing connection. CloseConn closes it.
func NewClient(cc *grpc.ClientConn, reader string) *Client {
	return &Client{cc: cc, client: NewReaderClient(cc), reader: reader, ConnectAttempts: 1}
}

// CloseConn tears down the gRPC connection.
func (c *Client) CloseConn() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

// Connect opens a session on the remote reader, retrying per Backoff
// while the link is reported lost.
func (c *Client) Connect() error {
	attempts := c.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := c.Backoff.Delay(attempt-1, nil)
			log.Debug().Int("attempt", attempt).Dur("delay", delay).Msg("remote.Connect retry")
			time.Sleep(delay)
		}
		if err = c.connect(); err == nil || !errors.Is(err, transport.ErrLinkLost) {
			return err
		}
	}
	return err
}

func (c *Client) connect() error {
	ctx, cancel := c.ctx()
	defer cancel()
	reply, err := c.client.Connect(ctx, wrapperspb.String(c.reader))
	if err != nil {
		return mapRPC("connect", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	c.uid = reply.GetValue()
	return nil
}

func (c *Client) Transceive(command []byte) ([]byte, error) {
	ctx, cancel := c.ctx()
	defer cancel()
	reply, err := c.client.Transceive(ctx, wrapperspb.Bytes(command))
	if err != nil {
		mapped := mapRPC("transceive", err)
		if errors.Is(mapped, transport.ErrLinkLost) {
			c.mu.Lock()
			c.connected = false
			c.mu.Unlock()
		}
		return nil, mapped
	}
	return reply.GetValue(), nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	ctx, cancel := c.ctx()
	defer cancel()
	reply, err := c.client.Close(ctx, wrapperspb.String(c.reader))
	if err != nil {
		return mapRPC("close", err)
	}
	if !reply.GetValue() {
		return transport.ErrClosed
	}
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) UID() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(c.uid))
	copy(out, c.uid)
	return out
}

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), c.Timeout)
}

func mapRPC(op string, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return &transport.Error{Op: op, Err: err}
	}
	switch st.Code() {
	case codes.FailedPrecondition:
		switch st.Message() {
		case transport.ErrBusy.Error():
			return &transport.Error{Op: op, Err: transport.ErrBusy}
		case transport.ErrNotConnected.Error():
			return &transport.Error{Op: op, Err: transport.ErrNotConnected}
		}
	case codes.Unauthenticated:
		return &transport.Error{Op: op, Err: fmt.Errorf("%w: %s", auth.ErrUnauthorized, st.Message())}
	case codes.Unavailable, codes.DeadlineExceeded:
		return &transport.Error{Op: op, Err: fmt.Errorf("%w: %s", transport.ErrLinkLost, st.Message())}
	}
	return &transport.Error{Op: op, Err: err}
}
