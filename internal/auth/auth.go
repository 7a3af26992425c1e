// Package auth guards the remote reader with a shared token.
//
// Clients attach the token as gRPC metadata; the relay rejects any call
// that does not carry it.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	metadataKey  = "authorization"
	bearerPrefix = "Bearer "
)

var ErrUnauthorized = errors.New("auth: unauthorized")

// Validator validates an authentication token.
type Validator interface {
	Validate(token string) error
}

// StaticToken accepts exactly one shared token. An empty Token denies
// everything.
type StaticToken struct {
	Token string
}

func (s StaticToken) Validate(token string) error {
	if s.Token == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(s.Token), []byte(token)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// UnaryServerInterceptor rejects calls whose bearer token v refuses.
func UnaryServerInterceptor(v Validator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if err := v.Validate(tokenFrom(ctx)); err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		return handler(ctx, req)
	}
}

func tokenFrom(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, v := range md.Get(metadataKey) {
		if strings.HasPrefix(v, bearerPrefix) {
			return strings.TrimPrefix(v, bearerPrefix)
		}
	}
	return ""
}

// Token is per-RPC credentials carrying a bearer token. It does not
// require transport security; the relay runs on trusted links.
type Token string

func (t Token) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{metadataKey: bearerPrefix + string(t)}, nil
}

func (Token) RequireTransportSecurity() bool { return false }
