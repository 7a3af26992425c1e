package remote

import (
	"errors"
	"testing"

	"github.com/danmuck/farectl/internal/card"
	"github.com/danmuck/farectl/internal/desfire"
	"github.com/danmuck/farectl/internal/testutil/cardtest"
	"github.com/danmuck/farectl/internal/testutil/testlog"
	"github.com/danmuck/farectl/internal/testutil/tlstest"
	"github.com/danmuck/farectl/internal/transport/sim"
	"google.golang.org/grpc"
)

func TestTLSConfigValidation(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name   string
		cfg    TLSConfig
		client error
		server error
	}{
		{"disabled", TLSConfig{}, nil, nil},
		{"mutual without tls", TLSConfig{Mutual: true}, ErrTLSRequired, ErrTLSRequired},
		{"client needs ca", TLSConfig{Enabled: true, CertFile: "c", KeyFile: "k"}, ErrTLSCAFileRequired, nil},
		{"server needs cert", TLSConfig{Enabled: true, CAFile: "ca"}, nil, ErrTLSCertFileRequired},
		{"mutual client needs key", TLSConfig{Enabled: true, Mutual: true, CAFile: "ca", CertFile: "c"}, ErrTLSKeyFileRequired, ErrTLSKeyFileRequired},
		{"mutual server needs ca", TLSConfig{Enabled: true, Mutual: true, CertFile: "c", KeyFile: "k"}, ErrTLSCAFileRequired, ErrTLSCAFileRequired},
	}
	for _, tc := range cases {
		if err := tc.cfg.ValidateClient(); !errors.Is(err, tc.client) {
			t.Fatalf("%s: client = %v, want %v", tc.name, err, tc.client)
		}
		if err := tc.cfg.ValidateServer(); !errors.Is(err, tc.server) {
			t.Fatalf("%s: server = %v, want %v", tc.name, err, tc.server)
		}
	}
}

func TestMutualTLSDump(t *testing.T) {
	testlog.Start(t)
	ca := tlstest.NewAuthority(t, "farectl-test-ca")
	srv := ca.Server(t, "relay.test", []string{"relay.test"}, nil)
	cli := ca.Client(t, "reader-a")

	serverCreds, err := ServerCredentials(TLSConfig{
		Enabled: true, Mutual: true,
		CertFile: srv.CertFile, KeyFile: srv.KeyFile, CAFile: ca.CAFile(),
	})
	if err != nil {
		t.Fatalf("server creds: %v", err)
	}
	clientCreds, err := ClientCredentials(TLSConfig{
		Enabled: true, Mutual: true,
		CertFile: cli.CertFile, KeyFile: cli.KeyFile, CAFile: ca.CAFile(),
		ServerName: "relay.test",
	})
	if err != nil {
		t.Fatalf("client creds: %v", err)
	}

	client := startServerWith(t, sim.New(purseLayout(t)),
		[]grpc.ServerOption{grpc.Creds(serverCreds)},
		[]grpc.DialOption{grpc.WithTransportCredentials(clientCreds)},
	)
	got, err := desfire.NewSession(desfire.WithClock(fixedClock)).Dump(client)
	if err != nil {
		t.Fatalf("dump over mtls: %v", err)
	}
	if !card.Equal(got, cardtest.Dump(t, purseLayout(t))) {
		t.Fatalf("mtls dump differs from local dump")
	}
}

func TestClientCredentialsRejectsBadCA(t *testing.T) {
	testlog.Start(t)
	ca := tlstest.NewAuthority(t, "farectl-test-ca")
	srv := ca.Server(t, "relay.test", []string{"relay.test"}, nil)
	// a key file holds no certificates
	if _, err := ClientCredentials(TLSConfig{Enabled: true, CAFile: srv.KeyFile}); !errors.Is(err, ErrTLSBadCA) {
		t.Fatalf("expected ErrTLSBadCA, got %v", err)
	}
}
