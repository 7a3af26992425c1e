package commands

import (
	"errors"
	"net"

	"github.com/danmuck/farectl/internal/auth"
	"github.com/danmuck/farectl/internal/transport/remote"
	"github.com/danmuck/farectl/internal/transport/sim"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

// relay: serve a saved dump as a remote reader so `dump --remote` can be
// exercised without hardware.
func relayCmd() *cobra.Command {
	var (
		addr    string
		simFile string
	)
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Expose a simulated card over the remote reader protocol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			initServiceLogger("farectl-relay")

			if simFile == "" {
				return errors.New("--sim is required")
			}
			if addr == "" {
				addr = cfg.Relay.Addr
			}
			c, err := loadCard(simFile)
			if err != nil {
				return err
			}
			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			var opts []grpc.ServerOption
			if cfg.Relay.TLS.Enabled {
				creds, err := remote.ServerCredentials(cfg.Relay.TLS)
				if err != nil {
					return err
				}
				opts = append(opts, grpc.Creds(creds))
			}
			if cfg.Relay.Token != "" {
				opts = append(opts, grpc.UnaryInterceptor(auth.UnaryServerInterceptor(auth.StaticToken{Token: cfg.Relay.Token})))
			}
			s := grpc.NewServer(opts...)
			remote.RegisterReaderServer(s, &remote.Server{
				Transport:   sim.New(sim.FromCard(c)),
				IdleTimeout: cfg.Relay.IdleTimeout,
			})
			log.Info().Str("addr", lis.Addr().String()).Hex("tag_id", c.TagID()).Bool("token", cfg.Relay.Token != "").Bool("tls", cfg.Relay.TLS.Enabled).Dur("idle_timeout", cfg.Relay.IdleTimeout).Msg("farectl: relay listening")
			return s.Serve(lis)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to relay.addr)")
	cmd.Flags().StringVar(&simFile, "sim", "", "saved dump (file or cid) to serve")
	return cmd
}
