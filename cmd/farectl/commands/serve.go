package commands

import (
	"github.com/danmuck/farectl/internal/server"
	"github.com/danmuck/farectl/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP decode service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			initServiceLogger("farectl-serve")
			gin.SetMode(gin.ReleaseMode)

			if addr == "" {
				addr = cfg.Server.Addr
			}
			reg, err := registry()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.Store.Dir)
			if err != nil {
				return err
			}
			return server.New("farectl", addr, cfg.Server.CorsOrigins, reg, st).Serve()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr)")
	return cmd
}
