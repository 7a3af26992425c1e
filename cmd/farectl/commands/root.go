package commands

import (
	"fmt"
	"os"

	"github.com/danmuck/farectl/internal/config"
	"github.com/danmuck/farectl/internal/formats"
	"github.com/danmuck/farectl/internal/formats/builtin"
	"github.com/danmuck/farectl/internal/logging"
	"github.com/danmuck/farectl/internal/observability"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	cfg        config.Config
	// level is the log level in effect after flags and config are merged.
	level string
)

func Execute() error {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "farectl: %v\n", err)
		return err
	}
	return nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "farectl",
		Short:         "Dump and decode DESFire transit cards",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.ConfigureRuntime()
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			level = cfg.LogLevel
			if cmd.Flags().Changed("log-level") {
				level = logLevel
			}
			if !logging.SetLevel(level) {
				return fmt.Errorf("unknown log level %q", level)
			}
			log.Debug().Str("config", configPath).Str("level", level).Msg("farectl: configured")
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to farectl.toml (defaults apply when empty)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error, off)")

	root.AddCommand(
		dumpCmd(),
		decodeCmd(),
		identifyCmd(),
		formatsCmd(),
		serveCmd(),
		relayCmd(),
		configCmd(),
	)
	return root
}

// initServiceLogger installs the long-running command logger for app and
// keeps the level chosen in PersistentPreRunE.
func initServiceLogger(app string) {
	observability.InitLogger(app)
	logging.SetLevel(level)
}

func registry() (*formats.Registry, error) {
	routes, err := cfg.LoadRoutes()
	if err != nil {
		return nil, err
	}
	return builtin.Registry(routes)
}
