package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/danmuck/farectl/internal/card"
	"github.com/danmuck/farectl/internal/desfire"
	"github.com/danmuck/farectl/internal/observability"
	"github.com/danmuck/farectl/internal/store"
	"github.com/danmuck/farectl/internal/transport"
	"github.com/danmuck/farectl/internal/transport/remote"
	"github.com/danmuck/farectl/internal/transport/sim"
	"github.com/danmuck/farectl/internal/transport/trace"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type dumpOptions struct {
	remote  string
	replay  string
	simFile string
	trace   string
	output  string
	noParse bool
	noUID   bool
}

// dump: read one card and print its canonical JSON, or archive it with --output.
func dumpCmd() *cobra.Command {
	var opts dumpOptions
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Read every application and file from a card",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, cleanup, err := openTransport(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			if opts.trace != "" {
				f, err := os.Create(opts.trace)
				if err != nil {
					return err
				}
				defer f.Close()
				t = trace.NewRecorder(t, f, cfg.Reader.Name)
			}

			start := time.Now()
			sessionOpts := []desfire.Option{desfire.WithLogger(log.Logger)}
			if opts.noUID {
				sessionOpts = append(sessionOpts, desfire.WithoutReaderUID())
			}
			c, err := desfire.NewSession(sessionOpts...).Dump(t)
			observability.RecordDump(c, err, time.Since(start))
			if err != nil {
				return fmt.Errorf("dump: %w", err)
			}
			log.Info().
				Hex("tag_id", c.TagID()).
				Int("applications", len(c.Applications())).
				Dur("elapsed", time.Since(start)).
				Msg("farectl: card dumped")

			if !opts.noParse {
				describe(c)
			}

			if opts.output == "" {
				return card.Encode(cmd.OutOrStdout(), c)
			}
			st, err := store.Open(opts.output)
			if err != nil {
				return err
			}
			id, err := st.Put(c)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id.String())
			return err
		},
	}
	cmd.Flags().StringVar(&opts.remote, "remote", "", "remote reader address (defaults to reader.remote)")
	cmd.Flags().StringVar(&opts.replay, "replay", "", "replay a recorded APDU trace")
	cmd.Flags().StringVar(&opts.simFile, "sim", "", "re-read a saved dump through a simulated card")
	cmd.Flags().StringVar(&opts.trace, "trace", "", "record every exchange to this file")
	cmd.Flags().StringVar(&opts.output, "output", "", "archive directory; prints the content id instead of the dump")
	cmd.Flags().BoolVar(&opts.noParse, "no-parse", false, "skip format identification")
	cmd.Flags().BoolVar(&opts.noUID, "no-uid", false, "take the tag id from GET_VERSION, not the reader")
	return cmd
}

func openTransport(opts dumpOptions) (transport.Transport, func(), error) {
	noop := func() {}
	sources := 0
	for _, s := range []string{opts.remote, opts.replay, opts.simFile} {
		if s != "" {
			sources++
		}
	}
	if sources > 1 {
		return nil, noop, errors.New("choose one of --remote, --replay or --sim")
	}

	switch {
	case opts.replay != "":
		f, err := os.Open(opts.replay)
		if err != nil {
			return nil, noop, err
		}
		defer f.Close()
		r, err := trace.NewReplay(f)
		return r, noop, err
	case opts.simFile != "":
		c, err := loadCard(opts.simFile)
		if err != nil {
			return nil, noop, err
		}
		return sim.New(sim.FromCard(c)), noop, nil
	}

	addr := opts.remote
	if addr == "" {
		addr = cfg.Reader.Remote
	}
	if addr == "" {
		return nil, noop, errors.New("no card source: use --remote, --replay or --sim, or set reader.remote")
	}
	client, err := remote.Dial(addr, cfg.DialOptions())
	if err != nil {
		return nil, noop, fmt.Errorf("dial %s: %w", addr, err)
	}
	client.Timeout = cfg.Reader.RPCTimeout
	return client, func() { _ = client.CloseConn() }, nil
}

func describe(c *card.Card) {
	reg, err := registry()
	if err != nil {
		log.Warn().Err(err).Msg("farectl: format registry unavailable")
		return
	}
	id, ok := reg.Identify(c)
	observability.RecordClassification(id.Format)
	if !ok {
		log.Info().Msg("farectl: card format not recognized")
		return
	}
	log.Info().
		Str("format", id.Format).
		Str("issuer", id.Issuer).
		Str("serial", id.Serial).
		Msg("farectl: card identified")
}
