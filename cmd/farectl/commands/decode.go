package commands

import (
	"errors"

	"github.com/danmuck/farectl/internal/observability"
	"github.com/spf13/cobra"
)

var errUnrecognized = errors.New("unrecognized card")

// decode: full semantic decode of a saved dump.
func decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <file|cid>",
		Short: "Decode balance and trips from a saved dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCard(args[0])
			if err != nil {
				return err
			}
			reg, err := registry()
			if err != nil {
				return err
			}
			res, ok := reg.Decode(c)
			observability.RecordClassification(res.Format)
			if !ok {
				return errUnrecognized
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
}

func identifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "identify <file|cid>",
		Short: "Print the format, issuer and serial of a saved dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCard(args[0])
			if err != nil {
				return err
			}
			reg, err := registry()
			if err != nil {
				return err
			}
			id, ok := reg.Identify(c)
			observability.RecordClassification(id.Format)
			if !ok {
				return errUnrecognized
			}
			return writeJSON(cmd.OutOrStdout(), id)
		},
	}
}
