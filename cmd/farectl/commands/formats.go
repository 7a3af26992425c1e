package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func formatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List registered card formats in match order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCONFIDENCE\tNAME")
			for _, meta := range reg.List() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", meta.ID, meta.Confidence, meta.Name)
			}
			return w.Flush()
		},
	}
}
