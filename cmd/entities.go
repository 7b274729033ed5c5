package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var entitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "List the entities known to the bundle",
	RunE:  runEntities,
}

func init() {
	rootCmd.AddCommand(entitiesCmd)
}

func runEntities(cmd *cobra.Command, _ []string) error {
	_, p, err := pipeline()
	if err != nil {
		return err
	}
	b := p.Holder.Current()
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "CODE\tLABEL\tDISPLAY"); err != nil {
		return err
	}
	for i, l := range b.Encoder.Labels() {
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%s\n", i, l, b.Encoder.Display(l)); err != nil {
			return err
		}
	}
	return tw.Flush()
}
