package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetcast/core/prediction"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and the artifact bundle",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg, p, err := pipeline()
	if err != nil {
		return err
	}
	b := p.Holder.Current()
	ctx, cancel := context.WithTimeout(commandContext(cmd), 5*time.Second)
	defer cancel()
	if err := prediction.Ping(ctx, b.Backend); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	out := cmd.OutOrStdout()
	_, err = fmt.Fprintf(out, "config ok\nbundle %s: version %s, %d entities, backend %s, max horizon %d\n",
		cfg.Artifacts.Path, b.Version, b.Encoder.Len(), prediction.Kind(b.Backend), cfg.Forecast.MaxHorizon)
	return err
}
