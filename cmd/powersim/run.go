package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"voltfront.ai/internal/sim/power"
)

func newRunCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Play a scenario to the end and write its turn log and index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root.configPath)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			d, err := newDriver(ctx, cfg, args[0], driverOptions{Persist: true})
			if err != nil {
				return err
			}
			runErr := d.runAll(ctx, func(r power.TurnReport) {
				if r.Rebuilt {
					d.logger.Printf("turn %d: rebuilt networks=%d stored=%d", r.Turn, r.Stats.Networks, r.Stats.TotalStored)
				}
			})
			for _, rej := range d.runner.Rejected {
				d.logger.Printf("turn %d: %s rejected: %s", rej.Turn, rej.Op, rej.Error)
			}
			closeErr := d.close()
			if runErr != nil {
				return runErr
			}
			if closeErr != nil {
				return closeErr
			}

			st := d.runner.Engine.RecomputeGlobalStats()
			fmt.Fprintf(cmd.OutOrStdout(), "run ok: id=%s turns=%d networks=%d stored=%d/%d digest=%s dir=%s\n",
				d.runID, st.Turn, st.Networks, st.TotalStored, st.TotalCapacity, d.runner.Engine.StateDigest(), d.runDir)
			return nil
		},
	}
	cmd.Flags().String("run-id", "", "run id (default: random uuid)")
	cmd.Flags().Bool("disable-db", false, "skip the SQLite telemetry index")
	return cmd
}
