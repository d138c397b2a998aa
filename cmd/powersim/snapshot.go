package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"voltfront.ai/internal/persistence/snapshot"
	"voltfront.ai/internal/sim/scenario"
)

func newSnapshotCommand(root *rootOptions) *cobra.Command {
	var (
		turn uint64
		out  string
	)
	cmd := &cobra.Command{
		Use:   "snapshot <scenario.yaml>",
		Short: "Print the debug snapshot of a scenario after a given turn",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root.configPath)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			d, err := newDriver(ctx, cfg, args[0], driverOptions{})
			if err != nil {
				return err
			}
			defer d.close()

			for turn == 0 || d.runner.Engine.Turn() < turn {
				if _, err := d.step(ctx); err != nil {
					if errors.Is(err, scenario.ErrFinished) {
						break
					}
					return err
				}
			}
			state := d.runner.Engine.DebugSnapshot()
			if out != "" {
				if err := snapshot.WriteSnapshot(out, snapshot.New(d.runID, d.runner.Scenario.Name, state)); err != nil {
					return fmt.Errorf("write snapshot: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "snapshot ok: turn=%d digest=%s path=%s\n", state.Turn, state.Digest, out)
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(state)
		},
	}
	cmd.Flags().Uint64Var(&turn, "turn", 0, "stop after this turn (default: end of scenario)")
	cmd.Flags().String("run-id", "", "run id recorded in the snapshot header")
	cmd.Flags().StringVar(&out, "out", "", "write a compressed .snap.zst file instead of printing JSON")
	return cmd
}
