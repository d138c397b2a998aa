package main

import (
	"fmt"

	"github.com/spf13/cobra"

	persistlog "voltfront.ai/internal/persistence/log"
)

func newVerifyCommand(root *rootOptions) *cobra.Command {
	var (
		runDir string
		toTurn uint64
	)
	cmd := &cobra.Command{
		Use:   "verify <scenario.yaml>",
		Short: "Replay a scenario and compare every turn digest with a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root.configPath)
			if err != nil {
				return err
			}
			if runDir == "" {
				return fmt.Errorf("missing --run")
			}
			logged, err := persistlog.ReadTurns(runDir)
			if err != nil {
				return fmt.Errorf("read turns: %w", err)
			}
			if len(logged) == 0 {
				return fmt.Errorf("no turn entries found in %s", runDir)
			}

			ctx, cancel := signalContext()
			defer cancel()
			d, err := newDriver(ctx, cfg, args[0], driverOptions{})
			if err != nil {
				return err
			}
			defer d.close()

			var checked int
			for _, entry := range logged {
				if toTurn != 0 && entry.Turn > toTurn {
					break
				}
				if want := d.runner.Engine.Turn() + 1; entry.Turn != want {
					return fmt.Errorf("turn mismatch: want=%d got=%d", want, entry.Turn)
				}
				got, err := d.step(ctx)
				if err != nil {
					return fmt.Errorf("turn %d: %w", entry.Turn, err)
				}
				if got.Digest != entry.Digest {
					return fmt.Errorf("digest mismatch at turn %d: got=%s want=%s", entry.Turn, got.Digest, entry.Digest)
				}
				checked++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "verify ok: checked=%d turns\n", checked)
			return nil
		},
	}
	cmd.Flags().StringVar(&runDir, "run", "", "run directory written by powersim run")
	cmd.Flags().Uint64Var(&toTurn, "to-turn", 0, "stop after this turn (inclusive, optional)")
	return cmd
}
