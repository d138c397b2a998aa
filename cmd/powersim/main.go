// Command powersim drives scripted power scenarios turn by turn, writes
// their telemetry, replays them for verification and serves a live view.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "powersim",
		Short: "Run, verify and inspect power network scenarios",
		Long: `powersim plays a scenario file against the power engine.

Examples:
  powersim run scenarios/workshop.yaml --run-id demo
  powersim verify scenarios/workshop.yaml --run data/runs/demo
  powersim snapshot scenarios/workshop.yaml --turn 3
  powersim serve scenarios/workshop.yaml --addr 127.0.0.1:8080`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to powersim.yaml")
	root.PersistentFlags().String("data", "./data", "runtime data directory")
	root.PersistentFlags().Bool("quiet", false, "suppress log output")
	root.PersistentFlags().Bool("trace", false, "export per-turn spans")

	root.AddCommand(newRunCommand(opts))
	root.AddCommand(newVerifyCommand(opts))
	root.AddCommand(newSnapshotCommand(opts))
	root.AddCommand(newServeCommand(opts))
	return root
}

func newLogger(cfg Config, prefix string) *log.Logger {
	var w io.Writer = os.Stderr
	if cfg.Quiet {
		w = io.Discard
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(ch)
	}()
	return ctx, cancel
}
