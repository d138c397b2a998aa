package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var persist bool
	cmd := &cobra.Command{
		Use:   "serve <scenario.yaml>",
		Short: "Play a scenario in real time behind /metrics and the observer stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root.configPath)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			d, err := newDriver(ctx, cfg, args[0], driverOptions{
				Persist:  persist,
				Observer: true,
				Registry: prometheus.NewRegistry(),
			})
			if err != nil {
				return err
			}
			defer d.close()

			srv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           d.mux(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				<-ctx.Done()
				ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel2()
				_ = srv.Shutdown(ctx2)
			}()
			paced := make(chan struct{})
			go func() {
				defer close(paced)
				d.pace(ctx, cfg.TurnInterval)
			}()

			d.logger.Printf("listening on %s", cfg.Addr)
			err = srv.ListenAndServe()
			cancel()
			<-paced
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("addr", "127.0.0.1:8080", "http listen address")
	cmd.Flags().Duration("turn-interval", time.Second, "wall time between turns")
	cmd.Flags().Bool("allow-remote", false, "accept observer connections from non-loopback addresses")
	cmd.Flags().BoolVar(&persist, "persist", false, "also write the turn log and index")
	cmd.Flags().String("run-id", "", "run id (default: random uuid)")
	cmd.Flags().Bool("disable-db", false, "skip the SQLite telemetry index when persisting")
	return cmd
}

func (d *driver) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", d.metrics.Handler())
	mux.HandleFunc("/observer/bootstrap", d.obs.BootstrapHandler())
	mux.HandleFunc("/observer/ws", d.obs.WSHandler())
	return mux
}

// pace advances one turn per interval until the scenario ends. The engine
// is only touched from this goroutine.
func (d *driver) pace(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for !d.runner.Done() {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			rep, err := d.step(ctx)
			if err != nil {
				d.logger.Printf("turn %d: %v", rep.Turn, err)
			}
		}
	}
	d.logger.Printf("scenario %s finished at turn %d", d.runner.Scenario.Name, d.runner.Engine.Turn())
}
