package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"voltfront.ai/internal/observability"
	"voltfront.ai/internal/observerproto"
	"voltfront.ai/internal/persistence/indexdb"
	persistlog "voltfront.ai/internal/persistence/log"
	"voltfront.ai/internal/sim/power"
	"voltfront.ai/internal/sim/scenario"
	"voltfront.ai/internal/sim/tuning"
	"voltfront.ai/internal/transport/observer"
)

type driverOptions struct {
	// Persist enables the turn and change logs plus the SQLite index.
	Persist bool
	// Observer attaches a websocket fan-out hub.
	Observer bool
	Registry prometheus.Registerer
}

// driver owns one scenario run and every sink attached to it.
type driver struct {
	cfg    Config
	logger *log.Logger

	runID  string
	runDir string
	runner *scenario.Runner

	turns   *persistlog.TurnLogger
	changes *persistlog.ChangeLogger
	idx     *indexdb.SQLiteIndex
	metrics *observability.PowerCollector
	obs     *observer.Server

	shutdownTracing func(context.Context) error
}

func newDriver(ctx context.Context, cfg Config, scenarioPath string, opts driverOptions) (*driver, error) {
	logger := newLogger(cfg, "[powersim] ")
	s, err := scenario.Load(scenarioPath)
	if err != nil {
		return nil, err
	}
	tun, err := tuning.LoadOrDefaults(s.Path(s.Tuning))
	if err != nil {
		return nil, err
	}

	d := &driver{cfg: cfg, logger: logger, runID: cfg.RunID}
	if d.runID == "" {
		d.runID = uuid.NewString()
	}
	d.runDir = filepath.Join(cfg.DataDir, "runs", d.runID)

	var sinks persistlog.Tee
	if opts.Persist {
		if err := os.MkdirAll(d.runDir, 0o755); err != nil {
			return nil, err
		}
		d.turns = persistlog.NewTurnLogger(d.runDir, tun.TurnLogSegmentTurns)
		d.changes = persistlog.NewChangeLogger(d.runDir, tun.TurnLogSegmentTurns)
		sinks = append(sinks, d.turns)
		if !cfg.DisableDB {
			d.idx, err = indexdb.OpenSQLite(filepath.Join(d.runDir, "index.sqlite"))
			if err != nil {
				d.close()
				return nil, fmt.Errorf("index db: %w", err)
			}
			sinks = append(sinks, d.idx)
		}
	}

	engineOpts := power.Options{Tuning: tun, Logger: logger}
	if len(sinks) > 0 {
		engineOpts.TurnLogger = sinks
	}
	d.runner, err = scenario.NewRunner(s, engineOpts)
	if err != nil {
		d.close()
		return nil, err
	}
	for _, w := range d.runner.Warnings {
		logger.Printf("scenario %s: %s", s.Name, w)
	}
	if d.idx != nil {
		if err := d.idx.UpsertCatalogs(d.runner.Catalog, d.runner.Tuning); err != nil {
			logger.Printf("index catalogs: %v", err)
		}
	}

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	d.metrics, err = observability.NewPowerCollector(reg)
	if err != nil {
		d.close()
		return nil, err
	}

	d.shutdownTracing, err = observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Exporter:    cfg.Tracing.Exporter,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, logger)
	if err != nil {
		d.close()
		return nil, err
	}

	if opts.Observer {
		d.obs = observer.NewServer(newLogger(cfg, "[observer] "))
		d.obs.AllowRemote = cfg.AllowRemote
		d.refreshBootstrap(power.TurnReport{})
	}

	e := d.runner.Engine
	e.OnRefreshNeeded(d.onRefresh)
	e.OnOverlayNeeded(d.onOverlay)
	return d, nil
}

func (d *driver) onRefresh(c power.Change) error {
	var errs []error
	if d.changes != nil {
		errs = append(errs, d.changes.WriteChange(c))
	}
	if d.idx != nil {
		errs = append(errs, d.idx.WriteChange(c))
	}
	d.metrics.SetStats(c.Stats)
	return errors.Join(errs...)
}

func (d *driver) onOverlay(c power.Change) error {
	if d.obs == nil || c.Reason != "highlight" || !d.obs.WantsSnapshots() {
		return nil
	}
	d.obs.PublishSnapshot(d.runner.Engine.DebugSnapshot())
	return nil
}

// step advances one scripted turn and feeds metrics and observers.
func (d *driver) step(ctx context.Context) (power.TurnReport, error) {
	start := time.Now()
	rep, err := observability.TracedTurn(ctx, d.runner.Step)
	if errors.Is(err, scenario.ErrFinished) {
		return rep, err
	}

	e := d.runner.Engine
	d.metrics.ObserveTurn(rep, time.Since(start))
	d.metrics.ObserveEngine(e)
	d.metrics.ObserveDevices(d.runner.Devices.Devices())

	if d.obs != nil {
		d.obs.PublishTurn(rep, e.HighlightedNetwork())
		if d.obs.WantsSnapshots() {
			d.obs.PublishSnapshot(e.DebugSnapshot())
		}
		d.refreshBootstrap(rep)
	}
	if d.idx != nil {
		if st := d.idx.Stats(); st.DropTurnTotal > 0 || st.WriteFailTotal > 0 {
			d.logger.Printf("index backlog: dropped=%d failed=%d", st.DropTurnTotal, st.WriteFailTotal)
		}
	}
	return rep, err
}

func (d *driver) refreshBootstrap(rep power.TurnReport) {
	digest := rep.Digest
	if digest == "" {
		digest = d.runner.Engine.StateDigest()
	}
	d.obs.SetBootstrap(observerproto.BootstrapResponse{
		ProtocolVersion: observerproto.Version,
		RunID:           d.runID,
		Turn:            d.runner.Engine.Turn(),
		Digest:          digest,
		CatalogDigest:   d.runner.Catalog.Digest,
		Kinds:           d.runner.Catalog.KindIDs(),
		Tuning:          d.runner.Tuning,
	})
}

// runAll steps until the scenario ends or ctx is cancelled.
func (d *driver) runAll(ctx context.Context, fn func(power.TurnReport)) error {
	for !d.runner.Done() {
		if err := ctx.Err(); err != nil {
			return err
		}
		rep, err := d.step(ctx)
		if err != nil {
			return fmt.Errorf("turn %d: %w", rep.Turn, err)
		}
		if fn != nil {
			fn(rep)
		}
	}
	return nil
}

func (d *driver) close() error {
	var errs []error
	if d.idx != nil {
		errs = append(errs, d.idx.Close())
	}
	if d.turns != nil {
		errs = append(errs, d.turns.Close())
	}
	if d.changes != nil {
		errs = append(errs, d.changes.Close())
	}
	observability.ShutdownWithTimeout(context.Background(), d.shutdownTracing, d.logger)
	return errors.Join(errs...)
}
