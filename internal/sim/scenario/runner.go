package scenario

import (
	"errors"
	"fmt"

	"voltfront.ai/internal/sim/catalogs"
	"voltfront.ai/internal/sim/power"
	"voltfront.ai/internal/sim/power/model"
	"voltfront.ai/internal/sim/registry"
	"voltfront.ai/internal/sim/tuning"
)

// ErrFinished is returned by Step once every scripted turn has run.
var ErrFinished = errors.New("scenario finished")

// Rejection records an event the engine refused. Rejections are part of the
// scripted outcome, not run failures.
type Rejection struct {
	Turn  int    `json:"turn"`
	Op    string `json:"op"`
	Error string `json:"error"`
}

// Runner owns the collaborators and engine built from a scenario.
type Runner struct {
	Scenario *Scenario
	Catalog  *catalogs.Catalog
	Tuning   tuning.Tuning

	Tiles   *registry.Tiles
	Devices *registry.Devices
	Ledger  *registry.Ledger
	Engine  *power.Engine

	Warnings []string
	Rejected []Rejection
}

// NewRunner builds the map, registry and ledger, then the engine. Tuning
// and the logger sinks in opts are kept; opts.Tuning is replaced by the
// scenario's tuning file when one is named.
func NewRunner(s *Scenario, opts power.Options) (*Runner, error) {
	cat, err := catalogs.Load(s.Path(s.Catalog))
	if err != nil {
		return nil, err
	}
	tun := opts.Tuning
	if s.Tuning != "" {
		tun, err = tuning.Load(s.Path(s.Tuning))
		if err != nil {
			return nil, err
		}
	}
	if tun == (tuning.Tuning{}) {
		tun = tuning.Defaults()
	}
	opts.Tuning = tun

	r := &Runner{
		Scenario: s,
		Catalog:  cat,
		Tuning:   tun,
		Tiles:    registry.NewTiles(),
		Devices:  registry.NewDevices(cat),
		Ledger:   registry.NewLedger(s.Ledger),
	}
	for _, ts := range s.Map.Tiles {
		passable := true
		if ts.Passable != nil {
			passable = *ts.Passable
		}
		r.Tiles.Put(model.Tile{Pos: ts.Pos(), Passable: passable, Liquid: ts.Liquid, HasConduit: ts.Conduit, HasPole: ts.Pole})
	}
	r.Tiles.Fill(s.Map.Center, s.Map.Radius)

	for i, rec := range s.Devices {
		d, warns, err := registry.Adapt(rec, cat)
		if err != nil {
			return nil, fmt.Errorf("device %d: %w", i, err)
		}
		r.Warnings = append(r.Warnings, warns...)
		if _, err := r.Devices.Add(d); err != nil {
			return nil, fmt.Errorf("device %d: %w", i, err)
		}
	}

	r.Engine, err = power.New(r.Tiles, r.Devices, r.Ledger, opts)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Done reports whether every scripted turn has been advanced.
func (r *Runner) Done() bool {
	return r.Engine.Turn() >= uint64(r.Scenario.Turns)
}

// Step applies the events of the next turn and advances it.
func (r *Runner) Step() (power.TurnReport, error) {
	if r.Done() {
		return power.TurnReport{}, ErrFinished
	}
	next := int(r.Engine.Turn()) + 1
	for _, ev := range r.Scenario.EventsFor(next) {
		if err := r.apply(ev); err != nil {
			r.Rejected = append(r.Rejected, Rejection{Turn: next, Op: ev.Op, Error: err.Error()})
		}
	}
	return r.Engine.AdvanceTurn()
}

// Run steps until the scenario ends, handing each report to fn. A nil fn
// just runs the turns.
func (r *Runner) Run(fn func(power.TurnReport) error) error {
	for !r.Done() {
		rep, err := r.Step()
		if err != nil {
			return fmt.Errorf("turn %d: %w", rep.Turn, err)
		}
		if fn != nil {
			if err := fn(rep); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) apply(ev Event) error {
	switch ev.Op {
	case OpPlace:
		cat, ok := catalogs.Normalize(ev.Category)
		if !ok {
			cat = model.Category(ev.Category)
		}
		_, err := r.Engine.PlaceDevice(cat, *ev.At)
		return err
	case OpRemove:
		return r.Engine.RemoveDevice(ev.Device)
	case OpConductor:
		return r.Engine.SetConductor(*ev.At, ev.Conduit, ev.Pole)
	case OpHighlight:
		if !r.Engine.SetHighlightedNetwork(ev.Network) {
			return fmt.Errorf("highlight %d: no such network", ev.Network)
		}
		return nil
	case OpStock:
		r.Ledger.Add(ev.Resource, ev.Amount)
		return nil
	}
	return fmt.Errorf("unknown op %q", ev.Op)
}
