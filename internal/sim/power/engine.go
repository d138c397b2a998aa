package power

import (
	"errors"
	"fmt"
	"log"

	"voltfront.ai/internal/sim/hexgrid"
	"voltfront.ai/internal/sim/power/model"
	"voltfront.ai/internal/sim/tuning"
)

type Options struct {
	// Tuning defaults to tuning.Defaults() when left zero.
	Tuning tuning.Tuning
	// Logger receives drift and hook failure messages. Nil is silent.
	Logger *log.Logger
	// TurnLogger, when set, receives every TurnReport.
	TurnLogger TurnLogger
}

// Engine owns the derived power graph for one map. It is single-threaded:
// callers serialize AdvanceTurn, placement and queries themselves.
type Engine struct {
	tiles   model.TileStore
	devices model.DeviceRegistry
	ledger  model.ResourceLedger

	tun     tuning.Tuning
	logger  *log.Logger
	turnLog TurnLogger

	turn      uint64
	reservoir Reservoir

	state       cacheState
	staleReason string
	generation  uint64
	reportedGen uint64
	sig         string
	graph       *graph
	mirrored    mirrorSet
	networks    []*Network
	byID        map[int]*Network

	highlighted int

	ticking       bool
	notifying     bool
	pending       bool
	pendingReason string
	onRefresh     Hook
	onOverlay     Hook

	edits []Edit

	drifts        uint64
	hookFailures  uint64
	droppedCycles uint64
}

func New(tiles model.TileStore, devices model.DeviceRegistry, ledger model.ResourceLedger, opts Options) (*Engine, error) {
	if devices == nil {
		return nil, errors.New("power: nil device registry")
	}
	tun := opts.Tuning
	if tun == (tuning.Tuning{}) {
		tun = tuning.Defaults()
	}
	if err := tun.Validate(); err != nil {
		return nil, fmt.Errorf("power: %w", err)
	}
	return &Engine{
		tiles:   tiles,
		devices: devices,
		ledger:  ledger,
		tun:     tun,
		logger:  opts.Logger,
		turnLog: opts.TurnLogger,
		reservoir: Reservoir{
			Capacity:          tun.ReservoirCapacity,
			ProductionPerTurn: tun.ReservoirProductionPerTurn,
		},
		state:       cacheStale,
		staleReason: "init",
		graph:       newGraph(),
		mirrored:    mirrorSet{},
		byID:        map[int]*Network{},
	}, nil
}

func (e *Engine) Tuning() tuning.Tuning { return e.tun }
func (e *Engine) Turn() uint64          { return e.turn }

// Generation increments on every rebuild.
func (e *Engine) Generation() uint64 { return e.generation }

func (e *Engine) Reservoir() Reservoir { return e.reservoir }

// Drifts counts rebuilds triggered by the signature check rather than by
// an explicit Invalidate.
func (e *Engine) Drifts() uint64        { return e.drifts }
func (e *Engine) HookFailures() uint64  { return e.hookFailures }
func (e *Engine) DroppedCycles() uint64 { return e.droppedCycles }

// Networks returns copies of the current networks ordered by id.
func (e *Engine) Networks() []Network {
	e.EnsureCurrent()
	out := make([]Network, 0, len(e.networks))
	for _, n := range e.networks {
		out = append(out, n.clone())
	}
	return out
}

func (e *Engine) Network(id int) (Network, bool) {
	e.EnsureCurrent()
	n, ok := e.byID[id]
	if !ok {
		return Network{}, false
	}
	return n.clone(), true
}

// Node returns a copy of the graph node at c.
func (e *Engine) Node(c hexgrid.Coord) (Node, bool) {
	e.EnsureCurrent()
	n, ok := e.graph.nodes[c]
	if !ok {
		return Node{}, false
	}
	cp := *n
	cp.Devices = append([]string(nil), n.Devices...)
	cp.Neighbors = make(map[hexgrid.Coord]struct{}, len(n.Neighbors))
	for k := range n.Neighbors {
		cp.Neighbors[k] = struct{}{}
	}
	return cp, true
}

func (e *Engine) NodeCount() int {
	e.EnsureCurrent()
	return len(e.graph.nodes)
}

func (e *Engine) EdgeCount() int {
	e.EnsureCurrent()
	return e.graph.edgeCount()
}

func (e *Engine) logf(format string, args ...any) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}

func deviceIndex(devs []*model.Device) func(id string) *model.Device {
	m := make(map[string]*model.Device, len(devs))
	for _, d := range devs {
		m[d.ID] = d
	}
	return func(id string) *model.Device { return m[id] }
}
