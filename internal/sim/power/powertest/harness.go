package powertest

import (
	"testing"

	"voltfront.ai/internal/sim/catalogs"
	"voltfront.ai/internal/sim/hexgrid"
	"voltfront.ai/internal/sim/power"
	"voltfront.ai/internal/sim/power/model"
	"voltfront.ai/internal/sim/registry"
	"voltfront.ai/internal/sim/tuning"
)

// Harness wires the in-memory collaborators to an engine for black-box
// tests. Every helper fails the test on error.
type Harness struct {
	T       *testing.T
	Tiles   *registry.Tiles
	Devices *registry.Devices
	Ledger  *registry.Ledger
	E       *power.Engine
}

// NewHarness fills a passable hex disc of the given radius around 0,0.
func NewHarness(t *testing.T, radius int) *Harness {
	t.Helper()
	return NewHarnessWithTuning(t, radius, tuning.Defaults())
}

func NewHarnessWithTuning(t *testing.T, radius int, tun tuning.Tuning) *Harness {
	t.Helper()
	tiles := registry.NewTiles()
	tiles.Fill(hexgrid.C(0, 0), radius)
	devices := registry.NewDevices(catalogs.Defaults())
	ledger := registry.NewLedger(nil)
	e, err := power.New(tiles, devices, ledger, power.Options{Tuning: tun})
	if err != nil {
		t.Fatalf("power.New: %v", err)
	}
	return &Harness{T: t, Tiles: tiles, Devices: devices, Ledger: ledger, E: e}
}

// Add registers a device with a fixed id directly in the registry,
// without telling the engine.
func (h *Harness) Add(id string, cat model.Category, at hexgrid.Coord, energy model.EnergyConfig) *model.Device {
	h.T.Helper()
	pos := at
	d, err := h.Devices.Add(model.Device{ID: id, Category: cat, Pos: &pos, Energy: energy})
	if err != nil {
		h.T.Fatalf("add %s: %v", id, err)
	}
	return d
}

func (h *Harness) Solar(id string, at hexgrid.Coord, production int) *model.Device {
	return h.Add(id, model.CategoryGeneratorSolar, at, model.EnergyConfig{ProductionPerTurn: production})
}

func (h *Harness) Fuel(id string, at hexgrid.Coord, production, fuel int) *model.Device {
	return h.Add(id, model.CategoryGeneratorFuel, at, model.EnergyConfig{ProductionPerTurn: production, FuelPerTurn: fuel})
}

func (h *Harness) Battery(id string, at hexgrid.Coord, capacity int) *model.Device {
	return h.Add(id, model.CategoryStorage, at, model.EnergyConfig{StorageCapacity: capacity})
}

func (h *Harness) Consumer(id string, at hexgrid.Coord, consumption int) *model.Device {
	return h.Add(id, model.CategoryConsumer, at, model.EnergyConfig{
		ConsumptionPerTurn: consumption,
		RequiresPower:      true,
		PullsFromNetwork:   true,
	})
}

func (h *Harness) Conduit(id string, at hexgrid.Coord) *model.Device {
	return h.Add(id, model.CategoryConduit, at, model.EnergyConfig{})
}

func (h *Harness) Pole(id string, at hexgrid.Coord) *model.Device {
	return h.Add(id, model.CategoryPole, at, model.EnergyConfig{})
}

// Place goes through the engine's placement command.
func (h *Harness) Place(cat model.Category, at hexgrid.Coord) *model.Device {
	h.T.Helper()
	d, err := h.E.PlaceDevice(cat, at)
	if err != nil {
		h.T.Fatalf("place %s at %s: %v", cat, at, err)
	}
	return d
}

func (h *Harness) Step() power.TurnReport {
	h.T.Helper()
	r, err := h.E.AdvanceTurn()
	if err != nil {
		h.T.Fatalf("AdvanceTurn: %v", err)
	}
	return r
}

func (h *Harness) StepFor(n int) power.TurnReport {
	h.T.Helper()
	var last power.TurnReport
	for i := 0; i < n; i++ {
		last = h.Step()
	}
	return last
}

// NetworkOf returns the network d belongs to.
func (h *Harness) NetworkOf(d *model.Device) power.Network {
	h.T.Helper()
	h.E.EnsureCurrent()
	n, ok := h.E.Network(d.NetworkID)
	if !ok {
		h.T.Fatalf("device %s: no network (network_id=%d)", d.ID, d.NetworkID)
	}
	return n
}

// CheckInvariants fails the test if any device points at a missing network,
// any network lacks a generator, or any stored energy is out of range.
func (h *Harness) CheckInvariants() {
	h.T.Helper()
	nets := h.E.Networks()
	ids := map[int]bool{}
	for _, n := range nets {
		ids[n.ID] = true
		if len(n.Producers) == 0 {
			h.T.Fatalf("network %d has no generator", n.ID)
		}
		if n.StoredEnergy < 0 || n.StoredEnergy > n.StorageCapacity {
			h.T.Fatalf("network %d stored=%d capacity=%d", n.ID, n.StoredEnergy, n.StorageCapacity)
		}
	}
	for _, d := range h.Devices.Devices() {
		if d.NetworkID != model.NoNetwork && !ids[d.NetworkID] {
			h.T.Fatalf("device %s points at missing network %d", d.ID, d.NetworkID)
		}
	}
}
