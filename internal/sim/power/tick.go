package power

import (
	"fmt"

	"voltfront.ai/internal/sim/power/model"
)

// AdvanceTurn runs one turn: reservoir, rebuild if needed, then every
// network in id order. Shortfalls are reported through device flags, never
// as errors. The returned error is only set when the turn could not start
// or when the TurnLogger failed after the turn completed.
func (e *Engine) AdvanceTurn() (TurnReport, error) {
	if e.ticking {
		return TurnReport{}, ErrTickInProgress
	}
	if e.notifying {
		return TurnReport{}, ErrNotifyInProgress
	}
	report, logErr := e.tick()
	e.NotifyChanged("turn")
	return report, logErr
}

// tick holds the non-reentrant section. The TurnLogger runs inside it, so
// a sink cannot start another turn or edit the topology.
func (e *Engine) tick() (TurnReport, error) {
	e.ticking = true
	defer func() { e.ticking = false }()

	e.reservoir.advance()
	e.EnsureCurrent()

	devs := e.devices.Devices()
	lookup := deviceIndex(devs)
	tel := make([]NetworkTelemetry, 0, len(e.networks))
	for _, n := range e.networks {
		e.tickNetwork(n, lookup)
		tel = append(tel, NetworkTelemetry{
			ID:                n.ID,
			Nodes:             len(n.Nodes),
			StorageCapacity:   n.StorageCapacity,
			StoredEnergy:      n.StoredEnergy,
			Produced:          n.LastProduced,
			Demand:            n.LastDemand,
			WorkingGenerators: n.LastWorkingGenerators,
			Satisfied:         n.LastSatisfied,
		})
	}
	e.turn++

	report := TurnReport{
		Turn:     e.turn,
		Digest:   e.digest(devs),
		Rebuilt:  e.generation != e.reportedGen,
		Stats:    e.stats(),
		Edits:    e.edits,
		Networks: tel,
	}
	e.reportedGen = e.generation
	e.edits = nil

	if e.turnLog != nil {
		if err := e.turnLog.WriteTurn(report); err != nil {
			e.logf("turn %d: turn log: %v", report.Turn, err)
			return report, fmt.Errorf("turn log: %w", err)
		}
	}
	return report, nil
}

func (e *Engine) tickNetwork(n *Network, lookup func(string) *model.Device) {
	produced, working := 0, 0
	for _, id := range n.Producers {
		d := lookup(id)
		if d == nil {
			continue
		}
		out := e.runGenerator(d)
		if out > 0 {
			produced += out
			working++
		}
	}

	consumers := make([]*model.Device, 0, len(n.Consumers))
	demand := 0
	for _, id := range n.Consumers {
		d := lookup(id)
		if d == nil {
			continue
		}
		consumers = append(consumers, d)
		if d.Energy.RequiresPower {
			demand += d.Energy.ConsumptionPerTurn
		}
	}

	n.LastProduced = produced
	n.LastWorkingGenerators = working
	n.LastDemand = demand

	if working == 0 {
		for _, d := range consumers {
			d.SetOffline(model.ReasonNoPowerSource)
		}
		n.clampStored()
		n.LastSatisfied = false
		return
	}

	if n.StorageCapacity > 0 {
		n.StoredEnergy = min(n.StorageCapacity, n.StoredEnergy+produced)
	} else {
		n.StoredEnergy = 0
	}

	// All or nothing: a shortfall leaves storage untouched.
	n.LastSatisfied = demand == 0 || n.StoredEnergy >= demand
	if n.LastSatisfied {
		n.StoredEnergy -= demand
		for _, d := range consumers {
			d.SetOnline()
		}
		return
	}
	for _, d := range consumers {
		d.SetOffline(model.ReasonNoPower)
	}
}

// runGenerator returns the energy the generator put out this turn.
func (e *Engine) runGenerator(d *model.Device) int {
	if d.Category.IsFuelClass() && d.Energy.FuelPerTurn > 0 {
		res := d.Energy.FuelResource
		if res == "" {
			res = e.tun.FuelResource
		}
		if e.ledger == nil || !e.ledger.TryConsume(res, d.Energy.FuelPerTurn) {
			d.SetOffline(model.ReasonNoFuel)
			return 0
		}
	}
	d.SetOnline()
	return d.Energy.ProductionPerTurn
}
