package power

import "voltfront.ai/internal/sim/power/model"

// RecomputeGlobalStats rebuilds if needed and returns the totals across the
// reservoir and every network.
func (e *Engine) RecomputeGlobalStats() Stats {
	e.EnsureCurrent()
	return e.stats()
}

func (e *Engine) stats() Stats {
	s := Stats{
		Turn:              e.turn,
		Networks:          len(e.networks),
		TotalCapacity:     e.reservoir.Capacity,
		TotalStored:       e.reservoir.Stored,
		ReservoirCapacity: e.reservoir.Capacity,
		ReservoirStored:   e.reservoir.Stored,
	}
	for _, n := range e.networks {
		s.TotalCapacity += n.StorageCapacity
		s.TotalStored += n.StoredEnergy
	}
	return s
}

// IsDevicePowered reports the device's last evaluated online flag. A device
// the engine never evaluated counts as powered unless it requires power.
func (e *Engine) IsDevicePowered(d *model.Device) bool {
	if d == nil {
		return false
	}
	e.EnsureCurrent()
	return powered(d)
}

func powered(d *model.Device) bool {
	if d.Evaluated {
		return d.Online
	}
	return !d.Energy.RequiresPower
}

func (e *Engine) IsDevicePoweredByID(id string) (bool, error) {
	d, ok := e.devices.Device(id)
	if !ok {
		return false, ErrDeviceMissing
	}
	return e.IsDevicePowered(d), nil
}

// SetHighlightedNetwork selects a network for the view layer. Passing
// model.NoNetwork clears the selection. An id that is not a current network
// also clears it and returns false.
func (e *Engine) SetHighlightedNetwork(id int) bool {
	e.EnsureCurrent()
	ok := true
	if _, exists := e.byID[id]; !exists {
		ok = id == model.NoNetwork
		id = model.NoNetwork
	}
	changed := id != e.highlighted
	e.highlighted = id
	if changed {
		e.NotifyChanged("highlight")
	}
	return ok
}

func (e *Engine) HighlightedNetwork() int {
	e.EnsureCurrent()
	return e.highlighted
}

// InHighlightedNetwork reports whether d belongs to the selected network.
func (e *Engine) InHighlightedNetwork(d *model.Device) bool {
	if d == nil {
		return false
	}
	e.EnsureCurrent()
	return e.highlighted != model.NoNetwork && d.NetworkID == e.highlighted
}
