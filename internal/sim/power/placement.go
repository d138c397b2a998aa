package power

import (
	"fmt"

	"voltfront.ai/internal/sim/hexgrid"
	"voltfront.ai/internal/sim/power/model"
)

// PlaceDevice validates the target tile, creates the device through the
// registry, invalidates the graph and runs a notify cycle.
func (e *Engine) PlaceDevice(cat model.Category, at hexgrid.Coord) (*model.Device, error) {
	if e.ticking {
		return nil, ErrTickInProgress
	}
	if !cat.Valid() {
		return nil, fmt.Errorf("place %q: %w", cat, ErrUnknownCategory)
	}
	t, ok := e.tile(at)
	if !ok {
		return nil, fmt.Errorf("place %s at %s: %w", cat, at, ErrTileMissing)
	}
	if cat.NeedsSolidGround() && (!t.Passable || t.Liquid) {
		return nil, fmt.Errorf("place %s at %s: %w", cat, at, ErrImpassable)
	}
	d, err := e.devices.Create(cat, at)
	if err != nil {
		return nil, fmt.Errorf("place %s at %s: %w", cat, at, err)
	}
	e.Invalidate("place")
	pos := at
	e.edits = append(e.edits, Edit{Op: "place", Category: string(cat), Pos: &pos, DeviceID: d.ID})
	e.NotifyChanged("place")
	return d, nil
}

// RemoveDevice deletes a device from the registry. Removing the last
// conductor device of its kind on a coordinate also clears the tile flag,
// but only when the engine mirrored that flag there itself.
func (e *Engine) RemoveDevice(id string) error {
	if e.ticking {
		return ErrTickInProgress
	}
	d, ok := e.devices.Device(id)
	if !ok {
		return fmt.Errorf("remove %s: %w", id, ErrDeviceMissing)
	}
	cat := d.Category
	var pos *hexgrid.Coord
	if d.Pos != nil {
		p := *d.Pos
		pos = &p
	}
	if !e.devices.Remove(id) {
		return fmt.Errorf("remove %s: %w", id, ErrDeviceMissing)
	}
	if pos != nil && cat.IsConductor() && !e.hasDeviceAt(cat, *pos) {
		e.mirrored.unmirror(e.tiles, cat, *pos)
	}
	e.Invalidate("remove")
	e.edits = append(e.edits, Edit{Op: "remove", Category: string(cat), Pos: pos, DeviceID: id})
	e.NotifyChanged("remove")
	return nil
}

// SetConductor writes conductor flags directly onto an existing tile.
func (e *Engine) SetConductor(at hexgrid.Coord, conduit, pole bool) error {
	if e.ticking {
		return ErrTickInProgress
	}
	if _, ok := e.tile(at); !ok {
		return fmt.Errorf("conductor at %s: %w", at, ErrTileMissing)
	}
	e.tiles.SetConduit(at, conduit)
	e.tiles.SetPole(at, pole)
	// The map now owns both flags at this coordinate.
	delete(e.mirrored, at)
	e.Invalidate("conductor")
	pos := at
	e.edits = append(e.edits, Edit{Op: "conductor", Pos: &pos, Conduit: conduit, Pole: pole})
	e.NotifyChanged("conductor")
	return nil
}

func (e *Engine) tile(at hexgrid.Coord) (model.Tile, bool) {
	if e.tiles == nil {
		return model.Tile{}, false
	}
	return e.tiles.Tile(at)
}

func (e *Engine) hasDeviceAt(cat model.Category, at hexgrid.Coord) bool {
	for _, d := range e.devices.Devices() {
		if d.Category == cat && d.Pos != nil && *d.Pos == at {
			return true
		}
	}
	return false
}
