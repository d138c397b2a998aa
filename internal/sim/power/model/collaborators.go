package model

import "voltfront.ai/internal/sim/hexgrid"

// TileStore is the external map store.
type TileStore interface {
	Tile(c hexgrid.Coord) (Tile, bool)
	// ConductorTiles returns every tile with a conduit or pole flag.
	ConductorTiles() []Tile
	SetConduit(c hexgrid.Coord, on bool)
	SetPole(c hexgrid.Coord, on bool)
}

// DeviceRegistry is the external device collection. The engine mutates the
// output fields of returned devices in place.
type DeviceRegistry interface {
	Devices() []*Device
	Device(id string) (*Device, bool)
	Create(cat Category, at hexgrid.Coord) (*Device, error)
	Remove(id string) bool
}

// ResourceLedger holds stockpiles consumed by fuel-class generators.
type ResourceLedger interface {
	TryConsume(resource string, amount int) bool
}
