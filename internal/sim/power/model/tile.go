package model

import "voltfront.ai/internal/sim/hexgrid"

type Tile struct {
	Pos        hexgrid.Coord `json:"pos"`
	HasConduit bool          `json:"has_conduit"`
	HasPole    bool          `json:"has_pole"`
	Passable   bool          `json:"passable"`
	Liquid     bool          `json:"liquid"`
}

func (t Tile) HasConductor() bool { return t.HasConduit || t.HasPole }
