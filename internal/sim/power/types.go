package power

import (
	"sort"

	"voltfront.ai/internal/sim/hexgrid"
)

// Node is one graph vertex. Neighbors are stored as coordinate keys.
type Node struct {
	Key       hexgrid.Coord
	Devices   []string
	Conduit   bool
	Pole      bool
	Neighbors map[hexgrid.Coord]struct{}
}

func (n *Node) NeighborKeys() []hexgrid.Coord {
	out := make([]hexgrid.Coord, 0, len(n.Neighbors))
	for k := range n.Neighbors {
		out = append(out, k)
	}
	hexgrid.Sort(out)
	return out
}

// Network is a connected component containing at least one generator.
type Network struct {
	ID    int             `json:"id"`
	Nodes []hexgrid.Coord `json:"nodes"`

	Producers []string `json:"producers"`
	Consumers []string `json:"consumers"`
	Storage   []string `json:"storage"`

	StorageCapacity int `json:"storage_capacity"`
	StoredEnergy    int `json:"stored_energy"`

	LastProduced          int  `json:"last_produced"`
	LastDemand            int  `json:"last_demand"`
	LastWorkingGenerators int  `json:"last_working_generators"`
	LastSatisfied         bool `json:"last_satisfied"`
}

func (n *Network) clone() Network {
	cp := *n
	cp.Nodes = append([]hexgrid.Coord(nil), n.Nodes...)
	cp.Producers = append([]string(nil), n.Producers...)
	cp.Consumers = append([]string(nil), n.Consumers...)
	cp.Storage = append([]string(nil), n.Storage...)
	return cp
}

func (n *Network) clampStored() {
	if n.StorageCapacity <= 0 || n.StoredEnergy < 0 {
		n.StoredEnergy = 0
	}
	if n.StorageCapacity > 0 && n.StoredEnergy > n.StorageCapacity {
		n.StoredEnergy = n.StorageCapacity
	}
}

// Reservoir is the baseline energy pool that exists independent of any network.
type Reservoir struct {
	Capacity          int `json:"capacity"`
	ProductionPerTurn int `json:"production_per_turn"`
	Stored            int `json:"stored"`
}

func (r *Reservoir) advance() {
	r.Stored += r.ProductionPerTurn
	if r.Stored > r.Capacity {
		r.Stored = r.Capacity
	}
	if r.Stored < 0 {
		r.Stored = 0
	}
}

type Stats struct {
	Turn              uint64 `json:"turn"`
	Networks          int    `json:"networks"`
	TotalCapacity     int    `json:"total_capacity"`
	TotalStored       int    `json:"total_stored"`
	ReservoirCapacity int    `json:"reservoir_capacity"`
	ReservoirStored   int    `json:"reservoir_stored"`
}

// Edit records one topology command applied between two turns.
type Edit struct {
	Op       string         `json:"op"`
	Category string         `json:"category,omitempty"`
	Pos      *hexgrid.Coord `json:"pos,omitempty"`
	DeviceID string         `json:"device_id,omitempty"`
	Conduit  bool           `json:"conduit,omitempty"`
	Pole     bool           `json:"pole,omitempty"`
}

type NetworkTelemetry struct {
	ID                int  `json:"id"`
	Nodes             int  `json:"nodes"`
	StorageCapacity   int  `json:"storage_capacity"`
	StoredEnergy      int  `json:"stored_energy"`
	Produced          int  `json:"produced"`
	Demand            int  `json:"demand"`
	WorkingGenerators int  `json:"working_generators"`
	Satisfied         bool `json:"satisfied"`
}

// TurnReport summarizes one AdvanceTurn call.
type TurnReport struct {
	Turn     uint64             `json:"turn"`
	Digest   string             `json:"digest"`
	Rebuilt  bool               `json:"rebuilt"`
	Stats    Stats              `json:"stats"`
	Edits    []Edit             `json:"edits,omitempty"`
	Networks []NetworkTelemetry `json:"networks"`
}

// TurnLogger receives every TurnReport. Implementations live in
// internal/persistence.
type TurnLogger interface {
	WriteTurn(r TurnReport) error
}

func sortedStrings(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
