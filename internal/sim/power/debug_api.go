package power

import (
	"voltfront.ai/internal/sim/hexgrid"
	"voltfront.ai/internal/sim/power/model"
)

type DebugDevice struct {
	ID            string              `json:"id"`
	Kind          string              `json:"kind,omitempty"`
	Category      model.Category      `json:"category"`
	Pos           hexgrid.Coord       `json:"pos"`
	NetworkID     int                 `json:"network_id"`
	Online        bool                `json:"online"`
	Powered       bool                `json:"powered"`
	OfflineReason model.OfflineReason `json:"offline_reason,omitempty"`
}

type DebugNode struct {
	Key       hexgrid.Coord   `json:"key"`
	Conduit   bool            `json:"conduit,omitempty"`
	Pole      bool            `json:"pole,omitempty"`
	Neighbors []hexgrid.Coord `json:"neighbors"`
	Devices   []DebugDevice   `json:"devices"`
}

type DebugNetwork struct {
	ID                    int         `json:"id"`
	StorageCapacity       int         `json:"storage_capacity"`
	StoredEnergy          int         `json:"stored_energy"`
	LastProduced          int         `json:"last_produced"`
	LastDemand            int         `json:"last_demand"`
	LastWorkingGenerators int         `json:"last_working_generators"`
	LastSatisfied         bool        `json:"last_satisfied"`
	Highlighted           bool        `json:"highlighted,omitempty"`
	Producers             []string    `json:"producers"`
	Consumers             []string    `json:"consumers"`
	Storage               []string    `json:"storage"`
	Nodes                 []DebugNode `json:"nodes"`
}

// DebugSnapshot is a structured dump of the current graph. Nodes that
// belong to no network are listed under Unnetworked.
type DebugSnapshot struct {
	Turn        uint64         `json:"turn"`
	Generation  uint64         `json:"generation"`
	Digest      string         `json:"digest"`
	Reservoir   Reservoir      `json:"reservoir"`
	Stats       Stats          `json:"stats"`
	Highlighted int            `json:"highlighted"`
	Networks    []DebugNetwork `json:"networks"`
	Unnetworked []DebugNode    `json:"unnetworked"`
}

func (e *Engine) DebugSnapshot() DebugSnapshot {
	e.EnsureCurrent()
	devs := e.devices.Devices()
	lookup := deviceIndex(devs)

	snap := DebugSnapshot{
		Turn:        e.turn,
		Generation:  e.generation,
		Digest:      e.digest(devs),
		Reservoir:   e.reservoir,
		Stats:       e.stats(),
		Highlighted: e.highlighted,
		Networks:    make([]DebugNetwork, 0, len(e.networks)),
		Unnetworked: []DebugNode{},
	}
	seen := map[hexgrid.Coord]bool{}
	for _, n := range e.networks {
		dn := DebugNetwork{
			ID:                    n.ID,
			StorageCapacity:       n.StorageCapacity,
			StoredEnergy:          n.StoredEnergy,
			LastProduced:          n.LastProduced,
			LastDemand:            n.LastDemand,
			LastWorkingGenerators: n.LastWorkingGenerators,
			LastSatisfied:         n.LastSatisfied,
			Highlighted:           n.ID == e.highlighted,
			Producers:             sortedStrings(n.Producers),
			Consumers:             sortedStrings(n.Consumers),
			Storage:               sortedStrings(n.Storage),
			Nodes:                 make([]DebugNode, 0, len(n.Nodes)),
		}
		for _, k := range n.Nodes {
			seen[k] = true
			dn.Nodes = append(dn.Nodes, e.debugNode(k, lookup))
		}
		snap.Networks = append(snap.Networks, dn)
	}
	for _, k := range e.graph.keys() {
		if !seen[k] {
			snap.Unnetworked = append(snap.Unnetworked, e.debugNode(k, lookup))
		}
	}
	return snap
}

func (e *Engine) debugNode(k hexgrid.Coord, lookup func(string) *model.Device) DebugNode {
	n := e.graph.nodes[k]
	out := DebugNode{
		Key:       k,
		Conduit:   n.Conduit,
		Pole:      n.Pole,
		Neighbors: n.NeighborKeys(),
		Devices:   make([]DebugDevice, 0, len(n.Devices)),
	}
	for _, id := range n.Devices {
		d := lookup(id)
		if d == nil {
			continue
		}
		out.Devices = append(out.Devices, DebugDevice{
			ID:            d.ID,
			Kind:          d.Kind,
			Category:      d.Category,
			Pos:           *d.Pos,
			NetworkID:     d.NetworkID,
			Online:        d.Online,
			Powered:       powered(d),
			OfflineReason: d.OfflineReason,
		})
	}
	return out
}
