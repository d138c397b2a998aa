package power

import (
	"sort"

	"voltfront.ai/internal/sim/hexgrid"
	"voltfront.ai/internal/sim/power/model"
)

// graph is a flat arena of nodes keyed by coordinate.
type graph struct {
	nodes map[hexgrid.Coord]*Node
}

func newGraph() *graph {
	return &graph{nodes: map[hexgrid.Coord]*Node{}}
}

func (g *graph) ensure(c hexgrid.Coord) *Node {
	n, ok := g.nodes[c]
	if !ok {
		n = &Node{Key: c, Neighbors: map[hexgrid.Coord]struct{}{}}
		g.nodes[c] = n
	}
	return n
}

// link inserts a symmetric edge. Repeated calls are no-ops.
func (g *graph) link(a, b hexgrid.Coord) {
	if a == b {
		return
	}
	na, okA := g.nodes[a]
	nb, okB := g.nodes[b]
	if !okA || !okB {
		return
	}
	na.Neighbors[b] = struct{}{}
	nb.Neighbors[a] = struct{}{}
}

func (g *graph) keys() []hexgrid.Coord {
	out := make([]hexgrid.Coord, 0, len(g.nodes))
	for k := range g.nodes {
		out = append(out, k)
	}
	hexgrid.Sort(out)
	return out
}

func (g *graph) edgeCount() int {
	n := 0
	for _, node := range g.nodes {
		n += len(node.Neighbors)
	}
	return n / 2
}

// mirrorFlags marks the conductor flags the engine wrote onto a tile itself.
// Flags the map authored are never recorded here.
type mirrorFlags struct {
	Conduit bool
	Pole    bool
}

type mirrorSet map[hexgrid.Coord]mirrorFlags

// buildGraph derives nodes from conductor tiles and participating devices,
// then links hex neighbors and everything inside a pole's reach.
// Conductor devices mirror their flag onto the underlying tile; writes the
// engine makes are recorded in mirrored when it is non-nil.
func buildGraph(tiles model.TileStore, devices []*model.Device, poleReach int, mirrored mirrorSet) *graph {
	g := newGraph()

	if tiles != nil {
		for _, t := range tiles.ConductorTiles() {
			n := g.ensure(t.Pos)
			n.Conduit = n.Conduit || t.HasConduit
			n.Pole = n.Pole || t.HasPole
		}
	}

	ordered := make([]*model.Device, 0, len(devices))
	for _, d := range devices {
		if d.Participates() {
			ordered = append(ordered, d)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	for _, d := range ordered {
		at := *d.Pos
		n := g.ensure(at)
		n.Devices = append(n.Devices, d.ID)
		switch d.Category {
		case model.CategoryConduit:
			n.Conduit = true
			mirrorConduit(tiles, mirrored, at)
		case model.CategoryPole:
			n.Pole = true
			mirrorPole(tiles, mirrored, at)
		}
	}

	keys := g.keys()
	for _, k := range keys {
		for _, nb := range k.Neighbors() {
			if _, ok := g.nodes[nb]; ok {
				g.link(k, nb)
			}
		}
	}
	for _, k := range keys {
		if !g.nodes[k].Pole {
			continue
		}
		for _, c := range hexgrid.Within(k, poleReach) {
			if _, ok := g.nodes[c]; ok {
				g.link(k, c)
			}
		}
	}
	return g
}

func mirrorConduit(tiles model.TileStore, mirrored mirrorSet, at hexgrid.Coord) {
	if tiles == nil {
		return
	}
	if t, ok := tiles.Tile(at); ok && t.HasConduit {
		return
	}
	tiles.SetConduit(at, true)
	if mirrored != nil {
		f := mirrored[at]
		f.Conduit = true
		mirrored[at] = f
	}
}

func mirrorPole(tiles model.TileStore, mirrored mirrorSet, at hexgrid.Coord) {
	if tiles == nil {
		return
	}
	if t, ok := tiles.Tile(at); ok && t.HasPole {
		return
	}
	tiles.SetPole(at, true)
	if mirrored != nil {
		f := mirrored[at]
		f.Pole = true
		mirrored[at] = f
	}
}

// unmirror clears a flag the engine mirrored at a coordinate.
// Map-authored flags are left alone.
func (m mirrorSet) unmirror(tiles model.TileStore, cat model.Category, at hexgrid.Coord) {
	f, ok := m[at]
	if !ok || tiles == nil {
		return
	}
	switch {
	case cat == model.CategoryConduit && f.Conduit:
		tiles.SetConduit(at, false)
		f.Conduit = false
	case cat == model.CategoryPole && f.Pole:
		tiles.SetPole(at, false)
		f.Pole = false
	}
	if f == (mirrorFlags{}) {
		delete(m, at)
	} else {
		m[at] = f
	}
}
