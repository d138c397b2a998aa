package registry

import (
	"sort"

	"voltfront.ai/internal/sim/hexgrid"
	"voltfront.ai/internal/sim/power/model"
)

// Tiles is an in-memory model.TileStore.
type Tiles struct {
	m map[hexgrid.Coord]*model.Tile
}

func NewTiles() *Tiles {
	return &Tiles{m: map[hexgrid.Coord]*model.Tile{}}
}

func (t *Tiles) Put(tile model.Tile) {
	cp := tile
	t.m[tile.Pos] = &cp
}

// Fill adds passable land tiles for every empty coordinate within radius.
func (t *Tiles) Fill(center hexgrid.Coord, radius int) {
	for _, c := range hexgrid.Within(center, radius) {
		if _, ok := t.m[c]; ok {
			continue
		}
		t.m[c] = &model.Tile{Pos: c, Passable: true}
	}
}

func (t *Tiles) Len() int { return len(t.m) }

func (t *Tiles) Tile(c hexgrid.Coord) (model.Tile, bool) {
	p, ok := t.m[c]
	if !ok {
		return model.Tile{}, false
	}
	return *p, true
}

func (t *Tiles) All() []model.Tile {
	out := make([]model.Tile, 0, len(t.m))
	for _, p := range t.m {
		out = append(out, *p)
	}
	sortTiles(out)
	return out
}

func (t *Tiles) ConductorTiles() []model.Tile {
	out := make([]model.Tile, 0, 16)
	for _, p := range t.m {
		if p.HasConductor() {
			out = append(out, *p)
		}
	}
	sortTiles(out)
	return out
}

func (t *Tiles) SetConduit(c hexgrid.Coord, on bool) {
	t.ensure(c).HasConduit = on
}

func (t *Tiles) SetPole(c hexgrid.Coord, on bool) {
	t.ensure(c).HasPole = on
}

// ensure returns the tile at c. A flag write on an unmapped coordinate
// creates a bare conductor tile that nothing can be placed on.
func (t *Tiles) ensure(c hexgrid.Coord) *model.Tile {
	p, ok := t.m[c]
	if !ok {
		p = &model.Tile{Pos: c}
		t.m[c] = p
	}
	return p
}

func sortTiles(ts []model.Tile) {
	sort.Slice(ts, func(i, j int) bool { return hexgrid.Less(ts[i].Pos, ts[j].Pos) })
}
