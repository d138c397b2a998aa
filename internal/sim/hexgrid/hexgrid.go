// Package hexgrid implements axial hex coordinates (q, r). The third cube
// coordinate is derived as s = -q - r.
package hexgrid

import (
	"fmt"
	"sort"
)

type Coord struct {
	Q int `json:"q" yaml:"q"`
	R int `json:"r" yaml:"r"`
}

func C(q, r int) Coord { return Coord{Q: q, R: r} }

func (c Coord) S() int { return -c.Q - c.R }

func (c Coord) Add(d Coord) Coord { return Coord{Q: c.Q + d.Q, R: c.R + d.R} }

func (c Coord) String() string { return fmt.Sprintf("%d,%d", c.Q, c.R) }

// Directions are the six axial neighbor offsets, in a fixed order.
var Directions = [6]Coord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

func (c Coord) Neighbors() [6]Coord {
	var out [6]Coord
	for i, d := range Directions {
		out[i] = c.Add(d)
	}
	return out
}

func Distance(a, b Coord) int {
	dq := absInt(a.Q - b.Q)
	dr := absInt(a.R - b.R)
	ds := absInt(a.S() - b.S())
	m := dq
	if dr > m {
		m = dr
	}
	if ds > m {
		m = ds
	}
	return m
}

func Adjacent(a, b Coord) bool { return Distance(a, b) == 1 }

// Within returns every coordinate at hex distance <= radius from center,
// center included, ordered by (Q, R).
func Within(center Coord, radius int) []Coord {
	if radius < 0 {
		return nil
	}
	out := make([]Coord, 0, 1+3*radius*(radius+1))
	for dq := -radius; dq <= radius; dq++ {
		lo := maxInt(-radius, -dq-radius)
		hi := minInt(radius, -dq+radius)
		for dr := lo; dr <= hi; dr++ {
			out = append(out, Coord{Q: center.Q + dq, R: center.R + dr})
		}
	}
	return out
}

// Less orders coordinates by Q, then R.
func Less(a, b Coord) bool {
	if a.Q != b.Q {
		return a.Q < b.Q
	}
	return a.R < b.R
}

func Sort(cs []Coord) {
	sort.Slice(cs, func(i, j int) bool { return Less(cs[i], cs[j]) })
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
