package power

import (
	"sort"

	"voltfront.ai/internal/sim/hexgrid"
)

type overlap struct {
	next, prev int // indexes into the new and old network slices
	score      int
}

// carryEnergy moves stored energy from the previous generation into the
// new networks. Each new network adopts the old network it shares the most
// node keys with. A donor is consumed by its best match, so splitting a
// network never duplicates energy; ties go to the lower ids.
func carryEnergy(prev, next []*Network) {
	owner := make(map[hexgrid.Coord]int, 64)
	for i, n := range prev {
		for _, k := range n.Nodes {
			owner[k] = i
		}
	}

	var pairs []overlap
	for ni, n := range next {
		counts := map[int]int{}
		for _, k := range n.Nodes {
			if pi, ok := owner[k]; ok {
				counts[pi]++
			}
		}
		for pi, c := range counts {
			pairs = append(pairs, overlap{next: ni, prev: pi, score: c})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if next[a.next].ID != next[b.next].ID {
			return next[a.next].ID < next[b.next].ID
		}
		return prev[a.prev].ID < prev[b.prev].ID
	})

	takenNext := make([]bool, len(next))
	takenPrev := make([]bool, len(prev))
	for _, p := range pairs {
		if takenNext[p.next] || takenPrev[p.prev] {
			continue
		}
		takenNext[p.next] = true
		takenPrev[p.prev] = true
		adopt(next[p.next], prev[p.prev])
	}
	for _, n := range next {
		n.clampStored()
	}
}

// adopt copies the donor's stored energy and last-turn telemetry, so a
// rebuild with unchanged topology reproduces the same network.
func adopt(n, donor *Network) {
	n.StoredEnergy = donor.StoredEnergy
	n.LastProduced = donor.LastProduced
	n.LastDemand = donor.LastDemand
	n.LastWorkingGenerators = donor.LastWorkingGenerators
	n.LastSatisfied = donor.LastSatisfied
}
