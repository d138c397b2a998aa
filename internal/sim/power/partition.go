package power

import (
	"sort"

	"voltfront.ai/internal/sim/hexgrid"
	"voltfront.ai/internal/sim/power/model"
)

type component struct {
	nodes     []hexgrid.Coord
	producers []string
	consumers []string
	storage   []string
	capacity  int
}

// partition flood-fills the graph. Components come out ordered by their
// smallest node key, which keeps network ids stable for identical inputs.
func partition(g *graph, lookup func(id string) *model.Device) []component {
	visited := make(map[hexgrid.Coord]bool, len(g.nodes))
	var out []component
	for _, start := range g.keys() {
		if visited[start] {
			continue
		}
		visited[start] = true
		queue := []hexgrid.Coord{start}
		var comp component
		for len(queue) > 0 {
			k := queue[0]
			queue = queue[1:]
			comp.nodes = append(comp.nodes, k)
			for _, nb := range g.nodes[k].NeighborKeys() {
				if visited[nb] {
					continue
				}
				visited[nb] = true
				queue = append(queue, nb)
			}
		}
		hexgrid.Sort(comp.nodes)
		classify(&comp, g, lookup)
		out = append(out, comp)
	}
	return out
}

func classify(comp *component, g *graph, lookup func(id string) *model.Device) {
	for _, k := range comp.nodes {
		for _, id := range g.nodes[k].Devices {
			d := lookup(id)
			if d == nil {
				continue
			}
			switch {
			case d.Category.IsGenerator():
				comp.producers = append(comp.producers, id)
			case d.Category == model.CategoryStorage:
				comp.storage = append(comp.storage, id)
				comp.capacity += d.Energy.StorageCapacity
			case d.IsConsumer():
				comp.consumers = append(comp.consumers, id)
			}
		}
	}
	sort.Strings(comp.producers)
	sort.Strings(comp.consumers)
	sort.Strings(comp.storage)
}

// publish turns generator-bearing components into networks with
// sequential ids starting at 1.
func publish(comps []component) []*Network {
	var out []*Network
	for _, c := range comps {
		if len(c.producers) == 0 {
			continue
		}
		out = append(out, &Network{
			ID:              len(out) + 1,
			Nodes:           c.nodes,
			Producers:       c.producers,
			Consumers:       c.consumers,
			Storage:         c.storage,
			StorageCapacity: c.capacity,
		})
	}
	return out
}
