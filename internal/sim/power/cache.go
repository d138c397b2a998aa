package power

import "voltfront.ai/internal/sim/power/model"

type cacheState uint8

const (
	cacheStale cacheState = iota
	cacheCurrent
)

// Invalidate marks the derived graph stale. The next read rebuilds it.
func (e *Engine) Invalidate(reason string) {
	e.state = cacheStale
	e.staleReason = reason
}

// Stale reports whether the next read will rebuild, and why.
func (e *Engine) Stale() (bool, string) {
	if e.state == cacheStale {
		return true, e.staleReason
	}
	return false, ""
}

// EnsureCurrent rebuilds the graph when it was invalidated or when the
// registry drifted from the last built signature. It reports whether a
// rebuild ran.
func (e *Engine) EnsureCurrent() bool {
	devs := e.devices.Devices()
	if e.state == cacheCurrent {
		if signature(devs, e.tiles) == e.sig {
			return false
		}
		e.drifts++
		e.logf("topology drift detected at turn %d; rebuilding", e.turn)
		e.Invalidate("drift")
	}
	e.rebuild(devs)
	return true
}

// Rebuild forces a full rebuild regardless of cache state.
func (e *Engine) Rebuild() {
	e.Invalidate("forced")
	e.EnsureCurrent()
}

func (e *Engine) rebuild(devs []*model.Device) {
	lookup := deviceIndex(devs)
	g := buildGraph(e.tiles, devs, e.tun.PoleReach, e.mirrored)
	comps := partition(g, lookup)
	next := publish(comps)
	carryEnergy(e.networks, next)

	for _, d := range devs {
		if d.Participates() {
			d.NetworkID = model.NoNetwork
			continue
		}
		// Inert records fall back to the unattached state.
		d.NetworkID = model.NoNetwork
		d.Online = false
		d.Evaluated = false
		d.OfflineReason = model.ReasonNone
	}

	netIdx := 0
	for _, c := range comps {
		var id int
		if len(c.producers) > 0 {
			id = next[netIdx].ID
			netIdx++
		}
		for _, k := range c.nodes {
			for _, devID := range g.nodes[k].Devices {
				d := lookup(devID)
				if d == nil {
					continue
				}
				if id == model.NoNetwork {
					d.Detach()
					continue
				}
				d.NetworkID = id
			}
		}
	}

	e.graph = g
	e.networks = next
	e.byID = make(map[int]*Network, len(next))
	for _, n := range next {
		e.byID[n.ID] = n
	}
	if _, ok := e.byID[e.highlighted]; !ok {
		e.highlighted = model.NoNetwork
	}
	// Building mirrors conductor devices onto tiles, so the signature is
	// taken afterwards.
	e.sig = signature(devs, e.tiles)
	e.generation++
	e.state = cacheCurrent
	e.staleReason = ""
}
