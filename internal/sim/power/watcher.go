package power

import (
	"sort"
	"strings"

	"voltfront.ai/internal/sim/power/model"
)

// signature is the sorted list of id@q,r:category for every participating
// device, followed by the conductor tile flags. It changes whenever a device
// appears, disappears, moves, or changes category, and whenever a conductor
// flag is toggled behind the engine's back.
func signature(devices []*model.Device, tiles model.TileStore) string {
	parts := make([]string, 0, len(devices))
	for _, d := range devices {
		if !d.Participates() {
			continue
		}
		parts = append(parts, d.ID+"@"+d.Pos.String()+":"+string(d.Category))
	}
	sort.Strings(parts)

	var b strings.Builder
	b.WriteString(strings.Join(parts, ";"))
	if tiles != nil {
		// ConductorTiles is already coordinate ordered.
		for _, t := range tiles.ConductorTiles() {
			b.WriteString("|")
			b.WriteString(t.Pos.String())
			if t.HasConduit {
				b.WriteString("c")
			}
			if t.HasPole {
				b.WriteString("p")
			}
		}
	}
	return b.String()
}
