package power

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sort"

	"voltfront.ai/internal/sim/hexgrid"
	"voltfront.ai/internal/sim/power/model"
)

// StateDigest hashes the turn counter, the reservoir, every network and the
// engine-written fields of every device, in canonical order. Two engines
// fed the same snapshot and ticked the same number of turns agree on it.
func (e *Engine) StateDigest() string {
	e.EnsureCurrent()
	return e.digest(e.devices.Devices())
}

func (e *Engine) digest(devs []*model.Device) string {
	h := sha256.New()
	var tmp [8]byte

	writeU64(h, &tmp, e.turn)
	writeInt(h, &tmp, e.reservoir.Capacity)
	writeInt(h, &tmp, e.reservoir.ProductionPerTurn)
	writeInt(h, &tmp, e.reservoir.Stored)

	writeInt(h, &tmp, len(e.networks))
	for _, n := range e.networks {
		writeInt(h, &tmp, n.ID)
		writeInt(h, &tmp, len(n.Nodes))
		for _, k := range n.Nodes {
			writeCoord(h, &tmp, k)
		}
		writeStrings(h, &tmp, n.Producers)
		writeStrings(h, &tmp, n.Consumers)
		writeStrings(h, &tmp, n.Storage)
		writeInt(h, &tmp, n.StorageCapacity)
		writeInt(h, &tmp, n.StoredEnergy)
		writeInt(h, &tmp, n.LastProduced)
		writeInt(h, &tmp, n.LastDemand)
		writeInt(h, &tmp, n.LastWorkingGenerators)
		h.Write([]byte{boolByte(n.LastSatisfied)})
	}

	sorted := append([]*model.Device(nil), devs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	writeInt(h, &tmp, len(sorted))
	for _, d := range sorted {
		writeString(h, &tmp, d.ID)
		writeString(h, &tmp, string(d.Category))
		if d.Pos != nil {
			h.Write([]byte{1})
			writeCoord(h, &tmp, *d.Pos)
		} else {
			h.Write([]byte{0})
		}
		writeInt(h, &tmp, d.NetworkID)
		h.Write([]byte{boolByte(d.Online), boolByte(d.Evaluated)})
		writeString(h, &tmp, string(d.OfflineReason))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func writeInt(h hash.Hash, tmp *[8]byte, v int) { writeU64(h, tmp, uint64(int64(v))) }

func writeCoord(h hash.Hash, tmp *[8]byte, c hexgrid.Coord) {
	writeInt(h, tmp, c.Q)
	writeInt(h, tmp, c.R)
}

func writeString(h hash.Hash, tmp *[8]byte, s string) {
	writeInt(h, tmp, len(s))
	h.Write([]byte(s))
}

func writeStrings(h hash.Hash, tmp *[8]byte, ss []string) {
	writeInt(h, tmp, len(ss))
	for _, s := range ss {
		writeString(h, tmp, s)
	}
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
