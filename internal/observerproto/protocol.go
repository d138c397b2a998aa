package observerproto

import (
	"voltfront.ai/internal/sim/power"
	"voltfront.ai/internal/sim/tuning"
)

// Version is the observer protocol version.
const Version = "0.1"

// Client -> Server. First message on the observer WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Snapshots asks for a full SNAPSHOT message after every turn.
	Snapshots bool `json:"snapshots,omitempty"`
	// NetworkID restricts TURN telemetry to one network. Zero means all.
	NetworkID int `json:"network_id,omitempty"`
}

// HTTP response for GET /observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string        `json:"protocol_version"`
	RunID           string        `json:"run_id"`
	Turn            uint64        `json:"turn"`
	Digest          string        `json:"digest"`
	CatalogDigest   string        `json:"catalog_digest"`
	Kinds           []string      `json:"kinds"`
	Tuning          tuning.Tuning `json:"tuning"`
}

// Server -> Client. Sent every turn.
type TurnMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Turn            uint64 `json:"turn"`
	Digest          string `json:"digest"`
	Rebuilt         bool   `json:"rebuilt"`
	Highlighted     int    `json:"highlighted"`

	Stats    power.Stats              `json:"stats"`
	Networks []power.NetworkTelemetry `json:"networks"`
	Edits    []power.Edit             `json:"edits,omitempty"`
}

// Server -> Client. Full debug dump, only for sessions that asked for it.
type SnapshotMsg struct {
	Type            string              `json:"type"`
	ProtocolVersion string              `json:"protocol_version"`
	Snapshot        power.DebugSnapshot `json:"snapshot"`
}

func NewTurnMsg(r power.TurnReport, highlighted int) TurnMsg {
	return TurnMsg{
		Type:            "TURN",
		ProtocolVersion: Version,
		Turn:            r.Turn,
		Digest:          r.Digest,
		Rebuilt:         r.Rebuilt,
		Highlighted:     highlighted,
		Stats:           r.Stats,
		Networks:        r.Networks,
		Edits:           r.Edits,
	}
}

// Filter keeps only the telemetry for one network. Zero keeps everything.
func (m TurnMsg) Filter(networkID int) TurnMsg {
	if networkID == 0 {
		return m
	}
	out := m
	out.Networks = nil
	for _, n := range m.Networks {
		if n.ID == networkID {
			out.Networks = append(out.Networks, n)
		}
	}
	return out
}

func NewSnapshotMsg(s power.DebugSnapshot) SnapshotMsg {
	return SnapshotMsg{Type: "SNAPSHOT", ProtocolVersion: Version, Snapshot: s}
}
