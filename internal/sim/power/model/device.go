package model

import "voltfront.ai/internal/sim/hexgrid"

// NoNetwork is the NetworkID of a device outside every published network.
const NoNetwork = 0

type OfflineReason string

const (
	ReasonNone          OfflineReason = ""
	ReasonNoFuel        OfflineReason = "no_fuel"
	ReasonNoPowerSource OfflineReason = "no_power_source"
	ReasonNoPower       OfflineReason = "no_power"
)

type EnergyConfig struct {
	ProductionPerTurn  int    `json:"production_per_turn" validate:"gte=0"`
	ConsumptionPerTurn int    `json:"consumption_per_turn" validate:"gte=0"`
	StorageCapacity    int    `json:"storage_capacity" validate:"gte=0"`
	FuelPerTurn        int    `json:"fuel_per_turn" validate:"gte=0"`
	FuelResource       string `json:"fuel_resource,omitempty"`
	RequiresPower      bool   `json:"requires_power"`
	PullsFromNetwork   bool   `json:"pulls_from_network"`
}

// Device is the canonical device record. The registry owns it; the engine
// only writes NetworkID, Online, Evaluated and OfflineReason.
type Device struct {
	ID       string         `json:"id" validate:"required"`
	Kind     string         `json:"kind,omitempty"`
	Category Category       `json:"category"`
	Pos      *hexgrid.Coord `json:"pos,omitempty"`
	Energy   EnergyConfig   `json:"energy"`

	NetworkID     int           `json:"network_id"`
	Online        bool          `json:"online"`
	Evaluated     bool          `json:"evaluated"`
	OfflineReason OfflineReason `json:"offline_reason,omitempty"`
}

// Participates reports whether the device takes part in graph construction.
// Records without a position or with an unknown category stay inert.
func (d *Device) Participates() bool {
	if d == nil || d.Pos == nil || !d.Category.Valid() {
		return false
	}
	if d.Category == CategoryPassive {
		return d.Energy.PullsFromNetwork
	}
	return true
}

// IsConsumer reports whether the device draws from its network.
func (d *Device) IsConsumer() bool {
	return d.Category == CategoryConsumer || (d.Category == CategoryPassive && d.Energy.PullsFromNetwork)
}

func (d *Device) SetOnline() {
	d.Online = true
	d.Evaluated = true
	d.OfflineReason = ReasonNone
}

func (d *Device) SetOffline(reason OfflineReason) {
	d.Online = false
	d.Evaluated = true
	d.OfflineReason = reason
}

func (d *Device) Detach() {
	d.NetworkID = NoNetwork
	d.Online = false
	d.Evaluated = true
	d.OfflineReason = ReasonNone
}
