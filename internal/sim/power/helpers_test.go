package power_test

import (
	"errors"

	"voltfront.ai/internal/sim/power"
	"voltfront.ai/internal/sim/tuning"
)

func tuningNoReservoir() tuning.Tuning {
	tun := tuning.Defaults()
	tun.ReservoirCapacity = 0
	tun.ReservoirProductionPerTurn = 0
	return tun
}

type memTurnLog struct {
	reports []power.TurnReport
	fail    bool
}

func (m *memTurnLog) WriteTurn(r power.TurnReport) error {
	if m.fail {
		return errors.New("disk full")
	}
	m.reports = append(m.reports, r)
	return nil
}
