package log

import (
	"errors"

	"voltfront.ai/internal/sim/power"
)

// Tee fans a turn report out to several sinks. Every sink is called; the
// errors are joined.
type Tee []power.TurnLogger

func (t Tee) WriteTurn(r power.TurnReport) error {
	var errs []error
	for _, l := range t {
		if l == nil {
			continue
		}
		if err := l.WriteTurn(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
