package power_test

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"voltfront.ai/internal/sim/hexgrid"
	"voltfront.ai/internal/sim/power"
	"voltfront.ai/internal/sim/power/model"
	"voltfront.ai/internal/sim/power/powertest"
	"voltfront.ai/internal/sim/registry"
	"voltfront.ai/internal/sim/tuning"
)

func TestNotifyChanged_RunsBothHooksOnce(t *testing.T) {
	h := powertest.NewHarness(t, 2)
	h.Solar("solar", hexgrid.C(0, 0), 2)

	var refresh, overlay []power.Change
	h.E.OnRefreshNeeded(func(c power.Change) error { refresh = append(refresh, c); return nil })
	h.E.OnOverlayNeeded(func(c power.Change) error { overlay = append(overlay, c); return nil })

	h.E.NotifyChanged("manual")
	if len(refresh) != 1 || len(overlay) != 1 {
		t.Fatalf("refresh=%d overlay=%d want 1,1", len(refresh), len(overlay))
	}
	if refresh[0].Reason != "manual" || refresh[0].Stats.Networks != 1 || refresh[0].Generation != 1 {
		t.Fatalf("change=%+v", refresh[0])
	}

	h.Step()
	if len(refresh) != 2 || refresh[1].Reason != "turn" || refresh[1].Turn != 1 {
		t.Fatalf("turn notify missing: %+v", refresh)
	}
}

func TestNotifyChanged_SwallowsHookFailures(t *testing.T) {
	var buf bytes.Buffer
	tiles := registry.NewTiles()
	tiles.Fill(hexgrid.C(0, 0), 2)
	devices := registry.NewDevices(nil)
	e, err := power.New(tiles, devices, registry.NewLedger(nil), power.Options{
		Logger: log.New(&buf, "[powersim] ", 0),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.OnRefreshNeeded(func(power.Change) error { return errors.New("widget gone") })
	e.OnOverlayNeeded(func(power.Change) error { panic("overlay exploded") })

	if _, err := e.AdvanceTurn(); err != nil {
		t.Fatalf("AdvanceTurn: %v", err)
	}
	if _, err := e.AdvanceTurn(); err != nil {
		t.Fatalf("AdvanceTurn: %v", err)
	}
	if e.Turn() != 2 {
		t.Fatalf("turn=%d want 2", e.Turn())
	}
	if e.HookFailures() != 4 {
		t.Fatalf("hook failures=%d want 4", e.HookFailures())
	}
	if !strings.Contains(buf.String(), "widget gone") || !strings.Contains(buf.String(), "overlay exploded") {
		t.Fatalf("failures not logged: %q", buf.String())
	}
	if e.Notifying() {
		t.Fatalf("notify guard left set after panic")
	}
}

func TestNotifyChanged_NestedCallsAreQueued(t *testing.T) {
	h := powertest.NewHarness(t, 2)
	var reasons []string
	depth := 0
	h.E.OnRefreshNeeded(func(c power.Change) error {
		depth++
		defer func() { depth-- }()
		if depth > 1 {
			t.Fatalf("hook re-entered")
		}
		reasons = append(reasons, c.Reason)
		if c.Reason == "outer" {
			h.E.NotifyChanged("inner")
		}
		return nil
	})
	h.E.NotifyChanged("outer")
	if strings.Join(reasons, ",") != "outer,inner" {
		t.Fatalf("reasons=%v", reasons)
	}
}

func TestNotifyChanged_FollowUpsAreBounded(t *testing.T) {
	tun := tuning.Defaults()
	tun.MaxNotifyCycles = 3
	h := powertest.NewHarnessWithTuning(t, 1, tun)
	calls := 0
	h.E.OnRefreshNeeded(func(power.Change) error {
		calls++
		h.E.NotifyChanged("again")
		return nil
	})
	h.E.NotifyChanged("start")
	if calls != 3 {
		t.Fatalf("calls=%d want 3", calls)
	}
	if h.E.DroppedCycles() != 1 {
		t.Fatalf("dropped=%d want 1", h.E.DroppedCycles())
	}
}

func TestHookCannotAdvanceTurn(t *testing.T) {
	h := powertest.NewHarness(t, 1)
	var nestedErr error
	h.E.OnRefreshNeeded(func(c power.Change) error {
		if c.Reason == "turn" {
			_, nestedErr = h.E.AdvanceTurn()
		}
		return nil
	})
	h.Step()
	if !errors.Is(nestedErr, power.ErrNotifyInProgress) {
		t.Fatalf("nested AdvanceTurn err=%v", nestedErr)
	}
	if h.E.Turn() != 1 {
		t.Fatalf("turn=%d want 1", h.E.Turn())
	}
}

func TestTurnLoggerCannotTickOrPlace(t *testing.T) {
	tiles := registry.NewTiles()
	tiles.Fill(hexgrid.C(0, 0), 1)
	var e *power.Engine
	var tickErr, placeErr error
	sink := turnLogFunc(func(power.TurnReport) error {
		_, tickErr = e.AdvanceTurn()
		_, placeErr = e.PlaceDevice(model.CategoryConduit, hexgrid.C(0, 0))
		return nil
	})
	var err error
	devices := registry.NewDevices(nil)
	e, err = power.New(tiles, devices, nil, power.Options{TurnLogger: sink})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := e.AdvanceTurn(); err != nil {
		t.Fatalf("AdvanceTurn: %v", err)
	}
	if !errors.Is(tickErr, power.ErrTickInProgress) || !errors.Is(placeErr, power.ErrTickInProgress) {
		t.Fatalf("logger calls: tick=%v place=%v", tickErr, placeErr)
	}
	if e.Turn() != 1 || devices.Len() != 0 {
		t.Fatalf("turn=%d devices=%d", e.Turn(), devices.Len())
	}
}

type turnLogFunc func(power.TurnReport) error

func (f turnLogFunc) WriteTurn(r power.TurnReport) error { return f(r) }

func TestHookCanPlaceDevices(t *testing.T) {
	h := powertest.NewHarness(t, 2)
	h.Solar("solar", hexgrid.C(0, 0), 2)
	var reasons []string
	placed := false
	h.E.OnRefreshNeeded(func(c power.Change) error {
		reasons = append(reasons, c.Reason)
		if !placed {
			placed = true
			if _, err := h.E.PlaceDevice(model.CategoryStorage, hexgrid.C(1, 0)); err != nil {
				return err
			}
		}
		return nil
	})
	h.E.NotifyChanged("click")
	if strings.Join(reasons, ",") != "click,place" {
		t.Fatalf("reasons=%v", reasons)
	}
	if got := h.E.RecomputeGlobalStats().Networks; got != 1 {
		t.Fatalf("networks=%d", got)
	}
	if h.E.HookFailures() != 0 {
		t.Fatalf("hook failures=%d", h.E.HookFailures())
	}
}
