package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voltfront.ai/internal/sim/power"
	"voltfront.ai/internal/sim/power/model"
)

const workshop = `
name: workshop
turns: 4
map:
  radius: 3
  tiles:
    - {q: 2, r: -1, passable: false}
ledger:
  fuel: 1
devices:
  - {id: sun, kind: solar, q: 0, r: 0}
  - {id: bat, kind: battery, pos: [1, 0]}
  - {id: gen, kind: fuel_generator, q: 0, r: 3}
  - {id: crate, kind: teleporter, q: 1, r: 1}
events:
  - {turn: 3, op: stock, resource: fuel, amount: 5}
  - {turn: 2, op: place, category: machine, at: {q: -1, r: 0}}
  - {turn: 3, op: place, category: battery, at: {q: 2, r: -1}}
  - {turn: 3, op: remove, device: ghost}
`

func mustRunner(t *testing.T, src string) *Runner {
	t.Helper()
	s, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	r, err := NewRunner(s, power.Options{})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

func TestRunnerPlaysScript(t *testing.T) {
	r := mustRunner(t, workshop)

	var reports []power.TurnReport
	if err := r.Run(func(rep power.TurnReport) error {
		reports = append(reports, rep)
		return nil
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(reports) != 4 || reports[3].Turn != 4 {
		t.Fatalf("reports = %d, last turn %d", len(reports), reports[len(reports)-1].Turn)
	}
	if !r.Done() {
		t.Fatalf("runner not done after Run")
	}
	if _, err := r.Step(); !errors.Is(err, ErrFinished) {
		t.Fatalf("Step after end = %v, want ErrFinished", err)
	}

	sun, _ := r.Devices.Device("sun")
	net, ok := r.Engine.Network(sun.NetworkID)
	if !ok {
		t.Fatalf("sun has no network")
	}
	// 2 per turn; the machine drew 3 on turns 2 and 3 and starved on turn 4.
	if net.StoredEnergy != 2 || net.LastSatisfied {
		t.Fatalf("stored=%d satisfied=%v, want 2 false", net.StoredEnergy, net.LastSatisfied)
	}
	if len(net.Consumers) != 1 {
		t.Fatalf("consumers = %v", net.Consumers)
	}
	machine, _ := r.Devices.Device(net.Consumers[0])
	if machine.Online || machine.OfflineReason != model.ReasonNoPower {
		t.Fatalf("machine online=%v reason=%q", machine.Online, machine.OfflineReason)
	}

	gen, _ := r.Devices.Device("gen")
	if !gen.Online || r.Ledger.Amount("fuel") != 3 {
		t.Fatalf("gen online=%v fuel=%d, want true 3", gen.Online, r.Ledger.Amount("fuel"))
	}
	if gen.NetworkID == sun.NetworkID {
		t.Fatalf("isolated generator joined the solar network")
	}

	if len(r.Rejected) != 2 {
		t.Fatalf("rejected = %+v, want 2", r.Rejected)
	}
	for _, rej := range r.Rejected {
		if rej.Turn != 3 {
			t.Fatalf("rejection %+v, want turn 3", rej)
		}
	}
	if !strings.Contains(r.Rejected[0].Error, power.ErrImpassable.Error()) {
		t.Fatalf("first rejection = %q", r.Rejected[0].Error)
	}

	crate, _ := r.Devices.Device("crate")
	if crate.NetworkID != model.NoNetwork || len(r.Warnings) != 1 {
		t.Fatalf("crate network=%d warnings=%v", crate.NetworkID, r.Warnings)
	}
}

func TestRunnerFuelRunsOutThenRestocks(t *testing.T) {
	r := mustRunner(t, workshop)
	gen, _ := r.Devices.Device("gen")

	want := []bool{true, false, true, true}
	for i, online := range want {
		if _, err := r.Step(); err != nil {
			t.Fatalf("turn %d: %v", i+1, err)
		}
		if gen.Online != online {
			t.Fatalf("turn %d: gen online=%v, want %v", i+1, gen.Online, online)
		}
	}
	if gen.OfflineReason != model.ReasonNone {
		t.Fatalf("reason = %q after restock", gen.OfflineReason)
	}
}

func TestRunnerIsDeterministic(t *testing.T) {
	digests := func() []string {
		r := mustRunner(t, workshop)
		var out []string
		if err := r.Run(func(rep power.TurnReport) error {
			out = append(out, rep.Digest)
			return nil
		}); err != nil {
			t.Fatalf("Run: %v", err)
		}
		return out
	}
	a, b := digests(), digests()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("turn %d digest %s != %s", i+1, a[i], b[i])
		}
	}
}

func TestParseRejectsBadScenarios(t *testing.T) {
	cases := map[string]string{
		"unknown key":   "name: x\nturns: 1\nmap: {radius: 1}\nbogus: 1\n",
		"no name":       "turns: 1\nmap: {radius: 1}\n",
		"zero turns":    "name: x\nturns: 0\nmap: {radius: 1}\n",
		"bad op":        "name: x\nturns: 1\nmap: {radius: 1}\nevents: [{turn: 1, op: explode}]\n",
		"late event":    "name: x\nturns: 1\nmap: {radius: 1}\nevents: [{turn: 2, op: highlight}]\n",
		"place no at":   "name: x\nturns: 1\nmap: {radius: 1}\nevents: [{turn: 1, op: place, category: solar}]\n",
		"remove no id":  "name: x\nturns: 1\nmap: {radius: 1}\nevents: [{turn: 1, op: remove}]\n",
		"stock no name": "name: x\nturns: 1\nmap: {radius: 1}\nevents: [{turn: 1, op: stock, amount: 1}]\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.HasPrefix(err.Error(), "scenario.yaml: ") {
				t.Fatalf("error %q lacks file prefix", err)
			}
		})
	}
}

func TestLoadResolvesTuningRelativeToFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tuning.yaml"), []byte("reservoir_capacity: 3\n"), 0o644); err != nil {
		t.Fatalf("write tuning: %v", err)
	}
	src := "name: tuned\nturns: 5\ntuning: tuning.yaml\nmap: {radius: 0}\n"
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	r, err := NewRunner(s, power.Options{})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	if err := r.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := r.Engine.Reservoir(); got.Capacity != 3 || got.Stored != 3 {
		t.Fatalf("reservoir = %+v, want capacity 3 stored 3", got)
	}
}

func TestHighlightEvent(t *testing.T) {
	src := `
name: hl
turns: 2
map: {radius: 1}
devices:
  - {id: sun, kind: solar, q: 0, r: 0}
events:
  - {turn: 1, op: highlight, network: 9}
  - {turn: 2, op: highlight, network: 1}
`
	r := mustRunner(t, src)
	if err := r.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Only network 1 exists.
	if len(r.Rejected) != 1 || r.Rejected[0].Turn != 1 {
		t.Fatalf("rejected = %+v", r.Rejected)
	}
	if r.Engine.HighlightedNetwork() != 1 {
		t.Fatalf("highlighted = %d, want 1", r.Engine.HighlightedNetwork())
	}
}

func TestShippedScenariosRun(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "..", "configs", "scenarios", "*.yaml"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(paths) == 0 {
		t.Skip("no shipped scenarios")
	}
	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			r, err := NewRunner(s, power.Options{})
			if err != nil {
				t.Fatalf("NewRunner: %v", err)
			}
			if err := r.Run(nil); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if !r.Done() {
				t.Fatalf("scenario did not finish")
			}
		})
	}
}
