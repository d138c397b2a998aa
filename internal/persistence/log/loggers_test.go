package log

import (
	"os"
	"path/filepath"
	"testing"

	"voltfront.ai/internal/sim/power"
)

func TestTurnLogger_SegmentsAndReadBack(t *testing.T) {
	dir := t.TempDir()
	l := NewTurnLogger(dir, 2)
	for turn := uint64(1); turn <= 5; turn++ {
		r := power.TurnReport{Turn: turn, Digest: "d", Networks: []power.NetworkTelemetry{{ID: 1, StoredEnergy: int(turn)}}}
		if err := l.WriteTurn(r); err != nil {
			t.Fatalf("WriteTurn: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "turns", "*.jsonl.zst"))
	if len(files) != 3 {
		t.Fatalf("segments=%v want 3", files)
	}
	got, err := ReadTurns(dir)
	if err != nil {
		t.Fatalf("ReadTurns: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("reports=%d want 5", len(got))
	}
	for i, r := range got {
		if r.Turn != uint64(i+1) || r.Networks[0].StoredEnergy != i+1 {
			t.Fatalf("report %d = %+v", i, r)
		}
	}
}

func TestTurnLogger_AppendsAcrossOpens(t *testing.T) {
	dir := t.TempDir()
	for turn := uint64(1); turn <= 2; turn++ {
		l := NewTurnLogger(dir, 100)
		if err := l.WriteTurn(power.TurnReport{Turn: turn}); err != nil {
			t.Fatalf("WriteTurn: %v", err)
		}
		_ = l.Close()
	}
	got, err := ReadTurns(dir)
	if err != nil {
		t.Fatalf("ReadTurns: %v", err)
	}
	if len(got) != 2 || got[1].Turn != 2 {
		t.Fatalf("got=%+v", got)
	}
}

func TestChangeLogger(t *testing.T) {
	dir := t.TempDir()
	l := NewChangeLogger(dir, 10)
	_ = l.WriteChange(power.Change{Reason: "place", Turn: 0})
	_ = l.WriteChange(power.Change{Reason: "turn", Turn: 1})
	_ = l.Close()
	got, err := ReadChanges(dir)
	if err != nil {
		t.Fatalf("ReadChanges: %v", err)
	}
	if len(got) != 2 || got[0].Reason != "place" || got[1].Reason != "turn" {
		t.Fatalf("changes=%+v", got)
	}
}

func TestReadTurns_MissingDirIsEmpty(t *testing.T) {
	got, err := ReadTurns(filepath.Join(t.TempDir(), "nope"))
	if err != nil || len(got) != 0 {
		t.Fatalf("got=%v err=%v", got, err)
	}
}

func TestReadTurns_CorruptSegment(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "turns"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "turns", "turns-0000000001.jsonl.zst"), []byte("not zstd"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadTurns(dir); err == nil {
		t.Fatalf("expected error for corrupt segment")
	}
}

func TestSegmentName(t *testing.T) {
	cases := []struct {
		turn, seg uint64
		want      string
	}{
		{0, 10, "0000000000"},
		{1, 10, "0000000001"},
		{10, 10, "0000000001"},
		{11, 10, "0000000011"},
	}
	for _, tc := range cases {
		if got := segmentName(tc.turn, tc.seg); got != tc.want {
			t.Fatalf("segmentName(%d,%d)=%s want %s", tc.turn, tc.seg, got, tc.want)
		}
	}
}

type failingSink struct{ calls int }

func (f *failingSink) WriteTurn(power.TurnReport) error {
	f.calls++
	return os.ErrClosed
}

func TestTee_CallsEverySink(t *testing.T) {
	dir := t.TempDir()
	l := NewTurnLogger(dir, 10)
	bad := &failingSink{}
	tee := Tee{bad, nil, l}
	if err := tee.WriteTurn(power.TurnReport{Turn: 1}); err == nil {
		t.Fatalf("expected joined error")
	}
	_ = l.Close()
	got, _ := ReadTurns(dir)
	if bad.calls != 1 || len(got) != 1 {
		t.Fatalf("calls=%d written=%d", bad.calls, len(got))
	}
}
