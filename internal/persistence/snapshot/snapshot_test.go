package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voltfront.ai/internal/sim/hexgrid"
	"voltfront.ai/internal/sim/power/powertest"
)

func TestWriteReadRoundTrip(t *testing.T) {
	h := powertest.NewHarness(t, 2)
	h.Solar("sun", hexgrid.C(0, 0), 3)
	h.Battery("bat", hexgrid.C(1, 0), 10)
	h.StepFor(2)

	state := h.E.DebugSnapshot()
	path := filepath.Join(t.TempDir(), "snaps", FileName(state.Turn))
	if err := WriteSnapshot(path, New("run-1", "unit", state)); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	hdr, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if hdr.Turn != 2 || hdr.RunID != "run-1" || hdr.Digest != state.Digest {
		t.Fatalf("header = %+v", hdr)
	}

	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if got.State.Digest != state.Digest || len(got.State.Networks) != 1 {
		t.Fatalf("state digest=%s networks=%d", got.State.Digest, len(got.State.Networks))
	}
	if got.State.Networks[0].StoredEnergy != 6 {
		t.Fatalf("stored = %d, want 6", got.State.Networks[0].StoredEnergy)
	}
}

func TestReadSnapshotRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.snap.zst")
	if err := os.WriteFile(path, []byte("not zstd"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(12); !strings.HasSuffix(got, ".snap.zst") || !strings.HasPrefix(got, "12") {
		t.Fatalf("FileName = %q", got)
	}
}
