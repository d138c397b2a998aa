// Package snapshot archives engine debug snapshots as zstd-compressed files:
// a JSON header line followed by a gob body.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"voltfront.ai/internal/sim/power"
)

const Version = 1

// Header is readable without decoding the body.
type Header struct {
	Version  int    `json:"version"`
	RunID    string `json:"run_id"`
	Scenario string `json:"scenario"`
	Turn     uint64 `json:"turn"`
	Digest   string `json:"digest"`
}

type SnapshotV1 struct {
	Header Header
	State  power.DebugSnapshot
}

// New stamps a header from the snapshot itself.
func New(runID, scenario string, s power.DebugSnapshot) SnapshotV1 {
	return SnapshotV1{
		Header: Header{Version: Version, RunID: runID, Scenario: scenario, Turn: s.Turn, Digest: s.Digest},
		State:  s,
	}
}

// FileName is the conventional name for a snapshot taken after turn.
func FileName(turn uint64) string { return fmt.Sprintf("%d.snap.zst", turn) }

func WriteSnapshot(path string, snap SnapshotV1) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap.State); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ReadHeader decodes only the header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	err := read(path, func(br *bufio.Reader) error {
		line, err := br.ReadBytes('\n')
		if err != nil {
			return fmt.Errorf("header: %w", err)
		}
		return json.Unmarshal(line, &h)
	})
	return h, err
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	err := read(path, func(br *bufio.Reader) error {
		line, err := br.ReadBytes('\n')
		if err != nil {
			return fmt.Errorf("header: %w", err)
		}
		if err := json.Unmarshal(line, &snap.Header); err != nil {
			return fmt.Errorf("header: %w", err)
		}
		if snap.Header.Version != Version {
			return fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
		}
		if err := gob.NewDecoder(br).Decode(&snap.State); err != nil {
			return fmt.Errorf("gob decode: %w", err)
		}
		return nil
	})
	return snap, err
}

func read(path string, fn func(*bufio.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()
	return fn(bufio.NewReaderSize(dec, 64*1024))
}
