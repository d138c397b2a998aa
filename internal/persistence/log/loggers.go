package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"voltfront.ai/internal/sim/power"
)

// JSONLZstdWriter appends JSON lines to zstd-compressed segment files. The
// caller picks the segment for every write; a new segment closes the old
// file.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu     sync.Mutex
	curSeg string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(segment string, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if segment != w.curSeg || w.w == nil {
		if err := w.rotateLocked(segment); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// Sync pushes buffered lines through the encoder so that a concurrent
// reader sees complete frames.
func (w *JSONLZstdWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.enc == nil {
		return nil
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(segment string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathFor(segment)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curSeg = segment
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curSeg = ""
	return err1
}

func (w *JSONLZstdWriter) pathFor(segment string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, segment))
}

// TurnLogger writes one JSONL entry per turn (compressed). Files roll over
// every segmentTurns turns.
type TurnLogger struct {
	w            *JSONLZstdWriter
	segmentTurns uint64
}

func NewTurnLogger(runDir string, segmentTurns int) *TurnLogger {
	if segmentTurns < 1 {
		segmentTurns = 1
	}
	return &TurnLogger{
		w:            NewJSONLZstdWriter(filepath.Join(runDir, "turns"), "turns"),
		segmentTurns: uint64(segmentTurns),
	}
}

func (l *TurnLogger) WriteTurn(r power.TurnReport) error {
	return l.w.Write(segmentName(r.Turn, l.segmentTurns), r)
}

func (l *TurnLogger) Close() error { return l.w.Close() }

// ChangeLogger writes observer notifications (compressed), one segment per
// turn bucket like TurnLogger.
type ChangeLogger struct {
	w            *JSONLZstdWriter
	segmentTurns uint64
}

func NewChangeLogger(runDir string, segmentTurns int) *ChangeLogger {
	if segmentTurns < 1 {
		segmentTurns = 1
	}
	return &ChangeLogger{
		w:            NewJSONLZstdWriter(filepath.Join(runDir, "changes"), "changes"),
		segmentTurns: uint64(segmentTurns),
	}
}

func (l *ChangeLogger) WriteChange(c power.Change) error {
	return l.w.Write(segmentName(c.Turn, l.segmentTurns), c)
}

func (l *ChangeLogger) Close() error { return l.w.Close() }

// segmentName is the zero-padded first turn of the bucket, so file names
// sort in turn order.
func segmentName(turn, segmentTurns uint64) string {
	start := uint64(0)
	if turn > 0 {
		start = (turn-1)/segmentTurns*segmentTurns + 1
	}
	return fmt.Sprintf("%010d", start)
}
