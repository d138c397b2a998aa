package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"voltfront.ai/internal/sim/power"
)

func TestTracingDisabledIsNoop(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	r, err := TracedTurn(context.Background(), func() (power.TurnReport, error) {
		return power.TurnReport{Turn: 1}, nil
	})
	if err != nil || r.Turn != 1 {
		t.Fatalf("TracedTurn = %+v, %v", r, err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestTracingStdoutExportsTurnSpan(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracing(context.Background(), TracingConfig{
		Enabled:  true,
		Exporter: "stdout",
		Writer:   &buf,
	}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	defer InitTracing(context.Background(), TracingConfig{}, nil)

	boom := errors.New("sink down")
	_, err = TracedTurn(context.Background(), func() (power.TurnReport, error) {
		return power.TurnReport{Turn: 7, Rebuilt: true}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"power.turn", "power.rebuilt", "sink down"} {
		if !strings.Contains(out, want) {
			t.Fatalf("span output missing %q: %s", want, out)
		}
	}
}

func TestTracingRejectsUnknownExporter(t *testing.T) {
	if _, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"}, nil); err == nil {
		t.Fatalf("expected error for unknown exporter")
	}
}
