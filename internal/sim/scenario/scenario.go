// Package scenario loads scripted power scenarios from YAML and drives an
// engine through them turn by turn.
package scenario

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"voltfront.ai/internal/sim/hexgrid"
	"voltfront.ai/internal/sim/registry"
)

const (
	OpPlace     = "place"
	OpRemove    = "remove"
	OpConductor = "conductor"
	OpHighlight = "highlight"
	OpStock     = "stock"
)

type Scenario struct {
	Name  string `yaml:"name" validate:"required"`
	Turns int    `yaml:"turns" validate:"gte=1"`

	// Tuning and Catalog paths are resolved relative to the scenario file.
	Tuning  string `yaml:"tuning,omitempty"`
	Catalog string `yaml:"catalog,omitempty"`

	Map     MapSpec           `yaml:"map"`
	Ledger  map[string]int    `yaml:"ledger,omitempty"`
	Devices []registry.Record `yaml:"devices,omitempty"`
	Events  []Event           `yaml:"events,omitempty" validate:"dive"`

	dir string
}

type MapSpec struct {
	Center hexgrid.Coord `yaml:"center"`
	Radius int           `yaml:"radius" validate:"gte=0"`
	Tiles  []TileSpec    `yaml:"tiles,omitempty"`
}

// TileSpec overrides one tile. Passable defaults to true.
type TileSpec struct {
	Q        int   `yaml:"q"`
	R        int   `yaml:"r"`
	Passable *bool `yaml:"passable,omitempty"`
	Liquid   bool  `yaml:"liquid,omitempty"`
	Conduit  bool  `yaml:"conduit,omitempty"`
	Pole     bool  `yaml:"pole,omitempty"`
}

func (t TileSpec) Pos() hexgrid.Coord { return hexgrid.C(t.Q, t.R) }

// Event is one scripted command, applied just before its turn advances.
type Event struct {
	Turn int    `yaml:"turn" validate:"gte=1"`
	Op   string `yaml:"op" validate:"oneof=place remove conductor highlight stock"`

	Category string         `yaml:"category,omitempty"`
	At       *hexgrid.Coord `yaml:"at,omitempty"`
	Device   string         `yaml:"device,omitempty"`
	Conduit  bool           `yaml:"conduit,omitempty"`
	Pole     bool           `yaml:"pole,omitempty"`
	Network  int            `yaml:"network,omitempty" validate:"gte=0"`
	Resource string         `yaml:"resource,omitempty"`
	Amount   int            `yaml:"amount,omitempty" validate:"gte=0"`
}

var validate = validator.New()

// Load reads a scenario file. Unknown keys are rejected.
func Load(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

func Parse(raw []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("scenario.yaml: %w", err)
	}
	s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario.yaml: %w", err)
	}
	return &s, nil
}

// Normalize orders events by turn, keeping file order within a turn.
func (s *Scenario) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	for i := range s.Events {
		s.Events[i].Op = strings.ToLower(strings.TrimSpace(s.Events[i].Op))
	}
	sort.SliceStable(s.Events, func(i, j int) bool { return s.Events[i].Turn < s.Events[j].Turn })
}

func (s *Scenario) Validate() error {
	if err := validate.Struct(s); err != nil {
		return err
	}
	for i, ev := range s.Events {
		if ev.Turn > s.Turns {
			return fmt.Errorf("event %d: turn %d beyond scenario length %d", i, ev.Turn, s.Turns)
		}
		switch ev.Op {
		case OpPlace:
			if ev.Category == "" || ev.At == nil {
				return fmt.Errorf("event %d: place needs category and at", i)
			}
		case OpRemove:
			if ev.Device == "" {
				return fmt.Errorf("event %d: remove needs device", i)
			}
		case OpConductor:
			if ev.At == nil {
				return fmt.Errorf("event %d: conductor needs at", i)
			}
		case OpStock:
			if ev.Resource == "" {
				return fmt.Errorf("event %d: stock needs resource", i)
			}
		}
	}
	return nil
}

// Path resolves a path named in the scenario against the file's directory.
func (s *Scenario) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || s.dir == "" {
		return p
	}
	return filepath.Join(s.dir, p)
}

// EventsFor returns the events scheduled for a turn.
func (s *Scenario) EventsFor(turn int) []Event {
	var out []Event
	for _, ev := range s.Events {
		if ev.Turn == turn {
			out = append(out, ev)
		}
	}
	return out
}
