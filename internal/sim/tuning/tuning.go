package tuning

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ReservoirCapacity          int    `yaml:"reservoir_capacity" json:"reservoir_capacity" validate:"gte=0"`
	ReservoirProductionPerTurn int    `yaml:"reservoir_production_per_turn" json:"reservoir_production_per_turn" validate:"gte=0"`
	PoleReach                  int    `yaml:"pole_reach" json:"pole_reach" validate:"gte=1,lte=8"`
	FuelResource               string `yaml:"fuel_resource" json:"fuel_resource" validate:"required"`
	MaxNotifyCycles            int    `yaml:"max_notify_cycles" json:"max_notify_cycles" validate:"gte=1,lte=64"`
	TurnLogSegmentTurns        int    `yaml:"turn_log_segment_turns" json:"turn_log_segment_turns" validate:"gte=1"`
}

func Defaults() Tuning {
	return Tuning{
		ReservoirCapacity:          10,
		ReservoirProductionPerTurn: 1,
		PoleReach:                  2,
		FuelResource:               "fuel",
		MaxNotifyCycles:            4,
		TurnLogSegmentTurns:        1000,
	}
}

// Load reads tuning.yaml on top of Defaults. Unknown keys are rejected.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// LoadOrDefaults is Load, except that an empty path or a missing file
// yields Defaults.
func LoadOrDefaults(path string) (Tuning, error) {
	if strings.TrimSpace(path) == "" {
		return Defaults(), nil
	}
	t, err := Load(path)
	if os.IsNotExist(err) {
		return Defaults(), nil
	}
	return t, err
}

var validate = validator.New()

func (t Tuning) Validate() error {
	if err := validate.Struct(t); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s (value: %v)", e.Field(), e.Tag(), e.Value()))
			}
			return fmt.Errorf("invalid tuning: %s", strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}
