package catalogs

import (
	"strings"

	"voltfront.ai/internal/sim/power/model"
)

var aliasTable = map[string]model.Category{
	"generator:solar": model.CategoryGeneratorSolar,
	"solar":           model.CategoryGeneratorSolar,
	"solar_panel":     model.CategoryGeneratorSolar,
	"solar_generator": model.CategoryGeneratorSolar,
	"photovoltaic":    model.CategoryGeneratorSolar,
	"wind":            model.CategoryGeneratorSolar,
	"wind_turbine":    model.CategoryGeneratorSolar,

	"generator:fuel":  model.CategoryGeneratorFuel,
	"generator":       model.CategoryGeneratorFuel,
	"fuel":            model.CategoryGeneratorFuel,
	"fuel_generator":  model.CategoryGeneratorFuel,
	"combustion":      model.CategoryGeneratorFuel,
	"diesel":          model.CategoryGeneratorFuel,
	"coal_plant":      model.CategoryGeneratorFuel,

	"storage":     model.CategoryStorage,
	"battery":     model.CategoryStorage,
	"accumulator": model.CategoryStorage,
	"capacitor":   model.CategoryStorage,

	"consumer": model.CategoryConsumer,
	"load":     model.CategoryConsumer,
	"machine":  model.CategoryConsumer,
	"lamp":     model.CategoryConsumer,

	"conductor:conduit": model.CategoryConduit,
	"conductor":         model.CategoryConduit,
	"conduit":           model.CategoryConduit,
	"wire":              model.CategoryConduit,
	"cable":             model.CategoryConduit,

	"conductor:pole": model.CategoryPole,
	"pole":           model.CategoryPole,
	"power_pole":     model.CategoryPole,
	"pylon":          model.CategoryPole,

	"passive":   model.CategoryPassive,
	"structure": model.CategoryPassive,
}

var fuelHints = []string{"fuel", "diesel", "coal", "gas", "oil", "combust"}

// Normalize maps a loosely named device kind onto the canonical vocabulary.
// Matching ignores case, surrounding space, and '-' versus '_' versus ' '.
func Normalize(raw string) (model.Category, bool) {
	key := canonicalKey(raw)
	if key == "" {
		return model.CategoryUnknown, false
	}
	if c, ok := aliasTable[key]; ok {
		return c, true
	}
	head, tail, found := strings.Cut(key, ":")
	if !found {
		return model.CategoryUnknown, false
	}
	switch head {
	case "generator", "gen", "producer":
		for _, h := range fuelHints {
			if strings.Contains(tail, h) {
				return model.CategoryGeneratorFuel, true
			}
		}
		return model.CategoryGeneratorSolar, true
	case "storage", "battery":
		return model.CategoryStorage, true
	case "consumer", "load":
		return model.CategoryConsumer, true
	case "conductor":
		if strings.Contains(tail, "pole") || strings.Contains(tail, "pylon") {
			return model.CategoryPole, true
		}
		return model.CategoryConduit, true
	}
	return model.CategoryUnknown, false
}

func canonicalKey(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	return s
}
