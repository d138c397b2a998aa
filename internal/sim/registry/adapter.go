package registry

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"voltfront.ai/internal/sim/catalogs"
	"voltfront.ai/internal/sim/hexgrid"
	"voltfront.ai/internal/sim/power/model"
)

// Record is a loosely shaped device record as produced by save files, mods,
// or older tooling. Adapt turns it into the canonical model.Device.
type Record map[string]any

var (
	idKeys          = []string{"id", "device_id", "deviceId", "uid"}
	kindKeys        = []string{"category", "kind", "type", "device_type", "deviceType"}
	posKeys         = []string{"pos", "position", "coord", "at"}
	productionKeys  = []string{"production_per_turn", "productionPerTurn", "production", "output", "powerOutput"}
	consumptionKeys = []string{"consumption_per_turn", "consumptionPerTurn", "consumption", "powerDraw", "draw", "upkeep"}
	capacityKeys    = []string{"storage_capacity", "storageCapacity", "capacity"}
	fuelKeys        = []string{"fuel_per_turn", "fuelPerTurn", "fuel", "fuelCost"}
	fuelResKeys     = []string{"fuel_resource", "fuelResource", "fuelType"}
	requiresKeys    = []string{"requires_power", "requiresPower", "needsPower"}
	pullsKeys       = []string{"pulls_from_network", "pullsFromNetwork", "usesNetwork"}
)

// Adapt normalizes a record. Unknown categories and missing coordinates are
// not errors: the device is returned inert and the problem is listed in
// warnings. Errors are reserved for values that cannot be represented.
func Adapt(rec Record, cat *catalogs.Catalog) (model.Device, []string, error) {
	if cat == nil {
		cat = catalogs.Defaults()
	}
	var d model.Device
	var warnings []string

	d.ID, _ = stringField(rec, idKeys)
	if d.ID == "" {
		return d, nil, fmt.Errorf("record without id")
	}

	rawKind, _ := stringField(rec, kindKeys)
	d.Kind = rawKind
	if kind, ok := cat.Resolve(rawKind); ok {
		d.Kind = kind.ID
		d.Category = kind.Category
		d.Energy = kind.Energy
	} else {
		warnings = append(warnings, fmt.Sprintf("%s: unknown category %q", d.ID, rawKind))
	}

	pos, ok, err := coordField(rec)
	if err != nil {
		return d, nil, fmt.Errorf("%s: %w", d.ID, err)
	}
	if ok {
		d.Pos = &pos
	} else {
		warnings = append(warnings, fmt.Sprintf("%s: missing coordinates", d.ID))
	}

	ints := []struct {
		keys []string
		dst  *int
	}{
		{productionKeys, &d.Energy.ProductionPerTurn},
		{consumptionKeys, &d.Energy.ConsumptionPerTurn},
		{capacityKeys, &d.Energy.StorageCapacity},
		{fuelKeys, &d.Energy.FuelPerTurn},
	}
	for _, f := range ints {
		v, ok, err := intField(rec, f.keys)
		if err != nil {
			return d, nil, fmt.Errorf("%s: %w", d.ID, err)
		}
		if ok {
			*f.dst = v
		}
	}
	if s, ok := stringField(rec, fuelResKeys); ok {
		d.Energy.FuelResource = s
	}
	bools := []struct {
		keys []string
		dst  *bool
	}{
		{requiresKeys, &d.Energy.RequiresPower},
		{pullsKeys, &d.Energy.PullsFromNetwork},
	}
	for _, f := range bools {
		v, ok, err := boolField(rec, f.keys)
		if err != nil {
			return d, nil, fmt.Errorf("%s: %w", d.ID, err)
		}
		if ok {
			*f.dst = v
		}
	}

	if err := validateDevice(d); err != nil {
		return d, nil, err
	}
	return d, warnings, nil
}

// UnknownKeys lists record keys the adapter does not read, sorted.
func UnknownKeys(rec Record) []string {
	known := map[string]bool{"q": true, "r": true}
	for _, group := range [][]string{idKeys, kindKeys, posKeys, productionKeys, consumptionKeys, capacityKeys, fuelKeys, fuelResKeys, requiresKeys, pullsKeys} {
		for _, k := range group {
			known[k] = true
		}
	}
	var out []string
	for k := range rec {
		if !known[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func lookup(rec Record, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringField(rec Record, keys []string) (string, bool) {
	v, ok := lookup(rec, keys)
	if !ok {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return fmt.Sprint(x), true
	}
}

func intField(rec Record, keys []string) (int, bool, error) {
	v, ok := lookup(rec, keys)
	if !ok {
		return 0, false, nil
	}
	n, err := toInt(v)
	if err != nil {
		return 0, false, fmt.Errorf("field %s: %w", keys[0], err)
	}
	return n, true, nil
}

func boolField(rec Record, keys []string) (bool, bool, error) {
	v, ok := lookup(rec, keys)
	if !ok {
		return false, false, nil
	}
	switch x := v.(type) {
	case bool:
		return x, true, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, false, fmt.Errorf("field %s: %w", keys[0], err)
		}
		return b, true, nil
	default:
		n, err := toInt(v)
		if err != nil {
			return false, false, fmt.Errorf("field %s: %w", keys[0], err)
		}
		return n != 0, true, nil
	}
}

func coordField(rec Record) (hexgrid.Coord, bool, error) {
	if v, ok := lookup(rec, posKeys); ok {
		switch x := v.(type) {
		case []any:
			if len(x) != 2 {
				return hexgrid.Coord{}, false, fmt.Errorf("position needs 2 components, got %d", len(x))
			}
			q, err := toInt(x[0])
			if err != nil {
				return hexgrid.Coord{}, false, err
			}
			r, err := toInt(x[1])
			if err != nil {
				return hexgrid.Coord{}, false, err
			}
			return hexgrid.C(q, r), true, nil
		case map[string]any:
			return coordField(Record(x))
		}
		return hexgrid.Coord{}, false, fmt.Errorf("unsupported position %T", v)
	}
	qv, qok := rec["q"]
	rv, rok := rec["r"]
	if !qok || !rok || qv == nil || rv == nil {
		return hexgrid.Coord{}, false, nil
	}
	q, err := toInt(qv)
	if err != nil {
		return hexgrid.Coord{}, false, err
	}
	r, err := toInt(rv)
	if err != nil {
		return hexgrid.Coord{}, false, err
	}
	return hexgrid.C(q, r), true, nil
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		if x < math.MinInt || x > math.MaxInt {
			return 0, fmt.Errorf("value %d out of range", x)
		}
		return int(x), nil
	case int32:
		return int(x), nil
	case uint64:
		if x > math.MaxInt {
			return 0, fmt.Errorf("value %d out of range", x)
		}
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("non-integer value %v", x)
		}
		// float64(math.MaxInt) rounds up to 2^63, which is itself out of range.
		if x < math.MinInt || x >= math.MaxInt {
			return 0, fmt.Errorf("value %v out of range", x)
		}
		return int(x), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(x))
	}
	return 0, fmt.Errorf("unsupported numeric value %T", v)
}
