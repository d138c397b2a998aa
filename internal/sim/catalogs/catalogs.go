package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"voltfront.ai/internal/sim/power/model"
)

// Catalog holds the placeable device kinds and their default energy
// configuration.
type Catalog struct {
	Kinds   map[string]KindDef
	Aliases map[string]string // canonical alias key -> kind id
	Digest  string

	defaults map[model.Category]string
}

type KindDef struct {
	ID       string             `json:"id"`
	Category model.Category     `json:"category"`
	Aliases  []string           `json:"aliases,omitempty"`
	Energy   model.EnergyConfig `json:"energy"`
}

var builtinKinds = []KindDef{
	{ID: "solar_panel", Category: model.CategoryGeneratorSolar, Aliases: []string{"solar"}, Energy: model.EnergyConfig{ProductionPerTurn: 2}},
	{ID: "fuel_generator", Category: model.CategoryGeneratorFuel, Aliases: []string{"generator"}, Energy: model.EnergyConfig{ProductionPerTurn: 5, FuelPerTurn: 1, FuelResource: "fuel"}},
	{ID: "battery", Category: model.CategoryStorage, Aliases: []string{"accumulator"}, Energy: model.EnergyConfig{StorageCapacity: 20}},
	{ID: "machine", Category: model.CategoryConsumer, Aliases: []string{"consumer"}, Energy: model.EnergyConfig{ConsumptionPerTurn: 3, RequiresPower: true, PullsFromNetwork: true}},
	{ID: "conduit", Category: model.CategoryConduit, Aliases: []string{"wire", "cable"}},
	{ID: "power_pole", Category: model.CategoryPole, Aliases: []string{"pole", "pylon"}},
	{ID: "storehouse", Category: model.CategoryPassive},
}

var compiledSchema = jsonschema.MustCompileString(deviceCatalogSchemaURL, deviceCatalogSchema)

// Defaults returns the built-in catalog.
func Defaults() *Catalog {
	raw, _ := json.Marshal(builtinKinds)
	c, err := build(builtinKinds)
	if err != nil {
		panic(err)
	}
	c.Digest = sha256Hex(raw)
	return c
}

// Load reads devices.json. An empty path yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Defaults(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("devices.json: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("devices.json: %w", err)
	}
	var defs []KindDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("devices.json: %w", err)
	}
	for i := range defs {
		cat, ok := Normalize(string(defs[i].Category))
		if !ok {
			return nil, fmt.Errorf("devices.json: kind %q: unknown category %q", defs[i].ID, defs[i].Category)
		}
		defs[i].Category = cat
	}
	c, err := build(defs)
	if err != nil {
		return nil, fmt.Errorf("devices.json: %w", err)
	}
	c.Digest = sha256Hex(raw)
	return c, nil
}

func build(defs []KindDef) (*Catalog, error) {
	c := &Catalog{
		Kinds:    map[string]KindDef{},
		Aliases:  map[string]string{},
		defaults: map[model.Category]string{},
	}
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("empty id")
		}
		if _, dup := c.Kinds[d.ID]; dup {
			return nil, fmt.Errorf("duplicate kind %q", d.ID)
		}
		c.Kinds[d.ID] = d
		// First kind listed for a category is its default.
		if _, ok := c.defaults[d.Category]; !ok {
			c.defaults[d.Category] = d.ID
		}
	}
	for _, id := range c.KindIDs() {
		for _, a := range c.Kinds[id].Aliases {
			key := canonicalKey(a)
			if prev, ok := c.Aliases[key]; ok && prev != id {
				return nil, fmt.Errorf("alias %q claimed by %q and %q", a, prev, id)
			}
			c.Aliases[key] = id
		}
	}
	return c, nil
}

func (c *Catalog) KindIDs() []string {
	ids := make([]string, 0, len(c.Kinds))
	for id := range c.Kinds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve finds the kind for a raw name: exact kind id, then a catalog alias,
// then the default kind of the normalized category.
func (c *Catalog) Resolve(raw string) (KindDef, bool) {
	if c == nil {
		return KindDef{}, false
	}
	if d, ok := c.Kinds[raw]; ok {
		return d, true
	}
	key := canonicalKey(raw)
	if d, ok := c.Kinds[key]; ok {
		return d, true
	}
	if id, ok := c.Aliases[key]; ok {
		return c.Kinds[id], true
	}
	cat, ok := Normalize(raw)
	if !ok {
		return KindDef{}, false
	}
	return c.ForCategory(cat)
}

func (c *Catalog) ForCategory(cat model.Category) (KindDef, bool) {
	if c == nil {
		return KindDef{}, false
	}
	id, ok := c.defaults[cat]
	if !ok {
		return KindDef{Category: cat}, cat.Valid()
	}
	return c.Kinds[id], true
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
