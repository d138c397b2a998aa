package catalogs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voltfront.ai/internal/sim/power/model"
)

func TestNormalize(t *testing.T) {
	cases := map[string]model.Category{
		"generator:solar":    model.CategoryGeneratorSolar,
		"Solar Panel":        model.CategoryGeneratorSolar,
		"solar-panel":        model.CategoryGeneratorSolar,
		"generator:wind":     model.CategoryGeneratorSolar,
		"generator:diesel_x": model.CategoryGeneratorFuel,
		"FUEL_GENERATOR":     model.CategoryGeneratorFuel,
		"battery":            model.CategoryStorage,
		"storage:flywheel":   model.CategoryStorage,
		"machine":            model.CategoryConsumer,
		"wire":               model.CategoryConduit,
		"conductor:pylon":    model.CategoryPole,
		"pole":               model.CategoryPole,
		"structure":          model.CategoryPassive,
	}
	for raw, want := range cases {
		got, ok := Normalize(raw)
		if !ok || got != want {
			t.Fatalf("Normalize(%q)=%q,%v want %q", raw, got, ok, want)
		}
	}
	for _, raw := range []string{"", "   ", "tree", "weird:thing"} {
		if c, ok := Normalize(raw); ok {
			t.Fatalf("Normalize(%q) unexpectedly matched %q", raw, c)
		}
	}
}

func TestDefaults_Resolve(t *testing.T) {
	c := Defaults()
	if c.Digest == "" {
		t.Fatalf("missing digest")
	}
	d, ok := c.Resolve("pylon")
	if !ok || d.ID != "power_pole" {
		t.Fatalf("Resolve(pylon)=%+v,%v", d, ok)
	}
	d, ok = c.Resolve("photovoltaic")
	if !ok || d.ID != "solar_panel" || d.Energy.ProductionPerTurn != 2 {
		t.Fatalf("Resolve(photovoltaic)=%+v,%v", d, ok)
	}
	if _, ok := c.Resolve("teapot"); ok {
		t.Fatalf("Resolve(teapot) should fail")
	}
	d, ok = c.ForCategory(model.CategoryStorage)
	if !ok || d.Energy.StorageCapacity != 20 {
		t.Fatalf("ForCategory(storage)=%+v,%v", d, ok)
	}
}

func TestLoad_ValidCatalog(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "devices.json")
	body := `[
	  {"id":"big_battery","category":"battery","aliases":["bank"],"energy":{"storage_capacity":80}},
	  {"id":"reactor","category":"generator:fuel","energy":{"production_per_turn":12,"fuel_per_turn":2,"fuel_resource":"uranium"}}
	]`
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d, ok := c.Resolve("bank")
	if !ok || d.Category != model.CategoryStorage || d.Energy.StorageCapacity != 80 {
		t.Fatalf("Resolve(bank)=%+v,%v", d, ok)
	}
	d, ok = c.ForCategory(model.CategoryGeneratorFuel)
	if !ok || d.Energy.FuelResource != "uranium" {
		t.Fatalf("ForCategory(fuel)=%+v,%v", d, ok)
	}
}

func TestParse_RejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"negative":   `[{"id":"x","category":"battery","energy":{"storage_capacity":-1}}]`,
		"missing id": `[{"category":"battery"}]`,
		"extra key":  `[{"id":"x","category":"battery","color":"red"}]`,
		"not array":  `{"id":"x"}`,
	}
	for name, body := range cases {
		if _, err := Parse([]byte(body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	_, err := Parse([]byte(`[{"id":"x","category":"teapot"}]`))
	if err == nil || !strings.Contains(err.Error(), "unknown category") {
		t.Fatalf("expected unknown category error, got %v", err)
	}
	_, err = Parse([]byte(`[{"id":"a","category":"pole","aliases":["p"]},{"id":"b","category":"pole","aliases":["p"]}]`))
	if err == nil {
		t.Fatalf("expected alias clash error")
	}
}
