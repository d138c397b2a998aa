package model

import "strings"

// Category is the canonical device vocabulary the engine understands.
// Loosely named kinds are mapped onto it by catalogs.Normalize before a
// device reaches the engine.
type Category string

const (
	CategoryUnknown        Category = ""
	CategoryGeneratorSolar Category = "generator:solar"
	CategoryGeneratorFuel  Category = "generator:fuel"
	CategoryStorage        Category = "storage"
	CategoryConsumer       Category = "consumer"
	CategoryConduit        Category = "conductor:conduit"
	CategoryPole           Category = "conductor:pole"
	// Passive devices only take part in a network when PullsFromNetwork is set.
	CategoryPassive Category = "passive"
)

var allCategories = []Category{
	CategoryGeneratorSolar,
	CategoryGeneratorFuel,
	CategoryStorage,
	CategoryConsumer,
	CategoryConduit,
	CategoryPole,
	CategoryPassive,
}

func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

func (c Category) Valid() bool {
	for _, k := range allCategories {
		if c == k {
			return true
		}
	}
	return false
}

func (c Category) IsGenerator() bool { return strings.HasPrefix(string(c), "generator:") }
func (c Category) IsConductor() bool { return strings.HasPrefix(string(c), "conductor:") }
func (c Category) IsFuelClass() bool { return c == CategoryGeneratorFuel }

// NeedsSolidGround reports whether the category may not be placed on
// impassable or liquid tiles.
func (c Category) NeedsSolidGround() bool { return c.IsGenerator() || c == CategoryStorage }
