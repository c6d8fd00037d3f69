// Package catalog holds the service categories offered on the marketplace,
// their problem lists and the hourly rate band allowed for each.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultDocument []byte

// RateBounds is the inclusive hourly-rate band for a category.
type RateBounds struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Category is one service category.
type Category struct {
	Name     string     `yaml:"name"`
	Icon     string     `yaml:"icon"`
	Rate     RateBounds `yaml:"rate"`
	Problems []string   `yaml:"problems"`
}

// Catalog is the parsed category document.
type Catalog struct {
	DefaultRate     RateBounds `yaml:"defaultRate"`
	ExtremeFraction float64    `yaml:"extremeFraction"`
	Categories      []Category `yaml:"categories"`

	byName map[string]*Category
}

// Parse decodes a catalog document and validates its rate bands.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if c.DefaultRate.Max <= c.DefaultRate.Min {
		return nil, fmt.Errorf("catalog: default rate band is empty")
	}
	c.byName = make(map[string]*Category, len(c.Categories))
	for i := range c.Categories {
		cat := &c.Categories[i]
		if cat.Name == "" {
			return nil, fmt.Errorf("catalog: category %d has no name", i)
		}
		if cat.Rate.Max <= cat.Rate.Min {
			return nil, fmt.Errorf("catalog: category %s has an empty rate band", cat.Name)
		}
		if _, dup := c.byName[cat.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate category %s", cat.Name)
		}
		c.byName[cat.Name] = cat
	}
	return &c, nil
}

// Default returns the catalog embedded in the binary.
func Default() *Catalog {
	c, err := Parse(defaultDocument)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Lookup(name string) (*Category, bool) {
	cat, ok := c.byName[name]
	return cat, ok
}

func (c *Catalog) IsCategory(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// RateBounds returns the band for category, or the default band for unknown names.
func (c *Catalog) RateBounds(category string) RateBounds {
	if cat, ok := c.byName[category]; ok {
		return cat.Rate
	}
	return c.DefaultRate
}

// ExtremeFlags reports whether price sits within the extreme fraction of either
// end of bounds. Such prices are still allowed.
func (c *Catalog) ExtremeFlags(price float64, bounds RateBounds) (low, high bool) {
	span := bounds.Max - bounds.Min
	if span < 1 {
		span = 1
	}
	low = price <= bounds.Min+span*c.ExtremeFraction
	high = price >= bounds.Max-span*c.ExtremeFraction
	return low, high
}
