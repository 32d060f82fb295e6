// Package catalog holds the bookable offerings shown on the packages section
// of the site. The booking form submits an offering id (or, from older forms,
// the option text); anything else is rejected by the validator.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Offering is one bookable package.
type Offering struct {
	ID              string `json:"id"`
	Label           string `json:"label"`
	PriceCents      int64  `json:"priceCents"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
	// PriceFrom marks prices that are a starting point ("$300+").
	PriceFrom bool `json:"priceFrom,omitempty"`
}

// Price renders the price the way the site shows it.
func (o Offering) Price() string {
	s := fmt.Sprintf("$%d", o.PriceCents/100)
	if cents := o.PriceCents % 100; cents != 0 {
		s = fmt.Sprintf("$%d.%02d", o.PriceCents/100, cents)
	}
	if o.PriceFrom {
		s += "+"
	}
	return s
}

// Catalog is an immutable set of offerings keyed by id.
type Catalog struct {
	items   map[string]Offering
	aliases map[string]string // lower-cased display value -> id
}

var ErrEmptyCatalog = errors.New("catalog has no offerings")

// Default mirrors the packages published on the site.
func Default() *Catalog {
	c, _ := New([]Offering{
		{ID: "bar-45", Label: "Bar Set", PriceCents: 20000, DurationMinutes: 45},
		{ID: "house-60", Label: "House Party", PriceCents: 25000, DurationMinutes: 60},
		{ID: "office-90", Label: "Office Party", PriceCents: 30000, DurationMinutes: 90, PriceFrom: true},
	})
	return c
}

func New(items []Offering) (*Catalog, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCatalog
	}
	m := make(map[string]Offering, len(items))
	for _, it := range items {
		id := strings.TrimSpace(it.ID)
		if id == "" {
			return nil, errors.New("offering id is required")
		}
		if it.PriceCents < 0 {
			return nil, fmt.Errorf("offering %s: negative price", id)
		}
		if _, dup := m[id]; dup {
			return nil, fmt.Errorf("offering %s: duplicate id", id)
		}
		it.ID = id
		m[id] = it
	}
	return &Catalog{items: m, aliases: buildAliases(m)}, nil
}

// buildAliases indexes the values the site's form has posted historically:
// the bare label ("Bar Set") and the option text ("Bar Set - $200").
// Values shared by two offerings are ambiguous and left out.
func buildAliases(items map[string]Offering) map[string]string {
	out := map[string]string{}
	ambiguous := map[string]bool{}
	for id, o := range items {
		if strings.TrimSpace(o.Label) == "" {
			continue
		}
		for _, v := range []string{o.Label, o.Label + " - " + o.Price()} {
			k := strings.ToLower(strings.TrimSpace(v))
			if prev, ok := out[k]; ok && prev != id {
				ambiguous[k] = true
			}
			out[k] = id
		}
	}
	for k := range ambiguous {
		delete(out, k)
	}
	return out
}

// Parse reads the configuration enumeration form:
//
//	{ "bar-45": {"label": "Bar Set", "priceCents": 20000}, ... }
func Parse(raw []byte) (*Catalog, error) {
	var m map[string]Offering
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	items := make([]Offering, 0, len(m))
	for id, o := range m {
		o.ID = id
		items = append(items, o)
	}
	return New(items)
}

// Load prefers inline JSON, then file contents, then the defaults.
func Load(inline string, file []byte) (*Catalog, error) {
	switch {
	case strings.TrimSpace(inline) != "":
		return Parse([]byte(inline))
	case len(file) > 0:
		return Parse(file)
	default:
		return Default(), nil
	}
}

func (c *Catalog) Lookup(id string) (Offering, bool) {
	o, ok := c.items[id]
	return o, ok
}

// Resolve accepts an offering id or one of its display aliases and returns
// the offering.
func (c *Catalog) Resolve(value string) (Offering, bool) {
	if o, ok := c.items[value]; ok {
		return o, true
	}
	id, ok := c.aliases[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return Offering{}, false
	}
	return c.items[id], true
}

func (c *Catalog) Has(id string) bool {
	_, ok := c.items[id]
	return ok
}

// All returns offerings sorted by price then id.
func (c *Catalog) All() []Offering {
	out := make([]Offering, 0, len(c.items))
	for _, o := range c.items {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PriceCents != out[j].PriceCents {
			return out[i].PriceCents < out[j].PriceCents
		}
		return out[i].ID < out[j].ID
	})
	return out
}
