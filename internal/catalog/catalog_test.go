package catalog

import "testing"

func TestDefault_HasSitePackages(t *testing.T) {
	c := Default()
	for _, id := range []string{"bar-45", "house-60", "office-90"} {
		if !c.Has(id) {
			t.Fatalf("default catalog missing %s", id)
		}
	}
	o, _ := c.Lookup("office-90")
	if o.Price() != "$300+" {
		t.Fatalf("unexpected price rendering %q", o.Price())
	}
	all := c.All()
	if all[0].ID != "bar-45" || all[2].ID != "office-90" {
		t.Fatalf("unexpected order: %+v", all)
	}
}

func TestParse_ConfigEnumeration(t *testing.T) {
	c, err := Parse([]byte(`{"bar-45":{"label":"Bar Set","priceCents":20050}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	o, ok := c.Lookup("bar-45")
	if !ok || o.Label != "Bar Set" || o.ID != "bar-45" {
		t.Fatalf("lookup mismatch: %+v", o)
	}
	if o.Price() != "$200.50" {
		t.Fatalf("price = %q", o.Price())
	}
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"empty":    `{}`,
		"invalid":  `not json`,
		"negative": `{"x":{"label":"X","priceCents":-1}}`,
	}
	for name, raw := range cases {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoad_Precedence(t *testing.T) {
	c, err := Load(`{"inline":{"label":"I","priceCents":1}}`, []byte(`{"file":{"label":"F","priceCents":1}}`))
	if err != nil || !c.Has("inline") || c.Has("file") {
		t.Fatalf("inline json should win: %v", err)
	}
	c, err = Load("", []byte(`{"file":{"label":"F","priceCents":1}}`))
	if err != nil || !c.Has("file") {
		t.Fatalf("file should be used: %v", err)
	}
	c, err = Load("", nil)
	if err != nil || !c.Has("bar-45") {
		t.Fatalf("defaults expected: %v", err)
	}
}

func TestResolve_AcceptsFormOptionText(t *testing.T) {
	c := Default()
	cases := map[string]string{
		"bar-45":               "bar-45",
		"Bar Set - $200":       "bar-45",
		"bar set":              "bar-45",
		" House Party - $250 ": "house-60",
		"Office Party - $300+": "office-90",
	}
	for in, want := range cases {
		o, ok := c.Resolve(in)
		if !ok || o.ID != want {
			t.Errorf("Resolve(%q) = %q, %v; want %q", in, o.ID, ok, want)
		}
	}
	if _, ok := c.Resolve("Bar Set - $250"); ok {
		t.Errorf("wrong price must not resolve")
	}
}

func TestResolve_AmbiguousLabelsDropped(t *testing.T) {
	c, err := New([]Offering{
		{ID: "a", Label: "Party", PriceCents: 100},
		{ID: "b", Label: "Party", PriceCents: 200},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Resolve("Party"); ok {
		t.Fatalf("shared label must not resolve")
	}
	if o, ok := c.Resolve("Party - $2"); !ok || o.ID != "b" {
		t.Fatalf("option text with price should still resolve, got %q %v", o.ID, ok)
	}
}
