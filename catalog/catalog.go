// Package catalog holds the weapon and map reference data. A copy ships
// embedded in the binary; a directory holding maps.json and weapons.json can
// replace it.
package catalog

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"artillery-planner/ballistics"
)

//go:embed assets/*.json
var embedded embed.FS

// UnassignedWeapon is accepted wherever a weapon id is, meaning "no weapon".
const UnassignedWeapon = "unassigned"

var (
	ErrUnknownWeapon  = errors.New("unknown weapon")
	ErrUnknownMap     = errors.New("unknown map")
	ErrUnknownFaction = errors.New("unknown faction")
)

type Faction string

const (
	Colonial Faction = "Colonial"
	Warden   Faction = "Warden"
	Both     Faction = "Both"
)

func ParseFaction(s string) (Faction, error) {
	switch f := Faction(s); f {
	case Colonial, Warden, Both:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFaction, s)
}

type Weapon struct {
	Slug        string     `json:"slug"`
	Faction     Faction    `json:"faction"`
	DisplayName string     `json:"displayName"`
	MinRange    float64    `json:"minRange"`
	MaxRange    float64    `json:"maxRange"`
	AccRadius   [2]float64 `json:"accRadius"`
	WindDrift   [2]float64 `json:"windDrift"`
}

// Ballistics returns the part of the weapon the firing solution uses.
func (w Weapon) Ballistics() ballistics.Weapon {
	return ballistics.Weapon{MinRange: w.MinRange, MaxRange: w.MaxRange, AccuracyRadius: w.AccRadius}
}

// Slugify lowercases name and joins its alphanumeric runs with dashes:
// `120-68 "Koronides" Field Gun` becomes "120-68-koronides-field-gun".
func Slugify(name string) string {
	parts := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(parts, "-")
}

type Map struct {
	ImageType   string `json:"type"`
	DisplayName string `json:"displayName"`
	FileName    string `json:"fileName"`
	Active      bool   `json:"active"`
}

// Catalog is read-only after loading and safe for concurrent use.
type Catalog struct {
	maps    []Map
	weapons []Weapon
	bySlug  map[string]int
	byFile  map[string]int
}

// Load reads maps.json and weapons.json from dir, or the embedded copy when
// dir is empty.
func Load(dir string) (*Catalog, error) {
	read := func(name string) ([]byte, error) {
		if dir == "" {
			return embedded.ReadFile("assets/" + name)
		}
		return os.ReadFile(filepath.Join(dir, name))
	}
	maps, err := read("maps.json")
	if err != nil {
		return nil, fmt.Errorf("read maps: %w", err)
	}
	weapons, err := read("weapons.json")
	if err != nil {
		return nil, fmt.Errorf("read weapons: %w", err)
	}
	return Parse(maps, weapons)
}

// Parse builds a catalog from the two JSON documents.
func Parse(mapsJSON, weaponsJSON []byte) (*Catalog, error) {
	c := &Catalog{bySlug: map[string]int{}, byFile: map[string]int{}}
	if err := json.Unmarshal(mapsJSON, &c.maps); err != nil {
		return nil, fmt.Errorf("parse maps.json: %w", err)
	}
	if err := json.Unmarshal(weaponsJSON, &c.weapons); err != nil {
		return nil, fmt.Errorf("parse weapons.json: %w", err)
	}

	for i := range c.weapons {
		w := &c.weapons[i]
		if _, err := ParseFaction(string(w.Faction)); err != nil {
			return nil, fmt.Errorf("weapon %q: %w", w.DisplayName, err)
		}
		w.Slug = Slugify(w.DisplayName)
		if w.Slug == "" || w.Slug == UnassignedWeapon {
			return nil, fmt.Errorf("weapon %q has no usable slug", w.DisplayName)
		}
		if _, dup := c.bySlug[w.Slug]; dup {
			return nil, fmt.Errorf("duplicate weapon slug %q", w.Slug)
		}
		c.bySlug[w.Slug] = i
	}
	for i, m := range c.maps {
		c.byFile[m.FileName] = i
	}
	return c, nil
}

// Maps lists the maps, optionally only those in the current war.
func (c *Catalog) Maps(activeOnly bool) []Map {
	out := make([]Map, 0, len(c.maps))
	for _, m := range c.maps {
		if activeOnly && !m.Active {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Weapons lists the weapons usable by faction. Weapons of faction Both are
// usable by everyone. An empty faction lists every weapon.
func (c *Catalog) Weapons(faction Faction) []Weapon {
	out := make([]Weapon, 0, len(c.weapons))
	for _, w := range c.weapons {
		if faction != "" && w.Faction != faction && w.Faction != Both {
			continue
		}
		out = append(out, w)
	}
	return out
}

func (c *Catalog) Weapon(slug string) (Weapon, error) {
	i, ok := c.bySlug[slug]
	if !ok {
		return Weapon{}, fmt.Errorf("%w: %s", ErrUnknownWeapon, slug)
	}
	return c.weapons[i], nil
}

func (c *Catalog) Map(fileName string) (Map, error) {
	i, ok := c.byFile[fileName]
	if !ok {
		return Map{}, fmt.Errorf("%w: %s", ErrUnknownMap, fileName)
	}
	return c.maps[i], nil
}

// ValidWeaponID reports whether id is a known slug or means "no weapon".
func (c *Catalog) ValidWeaponID(id string) bool {
	if id == "" || id == UnassignedWeapon {
		return true
	}
	_, ok := c.bySlug[id]
	return ok
}
