package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbedded(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.NotEmpty(t, c.Maps(false))
	assert.NotEmpty(t, c.Weapons(""))

	w, err := c.Weapon("cremari-mortar")
	require.NoError(t, err)
	assert.Equal(t, Both, w.Faction)
	assert.Equal(t, 45.0, w.Ballistics().MinRange)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Cremari Mortar":               "cremari-mortar",
		`120-68 "Koronides" Field Gun`: "120-68-koronides-field-gun",
		"Flood Mk. IX Stain":           "flood-mk-ix-stain",
		"  --Storm   Cannon-- ":        "storm-cannon",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

const testMaps = `[
  {"type": "webp", "displayName": "Deadlands", "fileName": "MapDeadLandsHex", "active": true},
  {"type": "webp", "displayName": "Old Map", "fileName": "MapOldHex", "active": false}
]`

const testWeapons = `[
  {"faction": "Both", "displayName": "Mortar", "minRange": 45, "maxRange": 80, "accRadius": [2.5, 9.45], "windDrift": [1, 2]},
  {"faction": "Colonial", "displayName": "Colonial Gun", "minRange": 100, "maxRange": 250, "accRadius": [25, 35], "windDrift": [1, 2]},
  {"faction": "Warden", "displayName": "Warden Gun", "minRange": 100, "maxRange": 300, "accRadius": [25, 35], "windDrift": [1, 2]}
]`

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Parse([]byte(testMaps), []byte(testWeapons))
	require.NoError(t, err)
	return c
}

func slugs(ws []Weapon) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Slug
	}
	return out
}

func TestWeaponsByFaction(t *testing.T) {
	c := testCatalog(t)

	assert.Equal(t, []string{"mortar", "colonial-gun"}, slugs(c.Weapons(Colonial)))
	assert.Equal(t, []string{"mortar", "warden-gun"}, slugs(c.Weapons(Warden)))
	assert.Equal(t, []string{"mortar"}, slugs(c.Weapons(Both)))
	assert.Len(t, c.Weapons(""), 3)
}

func TestMapsActiveOnly(t *testing.T) {
	c := testCatalog(t)

	assert.Len(t, c.Maps(false), 2)
	require.Len(t, c.Maps(true), 1)
	assert.Equal(t, "MapDeadLandsHex", c.Maps(true)[0].FileName)
}

func TestLookupErrors(t *testing.T) {
	c := testCatalog(t)

	_, err := c.Weapon("railgun")
	assert.ErrorIs(t, err, ErrUnknownWeapon)
	assert.EqualError(t, err, "unknown weapon: railgun")

	_, err = c.Map("MapNowhere")
	assert.ErrorIs(t, err, ErrUnknownMap)

	m, err := c.Map("MapOldHex")
	require.NoError(t, err)
	assert.False(t, m.Active)
}

func TestValidWeaponID(t *testing.T) {
	c := testCatalog(t)

	assert.True(t, c.ValidWeaponID(""))
	assert.True(t, c.ValidWeaponID(UnassignedWeapon))
	assert.True(t, c.ValidWeaponID("warden-gun"))
	assert.False(t, c.ValidWeaponID("Warden Gun"))
}

func TestParseRejectsBadData(t *testing.T) {
	_, err := Parse([]byte(testMaps), []byte(`[{"faction": "Pirates", "displayName": "X"}]`))
	assert.ErrorIs(t, err, ErrUnknownFaction)

	_, err = Parse([]byte(testMaps), []byte(`[
		{"faction": "Both", "displayName": "Gun"},
		{"faction": "Both", "displayName": "gun!"}
	]`))
	assert.ErrorContains(t, err, "duplicate")

	_, err = Parse([]byte(`{`), []byte(testWeapons))
	assert.Error(t, err)
}

func TestLoadFromDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "maps.json"), []byte(testMaps), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "weapons.json"), []byte(testWeapons), 0o644))

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Len(t, c.Weapons(""), 3)

	_, err = Load(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestParseFaction(t *testing.T) {
	f, err := ParseFaction("Warden")
	require.NoError(t, err)
	assert.Equal(t, Warden, f)

	_, err = ParseFaction("warden")
	assert.ErrorIs(t, err, ErrUnknownFaction)
}
