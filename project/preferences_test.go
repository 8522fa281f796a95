package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPreferences_Missing(t *testing.T) {
	prefs, err := LoadPreferences(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultCore, prefs.Core)
	assert.Zero(t, prefs.CoreVersion)
	assert.Zero(t, prefs.CoreFeatureVersion)
}

func TestLoadPreferencesWithDefault(t *testing.T) {
	dir := t.TempDir()
	writePrefs(t, dir, `{"coreVersion": 2}`)

	prefs, err := LoadPreferencesWithDefault(dir, "Crashday")
	require.NoError(t, err)
	assert.Equal(t, "Crashday", prefs.Core)
	assert.Equal(t, 2, prefs.CoreVersion)
}

func TestPreferences_PreservesUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	writePrefs(t, dir, `{
    "core": "MidtownMadness2",
    "coreVersion": 3,
    "coreFeatureVersion": 1.0,
    "overlayTex": "overlay.png",
    "camera": {"zoom": 2.5, "pos": [1, 2]}
}`)

	prefs, err := LoadPreferences(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, prefs.CoreVersion)
	assert.Equal(t, 1, prefs.CoreFeatureVersion)

	var overlay string
	ok, err := prefs.Get("overlayTex", &overlay)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "overlay.png", overlay)

	prefs.CoreVersion = 5
	require.NoError(t, prefs.Save(dir))

	data, err := os.ReadFile(filepath.Join(dir, PreferencesFile))
	require.NoError(t, err)

	var saved map[string]any
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, 5.0, saved["coreVersion"])
	assert.Equal(t, "overlay.png", saved["overlayTex"])
	assert.Equal(t, map[string]any{"zoom": 2.5, "pos": []any{1.0, 2.0}}, saved["camera"])
	assert.Contains(t, string(data), "\n    \"camera\"", "4-space indent")
}

func TestPreferences_InvalidVersions(t *testing.T) {
	for _, body := range []string{
		`{"coreVersion": "three"}`,
		`{"coreVersion": 2.5}`,
		`{"coreFeatureVersion": -1}`,
		`[1, 2]`,
	} {
		dir := t.TempDir()
		writePrefs(t, dir, body)
		_, err := LoadPreferences(dir)
		assert.Error(t, err, body)
	}
}

func TestPreferences_SetGetKeys(t *testing.T) {
	prefs := &Preferences{Core: DefaultCore}

	require.NoError(t, prefs.Set("coreVersion", 7))
	require.NoError(t, prefs.Set("gridSize", 16))
	assert.Equal(t, 7, prefs.CoreVersion)

	var grid int
	ok, err := prefs.Get("gridSize", &grid)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 16, grid)

	ok, err = prefs.Get("missing", &grid)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []string{"core", "coreFeatureVersion", "coreVersion", "gridSize"}, prefs.Keys())
}

func TestPreferences_MapRoundTrip(t *testing.T) {
	prefs := &Preferences{Core: "X", CoreVersion: 2}
	require.NoError(t, prefs.Set("theme", "dark"))

	m, err := prefs.ToMap()
	require.NoError(t, err)
	assert.Equal(t, "X", m["core"])
	assert.Equal(t, 2.0, m["coreVersion"])

	m["coreVersion"] = 4.0
	m["added"] = true
	require.NoError(t, prefs.ReplaceFromMap(m))

	assert.Equal(t, 4, prefs.CoreVersion)
	var added bool
	ok, _ := prefs.Get("added", &added)
	assert.True(t, ok)
	assert.True(t, added)
}

func TestPreferences_Clone(t *testing.T) {
	prefs := &Preferences{Core: "X"}
	require.NoError(t, prefs.Set("k", "v"))

	c := prefs.Clone()
	require.NoError(t, c.Set("k", "changed"))
	c.CoreVersion = 9

	var v string
	_, _ = prefs.Get("k", &v)
	assert.Equal(t, "v", v)
	assert.Zero(t, prefs.CoreVersion)
}

func writePrefs(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, PreferencesFile), []byte(content), 0o644))
}
