package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/citykit/errors"
)

func TestLoadDescriptor_JSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, SettingsJSON), `{
		"coreVersion": 5,
		"coreFeatureVersion": 2.0,
		"programVersion": 1,
		"featureVersion": 3,
		"version": "1.4",
		"roadTypes": ["street", "highway"]
	}`)

	d, err := LoadDescriptor(dir)
	require.NoError(t, err)
	assert.Equal(t, Descriptor{
		CoreVersion:        5,
		CoreFeatureVersion: 2,
		ProgramVersion:     1,
		FeatureVersion:     3,
		Version:            "1.4",
	}, d)
}

func TestLoadDescriptor_TOMLFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, SettingsTOML), `
coreVersion = 4
programVersion = 2
version = "beta"
`)

	d, err := LoadDescriptor(dir)
	require.NoError(t, err)
	assert.Equal(t, 4, d.CoreVersion)
	assert.Equal(t, 0, d.CoreFeatureVersion, "missing versions read as 0")
	assert.Equal(t, 2, d.ProgramVersion)
	assert.Equal(t, "beta", d.Version)
}

func TestLoadDescriptor_JSONWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, SettingsJSON), `{"coreVersion": 1}`)
	writeFile(t, filepath.Join(dir, SettingsTOML), `coreVersion = 9`)

	d, err := LoadDescriptor(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, d.CoreVersion)
}

func TestLoadDescriptor_Errors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, err := LoadDescriptor(t.TempDir())
		assert.True(t, errors.Is(err, ErrNoDescriptor))
	})

	for name, body := range map[string]string{
		"fractional": `{"coreVersion": 1.5}`,
		"negative":   `{"programVersion": -1}`,
		"string":     `{"coreVersion": "3"}`,
		"broken":     `{"coreVersion": `,
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, SettingsJSON), body)
			_, err := LoadDescriptor(dir)
			assert.Error(t, err)
		})
	}
}

func TestNameFromURL(t *testing.T) {
	tests := map[string]string{
		"https://github.com/user/mm2-core":     "mm2-core",
		"https://github.com/user/mm2-core.git": "mm2-core",
		"git@github.com:user/crashday.git":     "crashday",
		"file:///srv/git/cores/mm2":            "mm2",
		"/local/path/core/":                    "core",
	}
	for in, want := range tests {
		assert.Equal(t, want, NameFromURL(in), in)
	}
}

func TestNormalizeRepoURL(t *testing.T) {
	assert.Equal(t, "https://github.com/u/r.git", NormalizeRepoURL("https://github.com/u/r/"))
	assert.Equal(t, "https://example.com/u/r", NormalizeRepoURL("https://example.com/u/r"))
	assert.Equal(t, "/srv/core", NormalizeRepoURL("/srv/core"))
	assert.True(t, IsRepoURL("git@github.com:u/r.git"))
	assert.False(t, IsRepoURL("/srv/core"))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
