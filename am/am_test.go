package am

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Isolated viper instance: no user/system config
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, DefaultCore, cfg.Project.DefaultCore)
	assert.True(t, cfg.Project.Compress)
	assert.Equal(t, "cores", filepath.Base(cfg.Cores.Dir))
	assert.Equal(t, 1, cfg.Tool.ProgramVersion)
	assert.Equal(t, 0, cfg.Tool.FeatureVersion)
	assert.Equal(t, "history.db", filepath.Base(cfg.History.Path))
	assert.Equal(t, "everforest", cfg.Log.Theme)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{Cores: CoresConfig{Dir: "/cores"}}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"minimal config is valid", func(*Config) {}, false},
		{"empty history disables ledger", func(c *Config) { c.History.Path = "" }, false},
		{"zero tool version is valid", func(c *Config) { c.Tool = ToolConfig{} }, false},
		{"empty cores dir", func(c *Config) { c.Cores.Dir = "" }, true},
		{"negative program version", func(c *Config) { c.Tool.ProgramVersion = -1 }, true},
		{"negative feature version", func(c *Config) { c.Tool.FeatureVersion = -2 }, true},
		{"known theme", func(c *Config) { c.Log.Theme = "gruvbox" }, false},
		{"unknown theme", func(c *Config) { c.Log.Theme = "solarized" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am.toml")
	writeFile(t, path, `
[cores]
dir = "/srv/cores"

[tool]
program_version = 3
feature_version = 2
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/cores", cfg.Cores.Dir)
	assert.Equal(t, 3, cfg.Tool.ProgramVersion)
	assert.Equal(t, 2, cfg.Tool.FeatureVersion)
	// untouched sections keep their defaults
	assert.Equal(t, DefaultCore, cfg.GetDefaultCore())
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoad_Precedence(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeFile(t, filepath.Join(home, ".citykit", "am.toml"), `
[cores]
dir = "/user/cores"

[tool]
program_version = 2
`)

	project := filepath.Join(t.TempDir(), "city", "nested")
	require.NoError(t, os.MkdirAll(project, 0o755))
	writeFile(t, filepath.Join(filepath.Dir(project), "am.toml"), `
[tool]
program_version = 3
`)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(project))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("CITYKIT_LOG_THEME", "gruvbox")

	Reset()
	t.Cleanup(Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/user/cores", cfg.Cores.Dir, "user file applies")
	assert.Equal(t, 3, cfg.Tool.ProgramVersion, "project file wins over user file")
	assert.Equal(t, "gruvbox", cfg.Log.Theme, "env wins over files")
	assert.Equal(t, "/user/cores", GetString("cores.dir"))

	again, err := Load()
	require.NoError(t, err)
	assert.Same(t, cfg, again, "Load caches until Reset")
}

func TestSetValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "am.toml")

	require.NoError(t, SetValue(path, "cores.dir", "/a"))
	require.NoError(t, SetValue(path, "tool.program_version", ParseValue("4")))
	require.NoError(t, SetValue(path, "cores.dir", "/b"))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/b", cfg.Cores.Dir)
	assert.Equal(t, 4, cfg.Tool.ProgramVersion)

	// two rewrites of an existing file leave two backups
	assert.FileExists(t, path+".back1")
	assert.FileExists(t, path+".back2")
	assert.NoFileExists(t, path+".back3")

	assert.Error(t, SetValue(path, "cores..dir", "x"))
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, int64(1), ParseValue("1"))
	assert.Equal(t, true, ParseValue("true"))
	assert.Equal(t, "/srv/cores", ParseValue("/srv/cores"))
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/mm")
	assert.Equal(t, "/home/mm/.citykit/cores", ExpandHome("~/.citykit/cores"))
	assert.Equal(t, "/abs", ExpandHome("/abs"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
}

func TestConfigWatcher_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am.toml")
	writeFile(t, path, "[tool]\nprogram_version = 1\n")

	w, err := NewConfigWatcher(path)
	require.NoError(t, err)
	w.SetDebounce(10 * time.Millisecond)

	reloaded := make(chan *Config, 4)
	w.OnReload(func(c *Config) error {
		reloaded <- c
		return nil
	})
	w.Start()
	t.Cleanup(func() { w.Stop() })

	writeFile(t, path, "[tool]\nprogram_version = 5\n")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-reloaded:
			// a reload may observe the truncated file before the final write
			if cfg.Tool.ProgramVersion == 5 {
				return
			}
		case <-deadline:
			t.Fatal("config was not reloaded")
		}
	}
}

func TestConfigWatcher_IgnoresOwnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am.toml")
	writeFile(t, path, "[tool]\nprogram_version = 1\n")

	w, err := NewConfigWatcher(path)
	require.NoError(t, err)
	w.SetDebounce(10 * time.Millisecond)

	assert.False(t, w.checkOwnWrite())
	w.MarkOwnWrite()
	assert.True(t, w.checkOwnWrite())
	assert.False(t, w.checkOwnWrite(), "flag clears after one check")

	require.NoError(t, w.Stop())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
