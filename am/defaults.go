package am

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	home := citykitHome()

	v.SetDefault("project.default_core", DefaultCore)
	v.SetDefault("project.compress", true)

	v.SetDefault("cores.dir", filepath.Join(home, "cores"))

	v.SetDefault("tool.program_version", 1)
	v.SetDefault("tool.feature_version", 0)

	v.SetDefault("history.path", filepath.Join(home, "history.db"))

	v.SetDefault("log.json", false)
	v.SetDefault("log.theme", "everforest")
}

// BindEnvVars binds the settings most often overridden per shell
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("cores.dir", "CITYKIT_CORES_DIR")
	v.BindEnv("history.path", "CITYKIT_HISTORY_PATH")
	v.BindEnv("log.theme", "CITYKIT_LOG_THEME")
}

// citykitHome returns ~/.citykit, or .citykit when no home directory is known.
func citykitHome() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".citykit"
	}
	return filepath.Join(home, ".citykit")
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// GetCoresDir returns the cores directory with ~ expanded
func (c *Config) GetCoresDir() string {
	return ExpandHome(c.Cores.Dir)
}

// GetHistoryPath returns the ledger path with ~ expanded, or "" when history
// is disabled.
func (c *Config) GetHistoryPath() string {
	return ExpandHome(c.History.Path)
}

// GetDefaultCore returns the configured default core (default: MidtownMadness2)
func (c *Config) GetDefaultCore() string {
	if c.Project.DefaultCore == "" {
		return DefaultCore
	}
	return c.Project.DefaultCore
}

// GetLogTheme returns the log theme (default: everforest)
func (c *Config) GetLogTheme() string {
	if c.Log.Theme == "" {
		return "everforest"
	}
	return c.Log.Theme
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Cores: %s, Tool: %d.%d, History: %q}",
		c.Cores.Dir, c.Tool.ProgramVersion, c.Tool.FeatureVersion, c.History.Path)
}
