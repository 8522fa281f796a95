// Package am holds citykit's configuration ("am" as in "I am configured as").
//
// Configuration is TOML, merged from /etc/citykit/am.toml, ~/.citykit/am.toml
// and the nearest am.toml found walking up from the working directory, with
// CITYKIT_* environment variables on top.
package am

import "os"

// Config represents the citykit configuration
type Config struct {
	Project ProjectConfig `mapstructure:"project"`
	Cores   CoresConfig   `mapstructure:"cores"`
	Tool    ToolConfig    `mapstructure:"tool"`
	History HistoryConfig `mapstructure:"history"`
	Log     LogConfig     `mapstructure:"log"`
}

// ProjectConfig configures how city projects are read and written
type ProjectConfig struct {
	DefaultCore string `mapstructure:"default_core"` // core assumed when preferences name none
	Compress    bool   `mapstructure:"compress"`     // write city.json.gz for projects saved fresh
}

// CoresConfig locates installed cores
type CoresConfig struct {
	Dir string `mapstructure:"dir"` // each core lives in <dir>/<name>
}

// ToolConfig is the program/feature version citykit reports to the
// resolver when no --tool-version flag is given.
type ToolConfig struct {
	ProgramVersion int `mapstructure:"program_version"`
	FeatureVersion int `mapstructure:"feature_version"`
}

// HistoryConfig configures the migration run ledger
type HistoryConfig struct {
	Path string `mapstructure:"path"` // empty disables history
}

// LogConfig configures console logging
type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Theme string `mapstructure:"theme"` // everforest, gruvbox
}

// DefaultCore is the core shipped with the editor
const DefaultCore = "MidtownMadness2"

// File permission constants
const (
	DefaultDirPermissions  os.FileMode = 0750
	DefaultFilePermissions os.FileMode = 0644
)
