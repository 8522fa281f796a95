package am

import "github.com/teranos/citykit/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Cores.Dir == "" {
		return errors.WithHint(errors.New("cores.dir cannot be empty"),
			"set cores.dir in am.toml or CITYKIT_CORES_DIR")
	}

	// Tool versions: 0 is a legitimate pre-release editor, negative is invalid
	if c.Tool.ProgramVersion < 0 {
		return errors.Newf("tool.program_version must be >= 0, got %d", c.Tool.ProgramVersion)
	}
	if c.Tool.FeatureVersion < 0 {
		return errors.Newf("tool.feature_version must be >= 0, got %d", c.Tool.FeatureVersion)
	}

	switch c.Log.Theme {
	case "", "everforest", "gruvbox":
	default:
		return errors.Newf("log.theme must be everforest or gruvbox, got %q", c.Log.Theme)
	}

	// History path is optional: empty disables the ledger
	return nil
}
