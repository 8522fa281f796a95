package core

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/teranos/citykit/errors"
)

// Descriptor files, in lookup order.
const (
	SettingsJSON = "settings.json"
	SettingsTOML = "settings.toml"
)

// ErrNoDescriptor is returned when a core directory has no settings file.
var ErrNoDescriptor = errors.New("core has no settings file")

// Descriptor is the version block of a core's settings. Missing versions
// read as 0.
type Descriptor struct {
	CoreVersion        int    `json:"coreVersion"`
	CoreFeatureVersion int    `json:"coreFeatureVersion"`
	ProgramVersion     int    `json:"programVersion"`
	FeatureVersion     int    `json:"featureVersion"`
	Version            string `json:"version,omitempty"`
}

// rawDescriptor accepts numbers with a zero fraction; settings files are
// hand edited.
type rawDescriptor struct {
	CoreVersion        float64 `json:"coreVersion" toml:"coreVersion"`
	CoreFeatureVersion float64 `json:"coreFeatureVersion" toml:"coreFeatureVersion"`
	ProgramVersion     float64 `json:"programVersion" toml:"programVersion"`
	FeatureVersion     float64 `json:"featureVersion" toml:"featureVersion"`
	Version            string  `json:"version" toml:"version"`
}

// LoadDescriptor reads settings.json from dir, falling back to settings.toml.
func LoadDescriptor(dir string) (Descriptor, error) {
	jsonPath := filepath.Join(dir, SettingsJSON)
	data, err := os.ReadFile(jsonPath)
	if err == nil {
		var raw rawDescriptor
		if err := json.Unmarshal(data, &raw); err != nil {
			return Descriptor{}, errors.Wrapf(err, "parse %s", jsonPath)
		}
		return raw.descriptor(jsonPath)
	}
	if !os.IsNotExist(err) {
		return Descriptor{}, errors.Wrapf(err, "read %s", jsonPath)
	}

	tomlPath := filepath.Join(dir, SettingsTOML)
	var raw rawDescriptor
	if _, err := toml.DecodeFile(tomlPath, &raw); err != nil {
		if os.IsNotExist(err) {
			return Descriptor{}, errors.WithHintf(
				errors.Wrapf(ErrNoDescriptor, "%s", dir),
				"a core needs %s or %s", SettingsJSON, SettingsTOML)
		}
		return Descriptor{}, errors.Wrapf(err, "parse %s", tomlPath)
	}
	return raw.descriptor(tomlPath)
}

func (r rawDescriptor) descriptor(path string) (Descriptor, error) {
	d := Descriptor{Version: r.Version}
	for _, f := range []struct {
		name string
		v    float64
		dst  *int
	}{
		{"coreVersion", r.CoreVersion, &d.CoreVersion},
		{"coreFeatureVersion", r.CoreFeatureVersion, &d.CoreFeatureVersion},
		{"programVersion", r.ProgramVersion, &d.ProgramVersion},
		{"featureVersion", r.FeatureVersion, &d.FeatureVersion},
	} {
		if f.v != math.Trunc(f.v) || f.v < 0 || f.v > math.MaxInt32 {
			return Descriptor{}, errors.Newf("%s: %s must be a non-negative integer, got %v", path, f.name, f.v)
		}
		*f.dst = int(f.v)
	}
	return d, nil
}
