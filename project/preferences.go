package project

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/teranos/citykit/errors"
)

// DefaultCore is assumed for projects whose preferences name no core; the
// editor supported only Midtown Madness 2 before cores existed.
const DefaultCore = "MidtownMadness2"

// Preference keys citykit interprets. Everything else is carried through.
const (
	keyCore               = "core"
	keyCoreVersion        = "coreVersion"
	keyCoreFeatureVersion = "coreFeatureVersion"
)

// Preferences is a project's preferences.json. Keys other than the core
// identity are preserved verbatim across Load/Save.
type Preferences struct {
	Core               string
	CoreVersion        int
	CoreFeatureVersion int

	extra map[string]json.RawMessage
}

// LoadPreferences reads dir/preferences.json. A missing file yields
// defaults: DefaultCore at version 0.0.
func LoadPreferences(dir string) (*Preferences, error) {
	return LoadPreferencesWithDefault(dir, DefaultCore)
}

// LoadPreferencesWithDefault is LoadPreferences with a caller-chosen
// fallback core.
func LoadPreferencesWithDefault(dir, defaultCore string) (*Preferences, error) {
	path := filepath.Join(dir, PreferencesFile)
	prefs := &Preferences{}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, errors.Wrapf(err, "read %s", path)
	default:
		if err := json.Unmarshal(data, prefs); err != nil {
			return nil, errors.Wrapf(err, "parse %s", path)
		}
	}

	if prefs.Core == "" {
		prefs.Core = defaultCore
	}
	return prefs, nil
}

// Save writes dir/preferences.json, 4-space indented, keys sorted.
func (p *Preferences) Save(dir string) error {
	path := filepath.Join(dir, PreferencesFile)
	data, err := marshalIndent(p)
	if err != nil {
		return errors.Wrapf(err, "encode %s", path)
	}
	return writeFileAtomic(path, data)
}

// Get unmarshals the preserved key into v. It reports false when the key
// is absent.
func (p *Preferences) Get(key string, v any) (bool, error) {
	raw, ok := p.extra[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, errors.Wrapf(err, "preference %q", key)
	}
	return true, nil
}

// Set stores an arbitrary preference. The core identity keys route to
// their typed fields.
func (p *Preferences) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "preference %q", key)
	}
	switch key {
	case keyCore, keyCoreVersion, keyCoreFeatureVersion:
		return p.assignKnown(key, raw)
	}
	if p.extra == nil {
		p.extra = make(map[string]json.RawMessage)
	}
	p.extra[key] = raw
	return nil
}

// Keys returns every key Save would write, sorted.
func (p *Preferences) Keys() []string {
	keys := []string{keyCore, keyCoreVersion, keyCoreFeatureVersion}
	for k := range p.extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ToMap returns the preferences as a plain JSON object tree.
func (p *Preferences) ToMap() (map[string]any, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ReplaceFromMap overwrites p with the contents of m.
func (p *Preferences) ReplaceFromMap(m map[string]any) error {
	data, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "encode preferences")
	}
	var next Preferences
	if err := json.Unmarshal(data, &next); err != nil {
		return err
	}
	*p = next
	return nil
}

// Clone returns a deep copy
func (p *Preferences) Clone() *Preferences {
	c := *p
	if p.extra != nil {
		c.extra = make(map[string]json.RawMessage, len(p.extra))
		for k, v := range p.extra {
			c.extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &c
}

func (p Preferences) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.extra)+3)
	for k, v := range p.extra {
		out[k] = v
	}
	var err error
	if out[keyCore], err = json.Marshal(p.Core); err != nil {
		return nil, err
	}
	if out[keyCoreVersion], err = json.Marshal(p.CoreVersion); err != nil {
		return nil, err
	}
	if out[keyCoreFeatureVersion], err = json.Marshal(p.CoreFeatureVersion); err != nil {
		return nil, err
	}
	// encoding/json sorts map keys
	return json.Marshal(out)
}

func (p *Preferences) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return errors.New("preferences must be a JSON object")
	}

	*p = Preferences{extra: make(map[string]json.RawMessage)}
	for k, v := range raw {
		switch k {
		case keyCore, keyCoreVersion, keyCoreFeatureVersion:
			if err := p.assignKnown(k, v); err != nil {
				return err
			}
		default:
			p.extra[k] = v
		}
	}
	return nil
}

func (p *Preferences) assignKnown(key string, raw json.RawMessage) error {
	if string(raw) == "null" {
		return nil
	}
	if key == keyCore {
		if err := json.Unmarshal(raw, &p.Core); err != nil {
			return errors.Wrapf(err, "preference %q", key)
		}
		return nil
	}

	// 3.0 is accepted as 3
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return errors.Wrapf(err, "preference %q", key)
	}
	if f != math.Trunc(f) || f < 0 || f > math.MaxInt32 {
		return errors.Newf("preference %q: %v is not a version number", key, f)
	}
	if key == keyCoreVersion {
		p.CoreVersion = int(f)
	} else {
		p.CoreFeatureVersion = int(f)
	}
	return nil
}
