package migrate

import (
	"go.uber.org/zap"

	"github.com/teranos/citykit/core"
	"github.com/teranos/citykit/errors"
	"github.com/teranos/citykit/logger"
	"github.com/teranos/citykit/project"
	"github.com/teranos/citykit/version"
)

// Resolver decides which migrations a project needs for a core.
type Resolver struct {
	prefs  project.Preferences
	desc   core.Descriptor
	logger *zap.SugaredLogger
}

// NewResolver captures the project's preferences and the installed core's
// descriptor. log may be nil.
func NewResolver(prefs project.Preferences, desc core.Descriptor, log *zap.SugaredLogger) *Resolver {
	return &Resolver{prefs: prefs, desc: desc, logger: logger.OrNop(log)}
}

// Resolve is NewResolver(prefs, desc, nil).Resolve(caller, names).
func Resolve(caller version.ToolVersion, prefs project.Preferences, desc core.Descriptor, names []string) (*Plan, error) {
	return NewResolver(prefs, desc, nil).Resolve(caller, names)
}

// Resolve checks that caller can run the core and selects, from names, the
// migrations in (prefs.CoreVersion, desc.CoreVersion]. Checks run in a
// fixed order and the first failure wins:
//
//  1. core built for a newer program or feature version
//  2. core built for an older program version
//  3. same core version, feature version not behind: nothing to do
//  4. project saved by a newer core
//  5. malformed names, then missing steps
//
// The returned plan keeps the order of names.
func (r *Resolver) Resolve(caller version.ToolVersion, names []string) (*Plan, error) {
	d, p := r.desc, r.prefs

	r.logger.Debugw("Resolving migrations",
		logger.FieldCore, p.Core,
		"tool_version", caller.String(),
		"core_program_version", d.ProgramVersion,
		"core_feature_version_required", d.FeatureVersion,
		logger.FieldCoreVersion, p.CoreVersion,
		logger.FieldTargetVersion, d.CoreVersion,
		logger.FieldCount, len(names))

	if d.ProgramVersion > caller.Program || d.FeatureVersion > caller.Feature {
		return nil, r.versionError(ErrIncompatibleNewerCore, caller,
			"update citykit to %d.%d or later", d.ProgramVersion, d.FeatureVersion)
	}
	if d.ProgramVersion < caller.Program {
		return nil, r.versionError(ErrIncompatibleOlderCore, caller,
			"update core %s for program version %d", p.Core, caller.Program)
	}

	plan := &Plan{
		Core:                 p.Core,
		FromVersion:          p.CoreVersion,
		TargetVersion:        d.CoreVersion,
		TargetFeatureVersion: d.CoreFeatureVersion,
	}

	if d.CoreVersion == p.CoreVersion && d.CoreFeatureVersion >= p.CoreFeatureVersion {
		r.logger.Debugw("Project is up to date", logger.FieldCore, p.Core)
		return plan, nil
	}
	if d.CoreVersion < p.CoreVersion || d.CoreFeatureVersion < p.CoreFeatureVersion {
		return nil, r.versionError(ErrStaleCore, caller,
			"update core %s to %d.%d or later", p.Core, p.CoreVersion, p.CoreFeatureVersion)
	}

	hasLast := false
	for _, name := range names {
		v, err := ParseName(name)
		if err != nil {
			return nil, errors.WithDetailf(err, "core %s", p.Core)
		}
		if v > p.CoreVersion && v <= d.CoreVersion {
			plan.Steps = append(plan.Steps, Step{Name: name, Version: v})
			if v == d.CoreVersion {
				hasLast = true
			}
		}
	}

	expected := d.CoreVersion - p.CoreVersion
	if len(plan.Steps) < expected || !hasLast {
		err := errors.Wrapf(ErrMissingMigrations,
			"core %s: need %d migrations from %d to %d, found %d",
			p.Core, expected, p.CoreVersion, d.CoreVersion, len(plan.Steps))
		if !hasLast {
			err = errors.WithDetailf(err, "no migration for version %d", d.CoreVersion)
		}
		return nil, errors.WithHint(err, "the core installation is incomplete; reinstall or update it")
	}

	r.logger.Debugw("Resolved migration plan",
		logger.FieldCore, p.Core,
		logger.FieldCount, len(plan.Steps))
	return plan, nil
}

func (r *Resolver) versionError(sentinel error, caller version.ToolVersion, hintFormat string, args ...any) error {
	err := errors.Wrapf(sentinel, "core %s", r.prefs.Core)
	err = errors.WithDetailf(err,
		"tool %s; core requires program %d feature %d; core version %d.%d; project core version %d.%d",
		caller, r.desc.ProgramVersion, r.desc.FeatureVersion,
		r.desc.CoreVersion, r.desc.CoreFeatureVersion,
		r.prefs.CoreVersion, r.prefs.CoreFeatureVersion)
	return errors.WithHintf(err, hintFormat, args...)
}
