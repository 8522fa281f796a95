package migrate

import "github.com/teranos/citykit/errors"

// Resolution errors. Each is wrapped with the versions involved; match
// with errors.Is.
var (
	// ErrIncompatibleNewerCore: the core needs a newer editor than the caller.
	ErrIncompatibleNewerCore = errors.New("core requires a newer program version")
	// ErrIncompatibleOlderCore: the core targets an older program version.
	ErrIncompatibleOlderCore = errors.New("core targets an older program version")
	// ErrStaleCore: the project was saved by a newer core than the installed one.
	ErrStaleCore = errors.New("project was saved with a newer core")
	// ErrMalformedMigrationName: a migration name is not <digits>[.<ext>].
	ErrMalformedMigrationName = errors.New("malformed migration name")
	// ErrMissingMigrations: the core does not ship every step to its version.
	ErrMissingMigrations = errors.New("missing migrations")
)

// ErrMigrationFailed marks an error returned by a migration step.
var ErrMigrationFailed = errors.New("migration failed")

// ErrUnknownMigration is returned when a plan names a migration the catalog
// cannot load.
var ErrUnknownMigration = errors.New("unknown migration")
