package migrate

import (
	"github.com/teranos/citykit/core"
	"github.com/teranos/citykit/project"
	"github.com/teranos/citykit/version"
)

// Status summarises whether a project can be opened as is.
type Status int

const (
	// StatusOK: the project matches its core.
	StatusOK Status = iota
	// StatusNeedsMigration: migrations are pending.
	StatusNeedsMigration
	// StatusError: the project cannot be opened with this core or tool.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNeedsMigration:
		return "needs-migration"
	default:
		return "error"
	}
}

// Check resolves without side effects and classifies the outcome. The plan
// is nil when status is StatusError.
func Check(caller version.ToolVersion, prefs project.Preferences, desc core.Descriptor, names []string) (Status, *Plan, error) {
	plan, err := Resolve(caller, prefs, desc, names)
	switch {
	case err != nil:
		return StatusError, nil, err
	case plan.Empty():
		return StatusOK, plan, nil
	default:
		return StatusNeedsMigration, plan, nil
	}
}
