package migrate

import "sort"

// Step is one selected migration.
type Step struct {
	Name    string
	Version int
}

// Plan is the ordered work needed to bring a project up to its core.
type Plan struct {
	Core string
	// FromVersion is the project's core version before the run; it names
	// the backup.
	FromVersion int
	// Target versions are written to the preferences after a successful run.
	TargetVersion        int
	TargetFeatureVersion int
	// Steps are in discovery order; Sorted orders them for execution.
	Steps []Step
}

// Empty reports whether there is nothing to run
func (p *Plan) Empty() bool {
	return p == nil || len(p.Steps) == 0
}

// Len is the number of pending steps
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Steps)
}

// Sorted returns the steps in ascending version order. Steps sharing a
// version keep their relative order.
func (p *Plan) Sorted() []Step {
	if p == nil {
		return nil
	}
	steps := make([]Step, len(p.Steps))
	copy(steps, p.Steps)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Version < steps[j].Version })
	return steps
}
