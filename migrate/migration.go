package migrate

import (
	"context"
	"sort"
	"sync"

	"github.com/teranos/citykit/errors"
	"github.com/teranos/citykit/project"
)

// Migration moves a city document from version-1 to version. It has
// exclusive use of doc and prefs for the duration of the call and may
// mutate both. A non-nil returned document replaces doc.
type Migration interface {
	Apply(ctx context.Context, doc project.Document, prefs *project.Preferences) (project.Document, error)
}

// Func adapts an in-place transformation to Migration.
type Func func(ctx context.Context, doc project.Document, prefs *project.Preferences) error

// Apply calls f and keeps doc.
func (f Func) Apply(ctx context.Context, doc project.Document, prefs *project.Preferences) (project.Document, error) {
	if err := f(ctx, doc, prefs); err != nil {
		return nil, err
	}
	return doc, nil
}

// Registry holds migrations compiled into the binary, keyed by version.
type Registry struct {
	mu         sync.RWMutex
	migrations map[int]Migration
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{migrations: make(map[int]Migration)}
}

// Register adds m as the migration to version.
func (r *Registry) Register(version int, m Migration) error {
	if version < 1 {
		return errors.NewInvalidInputError("migration version must be >= 1, got %d", version)
	}
	if m == nil {
		return errors.NewInvalidInputError("migration %d is nil", version)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.migrations[version]; exists {
		return errors.Newf("migration %d already registered", version)
	}
	r.migrations[version] = m
	return nil
}

// MustRegister is Register for package init; it panics on error.
func (r *Registry) MustRegister(version int, m Migration) {
	if err := r.Register(version, m); err != nil {
		panic(err)
	}
}

// Get returns the migration registered for version
func (r *Registry) Get(version int) (Migration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.migrations[version]
	return m, ok
}

// Versions returns registered versions in ascending order.
func (r *Registry) Versions() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	versions := make([]int, 0, len(r.migrations))
	for v := range r.migrations {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions
}
