package migrate

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/citykit/errors"
	"github.com/teranos/citykit/logger"
)

// ScriptExt is the extension of script migrations shipped with a core.
const ScriptExt = ".js"

// Catalog is every migration available for one core: the scripts in its
// migrations directory plus the compiled-in registry.
type Catalog struct {
	dir      string
	registry *Registry
	logger   *zap.SugaredLogger
	names    []string
	scripts  map[string]*JSMigration
}

// Discover lists dir for *.js migrations. A missing dir is an empty
// catalog, since cores at version 0 ship no migrations. registry may be nil.
func Discover(dir string, registry *Registry, log *zap.SugaredLogger) (*Catalog, error) {
	c := &Catalog{
		dir:      dir,
		registry: registry,
		logger:   logger.OrNop(log),
		scripts:  make(map[string]*JSMigration),
	}

	entries, err := os.ReadDir(dir)
	switch {
	case os.IsNotExist(err):
		c.logger.Debugw("No migrations directory", logger.FieldPath, dir)
	case err != nil:
		return nil, errors.Wrapf(err, "list migrations in %s", dir)
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), ScriptExt) {
			continue
		}
		name := entry.Name()
		c.names = append(c.names, name)
		c.scripts[name] = NewJSMigration(filepath.Join(dir, name), c.logger)
	}
	sort.Strings(c.names)

	if registry != nil {
		for _, v := range registry.Versions() {
			c.names = append(c.names, strconv.Itoa(v))
		}
	}

	c.logger.Debugw("Discovered migrations",
		logger.FieldPath, dir,
		logger.FieldCount, len(c.names))
	return c, nil
}

// Dir is the scanned migrations directory
func (c *Catalog) Dir() string { return c.dir }

// Names returns the migration names, scripts first.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Lookup returns the migration behind a name from Names.
func (c *Catalog) Lookup(name string) (Migration, error) {
	if strings.HasSuffix(name, ScriptExt) {
		if m, ok := c.scripts[name]; ok {
			return m, nil
		}
		return nil, errors.Wrapf(ErrUnknownMigration, "%s not found in %s", name, c.dir)
	}

	if c.registry != nil && !strings.Contains(name, ".") {
		if v, err := ParseName(name); err == nil {
			if m, ok := c.registry.Get(v); ok {
				return m, nil
			}
		}
	}
	return nil, errors.Wrapf(ErrUnknownMigration, "%s", name)
}
