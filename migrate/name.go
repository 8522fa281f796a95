package migrate

import (
	"strconv"
	"strings"

	"github.com/teranos/citykit/errors"
)

// ParseName extracts the version from a migration name: "<digits>" or
// "<digits>.<ext>". The version must be at least 1.
func ParseName(name string) (int, error) {
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return 0, errors.Wrapf(ErrMalformedMigrationName, "%q has more than one dot", name)
	}

	digits := parts[0]
	if digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return 0, errors.Wrapf(ErrMalformedMigrationName, "%q does not start with a version number", name)
	}

	v, err := strconv.Atoi(digits)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedMigrationName, "%q: version out of range", name)
	}
	if v < 1 {
		return 0, errors.Wrapf(ErrMalformedMigrationName, "%q: versions start at 1", name)
	}
	return v, nil
}
