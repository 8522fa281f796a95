package history

import (
	"database/sql"
	"embed"
	"io/fs"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/citykit/errors"
	"github.com/teranos/citykit/logger"
)

//go:embed sqlite/migrations/*.sql
var schemaFiles embed.FS

const schemaDir = "sqlite/migrations"

// ErrSchemaTooNew is returned when the database was written by a newer
// citykit than this one.
var ErrSchemaTooNew = errors.New("history schema is newer than this citykit")

type schemaStep struct {
	version int
	file    string
}

// schemaSteps lists the embedded NNN_name.sql files in version order.
func schemaSteps() ([]schemaStep, error) {
	names, err := fs.Glob(schemaFiles, schemaDir+"/*.sql")
	if err != nil {
		return nil, errors.Wrap(err, "list schema files")
	}
	steps := make([]schemaStep, 0, len(names))
	for _, name := range names {
		base := name[len(schemaDir)+1:]
		prefix, _, _ := strings.Cut(base, "_")
		v, err := strconv.Atoi(prefix)
		if err != nil || v < 1 {
			return nil, errors.Newf("schema file %s has no version prefix", base)
		}
		if n := len(steps); n > 0 && steps[n-1].version >= v {
			return nil, errors.Newf("schema file %s repeats version %d", base, v)
		}
		steps = append(steps, schemaStep{version: v, file: name})
	}
	return steps, nil
}

// SchemaVersion reports the ledger schema version stored in the database
// header (PRAGMA user_version). A fresh database is at 0.
func SchemaVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, errors.Wrap(err, "read schema version")
	}
	return v, nil
}

// Migrate brings the ledger schema up to date. Each file runs in its own
// transaction together with the user_version bump, so a failed file leaves
// the database at the previous version. log may be nil.
func Migrate(db *sql.DB, log *zap.SugaredLogger) error {
	log = logger.OrNop(log)

	steps, err := schemaSteps()
	if err != nil {
		return err
	}
	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	if latest := steps[len(steps)-1].version; current > latest {
		return errors.WithHintf(
			errors.Wrapf(ErrSchemaTooNew, "database at version %d, newest known %d", current, latest),
			"upgrade citykit or point history.path at another file")
	}

	for _, step := range steps {
		if step.version <= current {
			continue
		}
		if err := applySchemaStep(db, step); err != nil {
			return err
		}
		log.Infow("Applied history schema",
			"schema_version", step.version,
			logger.FieldPath, step.file)
		current = step.version
	}
	return nil
}

func applySchemaStep(db *sql.DB, step schemaStep) error {
	body, err := schemaFiles.ReadFile(step.file)
	if err != nil {
		return errors.Wrapf(err, "read %s", step.file)
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrapf(err, "begin %s", step.file)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(body)); err != nil {
		return errors.Wrapf(err, "execute %s", step.file)
	}
	// PRAGMA does not take bind parameters
	if _, err := tx.Exec("PRAGMA user_version = " + strconv.Itoa(step.version)); err != nil {
		return errors.Wrapf(err, "set schema version %d", step.version)
	}
	return errors.Wrapf(tx.Commit(), "commit %s", step.file)
}
