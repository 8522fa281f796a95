// Package history keeps a SQLite ledger of migration runs so a project's
// upgrade trail (and where its backups went) survives the terminal session.
package history

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/citykit/errors"
	"github.com/teranos/citykit/logger"
)

// Run statuses
const (
	StatusApplied = "applied"
	StatusFailed  = "failed"
)

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 20

// ErrDatabaseClosed is returned when the ledger is used after Close.
var ErrDatabaseClosed = errors.New("database is closed")

// Run is one migrate invocation.
type Run struct {
	ID          string    `json:"id"`
	Project     string    `json:"project"`
	Core        string    `json:"core"`
	ToolVersion string    `json:"tool_version"`
	FromVersion int       `json:"from_version"`
	ToVersion   int       `json:"to_version"`
	Steps       int       `json:"steps"`   // planned
	Applied     int       `json:"applied"` // completed before success or failure
	Status      string    `json:"status"`
	FailedStep  string    `json:"failed_step,omitempty"`
	Error       string    `json:"error,omitempty"`
	Backup      string    `json:"backup"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Duration is FinishedAt - StartedAt
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Ledger records and lists runs.
type Ledger struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// Open opens (creating if needed) the ledger database at path.
func Open(path string, log *zap.SugaredLogger) (*Ledger, error) {
	db, err := OpenDBWithMigrations(path, log)
	if err != nil {
		return nil, err
	}
	return NewLedger(db, log), nil
}

// NewLedger wraps an already migrated database.
func NewLedger(db *sql.DB, log *zap.SugaredLogger) *Ledger {
	return &Ledger{db: db, logger: logger.OrNop(log)}
}

// Close closes the underlying database
func (l *Ledger) Close() error {
	return l.db.Close()
}

const insertRun = `INSERT INTO migration_runs
	(id, project, core, tool_version, from_version, to_version, steps, applied,
	 status, failed_step, error, backup, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Record stores run. Run IDs are unique; recording the same run twice fails.
func (l *Ledger) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.NewInvalidInputError("run has no id")
	}
	if run.Status != StatusApplied && run.Status != StatusFailed {
		return errors.NewInvalidInputError("run %s: unknown status %q", run.ID, run.Status)
	}

	_, err := l.db.ExecContext(ctx, insertRun,
		run.ID, run.Project, run.Core, run.ToolVersion,
		run.FromVersion, run.ToVersion, run.Steps, run.Applied,
		run.Status, run.FailedStep, run.Error, run.Backup,
		formatTime(run.StartedAt), formatTime(run.FinishedAt),
	)
	if err != nil {
		return wrapDBError(err, "record run %s", run.ID)
	}

	l.logger.Debugw("Recorded migration run",
		logger.FieldRunID, run.ID,
		logger.FieldProject, run.Project,
		logger.FieldStatus, run.Status)
	return nil
}

const selectRuns = `SELECT id, project, core, tool_version, from_version, to_version,
	steps, applied, status, failed_step, error, backup, started_at, finished_at
	FROM migration_runs`

// List returns the most recent runs, newest first. An empty project lists
// every project; limit <= 0 means DefaultListLimit.
func (l *Ledger) List(ctx context.Context, project string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := selectRuns
	var args []any
	if project != "" {
		query += " WHERE project = ?"
		args = append(args, project)
	}
	query += " ORDER BY started_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError(err, "list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
		)
		if err := rows.Scan(&r.ID, &r.Project, &r.Core, &r.ToolVersion,
			&r.FromVersion, &r.ToVersion, &r.Steps, &r.Applied,
			&r.Status, &r.FailedStep, &r.Error, &r.Backup,
			&started, &finished); err != nil {
			return nil, wrapDBError(err, "scan run")
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, errors.Wrapf(err, "run %s started_at", r.ID)
		}
		if r.FinishedAt, err = parseTime(finished); err != nil {
			return nil, errors.Wrapf(err, "run %s finished_at", r.ID)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "list runs")
	}
	return runs, nil
}

// timestamps sort lexically in this layout
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// IsDatabaseClosed checks if an error indicates the database connection is
// closed, either ErrDatabaseClosed or the raw database/sql message.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "sql: database is closed")
}

func wrapDBError(err error, format string, args ...any) error {
	if IsDatabaseClosed(err) && !errors.Is(err, ErrDatabaseClosed) {
		err = errors.Mark(err, ErrDatabaseClosed)
	}
	return errors.Wrapf(err, format, args...)
}
