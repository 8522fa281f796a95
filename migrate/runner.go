package migrate

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/citykit/errors"
	"github.com/teranos/citykit/history"
	"github.com/teranos/citykit/logger"
	"github.com/teranos/citykit/project"
	"github.com/teranos/citykit/version"
)

// Recorder persists the outcome of a run. *history.Ledger implements it.
type Recorder interface {
	Record(ctx context.Context, run history.Run) error
}

// Result describes an Apply call.
type Result struct {
	RunID   string
	Backup  string
	Applied []Step
	// Failed is the step that returned an error, if any.
	Failed   *Step
	Duration time.Duration
}

// Runner applies plans to one project.
type Runner struct {
	store    *project.Store
	prefs    *project.Preferences
	catalog  *Catalog
	logger   *zap.SugaredLogger
	recorder Recorder
	tool     version.ToolVersion
	now      func() time.Time
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithLogger sets the runner's logger
func WithLogger(l *zap.SugaredLogger) RunnerOption {
	return func(r *Runner) { r.logger = logger.OrNop(l) }
}

// WithRecorder records every run that gets past planning.
func WithRecorder(rec Recorder) RunnerOption {
	return func(r *Runner) { r.recorder = rec }
}

// WithToolVersion tags recorded runs with the calling editor's version.
func WithToolVersion(v version.ToolVersion) RunnerOption {
	return func(r *Runner) { r.tool = v }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// NewRunner returns a runner that reads and writes the project behind
// store. prefs is updated in place after a successful Apply.
func NewRunner(store *project.Store, prefs *project.Preferences, catalog *Catalog, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:   store,
		prefs:   prefs,
		catalog: catalog,
		logger:  zap.NewNop().Sugar(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Describe logs the plan and returns its length.
func (r *Runner) Describe(plan *Plan) int {
	if plan.Empty() {
		r.logger.Infow("Project is up to date",
			logger.FieldProject, r.store.Dir(),
			logger.FieldCore, r.prefs.Core)
		return 0
	}
	for _, step := range plan.Sorted() {
		r.logger.Infow("Pending migration",
			logger.FieldMigration, step.Name,
			logger.FieldVersion, step.Version)
	}
	r.logger.Infow("Migrations pending",
		logger.FieldCore, plan.Core,
		logger.FieldCoreVersion, plan.FromVersion,
		logger.FieldTargetVersion, plan.TargetVersion,
		logger.FieldCount, plan.Len())
	return plan.Len()
}

// Apply backs up the city document, then runs the plan's steps in version
// order against a working copy of the document and preferences. Both are
// written only after every step succeeds; on failure the project on disk
// is untouched and the error is marked ErrMigrationFailed.
//
// The Preferences passed to NewRunner are updated only on success. A failed
// run discards the preference changes made by the steps that completed
// before it, so the caller's value keeps matching preferences.json.
//
// An empty plan does nothing and creates no backup.
func (r *Runner) Apply(ctx context.Context, plan *Plan) (*Result, error) {
	if plan.Empty() {
		return &Result{}, nil
	}

	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx, r.logger)
	start := r.now()
	res := &Result{RunID: runID}

	steps := plan.Sorted()
	migrations := make([]Migration, len(steps))
	for i, step := range steps {
		m, err := r.catalog.Lookup(step.Name)
		if err != nil {
			return nil, err
		}
		migrations[i] = m
	}

	backup, err := r.store.Backup(plan.FromVersion)
	if err != nil {
		return nil, errors.Wrap(err, "back up before migrating")
	}
	res.Backup = backup

	run := history.Run{
		ID:          runID,
		Project:     r.store.Dir(),
		Core:        plan.Core,
		ToolVersion: r.tool.String(),
		FromVersion: plan.FromVersion,
		ToVersion:   plan.TargetVersion,
		Steps:       len(steps),
		Backup:      backup,
		StartedAt:   start,
	}

	fail := func(step Step, cause error) (*Result, error) {
		res.Failed = &step
		res.Duration = r.now().Sub(start)
		err := errors.Wrapf(cause, "migration %s (version %d)", step.Name, step.Version)
		err = errors.WithHintf(errors.Mark(err, ErrMigrationFailed),
			"the project was backed up to %s", backup)

		log.Errorw("Migration failed",
			logger.FieldMigration, step.Name,
			logger.FieldVersion, step.Version,
			logger.FieldBackup, backup,
			logger.FieldError, cause)

		run.Applied = len(res.Applied)
		run.Status = history.StatusFailed
		run.FailedStep = step.Name
		run.Error = cause.Error()
		r.record(ctx, log, run)
		return res, err
	}

	doc, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	work := r.prefs.Clone()

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return fail(step, err)
		}

		log.Infow("Applying migration",
			logger.FieldMigration, step.Name,
			logger.FieldVersion, step.Version)
		stepStart := r.now()

		next, err := migrations[i].Apply(ctx, doc, work)
		if err != nil {
			return fail(step, err)
		}
		if next != nil {
			doc = next
		}
		res.Applied = append(res.Applied, step)

		log.Debugw("Applied migration",
			logger.FieldMigration, step.Name,
			logger.FieldDurationMS, r.now().Sub(stepStart).Milliseconds())
	}

	work.CoreVersion = plan.TargetVersion
	work.CoreFeatureVersion = plan.TargetFeatureVersion

	if err := r.store.Save(doc); err != nil {
		return nil, errors.WithHintf(err, "the project was backed up to %s", backup)
	}
	if err := work.Save(r.store.Dir()); err != nil {
		return nil, errors.WithHintf(err, "the project was backed up to %s", backup)
	}
	*r.prefs = *work

	res.Duration = r.now().Sub(start)
	run.Applied = len(res.Applied)
	run.Status = history.StatusApplied
	run.FinishedAt = start.Add(res.Duration)
	r.record(ctx, log, run)

	log.Infow("Project migrated",
		logger.FieldCore, plan.Core,
		logger.FieldCoreVersion, plan.FromVersion,
		logger.FieldTargetVersion, plan.TargetVersion,
		logger.FieldCount, len(res.Applied),
		logger.FieldDurationMS, res.Duration.Milliseconds())
	return res, nil
}

func (r *Runner) record(ctx context.Context, log *zap.SugaredLogger, run history.Run) {
	if r.recorder == nil {
		return
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = r.now()
	}
	// the context may already be cancelled; the run still gets recorded
	if err := r.recorder.Record(context.WithoutCancel(ctx), run); err != nil {
		log.Warnw("Failed to record migration run",
			logger.FieldRunID, run.ID,
			logger.FieldError, err)
	}
}
