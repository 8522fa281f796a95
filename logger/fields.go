package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across citykit.
const (
	FieldRunID     = "run_id"
	FieldComponent = "component"
	FieldOperation = "operation"

	// Projects and cores
	FieldProject            = "project"
	FieldCore               = "core"
	FieldCoreVersion        = "core_version"
	FieldCoreFeatureVersion = "core_feature_version"
	FieldTargetVersion      = "target_version"
	FieldMigration          = "migration"
	FieldVersion            = "version"

	// Files
	FieldPath       = "path"
	FieldBackup     = "backup"
	FieldCompressed = "compressed"
	FieldSize       = "size"
	FieldURL        = "url"

	// Outcomes
	FieldCount      = "count"
	FieldDurationMS = "duration_ms"
	FieldError      = "error"
	FieldStatus     = "status"
)

type contextKey string

const (
	runIDKey     contextKey = "logger_run_id"
	componentKey contextKey = "logger_component"
)

// WithRunID adds a migration run ID to the context for logging
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext returns the run ID stored by WithRunID, or "".
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if runID, ok := ctx.Value(runIDKey).(string); ok && runID != "" {
		fields = append(fields, FieldRunID, runID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// FromContext returns base (or the global logger when base is nil) with the
// fields carried by ctx attached.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	runner := migrate.NewRunner(store, prefs, catalog,
//	    migrate.WithLogger(logger.ComponentLogger("migrate")))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
