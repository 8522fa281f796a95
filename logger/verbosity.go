package logger

import "go.uber.org/zap/zapcore"

// Verbosity level constants for CLI flag counts.
const (
	VerbosityUser  = 0 // No flags: results and errors only
	VerbosityInfo  = 1 // -v: + progress, backups, per-migration status
	VerbosityDebug = 2 // -vv: + resolver decisions, file I/O, config details
	VerbosityAll   = 3 // -vvv: + error stack traces
)

// VerbosityToLevel maps verbosity flags (-v, -vv, etc.) to zap log levels
//
// Mapping:
//
//	0 (none)  -> WarnLevel
//	1 (-v)    -> InfoLevel
//	2+ (-vv)  -> DebugLevel
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity <= VerbosityUser:
		return zapcore.WarnLevel
	case verbosity == VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// OutputCategory is a kind of CLI output gated by verbosity rather than
// severity.
type OutputCategory int

const (
	OutputResults OutputCategory = iota // counts, summaries
	OutputErrors                        // errors with hints
	OutputProgress                      // one line per migration step
	OutputPlan                          // resolver inputs and selected steps
	OutputDataDump                      // full error chains with stack traces
)

var categoryLevels = map[OutputCategory]int{
	OutputResults:  VerbosityUser,
	OutputErrors:   VerbosityUser,
	OutputProgress: VerbosityInfo,
	OutputPlan:     VerbosityDebug,
	OutputDataDump: VerbosityAll,
}

// ShouldOutput returns true if the given category should be shown at the given verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		return verbosity >= VerbosityAll
	}
	return verbosity >= minLevel
}

// LevelName returns a human-readable name for verbosity level
func LevelName(verbosity int) string {
	switch verbosity {
	case VerbosityUser:
		return "User"
	case VerbosityInfo:
		return "Info (-v)"
	case VerbosityDebug:
		return "Debug (-vv)"
	case VerbosityAll:
		return "All (-vvv)"
	default:
		if verbosity > VerbosityAll {
			return "All (-vvv+)"
		}
		return "Unknown"
	}
}
