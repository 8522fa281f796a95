package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teranos/citykit/am"
	"github.com/teranos/citykit/core"
	"github.com/teranos/citykit/errors"
	"github.com/teranos/citykit/history"
	"github.com/teranos/citykit/logger"
	"github.com/teranos/citykit/version"
)

func loadConfig() (*am.Config, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

func verbosity(cmd *cobra.Command) int {
	v, _ := cmd.Flags().GetCount("verbose")
	return v
}

// ReportError writes err for the user: the message and its hints, plus the
// full error chain with stack traces at -vvv.
func ReportError(w io.Writer, err error, verbosity int) {
	if err == nil || !logger.ShouldOutput(verbosity, logger.OutputErrors) {
		return
	}
	fmt.Fprintln(w, errors.UserMessage(err))
	if logger.ShouldOutput(verbosity, logger.OutputDataDump) {
		fmt.Fprintf(w, "\n%+v\n", err)
	}
}

func coreRegistry(cfg *am.Config) *core.Registry {
	return core.NewRegistry(cfg.GetCoresDir(), logger.ComponentLogger("core"))
}

// openLedger returns nil when history is disabled.
func openLedger(cfg *am.Config) (*history.Ledger, error) {
	path := cfg.GetHistoryPath()
	if path == "" {
		return nil, nil
	}
	ledger, err := history.Open(path, logger.ComponentLogger("history"))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open history at %s", path)
	}
	return ledger, nil
}

// addToolVersionFlags registers the flags read by toolVersion.
func addToolVersionFlags(cmd *cobra.Command) {
	cmd.Flags().String("tool-version", "", "Editor version as program.feature (e.g. 3.2)")
	cmd.Flags().Int("program", -1, "Editor program version")
	cmd.Flags().Int("feature", -1, "Editor feature version")
	cmd.MarkFlagsMutuallyExclusive("tool-version", "program")
	cmd.MarkFlagsMutuallyExclusive("tool-version", "feature")
}

// toolVersion resolves the caller's version from flags, falling back to the
// [tool] section of the configuration.
func toolVersion(cmd *cobra.Command, cfg *am.Config) (version.ToolVersion, error) {
	if s, _ := cmd.Flags().GetString("tool-version"); s != "" {
		return version.ParseToolVersion(s)
	}

	tv := version.ToolVersion{
		Program: cfg.Tool.ProgramVersion,
		Feature: cfg.Tool.FeatureVersion,
	}
	if p, _ := cmd.Flags().GetInt("program"); p >= 0 {
		tv.Program = p
	}
	if f, _ := cmd.Flags().GetInt("feature"); f >= 0 {
		tv.Feature = f
	}
	return tv, nil
}
