package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/citykit/am"
	"github.com/teranos/citykit/cmd/citykit/commands"
	"github.com/teranos/citykit/errors"
	"github.com/teranos/citykit/logger"
)

var rootCmd = &cobra.Command{
	Use:   "citykit",
	Short: "citykit - city project migrations and tooling",
	Long: `citykit - migrate, inspect and decode city builder projects.

A project is a directory holding city.json (or city.json.gz) and
preferences.json. Each project targets a core: a versioned package of
schema migrations installed under the cores directory.

Available commands:
  migrate - Bring a project up to its core's schema version
  check   - Report whether a project needs migrating
  decode  - Print a project's city with packed fields expanded
  cores   - Install, update and list cores
  history - Show recorded migration runs
  am      - Manage citykit configuration ("I am")
  version - Show version information

Examples:
  citykit cores add https://github.com/example/mm2-core
  citykit migrate ./downtown                   # count pending migrations
  citykit migrate ./downtown --confirm         # run them
  citykit decode ./downtown --format yaml`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("log-json")

		if cfg, err := am.Load(); err == nil {
			logger.SetTheme(cfg.GetLogTheme())
			jsonLogs = jsonLogs || cfg.Log.JSON
		}
		if err := logger.InitializeWithVerbosity(jsonLogs, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		logger.Debugw("Logger initialized",
			"verbosity", logger.LevelName(verbosity),
			"json", jsonLogs)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	rootCmd.AddCommand(commands.MigrateCmd)
	rootCmd.AddCommand(commands.CheckCmd)
	rootCmd.AddCommand(commands.DecodeCmd)
	rootCmd.AddCommand(commands.CoresCmd)
	rootCmd.AddCommand(commands.HistoryCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	err := rootCmd.Execute()
	logger.Cleanup()
	if err != nil {
		verbosity, _ := rootCmd.PersistentFlags().GetCount("verbose")
		commands.ReportError(os.Stderr, err, verbosity)
		os.Exit(1)
	}
}
