package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/citykit/am"
	"github.com/teranos/citykit/core"
	"github.com/teranos/citykit/display"
	"github.com/teranos/citykit/logger"
	"github.com/teranos/citykit/migrate"
	"github.com/teranos/citykit/project"
	"github.com/teranos/citykit/version"
)

// MigrateCmd upgrades a project to its core's schema version
var MigrateCmd = &cobra.Command{
	Use:   "migrate <project>",
	Short: "Bring a project up to its core's schema version",
	Long: `Resolve and apply the migrations a project needs.

Without --confirm the number of pending migrations is printed and nothing
is changed. With --confirm the city file is first copied to
<file>.v<old core version>.bak, then each migration runs in version order.
A failing migration stops the run and leaves the project on disk as it was.

Examples:
  citykit migrate ./downtown                        # print pending count
  citykit migrate ./downtown --confirm              # apply
  citykit migrate ./downtown --tool-version 3.2 -v  # as editor 3.2, with progress`,
	Args: cobra.ExactArgs(1),
	RunE: runMigrate,
}

func init() {
	addToolVersionFlags(MigrateCmd)
	MigrateCmd.Flags().Bool("confirm", false, "Apply the pending migrations")
}

// session is everything needed to resolve a project against its core.
type session struct {
	cfg     *am.Config
	tool    version.ToolVersion
	store   *project.Store
	prefs   *project.Preferences
	desc    core.Descriptor
	catalog *migrate.Catalog
}

func openSession(cmd *cobra.Command, dir string) (*session, error) {
	// history is keyed by absolute project path
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	tool, err := toolVersion(cmd, cfg)
	if err != nil {
		return nil, err
	}

	store, err := project.Open(dir, project.WithLogger(logger.ComponentLogger("project")))
	if err != nil {
		return nil, err
	}
	prefs, err := project.LoadPreferencesWithDefault(dir, cfg.GetDefaultCore())
	if err != nil {
		return nil, err
	}

	cores := coreRegistry(cfg)
	desc, err := cores.Descriptor(prefs.Core)
	if err != nil {
		return nil, err
	}
	catalog, err := migrate.Discover(cores.MigrationsDir(prefs.Core), nil, logger.ComponentLogger("migrate.catalog"))
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, tool: tool, store: store, prefs: prefs, desc: desc, catalog: catalog}, nil
}

func (s *session) resolve() (*migrate.Plan, error) {
	return migrate.NewResolver(*s.prefs, s.desc, logger.ComponentLogger("migrate.resolver")).
		Resolve(s.tool, s.catalog.Names())
}

func runMigrate(cmd *cobra.Command, args []string) error {
	confirm, _ := cmd.Flags().GetBool("confirm")

	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	plan, err := s.resolve()
	if err != nil {
		return err
	}

	opts := []migrate.RunnerOption{
		migrate.WithLogger(logger.ComponentLogger("migrate.runner")),
		migrate.WithToolVersion(s.tool),
	}
	if confirm {
		ledger, err := openLedger(s.cfg)
		if err != nil {
			logger.Warnw("Migration history disabled", logger.FieldError, err)
		} else if ledger != nil {
			defer ledger.Close()
			opts = append(opts, migrate.WithRecorder(ledger))
		}
	}
	runner := migrate.NewRunner(s.store, s.prefs, s.catalog, opts...)

	pending := runner.Describe(plan)
	if !confirm {
		fmt.Println(pending)
		return nil
	}
	if pending == 0 {
		if logger.ShouldOutput(verbosity(cmd), logger.OutputResults) {
			pterm.Success.Printfln("%s is up to date with core %s %d.%d",
				args[0], s.prefs.Core, s.prefs.CoreVersion, s.prefs.CoreFeatureVersion)
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logger.WithComponent(ctx, "cli.migrate")

	res, err := runner.Apply(ctx, plan)
	if err != nil {
		if res != nil && res.Failed != nil {
			pterm.Error.Printfln("Applied %d of %d migrations; %s failed",
				len(res.Applied), plan.Len(), res.Failed.Name)
		}
		return err
	}

	size := "unknown size"
	if fi, err := os.Stat(s.store.Path()); err == nil {
		size = humanize.Bytes(uint64(fi.Size()))
	}
	if logger.ShouldOutput(verbosity(cmd), logger.OutputProgress) {
		for _, step := range res.Applied {
			pterm.Info.Printfln("Applied %s (version %d)", step.Name, step.Version)
		}
	}
	pterm.Success.Printfln("Migrated %s to core %s %d.%d (%d migrations, %s)",
		args[0], plan.Core, plan.TargetVersion, plan.TargetFeatureVersion,
		len(res.Applied), res.Duration.Round(time.Millisecond))
	pterm.Info.Printfln("Backup: %s", res.Backup)
	pterm.Info.Printfln("City file: %s (%s)", s.store.Path(), size)
	return nil
}

// CheckCmd reports whether a project can be opened as is
var CheckCmd = &cobra.Command{
	Use:   "check <project>",
	Short: "Report whether a project needs migrating",
	Long: `Resolve a project against its core without changing anything.

Prints one of ok, needs-migration or error. The command fails when the
status is error.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	addToolVersionFlags(CheckCmd)
	display.AddJSONFlag(CheckCmd)
}

type checkView struct {
	Status  string   `json:"status"`
	Pending []string `json:"pending,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	status, plan, err := checkProject(cmd, args[0])

	if display.ShouldOutputJSON(cmd) {
		view := checkView{Status: status.String()}
		for _, step := range plan.Sorted() {
			view.Pending = append(view.Pending, step.Name)
		}
		if err != nil {
			view.Error = err.Error()
		}
		if jerr := display.OutputJSON(view); jerr != nil {
			return jerr
		}
		return err
	}

	fmt.Println(status)
	if err != nil {
		return err
	}
	if status == migrate.StatusNeedsMigration && logger.ShouldOutput(verbosity(cmd), logger.OutputPlan) {
		for _, step := range plan.Sorted() {
			fmt.Printf("  %s\n", step.Name)
		}
	}
	return nil
}

func checkProject(cmd *cobra.Command, dir string) (migrate.Status, *migrate.Plan, error) {
	s, err := openSession(cmd, dir)
	if err != nil {
		return migrate.StatusError, nil, err
	}
	return migrate.Check(s.tool, *s.prefs, s.desc, s.catalog.Names())
}
