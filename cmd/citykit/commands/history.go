package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/citykit/display"
	"github.com/teranos/citykit/history"
)

// HistoryCmd lists recorded migration runs
var HistoryCmd = &cobra.Command{
	Use:   "history [project]",
	Short: "Show recorded migration runs",
	Long: `List migration runs recorded in the history database, newest first.

Examples:
  citykit history                 # every project
  citykit history ./downtown      # one project
  citykit history --limit 5`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	HistoryCmd.Flags().Int("limit", history.DefaultListLimit, "Number of runs to show")
	display.AddJSONFlag(HistoryCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ledger, err := openLedger(cfg)
	if err != nil {
		return err
	}
	if ledger == nil {
		pterm.Info.Println("History is disabled (history.path is empty)")
		return nil
	}
	defer ledger.Close()

	proj := ""
	if len(args) == 1 {
		if proj, err = filepath.Abs(args[0]); err != nil {
			return err
		}
	}
	limit, _ := cmd.Flags().GetInt("limit")

	runs, err := ledger.List(context.Background(), proj, limit)
	if err != nil {
		return err
	}
	if display.ShouldOutputJSON(cmd) {
		if runs == nil {
			runs = []history.Run{}
		}
		return display.OutputJSON(runs)
	}
	if len(runs) == 0 {
		pterm.Info.Println("No migration runs recorded")
		return nil
	}

	rows := pterm.TableData{{"WHEN", "PROJECT", "CORE", "FROM", "TO", "STEPS", "STATUS", "BACKUP"}}
	for _, r := range runs {
		status := r.Status
		if r.FailedStep != "" {
			status = fmt.Sprintf("%s at %s", r.Status, r.FailedStep)
		}
		rows = append(rows, []string{
			humanize.Time(r.StartedAt),
			r.Project,
			r.Core,
			fmt.Sprint(r.FromVersion),
			fmt.Sprint(r.ToVersion),
			fmt.Sprintf("%d/%d", r.Applied, r.Steps),
			status,
			r.Backup,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
