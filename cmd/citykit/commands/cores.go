package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/citykit/core"
	"github.com/teranos/citykit/display"
	"github.com/teranos/citykit/errors"
)

// CoresCmd manages installed cores
var CoresCmd = &cobra.Command{
	Use:   "cores",
	Short: "Install, update and list cores",
	Long: `Manage the cores a project can target.

A core is a git repository holding settings.json (or settings.toml) and a
migrations directory. Cores are cloned into the configured cores directory.

Examples:
  citykit cores ls
  citykit cores add https://github.com/example/mm2-core --name MidtownMadness2
  citykit cores add github.com/example/private-core --username me --token $TOKEN
  citykit cores update MidtownMadness2
  citykit cores rm MidtownMadness2`,
}

var coresLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List installed cores",
	Args:  cobra.NoArgs,
	RunE:  runCoresLs,
}

var coresAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Install a core from a git repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runCoresAdd,
}

var coresUpdateCmd = &cobra.Command{
	Use:   "update <name>",
	Short: "Pull new revisions of a core",
	Args:  cobra.ExactArgs(1),
	RunE:  runCoresUpdate,
}

var coresRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Uninstall a core",
	Args:  cobra.ExactArgs(1),
	RunE:  runCoresRm,
}

func init() {
	coresAddCmd.Flags().String("name", "", "Directory name for the core (default: derived from the URL)")
	for _, c := range []*cobra.Command{coresAddCmd, coresUpdateCmd} {
		c.Flags().String("username", "", "Username for private repositories")
		c.Flags().String("token", "", "Access token for private repositories")
		c.MarkFlagsRequiredTogether("username", "token")
	}
	coresRmCmd.Flags().Bool("force", false, "Remove even with local changes")
	display.AddJSONFlag(coresLsCmd)

	CoresCmd.AddCommand(coresLsCmd)
	CoresCmd.AddCommand(coresAddCmd)
	CoresCmd.AddCommand(coresUpdateCmd)
	CoresCmd.AddCommand(coresRmCmd)
}

func authOptions(cmd *cobra.Command) []core.InstallOption {
	user, _ := cmd.Flags().GetString("username")
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		return nil
	}
	return []core.InstallOption{core.WithBasicAuth(user, token)}
}

func runCoresLs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cores := coreRegistry(cfg)
	infos, err := cores.List()
	if err != nil {
		return err
	}
	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(coreViews(infos))
	}
	if len(infos) == 0 {
		pterm.Info.Printfln("No cores installed in %s", cores.Dir())
		return nil
	}

	rows := pterm.TableData{{"NAME", "CORE", "PROGRAM", "REVISION", "ORIGIN"}}
	for _, info := range infos {
		coreVersion, program := "invalid", "-"
		if info.DescriptorErr == nil {
			d := info.Descriptor
			coreVersion = fmt.Sprintf("%d.%d", d.CoreVersion, d.CoreFeatureVersion)
			program = fmt.Sprintf("%d.%d", d.ProgramVersion, d.FeatureVersion)
		}
		rows = append(rows, []string{info.Name, coreVersion, program, info.Revision, info.Origin})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

type coreView struct {
	Name       string           `json:"name"`
	Path       string           `json:"path"`
	Descriptor *core.Descriptor `json:"descriptor,omitempty"`
	Error      string           `json:"error,omitempty"`
	Revision   string           `json:"revision"`
	Origin     string           `json:"origin,omitempty"`
}

func coreViews(infos []core.Info) []coreView {
	views := make([]coreView, 0, len(infos))
	for _, info := range infos {
		v := coreView{Name: info.Name, Path: info.Path, Revision: info.Revision, Origin: info.Origin}
		if info.DescriptorErr != nil {
			v.Error = info.DescriptorErr.Error()
		} else {
			d := info.Descriptor
			v.Descriptor = &d
		}
		views = append(views, v)
	}
	return views
}

func runCoresAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	spinner, _ := pterm.DefaultSpinner.Start("Cloning " + args[0])
	info, err := coreRegistry(cfg).Install(ctx, name, args[0], authOptions(cmd)...)
	if err != nil {
		spinner.Fail("Install failed")
		return err
	}
	spinner.Success(fmt.Sprintf("Installed core %s (%s)", info.Name, info.Revision))

	if info.DescriptorErr != nil {
		pterm.Warning.Printfln("Core has no usable settings file: %v", info.DescriptorErr)
	}
	return nil
}

func runCoresUpdate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cores := coreRegistry(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	updated, err := cores.Update(ctx, args[0], authOptions(cmd)...)
	if err != nil {
		return err
	}
	if !updated {
		pterm.Info.Printfln("Core %s is already up to date (%s)", args[0], cores.Revision(args[0]))
		return nil
	}
	pterm.Success.Printfln("Updated core %s to %s", args[0], cores.Revision(args[0]))
	return nil
}

func runCoresRm(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cores := coreRegistry(cfg)
	force, _ := cmd.Flags().GetBool("force")

	if !force {
		// cores that are not git checkouts have nothing to lose
		if dirty, err := cores.Dirty(args[0]); err == nil && dirty {
			return errors.WithHint(errors.Wrapf(core.ErrDirtyCore, "%s", args[0]),
				"pass --force to remove it anyway")
		}
	}
	if err := cores.Uninstall(args[0]); err != nil {
		return err
	}
	pterm.Success.Printfln("Removed core %s", args[0])
	return nil
}
