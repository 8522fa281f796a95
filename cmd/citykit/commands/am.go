package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/citykit/am"
	"github.com/teranos/citykit/errors"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage citykit configuration",
	Long: `am - Manage citykit configuration ("I am")

Configuration sources (later overrides earlier):
1. Default values
2. System config (/etc/citykit/am.toml)
3. User config (~/.citykit/am.toml)
4. Project config (./am.toml, searched up from the working directory)
5. Environment variables (CITYKIT_* prefix)

Examples:
  citykit am show                       # Show current configuration
  citykit am show --format json         # Show configuration in JSON format
  citykit am get cores.dir              # Get specific config value
  citykit am set tool.program_version 3 # Write to ~/.citykit/am.toml
  citykit am validate                   # Validate current configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current citykit configuration merged from all sources",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., cores.dir, tool.program_version)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in the user config",
	Long: `Write a value to ~/.citykit/am.toml (or --file). The previous file is
kept as .back1; up to three backups are rotated.`,
	Args: cobra.ExactArgs(2),
	RunE: runAmSet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	Long:  "Validate that the current citykit configuration is valid",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	RunE:  runAmWhere,
}

var amWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the configuration whenever the user config changes",
	Long: `Watch ~/.citykit/am.toml (or --file) and print the reloaded, validated
configuration on every change. Stop with Ctrl-C.`,
	RunE: runAmWatch,
}

var configFormat string

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	amSetCmd.Flags().String("file", "", "Config file to write (default ~/.citykit/am.toml)")
	amWatchCmd.Flags().String("file", "", "Config file to watch (default ~/.citykit/am.toml)")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amSetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
	AmCmd.AddCommand(amWatchCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	return printConfig(cfg, configFormat)
}

func printConfig(cfg *am.Config, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to JSON")
		}
		fmt.Println(string(data))

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Printf("# citykit configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to TOML")
		}
		fmt.Printf("# citykit configuration\n%s", string(data))

	default:
		return errors.NewInvalidInputError("unsupported format: %s (supported: toml, json, yaml)", format)
	}
	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if !am.IsSet(key) {
		return errors.Wrapf(errors.ErrNotFound, "configuration key %q", key)
	}
	fmt.Println(am.Get(key))
	return nil
}

func runAmSet(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		path = am.UserConfigPath()
	}
	if err := am.SetValue(path, args[0], am.ParseValue(args[1])); err != nil {
		return err
	}

	// reject a write that leaves the configuration unusable
	cfg, err := am.LoadFromFile(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.WithHintf(err, "the previous file was kept as %s.back1", path)
	}
	pterm.Success.Printfln("Set %s = %s in %s", args[0], args[1], path)
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	fmt.Println("✓ Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	fmt.Println("Configuration cascade (later overrides earlier):")
	fmt.Println("  [DEFAULT]  Built-in defaults")
	for _, path := range am.ConfigPaths() {
		fmt.Printf("  [FILE]     %s\n", path)
	}
	fmt.Println("  [ENV]      CITYKIT_* environment variables")
	fmt.Println()
	fmt.Printf("User config: %s\n", am.UserConfigPath())
	return nil
}

func runAmWatch(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		path = am.UserConfigPath()
	}

	watcher, err := am.NewConfigWatcher(path)
	if err != nil {
		return err
	}
	am.SetGlobalWatcher(watcher)
	defer am.SetGlobalWatcher(nil)

	watcher.OnReload(func(cfg *am.Config) error {
		pterm.Info.Printfln("Reloaded %s", path)
		return printConfig(cfg, configFormat)
	})
	watcher.Start()
	defer watcher.Stop()

	pterm.Info.Printfln("Watching %s (Ctrl-C to stop)", path)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	<-ctx.Done()
	return nil
}
