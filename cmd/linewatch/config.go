package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"linewatch/internal/config"
	lwerrors "linewatch/internal/errors"
	"linewatch/internal/paths"
)

var (
	configFormat string
	configForce  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage linewatch configuration",
	Long:  "Create and inspect the configuration stored in <dir>/.linewatch/",
}

var configInitCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write the default configuration",
	Long: `Write the default configuration to <dir>/.linewatch/config.<format>.

Examples:
  linewatch config init                  # .linewatch/config.json
  linewatch config init --format yaml    # .linewatch/config.yaml
  linewatch config init --force          # overwrite an existing file`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show [dir]",
	Short: "Show the effective configuration",
	Long:  "Print the configuration after defaults, file values, environment overrides and flags are applied.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigShow,
}

func init() {
	configInitCmd.Flags().StringVar(&configFormat, "format", "json", "File format (json, yaml, toml)")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configShowCmd.Flags().StringVar(&configFormat, "format", "json", "Output format (json, yaml, toml)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}

	format := strings.ToLower(configFormat)
	if format == "yml" {
		format = "yaml"
	}
	target := filepath.Join(paths.ConfigDir(root), "config."+format)
	if _, err := os.Stat(target); err == nil && !configForce {
		return lwerrors.New(lwerrors.UsageError, "Config file already exists",
			fmt.Errorf("%s exists; use --force to overwrite", target), nil)
	}

	written, err := config.DefaultConfig().Save(root, format)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", written)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}

	data, err := cfg.Encode(configFormat)
	if err != nil {
		return lwerrors.New(lwerrors.UsageError, "Unsupported format", err, nil)
	}
	fmt.Print(string(data))
	if len(data) > 0 && data[len(data)-1] != '\n' {
		fmt.Println()
	}
	return nil
}
