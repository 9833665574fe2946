package config

import (
	"github.com/marmos91/animbridge/internal/cli/output"
	"github.com/marmos91/animbridge/pkg/config"
	"github.com/spf13/cobra"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display effective configuration",
	Long: `Display the effective animbridge configuration: the file merged with
ANIMLIB_* environment overrides and defaults.

Examples:
  # Show default config as YAML
  animbridge config show

  # Show as JSON
  animbridge config show --output json

  # Show what an override resolves to
  ANIMLIB_SCHEDULER_TIME_BUDGET=8ms animbridge config show`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	if format == output.FormatJSON {
		return output.PrintJSON(cmd.OutOrStdout(), cfg)
	}
	return output.PrintYAML(cmd.OutOrStdout(), cfg)
}
