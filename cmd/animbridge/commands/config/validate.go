package config

import (
	"fmt"
	"io"
	"os"

	"github.com/marmos91/animbridge/pkg/catalog"
	"github.com/marmos91/animbridge/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the animbridge configuration file.

Checks for syntax errors, invalid values and settings that load but are
unlikely to work.

Examples:
  animbridge config validate
  animbridge config validate --config /etc/animbridge/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Configuration file: %s\n", displayPath)
	fmt.Fprintln(w, "Validation: OK")

	if warnings := configWarnings(cfg); len(warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, msg := range warnings {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
	}

	printSummary(w, cfg)
	return nil
}

// configWarnings reports settings that pass validation but will likely
// misbehave at runtime.
func configWarnings(cfg *config.Config) []string {
	var warnings []string

	if !cfg.Mailbox.Enabled && cfg.Socket.MaxPortAttempts == 1 {
		warnings = append(warnings, "mailbox disabled and port retry off: a busy port leaves no way to deliver commands")
	}
	if cfg.Scheduler.TimeBudget > cfg.Host.TickInterval {
		warnings = append(warnings, fmt.Sprintf("scheduler time budget (%s) exceeds tick interval (%s)",
			cfg.Scheduler.TimeBudget, cfg.Host.TickInterval))
	}
	if cfg.Mailbox.Enabled && cfg.Mailbox.Layout == "legacy" && cfg.Mailbox.MaxPerPoll > 1 {
		warnings = append(warnings, "max_per_poll is ignored by the legacy mailbox layout")
	}
	if cfg.Host.SceneFile != "" {
		if _, err := os.Stat(cfg.Host.SceneFile); err != nil {
			warnings = append(warnings, fmt.Sprintf("scene file not readable: %v", err))
		}
	}
	if cfg.Catalog.ScanOnStart && cfg.Catalog.LibraryPath == "" {
		warnings = append(warnings, "catalog.scan_on_start is set but catalog.library_path is empty")
	}
	if cfg.Catalog.Backend == catalog.BackendMemory {
		warnings = append(warnings, "memory catalog: indexed entries are lost on restart")
	}
	return warnings
}

func printSummary(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "\nConfiguration summary:\n")
	fmt.Fprintf(w, "  Socket:          %s:%d (up to %d ports)\n", cfg.Socket.Host, cfg.Socket.Port, cfg.Socket.MaxPortAttempts)
	fmt.Fprintf(w, "  Scheduler:       %s budget, %d heavy/tick, requeue %s\n",
		cfg.Scheduler.TimeBudget, cfg.Scheduler.MaxHeavyPerTick, cfg.Scheduler.Requeue)
	if cfg.Mailbox.Enabled {
		fmt.Fprintf(w, "  Mailbox:         %s (%s, %s)\n", cfg.Mailbox.Dir, cfg.Mailbox.Layout, cfg.Mailbox.Order)
	} else {
		fmt.Fprintf(w, "  Mailbox:         disabled\n")
	}
	fmt.Fprintf(w, "  Catalog backend: %s\n", cfg.Catalog.Backend)
	if cfg.API.IsEnabled() {
		fmt.Fprintf(w, "  API:             %s:%d\n", cfg.API.Host, cfg.API.Port)
	} else {
		fmt.Fprintf(w, "  API:             disabled\n")
	}
	fmt.Fprintf(w, "  Log level:       %s\n", cfg.Logging.Level)
}
