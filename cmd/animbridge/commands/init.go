package commands

import (
	"fmt"

	"github.com/marmos91/animbridge/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample animbridge configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/animbridge/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  animbridge init

  # Initialize with custom path
  animbridge init --config /etc/animbridge/config.yaml

  # Force overwrite existing config
  animbridge init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	var (
		configPath string
		err        error
	)
	if configFile != "" {
		err = config.InitConfigToPath(configFile, initForce)
		configPath = configFile
	} else {
		configPath, err = config.InitConfig(initForce)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Point catalog.library_path at your animation library")
	_, _ = fmt.Fprintln(out, "  2. Start the daemon with: animbridge start")
	_, _ = fmt.Fprintf(out, "  3. Or specify custom config: animbridge start --config %s\n", configPath)
	_, _ = fmt.Fprintln(out, "  4. Check it answers with: animbridgectl ping")
	return nil
}
