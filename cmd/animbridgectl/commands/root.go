// Package commands implements the CLI commands for the animbridgectl client.
package commands

import (
	"time"

	"github.com/marmos91/animbridge/cmd/animbridgectl/cmdutil"
	catalogcmd "github.com/marmos91/animbridge/cmd/animbridgectl/commands/catalog"
	mailboxcmd "github.com/marmos91/animbridge/cmd/animbridgectl/commands/mailbox"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "animbridgectl",
	Short: "animbridge control client",
	Long: `animbridgectl sends commands to a running animbridge daemon over its TCP
socket, drops requests into its file mailbox, and queries its HTTP API.

The daemon address is taken from --host/--port, then from the port file the
daemon writes, then from the daemon configuration (--config).

Use "animbridgectl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		cmdutil.Flags.ConfigFile, _ = flags.GetString("config")
		cmdutil.Flags.Host, _ = flags.GetString("host")
		cmdutil.Flags.Port, _ = flags.GetInt("port")
		cmdutil.Flags.APIURL, _ = flags.GetString("api-url")
		cmdutil.Flags.Output, _ = flags.GetString("output")
		cmdutil.Flags.Timeout, _ = flags.GetDuration("timeout")
		cmdutil.Flags.NoColor, _ = flags.GetBool("no-color")
		cmdutil.Flags.Verbose, _ = flags.GetBool("verbose")
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "daemon config file (default: $XDG_CONFIG_HOME/animbridge/config.yaml)")
	pf.String("host", "", "daemon command host (default: socket.host from config)")
	pf.Int("port", 0, "daemon command port (default: port file, then socket.port from config)")
	pf.String("api-url", "", "daemon API URL (default: built from api.host and api.port)")
	pf.StringP("output", "o", "table", "Output format (table|json|yaml)")
	pf.Duration("timeout", 10*time.Second, "Request timeout")
	pf.Bool("no-color", false, "Disable colored output")
	pf.BoolP("verbose", "v", false, "Print the request line sent to the daemon")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(poseCmd)
	rootCmd.AddCommand(blendCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(mailboxcmd.Cmd)
	rootCmd.AddCommand(catalogcmd.Cmd)
	rootCmd.AddCommand(completionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
