// Package mailbox implements file mailbox commands for animbridgectl.
package mailbox

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for the file mailbox.
var Cmd = &cobra.Command{
	Use:   "mailbox",
	Short: "File mailbox management",
	Long: `Inspect and feed the file mailbox the daemon polls when the socket is not
used. The directory, layout and order come from the daemon configuration.

Examples:
  # List pending request files in consumption order
  animbridgectl mailbox list

  # Queue a pose without a socket connection
  animbridgectl mailbox enqueue pose fist --mirror

  # Queue any command
  animbridgectl mailbox enqueue command select_bones --param bone_names=Hand.L,Hand.R

  # Remove every pending request
  animbridgectl mailbox clear --force`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(enqueueCmd)
	Cmd.AddCommand(clearCmd)
}
