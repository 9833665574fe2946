package mailbox

import (
	"fmt"

	"github.com/marmos91/animbridge/cmd/animbridgectl/cmdutil"
	"github.com/marmos91/animbridge/internal/cli/prompt"
	"github.com/spf13/cobra"
)

var clearForce bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every pending request",
	Long: `Remove every pending request file without executing it.

You will be prompted for confirmation unless --force is specified.

Examples:
  animbridgectl mailbox clear
  animbridgectl mailbox clear --force`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearForce, "force", "f", false, "Skip confirmation prompt")
}

func runClear(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	confirmed, err := prompt.ConfirmWithForce(fmt.Sprintf("Remove all pending requests in %s?", client.Config().Dir), clearForce)
	if err != nil {
		return cmdutil.HandleAbort(err)
	}
	if !confirmed {
		fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
		return nil
	}

	n, err := client.Clear()
	if err != nil {
		return fmt.Errorf("failed to clear mailbox: %w", err)
	}
	cmdutil.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Removed %d pending request(s)", n))
	return nil
}
