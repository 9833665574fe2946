package mailbox

import (
	"fmt"

	"github.com/marmos91/animbridge/cmd/animbridgectl/cmdutil"
	"github.com/marmos91/animbridge/internal/cli/output"
	"github.com/marmos91/animbridge/pkg/mailbox"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending requests",
	Long: `List request files not yet consumed, in the order the daemon will take
them (newest first under LIFO).

Examples:
  animbridgectl mailbox list
  animbridgectl mailbox list -o json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

// PendingList renders pending requests as a table.
type PendingList []mailbox.PendingRequest

// Headers implements TableRenderer.
func (pl PendingList) Headers() []string {
	return []string{"#", "FILE", "WRITTEN", "SIZE"}
}

// Rows implements TableRenderer.
func (pl PendingList) Rows() [][]string {
	rows := make([][]string, 0, len(pl))
	for i, p := range pl {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			p.Name,
			output.FormatTime(p.ModTime),
			fmt.Sprintf("%d B", p.Size),
		})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	pending, err := client.List()
	if err != nil {
		return fmt.Errorf("failed to list mailbox: %w", err)
	}

	empty := fmt.Sprintf("No pending requests in %s.", client.Config().Dir)
	return cmdutil.PrintOutput(cmd.OutOrStdout(), pending, len(pending) == 0, empty, PendingList(pending))
}

// newClient opens the mailbox for inspection only; nothing is executed.
func newClient() (*mailbox.Client, error) {
	cfg, err := cmdutil.MailboxConfig()
	if err != nil {
		return nil, err
	}
	return mailbox.NewClient(cfg, nil)
}
