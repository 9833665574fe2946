package catalog

import (
	"errors"
	"fmt"

	"github.com/marmos91/animbridge/cmd/animbridgectl/cmdutil"
	"github.com/marmos91/animbridge/internal/cli/output"
	"github.com/marmos91/animbridge/pkg/apiclient"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one catalog entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetAPIClient()
	if err != nil {
		return err
	}

	entry, err := client.GetCatalogEntry(cmd.Context(), args[0])
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.IsNotFound() {
			return fmt.Errorf("catalog entry %q not found", args[0])
		}
		return fmt.Errorf("failed to get catalog entry: %w", err)
	}

	var kv output.KeyValues
	kv.Add("ID", entry.ID)
	kv.Add("Name", entry.Name)
	kv.Add("Kind", entry.Kind)
	kv.Add("Rig", cmdutil.EmptyOr(entry.RigType, "-"))
	kv.Add("Path", entry.Path)
	kv.Add("Updated", output.FormatTime(entry.UpdatedAt))
	return cmdutil.PrintResource(cmd.OutOrStdout(), entry, kv)
}
