package catalog

import (
	"fmt"

	"github.com/marmos91/animbridge/cmd/animbridgectl/cmdutil"
	"github.com/marmos91/animbridge/internal/cli/output"
	"github.com/marmos91/animbridge/pkg/catalog"
	"github.com/spf13/cobra"
)

var listKind string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog entries",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listKind, "kind", "", "Only entries of this kind (animation|pose)")
}

// EntryList renders catalog entries as a table.
type EntryList []*catalog.Entry

// Headers implements TableRenderer.
func (el EntryList) Headers() []string {
	return []string{"ID", "NAME", "KIND", "RIG", "PATH", "UPDATED"}
}

// Rows implements TableRenderer.
func (el EntryList) Rows() [][]string {
	rows := make([][]string, 0, len(el))
	for _, e := range el {
		rows = append(rows, []string{
			e.ID,
			e.Name,
			e.Kind,
			cmdutil.EmptyOr(e.RigType, "-"),
			e.Path,
			output.FormatTime(e.UpdatedAt),
		})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetAPIClient()
	if err != nil {
		return err
	}

	entries, err := client.ListCatalog(cmd.Context(), listKind)
	if err != nil {
		return fmt.Errorf("failed to list catalog: %w", err)
	}

	return cmdutil.PrintOutput(cmd.OutOrStdout(), entries, len(entries) == 0,
		"No catalog entries. Index a library with 'animbridgectl catalog scan'.", EntryList(entries))
}
