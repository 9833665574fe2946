package catalog

import (
	"fmt"

	"github.com/marmos91/animbridge/cmd/animbridgectl/cmdutil"
	"github.com/marmos91/animbridge/internal/cli/output"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan [root]",
	Short: "Index a clip library",
	Long: `Ask the daemon to index clip files under root, a local directory or an
s3://bucket/prefix. Without root the configured catalog.library_path is used.

Existing entries with the same id are replaced.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetAPIClient()
	if err != nil {
		return err
	}

	var root string
	if len(args) == 1 {
		root = args[0]
	}

	res, err := client.ScanCatalog(cmd.Context(), root)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	var kv output.KeyValues
	kv.Add("Root", res.Root)
	kv.Add("Indexed", fmt.Sprintf("%d", res.Indexed))
	kv.Add("Skipped", fmt.Sprintf("%d", res.Skipped))
	kv.Add("Duration", output.FormatDuration(res.Duration))
	return cmdutil.PrintResource(cmd.OutOrStdout(), res, kv)
}
