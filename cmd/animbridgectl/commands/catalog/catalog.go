// Package catalog implements asset catalog commands for animbridgectl.
package catalog

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for the asset catalog.
var Cmd = &cobra.Command{
	Use:   "catalog",
	Short: "Asset catalog",
	Long: `Query the daemon's asset catalog, which maps animation and pose ids to
clip files. Requires the daemon HTTP API.

Examples:
  animbridgectl catalog list
  animbridgectl catalog list --kind pose
  animbridgectl catalog get walk-cycle
  animbridgectl catalog scan
  animbridgectl catalog scan s3://clips/library`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(getCmd)
	Cmd.AddCommand(scanCmd)
}
