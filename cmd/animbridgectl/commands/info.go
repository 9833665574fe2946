package commands

import (
	"github.com/marmos91/animbridge/cmd/animbridgectl/cmdutil"
	"github.com/marmos91/animbridge/pkg/protocol"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the active armature",
	Long: `Show the active armature's bones, selection and current action.

Examples:
  animbridgectl info
  animbridgectl info -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.RunCommand(cmd.Context(), cmd.OutOrStdout(), protocol.NewCommand(protocol.TypeGetArmatureInfo, nil))
	},
}
