package commands

import (
	"github.com/marmos91/animbridge/cmd/animbridgectl/cmdutil"
	"github.com/marmos91/animbridge/pkg/protocol"
	"github.com/spf13/cobra"
)

var (
	selectMirror bool
	selectAdd    bool
)

var selectCmd = &cobra.Command{
	Use:   "select <bone>...",
	Short: "Select bones on the active armature",
	Long: `Select pose bones by name. Comma-separated lists are accepted too.

Examples:
  animbridgectl select Hand.L Forearm.L
  animbridgectl select "Hand.L,Forearm.L" --mirror --add`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSelect,
}

func init() {
	selectCmd.Flags().BoolVar(&selectMirror, "mirror", false, "Also select the mirrored bones")
	selectCmd.Flags().BoolVar(&selectAdd, "add", false, "Add to the current selection instead of replacing it")
}

func runSelect(cmd *cobra.Command, args []string) error {
	var bones []any
	for _, arg := range args {
		for _, name := range cmdutil.ParseCommaSeparatedList(arg) {
			bones = append(bones, name)
		}
	}

	return cmdutil.RunCommand(cmd.Context(), cmd.OutOrStdout(), protocol.NewCommand(protocol.TypeSelectBones, map[string]any{
		"bone_names":       bones,
		"mirror":           selectMirror,
		"add_to_selection": selectAdd,
	}))
}
