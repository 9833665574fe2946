package commands

import (
	"github.com/marmos91/animbridge/cmd/animbridgectl/cmdutil"
	"github.com/marmos91/animbridge/pkg/mailbox"
	"github.com/spf13/cobra"
)

var (
	poseName       string
	poseBlendFile  string
	poseMirror     bool
	poseViaMailbox bool
)

var poseCmd = &cobra.Command{
	Use:   "pose <pose-id>",
	Short: "Apply a pose instantly",
	Long: `Apply a catalog pose to the active armature at the current frame.

Examples:
  animbridgectl pose fist
  animbridgectl pose fist --mirror
  animbridgectl pose fist --blend-file poses/hands.json --mailbox`,
	Args: cobra.ExactArgs(1),
	RunE: runPose,
}

func init() {
	f := poseCmd.Flags()
	f.StringVar(&poseName, "name", "", "Display name for messages")
	f.StringVar(&poseBlendFile, "blend-file", "", "Clip file to load the pose from, bypassing the catalog")
	f.BoolVar(&poseMirror, "mirror", false, "Mirror left/right bones")
	f.BoolVar(&poseViaMailbox, "mailbox", false, "Write to the file mailbox instead of the socket")
}

func runPose(cmd *cobra.Command, args []string) error {
	req := mailbox.NewPoseRequest(args[0], poseName, poseMirror)
	if poseBlendFile != "" {
		req.Params = map[string]any{"blend_file_path": poseBlendFile}
	}

	if poseViaMailbox {
		return enqueue(cmd.OutOrStdout(), req)
	}
	return cmdutil.RunCommand(cmd.Context(), cmd.OutOrStdout(), req.ToCommand())
}
