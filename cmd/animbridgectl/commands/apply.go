package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/marmos91/animbridge/cmd/animbridgectl/cmdutil"
	"github.com/marmos91/animbridge/pkg/mailbox"
	"github.com/marmos91/animbridge/pkg/protocol"
	"github.com/spf13/cobra"
)

var (
	applyName         string
	applyMode         string
	applyMirror       bool
	applyReverse      bool
	applySelectedOnly bool
	applySlots        bool
	applyViaMailbox   bool
)

var applyCmd = &cobra.Command{
	Use:   "apply <animation-id>",
	Short: "Apply an animation to the active armature",
	Long: `Apply a catalog animation to the active armature.

NEW replaces the current action; INSERT merges the keys at the current frame.
With --mailbox the request is written to the file mailbox instead of sent
over the socket, which works while the daemon is busy or unreachable.

Examples:
  animbridgectl apply walk-cycle
  animbridgectl apply walk-cycle --mode INSERT --mirror
  animbridgectl apply walk-cycle --mailbox`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	f := applyCmd.Flags()
	f.StringVar(&applyName, "name", "", "Display name for messages and the created action")
	f.StringVar(&applyMode, "mode", protocol.ApplyModeNew, "Apply mode (NEW|INSERT)")
	f.BoolVar(&applyMirror, "mirror", false, "Mirror left/right bones")
	f.BoolVar(&applyReverse, "reverse", false, "Play the keys backwards")
	f.BoolVar(&applySelectedOnly, "selected-only", false, "Only key selected bones")
	f.BoolVar(&applySlots, "slots", false, "Assign through action slots")
	f.BoolVar(&applyViaMailbox, "mailbox", false, "Write to the file mailbox instead of the socket")
}

func applyOptions() (protocol.ApplyOptions, error) {
	mode := strings.ToUpper(applyMode)
	if mode != protocol.ApplyModeNew && mode != protocol.ApplyModeInsert {
		return protocol.ApplyOptions{}, fmt.Errorf("invalid --mode %q (use NEW or INSERT)", applyMode)
	}
	return protocol.ApplyOptions{
		ApplyMode:         mode,
		Mirror:            applyMirror,
		Reverse:           applyReverse,
		SelectedBonesOnly: applySelectedOnly,
		UseSlots:          applySlots,
	}, nil
}

func runApply(cmd *cobra.Command, args []string) error {
	opts, err := applyOptions()
	if err != nil {
		return err
	}

	req := mailbox.NewAnimationRequest(args[0], applyName, opts)
	if applyViaMailbox {
		return enqueue(cmd.OutOrStdout(), req)
	}
	return cmdutil.RunCommand(cmd.Context(), cmd.OutOrStdout(), req.ToCommand())
}

// enqueue writes req to the configured mailbox.
func enqueue(w io.Writer, req mailbox.Request) error {
	cfg, err := cmdutil.MailboxConfig()
	if err != nil {
		return err
	}
	writer, err := mailbox.NewWriter(cfg)
	if err != nil {
		return err
	}
	path, err := writer.Enqueue(req)
	if err != nil {
		return err
	}
	return cmdutil.PrintResource(w, map[string]string{"path": path, "target_id": req.TargetID},
		[][2]string{{"Queued", req.TargetID}, {"File", path}, {"Layout", string(cfg.Layout)}})
}
