package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/marmos91/animbridge/cmd/animbridgectl/cmdutil"
	"github.com/marmos91/animbridge/pkg/protocol"
	"github.com/spf13/cobra"
)

var blendCmd = &cobra.Command{
	Use:   "blend",
	Short: "Interactive pose blending",
	Long: `Drive a pose blend session: start captures the current pose and loads the
target, update sets the blend factor, end keeps or restores the result.

Only one session exists per daemon; it survives across connections.

Examples:
  animbridgectl blend start fist
  animbridgectl blend update 0.5 --mirror
  animbridgectl blend end --keyframes
  animbridgectl blend end --cancel

  # Ramp 0 to 1 over two seconds on one connection, then end
  animbridgectl blend ramp fist --duration 2s --keyframes`,
}

var (
	blendStartName      string
	blendStartBlendFile string
	blendUpdateMirror   bool
	blendEndCancel      bool
	blendEndKeyframes   bool
	blendRampDuration   time.Duration
	blendRampSteps      int
)

var blendStartCmd = &cobra.Command{
	Use:   "start <pose-id>",
	Short: "Start a blend session toward a pose",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.RunCommand(cmd.Context(), cmd.OutOrStdout(), blendStartCommand(args[0]))
	},
}

var blendUpdateCmd = &cobra.Command{
	Use:   "update <factor>",
	Short: "Set the blend factor (0.0 to 1.0)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		factor, err := parseFactor(args[0])
		if err != nil {
			return err
		}
		return cmdutil.RunCommand(cmd.Context(), cmd.OutOrStdout(), blendUpdateCommand(factor, blendUpdateMirror))
	},
}

var blendEndCmd = &cobra.Command{
	Use:   "end",
	Short: "End the blend session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.RunCommand(cmd.Context(), cmd.OutOrStdout(), blendEndCommand(blendEndCancel, blendEndKeyframes))
	},
}

var blendRampCmd = &cobra.Command{
	Use:   "ramp <pose-id>",
	Short: "Blend from the current pose to a target in steps, then end",
	Args:  cobra.ExactArgs(1),
	RunE:  runBlendRamp,
}

func init() {
	blendStartCmd.Flags().StringVar(&blendStartName, "name", "", "Display name for messages")
	blendStartCmd.Flags().StringVar(&blendStartBlendFile, "blend-file", "", "Clip file to load the pose from")

	blendUpdateCmd.Flags().BoolVar(&blendUpdateMirror, "mirror", false, "Blend toward the mirrored pose")

	for _, c := range []*cobra.Command{blendEndCmd, blendRampCmd} {
		c.Flags().BoolVar(&blendEndKeyframes, "keyframes", false, "Insert keyframes for the blended bones")
	}
	blendEndCmd.Flags().BoolVar(&blendEndCancel, "cancel", false, "Restore the pose captured at start")

	blendRampCmd.Flags().StringVar(&blendStartName, "name", "", "Display name for messages")
	blendRampCmd.Flags().StringVar(&blendStartBlendFile, "blend-file", "", "Clip file to load the pose from")
	blendRampCmd.Flags().BoolVar(&blendUpdateMirror, "mirror", false, "Blend toward the mirrored pose")
	blendRampCmd.Flags().DurationVar(&blendRampDuration, "duration", time.Second, "Total ramp duration")
	blendRampCmd.Flags().IntVar(&blendRampSteps, "steps", 20, "Number of factor updates")

	blendCmd.AddCommand(blendStartCmd, blendUpdateCmd, blendEndCmd, blendRampCmd)
}

func parseFactor(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid blend factor %q: %w", s, err)
	}
	if f < 0 || f > 1 {
		return 0, fmt.Errorf("blend factor must be between 0.0 and 1.0, got %g", f)
	}
	return f, nil
}

func blendStartCommand(poseID string) protocol.Command {
	payload := map[string]any{"pose_id": poseID}
	if blendStartName != "" {
		payload["pose_name"] = blendStartName
	}
	if blendStartBlendFile != "" {
		payload["blend_file_path"] = blendStartBlendFile
	}
	return protocol.NewCommand(protocol.TypeBlendPoseStart, payload)
}

func blendUpdateCommand(factor float64, mirror bool) protocol.Command {
	return protocol.NewCommand(protocol.TypeBlendPose, map[string]any{
		"blend_factor": factor,
		"mirror":       mirror,
	})
}

func blendEndCommand(cancelled, keyframes bool) protocol.Command {
	return protocol.NewCommand(protocol.TypeBlendPoseEnd, map[string]any{
		"cancelled":        cancelled,
		"insert_keyframes": keyframes,
	})
}

// rampFactors returns steps evenly spaced factors ending at 1.
func rampFactors(steps int) []float64 {
	if steps < 1 {
		steps = 1
	}
	factors := make([]float64, steps)
	for i := range factors {
		factors[i] = float64(i+1) / float64(steps)
	}
	return factors
}

func runBlendRamp(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := cmdutil.Dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	send := func(c protocol.Command) error {
		resp, err := client.Send(ctx, c)
		if err != nil {
			return err
		}
		if !resp.OK() {
			return fmt.Errorf("%s failed: %s", c.Type, resp.Message)
		}
		return nil
	}

	if err := send(blendStartCommand(args[0])); err != nil {
		return err
	}

	factors := rampFactors(blendRampSteps)
	delay := blendRampDuration / time.Duration(len(factors))
	for _, f := range factors {
		if err := send(blendUpdateCommand(f, blendUpdateMirror)); err != nil {
			// Leave the scene as it was before the ramp.
			_ = send(blendEndCommand(true, false))
			return err
		}
		select {
		case <-ctx.Done():
			_ = send(blendEndCommand(true, false))
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	resp, err := client.Send(ctx, blendEndCommand(false, blendEndKeyframes))
	if err != nil {
		return err
	}
	return cmdutil.PrintResponse(cmd.OutOrStdout(), resp)
}
