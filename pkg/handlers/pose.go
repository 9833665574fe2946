package handlers

import (
	"context"
	"fmt"
	"sort"

	"github.com/marmos91/animbridge/internal/logger"
	"github.com/marmos91/animbridge/pkg/protocol"
	"github.com/marmos91/animbridge/pkg/resource"
	"github.com/marmos91/animbridge/pkg/scene"
)

// ApplyPose loads a pose clip and sets the active armature to it. When the
// scene keys automatically, the posed bones are keyed at the current frame.
func (h *Handlers) ApplyPose(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	var p protocol.ApplyPose
	if err := protocol.DecodePayload(cmd, &p); err != nil {
		return protocol.Response{}, err
	}

	ref, err := h.resolve(ctx, resource.KindPose, p.ID(), p.BlendFilePath)
	if err != nil {
		return protocol.Response{}, err
	}

	arm, resp := h.activeArmature()
	if resp != nil {
		return *resp, nil
	}
	if arm.BoneCount() == 0 {
		return protocol.Errorf("Armature has no pose data"), nil
	}

	clip, err := h.load(ctx, resource.KindPose, ref)
	if err != nil {
		return protocol.Response{}, err
	}
	handle := h.scene.LoadAction(clip.Action())
	defer h.scene.ReleaseAction(handle)

	name := firstNonEmpty(p.PoseName, clip.DisplayName())
	bones := applyPoseValues(arm, clip.PoseValues(), p.Mirror)

	msg := fmt.Sprintf("Applied pose '%s'", name)
	if p.Mirror {
		msg += " (mirrored)"
	}
	msg += " to " + arm.Name
	if h.scene.AutoKey() {
		if n := arm.KeyframeBones(bones, h.scene.Frame()); n > 0 {
			msg += fmt.Sprintf(" (keyframed %d bones)", n)
		}
	}

	logger.InfoCtx(ctx, "Pose applied",
		logger.KeyTarget, name, logger.KeyArmature, arm.Name, logger.KeyCount, len(bones))
	return protocol.Success(msg, map[string]any{"bone_count": len(bones)}), nil
}

// applyPoseValues writes values to arm, mirrored when asked, and returns the
// sorted names of the bones that changed.
func applyPoseValues(arm *scene.Armature, values map[scene.ChannelID]float64, mirror bool) []string {
	seen := make(map[string]struct{})
	for ch, v := range values {
		if mirror {
			ch, v = scene.MirrorChannel(ch, v)
		}
		if arm.Set(ch, v) {
			seen[ch.Bone] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}
