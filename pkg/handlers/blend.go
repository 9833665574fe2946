package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/animbridge/internal/logger"
	"github.com/marmos91/animbridge/pkg/poseblend"
	"github.com/marmos91/animbridge/pkg/protocol"
	"github.com/marmos91/animbridge/pkg/resource"
)

// loadBlendTarget loads a pose clip as a scene data block for the blend
// session. Releasing the target frees the block.
func (h *Handlers) loadBlendTarget(ctx context.Context, ref string) (*poseblend.Target, error) {
	clip, err := h.load(ctx, resource.KindPose, ref)
	if err != nil {
		return nil, err
	}
	handle := h.scene.LoadAction(clip.Action())
	return &poseblend.Target{
		Name:    clip.DisplayName(),
		Values:  clip.PoseValues(),
		Release: func() { h.scene.ReleaseAction(handle) },
	}, nil
}

// BlendPoseStart snapshots the active armature and loads the target pose.
func (h *Handlers) BlendPoseStart(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	var p protocol.BlendPoseStart
	if err := protocol.DecodePayload(cmd, &p); err != nil {
		return protocol.Response{}, err
	}
	if h.blend.Active() {
		return protocol.Errorf("Blend session already active. Call blend_pose_end first."), nil
	}

	ref, err := h.resolve(ctx, resource.KindPose, p.PoseID, p.BlendFilePath)
	if err != nil {
		return protocol.Response{}, err
	}

	arm, resp := h.activeArmature()
	if resp != nil {
		return *resp, nil
	}

	if err := h.blend.Start(ctx, arm, ref); err != nil {
		return protocol.Response{}, unwrapLoad(err)
	}
	h.blendArm = arm
	h.blendName = firstNonEmpty(p.PoseName, h.blend.TargetName())

	logger.InfoCtx(ctx, "Blend session started", logger.KeyTarget, h.blendName, logger.KeyArmature, arm.Name)
	return protocol.Success(fmt.Sprintf("Blend session started for '%s'", h.blendName), nil), nil
}

// BlendPose moves the armature to blend_factor between the snapshot and
// the target. It is sent repeatedly while the user drags.
func (h *Handlers) BlendPose(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	var p protocol.BlendPose
	if err := protocol.DecodePayload(cmd, &p); err != nil {
		return protocol.Response{}, err
	}

	if err := h.blend.Update(*p.BlendFactor, p.Mirror); err != nil {
		if errors.Is(err, poseblend.ErrSessionInactive) {
			return protocol.Errorf("No active blend session. Call blend_pose_start first."), nil
		}
		return protocol.Response{}, err
	}

	return protocol.Success("", map[string]any{
		"blend_factor": *p.BlendFactor,
		"mirror":       p.Mirror,
	}), nil
}

// BlendPoseEnd keeps or cancels the blended pose. A kept pose is keyed when
// insert_keyframes is set or the scene keys automatically.
func (h *Handlers) BlendPoseEnd(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	var p protocol.BlendPoseEnd
	if err := protocol.DecodePayload(cmd, &p); err != nil {
		return protocol.Response{}, err
	}
	if !h.blend.Active() {
		return protocol.Errorf("No active blend session"), nil
	}

	arm, name := h.blendArm, h.blendName
	h.blendArm, h.blendName = nil, ""

	var commit poseblend.CommitFunc
	if !p.Cancelled && (p.InsertKeyframes || h.scene.AutoKey()) {
		frame := h.scene.Frame()
		commit = func(bones []string) (int, error) {
			return arm.KeyframeBones(bones, frame), nil
		}
	}

	res, err := h.blend.End(p.Cancelled, commit)
	if err != nil {
		return protocol.Response{}, err
	}

	var msg string
	if res.Cancelled {
		msg = "Blend cancelled, restored original pose"
	} else {
		msg = fmt.Sprintf("Blended to '%s'", firstNonEmpty(name, res.Name))
		if res.Committed > 0 {
			msg += fmt.Sprintf(" (keyframed %d bones)", res.Committed)
		}
	}

	logger.InfoCtx(ctx, "Blend session ended", logger.KeyMessage, msg)
	return protocol.Success(msg, nil), nil
}

// unwrapLoad strips the session's wrapping from a load failure so the peer
// sees the loader's message.
func unwrapLoad(err error) error {
	if errors.Is(err, poseblend.ErrSessionActive) {
		return err
	}
	if inner := errors.Unwrap(err); inner != nil {
		return inner
	}
	return err
}
