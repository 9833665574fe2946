package handlers

import (
	"context"
	"fmt"

	"github.com/marmos91/animbridge/internal/logger"
	"github.com/marmos91/animbridge/pkg/protocol"
	"github.com/marmos91/animbridge/pkg/resource"
	"github.com/marmos91/animbridge/pkg/scene"
)

// ApplyAnimation loads an animation clip and applies it to the active
// armature.
//
// In NEW mode the clip replaces the armature's action. In INSERT mode its
// keys are merged into the existing action, offset so the clip starts at
// the current frame. Mirror swaps sides, reverse plays the clip backwards
// and selected_bones_only restricts the clip to the selected bones when any
// are selected.
func (h *Handlers) ApplyAnimation(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	p := protocol.ApplyAnimation{Options: protocol.DefaultApplyOptions()}
	if err := protocol.DecodePayload(cmd, &p); err != nil {
		return protocol.Response{}, err
	}
	opts := p.Options
	if opts.ApplyMode == "" {
		opts.ApplyMode = protocol.ApplyModeNew
	}

	arm, resp := h.activeArmature()
	if resp != nil {
		return *resp, nil
	}

	ref, err := h.resolve(ctx, resource.KindAnimation, p.ID(), "")
	if err != nil {
		return protocol.Response{}, err
	}
	clip, err := h.load(ctx, resource.KindAnimation, ref)
	if err != nil {
		return protocol.Response{}, err
	}

	name := firstNonEmpty(p.AnimationName, clip.DisplayName())
	logger.InfoCtx(ctx, "Applying animation",
		logger.KeyTarget, name,
		logger.KeyArmature, arm.Name,
		"apply_mode", opts.ApplyMode,
		logger.KeyMirror, opts.Mirror,
		"reverse", opts.Reverse)

	act := clip.Action()
	start, end := clipRange(clip, act)
	if opts.Mirror {
		act = mirrorAction(act)
	}
	if opts.Reverse {
		act = reverseAction(act, start, end)
	}
	if opts.SelectedBonesOnly {
		if sel := arm.SelectedBones(); len(sel) > 0 {
			act = filterAction(act, sel)
		}
	}

	var keys int
	switch opts.ApplyMode {
	case protocol.ApplyModeInsert:
		keys = insertAt(arm.EnsureAction(), act, h.scene.Frame()-start)
	default:
		arm.Action = act
		keys = countKeys(act)
	}
	if opts.UseSlots && arm.Action.Slot == "" {
		arm.Action.Slot = arm.Name
	}
	arm.ApplyAction(arm.Action, h.scene.Frame())

	return protocol.Success(
		fmt.Sprintf("Applied animation '%s' to %s", name, arm.Name),
		map[string]any{
			"action":      arm.Action.Name,
			"apply_mode":  opts.ApplyMode,
			"frame_start": start,
			"frame_end":   end,
			"keyframes":   keys,
		},
	), nil
}

// clipRange returns the clip's declared frame range, falling back to the
// keyed range.
func clipRange(clip *resource.Clip, act *scene.Action) (float64, float64) {
	if clip.FrameEnd > clip.FrameStart {
		return clip.FrameStart, clip.FrameEnd
	}
	start, end, _ := act.FrameRange()
	return start, end
}

func mirrorAction(src *scene.Action) *scene.Action {
	out := scene.NewAction(src.Name + "_mirrored")
	for ch, keys := range src.Curves {
		for _, k := range keys {
			mch, v := scene.MirrorChannel(ch, k.Value)
			out.Insert(mch, k.Frame, v)
		}
	}
	return out
}

// reverseAction maps frame f to end-(f-start), so the first key lands on
// the last frame.
func reverseAction(src *scene.Action, start, end float64) *scene.Action {
	out := scene.NewAction(src.Name + "_reversed")
	for ch, keys := range src.Curves {
		for _, k := range keys {
			out.Insert(ch, end-(k.Frame-start), k.Value)
		}
	}
	return out
}

func filterAction(src *scene.Action, bones []string) *scene.Action {
	keep := make(map[string]struct{}, len(bones))
	for _, b := range bones {
		keep[b] = struct{}{}
	}
	out := scene.NewAction(src.Name)
	for ch, keys := range src.Curves {
		if _, ok := keep[ch.Bone]; !ok {
			continue
		}
		out.Curves[ch] = append([]scene.Keyframe(nil), keys...)
	}
	return out
}

// insertAt merges every key of src into dst shifted by offset frames and
// returns the number of keys written.
func insertAt(dst, src *scene.Action, offset float64) int {
	n := 0
	for ch, keys := range src.Curves {
		for _, k := range keys {
			dst.Insert(ch, k.Frame+offset, k.Value)
			n++
		}
	}
	return n
}

func countKeys(act *scene.Action) int {
	n := 0
	for _, keys := range act.Curves {
		n += len(keys)
	}
	return n
}
