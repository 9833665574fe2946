package handlers

import (
	"context"
	"fmt"

	"github.com/marmos91/animbridge/pkg/protocol"
	"github.com/marmos91/animbridge/pkg/rig"
	"github.com/marmos91/animbridge/pkg/scene"
)

// SelectBones selects bones on the active armature and switches to pose
// mode. Unknown names are ignored; the reply counts the bones selected.
func (h *Handlers) SelectBones(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	if isEmptyList(cmd.Payload["bone_names"]) {
		return protocol.Errorf("No bone names provided"), nil
	}

	var p protocol.SelectBones
	if err := protocol.DecodePayload(cmd, &p); err != nil {
		return protocol.Response{}, err
	}

	arm, resp := h.activeArmature()
	if resp != nil {
		return *resp, nil
	}
	h.scene.SetMode(scene.ModePose)

	names := p.BoneNames
	if p.Mirror {
		names = scene.MirrorBoneNames(names)
	}
	n := arm.Select(names, p.AddToSelection)

	msg := fmt.Sprintf("Selected %d bones", n)
	if p.Mirror {
		msg += " (mirrored)"
	}
	if p.AddToSelection {
		msg += " (added to selection)"
	}
	return protocol.Success(msg, map[string]any{"selected_count": n}), nil
}

// GetArmatureInfo describes the active armature. Without one it still
// succeeds and reports has_armature=false.
func (h *Handlers) GetArmatureInfo(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	arm := h.scene.Active()
	if arm == nil {
		return protocol.Success("", map[string]any{
			"has_armature":  false,
			"armature_name": nil,
			"mode":          h.scene.Mode(),
		}), nil
	}

	var current any
	if arm.Action != nil {
		current = arm.Action.Name
	}
	rigType, confidence := rig.Detect(arm.BoneNames())

	return protocol.Success("", map[string]any{
		"has_armature":   true,
		"armature_name":  arm.Name,
		"mode":           h.scene.Mode(),
		"bone_count":     arm.BoneCount(),
		"has_action":     arm.Action != nil,
		"current_action": current,
		"rig_type":       rigType,
		"rig_confidence": confidence,
		"selected_bones": arm.SelectedBones(),
	}), nil
}

func isEmptyList(v any) bool {
	switch l := v.(type) {
	case nil:
		return true
	case []any:
		return len(l) == 0
	case []string:
		return len(l) == 0
	}
	return false
}
