package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayloadBlendPose(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		wantErr string
	}{
		{name: "Valid", payload: map[string]any{"blend_factor": 0.5}},
		{name: "Zero", payload: map[string]any{"blend_factor": 0.0}},
		{name: "Missing", payload: map[string]any{}, wantErr: "Missing required field: blend_factor"},
		{name: "TooLarge", payload: map[string]any{"blend_factor": 1.5}, wantErr: "blend_factor must be <= 1"},
		{name: "Negative", payload: map[string]any{"blend_factor": -0.1}, wantErr: "blend_factor must be >= 0"},
		{name: "WrongType", payload: map[string]any{"blend_factor": "lots"}, wantErr: "Invalid blend_pose payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p BlendPose
			err := DecodePayload(NewCommand(TypeBlendPose, tt.payload), &p)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidPayload)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, p.BlendFactor)
			assert.Equal(t, tt.payload["blend_factor"], *p.BlendFactor)
		})
	}
}

func TestDecodePayloadApplyAnimation(t *testing.T) {
	var p ApplyAnimation
	err := DecodePayload(NewCommand(TypeApplyAnimation, map[string]any{
		"animation_id":   "a1",
		"animation_name": "Walk",
		"options":        map[string]any{"apply_mode": "INSERT", "mirror": true},
	}), &p)
	require.NoError(t, err)
	assert.Equal(t, "a1", p.ID())
	assert.Equal(t, ApplyModeInsert, p.Options.ApplyMode)
	assert.True(t, p.Options.Mirror)

	var alias ApplyAnimation
	require.NoError(t, DecodePayload(NewCommand(TypeApplyAnimation, map[string]any{"target_id": "t1"}), &alias))
	assert.Equal(t, "t1", alias.ID())

	var bad ApplyAnimation
	err = DecodePayload(NewCommand(TypeApplyAnimation, map[string]any{
		"animation_id": "a1",
		"options":      map[string]any{"apply_mode": "REPLACE"},
	}), &bad)
	assert.ErrorIs(t, err, ErrInvalidPayload)

	var missing ApplyAnimation
	err = DecodePayload(NewCommand(TypeApplyAnimation, nil), &missing)
	assert.ErrorContains(t, err, "Missing required field: animation_id")
}

func TestDecodePayloadApplyPoseAliases(t *testing.T) {
	var p ApplyPose
	require.NoError(t, DecodePayload(NewCommand(TypeApplyPose, map[string]any{"animation_id": "legacy"}), &p))
	assert.Equal(t, "legacy", p.ID())

	var none ApplyPose
	assert.Error(t, DecodePayload(NewCommand(TypeApplyPose, map[string]any{"mirror": true}), &none))
}

func TestDecodePayloadSelectBones(t *testing.T) {
	var p SelectBones
	require.NoError(t, DecodePayload(NewCommand(TypeSelectBones, map[string]any{
		"bone_names": []any{"hand.L", "hand.R"},
		"mirror":     true,
	}), &p))
	assert.Equal(t, []string{"hand.L", "hand.R"}, p.BoneNames)

	var empty SelectBones
	err := DecodePayload(NewCommand(TypeSelectBones, map[string]any{"bone_names": []any{}}), &empty)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestPayloadSchema(t *testing.T) {
	s := PayloadSchema(TypeBlendPose)
	require.NotNil(t, s)
	assert.Equal(t, TypeBlendPose, s.Title)
	prop, ok := s.Properties.Get("blend_factor")
	require.True(t, ok)
	assert.NotNil(t, prop)

	assert.Nil(t, PayloadSchema(TypeGetStatus))
	assert.Len(t, PayloadTypes(), 6)
}
