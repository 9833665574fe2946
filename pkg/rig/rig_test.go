package rig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		bones []string
		want  string
	}{
		{
			name: "Rigify",
			bones: []string{"torso", "spine_fk", "spine_fk.001", "spine_fk.002", "hips", "chest",
				"upper_arm_fk.L", "upper_arm_fk.R", "forearm_fk.L", "forearm_fk.R",
				"thigh_fk.L", "thigh_fk.R", "shoulder.L", "shoulder.R"},
			want: Rigify,
		},
		{
			name: "Mixamo",
			bones: []string{"Hips", "Spine", "Spine1", "Spine2", "LeftArm", "RightArm",
				"LeftLeg", "RightLeg", "LeftShoulder", "RightShoulder", "LeftForeArm", "RightForeArm"},
			want: Mixamo,
		},
		{
			name: "AutoRigPro",
			bones: []string{"c_spine_01.x", "c_spine_02.x", "c_spine_03.x", "c_shoulder.l", "c_shoulder.r",
				"c_arm_fk.l", "c_arm_fk.r", "c_forearm_fk.l", "c_forearm_fk.r"},
			want: AutoRigPro,
		},
		{
			name: "EpicSkeleton",
			bones: []string{"pelvis", "spine_01", "spine_02", "spine_03", "upperarm_l", "upperarm_r",
				"lowerarm_l", "lowerarm_r", "thigh_l", "thigh_r"},
			want: EpicSkeleton,
		},
		{
			name:  "Custom",
			bones: []string{"root", "body", "arm.L", "arm.R"},
			want:  Unknown,
		},
		{
			name: "Empty",
			want: Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, conf := Detect(tt.bones)
			assert.Equal(t, tt.want, got)
			if tt.want != Unknown {
				assert.GreaterOrEqual(t, conf, ConfidenceThreshold)
			} else {
				assert.Less(t, conf, ConfidenceThreshold)
			}
		})
	}
}

func TestScore(t *testing.T) {
	mixamo := Signatures[1]

	// Required only: 0.5 of 1.0, plus one pattern hit of two (0.1) when a
	// Left/Right bone is present.
	bones := map[string]struct{}{"Hips": {}, "Spine": {}}
	assert.InDelta(t, 0.5, Score(bones, mixamo), 1e-9)

	bones["LeftArm"] = struct{}{}
	assert.InDelta(t, 0.5+0.03+0.1, Score(bones, mixamo), 1e-9)

	assert.Zero(t, Score(bones, Signature{Type: "empty"}))
}
