package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRig(t *testing.T) (*Scene, *Armature) {
	t.Helper()
	s := New()
	a, err := s.AddArmature("Rig", []BoneSpec{
		{Name: "hips"},
		{Name: "hand.L", Parent: "hips"},
		{Name: "hand.R", Parent: "hips"},
		{Name: "head", Parent: "hips", RotationMode: RotationXYZ},
	})
	require.NoError(t, err)
	return s, a
}

func TestMirrorBoneName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"hand.L", "hand.R"},
		{"hand.R", "hand.L"},
		{"thigh_L", "thigh_R"},
		{"c_arm_fk.l", "c_arm_fk.r"},
		{"upperarm_r", "upperarm_l"},
		{"LeftArm", "RightArm"},
		{"mixamorig:RightHand", "mixamorig:LeftHand"},
		{"left_eye", "right_eye"},
		{"spine", "spine"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MirrorBoneName(tt.in))
		})
	}
}

func TestMirrorChannel(t *testing.T) {
	tests := []struct {
		name string
		ch   ChannelID
		flip bool
	}{
		{"LocationX", ChannelID{"hand.L", PathLocation, 0}, true},
		{"LocationY", ChannelID{"hand.L", PathLocation, 1}, false},
		{"QuatW", ChannelID{"hand.L", PathRotationQuaternion, 0}, false},
		{"QuatX", ChannelID{"hand.L", PathRotationQuaternion, 1}, false},
		{"QuatY", ChannelID{"hand.L", PathRotationQuaternion, 2}, true},
		{"QuatZ", ChannelID{"hand.L", PathRotationQuaternion, 3}, true},
		{"EulerX", ChannelID{"hand.L", PathRotationEuler, 0}, false},
		{"EulerY", ChannelID{"hand.L", PathRotationEuler, 1}, true},
		{"EulerZ", ChannelID{"hand.L", PathRotationEuler, 2}, true},
		{"Scale", ChannelID{"hand.L", PathScale, 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, v := MirrorChannel(tt.ch, 0.25)
			assert.Equal(t, "hand.R", ch.Bone)
			assert.Equal(t, tt.ch.Path, ch.Path)
			assert.Equal(t, tt.ch.Index, ch.Index)
			if tt.flip {
				assert.Equal(t, -0.25, v)
			} else {
				assert.Equal(t, 0.25, v)
			}
		})
	}
}

func TestActionInsertEvaluate(t *testing.T) {
	act := NewAction("Walk")
	ch := ChannelID{Bone: "hips", Path: PathLocation, Index: 2}

	act.Insert(ch, 10, 1)
	act.Insert(ch, 1, 0)
	act.Insert(ch, 5, 0.5)
	act.Insert(ch, 10, 2) // replaces

	require.Len(t, act.Curves[ch], 3)
	assert.Equal(t, []Keyframe{{1, 0}, {5, 0.5}, {10, 2}}, act.Curves[ch])

	for _, tt := range []struct{ frame, want float64 }{
		{0, 0}, {1, 0}, {3, 0.25}, {5, 0.5}, {7.5, 1.25}, {10, 2}, {20, 2},
	} {
		v, ok := act.Evaluate(ch, tt.frame)
		assert.True(t, ok)
		assert.InDelta(t, tt.want, v, 1e-12, "frame %v", tt.frame)
	}

	_, ok := act.Evaluate(ChannelID{Bone: "nope", Path: PathScale}, 1)
	assert.False(t, ok)

	start, end, ok := act.FrameRange()
	require.True(t, ok)
	assert.Equal(t, 1.0, start)
	assert.Equal(t, 10.0, end)
	assert.Equal(t, []string{"hips"}, act.Bones())
}

func TestArmatureChannels(t *testing.T) {
	_, a := testRig(t)

	assert.Len(t, a.Channels(), 4*13)

	ch := ChannelID{Bone: "hand.L", Path: PathRotationQuaternion, Index: 0}
	v, ok := a.Get(ch)
	require.True(t, ok)
	assert.Equal(t, 1.0, v, "rest quaternion is identity")

	assert.True(t, a.Set(ch, 0.7))
	v, _ = a.Get(ch)
	assert.Equal(t, 0.7, v)

	assert.False(t, a.Set(ChannelID{Bone: "tail", Path: PathLocation}, 1))
	assert.False(t, a.Set(ChannelID{Bone: "hips", Path: PathLocation, Index: 3}, 1))
	assert.False(t, a.Set(ChannelID{Bone: "hips", Path: "color"}, 1))

	a.ResetPose()
	v, _ = a.Get(ch)
	assert.Equal(t, 1.0, v)
}

func TestArmatureSelection(t *testing.T) {
	_, a := testRig(t)

	assert.Equal(t, 2, a.Select([]string{"hand.L", "head", "missing"}, false))
	assert.Equal(t, []string{"hand.L", "head"}, a.SelectedBones())

	assert.Equal(t, 1, a.Select([]string{"hand.R"}, true))
	assert.Equal(t, []string{"hand.L", "hand.R", "head"}, a.SelectedBones())

	assert.Equal(t, 1, a.Select([]string{"hips"}, false))
	assert.Equal(t, []string{"hips"}, a.SelectedBones())
}

func TestKeyframeBones(t *testing.T) {
	_, a := testRig(t)
	a.Set(ChannelID{Bone: "head", Path: PathRotationEuler, Index: 1}, 0.3)

	n := a.KeyframeBones([]string{"hand.L", "head", "ghost"}, 12)
	assert.Equal(t, 2, n)
	require.NotNil(t, a.Action)
	assert.Equal(t, "Rig_Action", a.Action.Name)

	// hand.L: location + quaternion + scale; head: location + euler + scale.
	assert.Len(t, a.Action.Curves, (3+4+3)+(3+3+3))
	v, ok := a.Action.Evaluate(ChannelID{Bone: "head", Path: PathRotationEuler, Index: 1}, 12)
	require.True(t, ok)
	assert.Equal(t, 0.3, v)
	_, ok = a.Action.Evaluate(ChannelID{Bone: "head", Path: PathRotationQuaternion, Index: 0}, 12)
	assert.False(t, ok)
}

func TestSceneActiveAndLoadedActions(t *testing.T) {
	s := New()
	assert.Nil(t, s.Active())
	_, err := s.ActiveArmature()
	assert.ErrorIs(t, err, ErrNoArmature)

	_, err = s.AddArmature("A", []BoneSpec{{Name: "root"}})
	require.NoError(t, err)
	_, err = s.AddArmature("B", nil)
	require.NoError(t, err)
	_, err = s.AddArmature("A", nil)
	assert.Error(t, err)

	assert.Equal(t, "A", s.Active().Name)
	require.NoError(t, s.SetActive("B"))
	assert.Equal(t, "B", s.Active().Name)
	assert.ErrorIs(t, s.SetActive("C"), ErrArmatureNotFound)
	assert.Equal(t, []string{"A", "B"}, s.Armatures())

	h1 := s.LoadAction(NewAction("Pose"))
	h2 := s.LoadAction(NewAction("Pose"))
	assert.NotEqual(t, h1, h2)
	assert.Len(t, s.LoadedActions(), 2)

	s.ReleaseAction(h1)
	s.ReleaseAction("unknown")
	assert.Equal(t, []string{h2}, s.LoadedActions())
}

func TestDuplicateBone(t *testing.T) {
	_, err := New().AddArmature("Rig", []BoneSpec{{Name: "a"}, {Name: "a"}})
	assert.Error(t, err)
}
