package resource

import (
	"testing"

	"github.com/marmos91/animbridge/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const walkJSON = `{
  "id": "a1",
  "name": "Walk Cycle",
  "kind": "animation",
  "rig_type": "rigify",
  "fps": 24,
  "frame_start": 1,
  "frame_end": 9,
  "curves": [
    {"bone": "torso", "path": "location", "index": 2,
     "keyframes": [{"frame": 1, "value": 0}, {"frame": 5, "value": 0.1}, {"frame": 9, "value": 0}]},
    {"bone": "thigh_fk.L", "path": "rotation_euler", "index": 0,
     "keyframes": [{"frame": 1, "value": 0.4}, {"frame": 9, "value": -0.4}]}
  ]
}`

const idleYAML = `
id: p1
name: Idle
kind: pose
curves:
  - bone: hand.L
    path: location
    index: 0
    value: 0.25
  - bone: hand.L
    path: rotation_quaternion
    index: 0
    value: 0.9
`

func TestDecodeClip(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		c, err := DecodeClip([]byte(walkJSON), FormatJSON)
		require.NoError(t, err)
		assert.Equal(t, "Walk Cycle", c.DisplayName())
		assert.Equal(t, KindAnimation, c.Kind)
		assert.Len(t, c.Curves, 2)
		assert.Equal(t, []string{"thigh_fk.L", "torso"}, c.Bones())

		act := c.Action()
		v, ok := act.Evaluate(scene.ChannelID{Bone: "torso", Path: scene.PathLocation, Index: 2}, 5)
		require.True(t, ok)
		assert.Equal(t, 0.1, v)
	})

	t.Run("YAMLPose", func(t *testing.T) {
		c, err := DecodeClip([]byte(idleYAML), FormatYAML)
		require.NoError(t, err)
		assert.Equal(t, KindPose, c.Kind)
		assert.Equal(t, map[scene.ChannelID]float64{
			{Bone: "hand.L", Path: scene.PathLocation, Index: 0}:           0.25,
			{Bone: "hand.L", Path: scene.PathRotationQuaternion, Index: 0}: 0.9,
		}, c.PoseValues())
	})

	t.Run("DefaultKind", func(t *testing.T) {
		c, err := DecodeClip([]byte(`{"id":"x","curves":[]}`), FormatJSON)
		require.NoError(t, err)
		assert.Equal(t, KindAnimation, c.Kind)
		assert.Equal(t, "x", c.DisplayName())
	})
}

func TestDecodeClipInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"Syntax", `{"id":`},
		{"UnknownKind", `{"kind":"rig"}`},
		{"BadPath", `{"curves":[{"bone":"a","path":"color","index":0,"value":1}]}`},
		{"IndexOutOfRange", `{"curves":[{"bone":"a","path":"location","index":3,"value":1}]}`},
		{"MissingBone", `{"curves":[{"path":"location","index":0,"value":1}]}`},
		{"NoKeys", `{"curves":[{"bone":"a","path":"scale","index":0}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeClip([]byte(tt.body), FormatJSON)
			assert.ErrorIs(t, err, ErrInvalidClip)
		})
	}
}

func TestEncodeClipRoundTrip(t *testing.T) {
	c, err := DecodeClip([]byte(idleYAML), FormatYAML)
	require.NoError(t, err)

	for _, f := range []Format{FormatJSON, FormatYAML} {
		data, err := EncodeClip(c, f)
		require.NoError(t, err)
		back, err := DecodeClip(data, f)
		require.NoError(t, err)
		assert.Equal(t, c.PoseValues(), back.PoseValues(), string(f))
	}
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatOf("poses/idle.YAML"))
	assert.Equal(t, FormatYAML, FormatOf("idle.yml"))
	assert.Equal(t, FormatJSON, FormatOf("walk.json"))
	assert.Equal(t, FormatJSON, FormatOf("walk"))
	assert.True(t, IsClipFile("a/b.yml"))
	assert.False(t, IsClipFile("a/b.blend"))
}
