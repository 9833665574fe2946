package scene

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sceneYAML = `armatures:
  - name: Hero
    bones:
      - name: hips
      - name: hand.L
        parent: hips
      - name: head
        parent: hips
        rotation_mode: XYZ
  - name: Sidekick
    bones:
      - name: root
active: Sidekick
frame: 12
auto_key: true
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sceneYAML), 0o644))

	s, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hero", "Sidekick"}, s.Armatures())
	assert.Equal(t, "Sidekick", s.Active().Name)
	assert.Equal(t, 12.0, s.Frame())
	assert.True(t, s.AutoKey())

	hero, ok := s.Armature("Hero")
	require.True(t, ok)
	head, ok := hero.Bone("head")
	require.True(t, ok)
	assert.Equal(t, PathRotationEuler, head.RotationPath())
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("armatures: [{name: A}]\nactive: B\n"), 0o644))
	_, err = LoadFile(bad)
	assert.ErrorIs(t, err, ErrArmatureNotFound)
}
