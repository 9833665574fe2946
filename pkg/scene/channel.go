package scene

import (
	"fmt"
	"strings"
)

// Transform channel paths.
const (
	PathLocation           = "location"
	PathRotationQuaternion = "rotation_quaternion"
	PathRotationEuler      = "rotation_euler"
	PathScale              = "scale"
)

// ChannelPaths lists every transform path in evaluation order.
var ChannelPaths = []string{PathLocation, PathRotationQuaternion, PathRotationEuler, PathScale}

// PathWidth returns the number of components of path, or 0 if unknown.
func PathWidth(path string) int {
	switch path {
	case PathLocation, PathRotationEuler, PathScale:
		return 3
	case PathRotationQuaternion:
		return 4
	}
	return 0
}

// ChannelID addresses one animatable scalar of a bone.
type ChannelID struct {
	Bone  string `json:"bone" yaml:"bone"`
	Path  string `json:"path" yaml:"path"`
	Index int    `json:"index" yaml:"index"`
}

func (c ChannelID) String() string {
	return fmt.Sprintf("%s.%s[%d]", c.Bone, c.Path, c.Index)
}

// Valid reports whether Path is known and Index within its width.
func (c ChannelID) Valid() bool {
	return c.Bone != "" && c.Index >= 0 && c.Index < PathWidth(c.Path)
}

// mirrorPairs are tried in order; the first substring found in a name is
// swapped everywhere in that name.
var mirrorPairs = [][2]string{
	{".L", ".R"}, {".R", ".L"},
	{"_L", "_R"}, {"_R", "_L"},
	{".l", ".r"}, {".r", ".l"},
	{"_l", "_r"}, {"_r", "_l"},
	{"Left", "Right"}, {"Right", "Left"},
	{"left", "right"}, {"right", "left"},
}

// MirrorBoneName returns the opposite-side name of a bone, or name itself
// when it carries no side marker.
func MirrorBoneName(name string) string {
	for _, p := range mirrorPairs {
		if strings.Contains(name, p[0]) {
			return strings.ReplaceAll(name, p[0], p[1])
		}
	}
	return name
}

// MirrorBoneNames mirrors every name, preserving order.
func MirrorBoneNames(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = MirrorBoneName(n)
	}
	return out
}

// MirrorChannel maps a channel value across the X=0 plane: the bone name is
// swapped and location x, quaternion y/z and euler y/z change sign.
func MirrorChannel(ch ChannelID, v float64) (ChannelID, float64) {
	ch.Bone = MirrorBoneName(ch.Bone)
	if flipsSign(ch.Path, ch.Index) {
		v = -v
	}
	return ch, v
}

func flipsSign(path string, idx int) bool {
	switch path {
	case PathLocation:
		return idx == 0
	case PathRotationQuaternion:
		return idx == 2 || idx == 3
	case PathRotationEuler:
		return idx == 1 || idx == 2
	}
	return false
}
