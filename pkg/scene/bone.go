package scene

// Rotation modes.
const (
	RotationQuaternion = "QUATERNION"
	RotationXYZ        = "XYZ"
)

// Transform is a bone's local pose.
type Transform struct {
	Location           [3]float64 `json:"location" yaml:"location"`
	RotationQuaternion [4]float64 `json:"rotation_quaternion" yaml:"rotation_quaternion"`
	RotationEuler      [3]float64 `json:"rotation_euler" yaml:"rotation_euler"`
	Scale              [3]float64 `json:"scale" yaml:"scale"`
}

// RestTransform is the identity pose.
func RestTransform() Transform {
	return Transform{
		RotationQuaternion: [4]float64{1, 0, 0, 0},
		Scale:              [3]float64{1, 1, 1},
	}
}

func (t *Transform) slot(path string, idx int) *float64 {
	if idx < 0 || idx >= PathWidth(path) {
		return nil
	}
	switch path {
	case PathLocation:
		return &t.Location[idx]
	case PathRotationQuaternion:
		return &t.RotationQuaternion[idx]
	case PathRotationEuler:
		return &t.RotationEuler[idx]
	case PathScale:
		return &t.Scale[idx]
	}
	return nil
}

// Bone is a posable bone.
type Bone struct {
	Name         string
	Parent       string
	RotationMode string
	Selected     bool
	Pose         Transform
}

// BoneSpec describes a bone when building an armature.
type BoneSpec struct {
	Name         string `json:"name" yaml:"name"`
	Parent       string `json:"parent,omitempty" yaml:"parent,omitempty"`
	RotationMode string `json:"rotation_mode,omitempty" yaml:"rotation_mode,omitempty"`
}

// RotationPath returns the rotation channel path keyed for this bone.
func (b *Bone) RotationPath() string {
	if b.RotationMode == RotationQuaternion || b.RotationMode == "" {
		return PathRotationQuaternion
	}
	return PathRotationEuler
}
