package scene

import (
	"errors"
	"fmt"
)

// ErrBoneNotFound is returned for unknown bone names.
var ErrBoneNotFound = errors.New("bone not found")

// Armature is a rig: an ordered set of bones plus an optional active action.
type Armature struct {
	Name   string
	Action *Action

	bones []*Bone
	index map[string]*Bone
}

func newArmature(name string, specs []BoneSpec) (*Armature, error) {
	a := &Armature{Name: name, index: make(map[string]*Bone, len(specs))}
	for _, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("armature %q: bone with empty name", name)
		}
		if _, dup := a.index[s.Name]; dup {
			return nil, fmt.Errorf("armature %q: duplicate bone %q", name, s.Name)
		}
		mode := s.RotationMode
		if mode == "" {
			mode = RotationQuaternion
		}
		b := &Bone{Name: s.Name, Parent: s.Parent, RotationMode: mode, Pose: RestTransform()}
		a.bones = append(a.bones, b)
		a.index[s.Name] = b
	}
	return a, nil
}

// Bone looks a bone up by name.
func (a *Armature) Bone(name string) (*Bone, bool) {
	b, ok := a.index[name]
	return b, ok
}

// Bones returns the bones in creation order.
func (a *Armature) Bones() []*Bone {
	return a.bones
}

// BoneNames returns bone names in creation order.
func (a *Armature) BoneNames() []string {
	out := make([]string, len(a.bones))
	for i, b := range a.bones {
		out[i] = b.Name
	}
	return out
}

// BoneCount returns the number of bones.
func (a *Armature) BoneCount() int { return len(a.bones) }

// Channels returns every transform channel of every bone.
func (a *Armature) Channels() []ChannelID {
	out := make([]ChannelID, 0, len(a.bones)*13)
	for _, b := range a.bones {
		for _, p := range ChannelPaths {
			for i := 0; i < PathWidth(p); i++ {
				out = append(out, ChannelID{Bone: b.Name, Path: p, Index: i})
			}
		}
	}
	return out
}

// Get reads one channel. ok is false for unknown bones or channels.
func (a *Armature) Get(ch ChannelID) (float64, bool) {
	b, ok := a.index[ch.Bone]
	if !ok {
		return 0, false
	}
	p := b.Pose.slot(ch.Path, ch.Index)
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Set writes one channel and reports whether it exists.
func (a *Armature) Set(ch ChannelID, v float64) bool {
	b, ok := a.index[ch.Bone]
	if !ok {
		return false
	}
	p := b.Pose.slot(ch.Path, ch.Index)
	if p == nil {
		return false
	}
	*p = v
	return true
}

// ResetPose puts every bone back to its rest transform.
func (a *Armature) ResetPose() {
	for _, b := range a.bones {
		b.Pose = RestTransform()
	}
}

// Select selects the named bones and returns how many exist. Without add the
// previous selection is cleared first.
func (a *Armature) Select(names []string, add bool) int {
	if !add {
		a.ClearSelection()
	}
	n := 0
	for _, name := range names {
		if b, ok := a.index[name]; ok {
			b.Selected = true
			n++
		}
	}
	return n
}

// ClearSelection deselects every bone.
func (a *Armature) ClearSelection() {
	for _, b := range a.bones {
		b.Selected = false
	}
}

// SelectedBones returns selected bone names in creation order.
func (a *Armature) SelectedBones() []string {
	var out []string
	for _, b := range a.bones {
		if b.Selected {
			out = append(out, b.Name)
		}
	}
	return out
}

// EnsureAction returns the active action, creating "<armature>_Action" when
// there is none.
func (a *Armature) EnsureAction() *Action {
	if a.Action == nil {
		a.Action = NewAction(a.Name + "_Action")
	}
	return a.Action
}

// KeyframeBones inserts location, rotation (by the bone's rotation mode) and
// scale keys for each named bone at frame. It returns how many bones were
// keyed; unknown names are skipped.
func (a *Armature) KeyframeBones(names []string, frame float64) int {
	act := a.EnsureAction()
	n := 0
	for _, name := range names {
		b, ok := a.index[name]
		if !ok {
			continue
		}
		for _, p := range []string{PathLocation, b.RotationPath(), PathScale} {
			for i := 0; i < PathWidth(p); i++ {
				ch := ChannelID{Bone: name, Path: p, Index: i}
				v, _ := a.Get(ch)
				act.Insert(ch, frame, v)
			}
		}
		n++
	}
	return n
}

// ApplyAction poses the armature from act evaluated at frame. Curves for
// unknown bones are ignored. It returns the number of channels written.
func (a *Armature) ApplyAction(act *Action, frame float64) int {
	n := 0
	for ch := range act.Curves {
		v, ok := act.Evaluate(ch, frame)
		if ok && a.Set(ch, v) {
			n++
		}
	}
	return n
}
