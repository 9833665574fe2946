package scene

import (
	"errors"
	"fmt"
	"sort"
)

// Interaction modes.
const (
	ModeObject = "OBJECT"
	ModePose   = "POSE"
)

var (
	// ErrNoArmature is returned when an operation needs an active armature.
	ErrNoArmature = errors.New("no armature selected")

	// ErrArmatureNotFound is returned for unknown armature names.
	ErrArmatureNotFound = errors.New("armature not found")
)

// Scene holds every armature and the loaded action data blocks.
type Scene struct {
	armatures map[string]*Armature
	order     []string
	active    string

	mode    string
	frame   float64
	autoKey bool

	// loaded holds actions brought in from resources, keyed by handle.
	loaded map[string]*Action
	nextID int
}

// New creates an empty scene in object mode at frame 1.
func New() *Scene {
	return &Scene{
		armatures: make(map[string]*Armature),
		mode:      ModeObject,
		frame:     1,
		loaded:    make(map[string]*Action),
	}
}

// AddArmature creates an armature. The first armature becomes active.
func (s *Scene) AddArmature(name string, bones []BoneSpec) (*Armature, error) {
	if name == "" {
		return nil, errors.New("armature name must not be empty")
	}
	if _, exists := s.armatures[name]; exists {
		return nil, fmt.Errorf("armature %q already exists", name)
	}
	a, err := newArmature(name, bones)
	if err != nil {
		return nil, err
	}
	s.armatures[name] = a
	s.order = append(s.order, name)
	if s.active == "" {
		s.active = name
	}
	return a, nil
}

// Armature looks an armature up by name.
func (s *Scene) Armature(name string) (*Armature, bool) {
	a, ok := s.armatures[name]
	return a, ok
}

// Armatures returns armature names in creation order.
func (s *Scene) Armatures() []string {
	return append([]string(nil), s.order...)
}

// SetActive makes name the active armature. An empty name clears it.
func (s *Scene) SetActive(name string) error {
	if name == "" {
		s.active = ""
		return nil
	}
	if _, ok := s.armatures[name]; !ok {
		return fmt.Errorf("%w: %s", ErrArmatureNotFound, name)
	}
	s.active = name
	return nil
}

// Active returns the active armature or nil.
func (s *Scene) Active() *Armature {
	if s.active == "" {
		return nil
	}
	return s.armatures[s.active]
}

// ActiveArmature returns the active armature or ErrNoArmature.
func (s *Scene) ActiveArmature() (*Armature, error) {
	if a := s.Active(); a != nil {
		return a, nil
	}
	return nil, ErrNoArmature
}

// Mode returns the interaction mode.
func (s *Scene) Mode() string { return s.mode }

// SetMode switches the interaction mode.
func (s *Scene) SetMode(mode string) { s.mode = mode }

// Frame returns the current frame.
func (s *Scene) Frame() float64 { return s.frame }

// SetFrame moves the playhead.
func (s *Scene) SetFrame(f float64) { s.frame = f }

// AutoKey reports whether pose changes are keyed automatically.
func (s *Scene) AutoKey() bool { return s.autoKey }

// SetAutoKey toggles automatic keying.
func (s *Scene) SetAutoKey(on bool) { s.autoKey = on }

// LoadAction registers act as a loaded data block and returns its handle.
// Callers must ReleaseAction the handle when done with it.
func (s *Scene) LoadAction(act *Action) string {
	s.nextID++
	handle := fmt.Sprintf("%s.%03d", act.Name, s.nextID)
	s.loaded[handle] = act
	return handle
}

// LoadedAction returns a loaded data block.
func (s *Scene) LoadedAction(handle string) (*Action, bool) {
	a, ok := s.loaded[handle]
	return a, ok
}

// ReleaseAction frees a loaded data block. Unknown handles are ignored.
func (s *Scene) ReleaseAction(handle string) {
	delete(s.loaded, handle)
}

// LoadedActions returns the handles of every loaded data block, sorted.
func (s *Scene) LoadedActions() []string {
	out := make([]string, 0, len(s.loaded))
	for h := range s.loaded {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}
