package scene

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk description of a scene the host starts with.
type File struct {
	Armatures []ArmatureFile `yaml:"armatures" json:"armatures"`
	Active    string         `yaml:"active,omitempty" json:"active,omitempty"`
	Frame     float64        `yaml:"frame,omitempty" json:"frame,omitempty"`
	AutoKey   bool           `yaml:"auto_key,omitempty" json:"auto_key,omitempty"`
}

// ArmatureFile describes one armature in a scene file.
type ArmatureFile struct {
	Name  string     `yaml:"name" json:"name"`
	Bones []BoneSpec `yaml:"bones" json:"bones"`
}

// Build creates a scene from f.
func (f *File) Build() (*Scene, error) {
	s := New()
	for _, a := range f.Armatures {
		if _, err := s.AddArmature(a.Name, a.Bones); err != nil {
			return nil, err
		}
	}
	if f.Active != "" {
		if err := s.SetActive(f.Active); err != nil {
			return nil, err
		}
	}
	if f.Frame != 0 {
		s.SetFrame(f.Frame)
	}
	s.SetAutoKey(f.AutoKey)
	return s, nil
}

// LoadFile reads a YAML scene file.
func LoadFile(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse scene file %s: %w", path, err)
	}
	s, err := f.Build()
	if err != nil {
		return nil, fmt.Errorf("scene file %s: %w", path, err)
	}
	return s, nil
}
