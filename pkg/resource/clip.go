// Package resource loads animation and pose clips from the local filesystem
// or from S3.
//
// A clip is a JSON or YAML document listing F-curves by bone, transform path
// and component index. Pose clips may give a single value per curve instead
// of keyframes.
package resource

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/marmos91/animbridge/pkg/scene"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound is returned when a clip does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidClip is returned for clips that fail to decode or validate.
	ErrInvalidClip = errors.New("invalid clip")
)

// Clip kinds.
const (
	KindAnimation = "animation"
	KindPose      = "pose"
)

// Clip is a decoded animation or pose.
type Clip struct {
	ID         string  `json:"id" yaml:"id"`
	Name       string  `json:"name" yaml:"name"`
	Kind       string  `json:"kind" yaml:"kind"`
	RigType    string  `json:"rig_type,omitempty" yaml:"rig_type,omitempty"`
	FPS        float64 `json:"fps,omitempty" yaml:"fps,omitempty"`
	FrameStart float64 `json:"frame_start,omitempty" yaml:"frame_start,omitempty"`
	FrameEnd   float64 `json:"frame_end,omitempty" yaml:"frame_end,omitempty"`
	Curves     []Curve `json:"curves" yaml:"curves"`
}

// Curve is the keyed motion of one channel.
type Curve struct {
	Bone      string           `json:"bone" yaml:"bone"`
	Path      string           `json:"path" yaml:"path"`
	Index     int              `json:"index" yaml:"index"`
	Value     *float64         `json:"value,omitempty" yaml:"value,omitempty"`
	Keyframes []scene.Keyframe `json:"keyframes,omitempty" yaml:"keyframes,omitempty"`
}

// Channel returns the channel the curve drives.
func (c Curve) Channel() scene.ChannelID {
	return scene.ChannelID{Bone: c.Bone, Path: c.Path, Index: c.Index}
}

// Format of an encoded clip.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf picks the format from a file name or key. Unknown extensions
// are treated as JSON.
func FormatOf(name string) Format {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// IsClipFile reports whether name has a clip extension.
func IsClipFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// DecodeClip parses and validates a clip.
func DecodeClip(data []byte, format Format) (*Clip, error) {
	var c Clip
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &c)
	default:
		err = json.Unmarshal(data, &c)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClip, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// EncodeClip renders c in format.
func EncodeClip(c *Clip, format Format) ([]byte, error) {
	if format == FormatYAML {
		return yaml.Marshal(c)
	}
	return json.MarshalIndent(c, "", "  ")
}

// Validate checks the clip's kind and every curve's channel.
func (c *Clip) Validate() error {
	if c.Kind == "" {
		c.Kind = KindAnimation
	}
	if c.Kind != KindAnimation && c.Kind != KindPose {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidClip, c.Kind)
	}
	for i, cv := range c.Curves {
		if !cv.Channel().Valid() {
			return fmt.Errorf("%w: curve %d: bad channel %s", ErrInvalidClip, i, cv.Channel())
		}
		if cv.Value == nil && len(cv.Keyframes) == 0 {
			return fmt.Errorf("%w: curve %d (%s) has no keys", ErrInvalidClip, i, cv.Channel())
		}
	}
	return nil
}

// DisplayName returns Name, falling back to ID.
func (c *Clip) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// Action converts the clip into a scene action named after the clip. Single
// values become a key at FrameStart.
func (c *Clip) Action() *scene.Action {
	act := scene.NewAction(c.DisplayName())
	for _, cv := range c.Curves {
		ch := cv.Channel()
		if cv.Value != nil {
			act.Insert(ch, c.FrameStart, *cv.Value)
		}
		for _, k := range cv.Keyframes {
			act.Insert(ch, k.Frame, k.Value)
		}
	}
	return act
}

// PoseValues evaluates every curve at its first key: the pose the clip
// describes.
func (c *Clip) PoseValues() map[scene.ChannelID]float64 {
	act := c.Action()
	out := make(map[scene.ChannelID]float64, len(act.Curves))
	for ch, keys := range act.Curves {
		out[ch] = keys[0].Value
	}
	return out
}

// Bones returns the sorted bone names the clip animates.
func (c *Clip) Bones() []string {
	return c.Action().Bones()
}
