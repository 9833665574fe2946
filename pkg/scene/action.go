package scene

import (
	"math"
	"sort"
)

// Keyframe is one key on an F-curve.
type Keyframe struct {
	Frame float64 `json:"frame" yaml:"frame"`
	Value float64 `json:"value" yaml:"value"`
}

// Action is a named set of F-curves, one per channel.
type Action struct {
	Name   string
	Slot   string
	Curves map[ChannelID][]Keyframe
}

// NewAction creates an empty action.
func NewAction(name string) *Action {
	return &Action{Name: name, Curves: make(map[ChannelID][]Keyframe)}
}

// Insert sets the key at frame, replacing an existing key on that frame.
// Keys stay sorted by frame.
func (a *Action) Insert(ch ChannelID, frame, value float64) {
	keys := a.Curves[ch]
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Frame >= frame })
	if i < len(keys) && keys[i].Frame == frame {
		keys[i].Value = value
		return
	}
	keys = append(keys, Keyframe{})
	copy(keys[i+1:], keys[i:])
	keys[i] = Keyframe{Frame: frame, Value: value}
	a.Curves[ch] = keys
}

// Evaluate returns the value of ch at frame using linear interpolation,
// holding the first and last keys outside the keyed range.
func (a *Action) Evaluate(ch ChannelID, frame float64) (float64, bool) {
	keys := a.Curves[ch]
	if len(keys) == 0 {
		return 0, false
	}
	if frame <= keys[0].Frame {
		return keys[0].Value, true
	}
	last := keys[len(keys)-1]
	if frame >= last.Frame {
		return last.Value, true
	}
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Frame >= frame })
	k0, k1 := keys[i-1], keys[i]
	if k1.Frame == frame {
		return k1.Value, true
	}
	f := (frame - k0.Frame) / (k1.Frame - k0.Frame)
	return (1-f)*k0.Value + f*k1.Value, true
}

// FrameRange returns the first and last keyed frames.
func (a *Action) FrameRange() (start, end float64, ok bool) {
	start, end = math.Inf(1), math.Inf(-1)
	for _, keys := range a.Curves {
		if len(keys) == 0 {
			continue
		}
		start = math.Min(start, keys[0].Frame)
		end = math.Max(end, keys[len(keys)-1].Frame)
		ok = true
	}
	if !ok {
		return 0, 0, false
	}
	return start, end, true
}

// Bones returns the sorted names of every bone with at least one curve.
func (a *Action) Bones() []string {
	seen := make(map[string]struct{})
	for ch := range a.Curves {
		seen[ch.Bone] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// Channels returns every curve channel in a stable order.
func (a *Action) Channels() []ChannelID {
	out := make([]ChannelID, 0, len(a.Curves))
	for ch := range a.Curves {
		out = append(out, ch)
	}
	SortChannels(out)
	return out
}

// SortChannels orders channels by bone, path and index.
func SortChannels(chs []ChannelID) {
	sort.Slice(chs, func(i, j int) bool {
		a, b := chs[i], chs[j]
		if a.Bone != b.Bone {
			return a.Bone < b.Bone
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Index < b.Index
	})
}
