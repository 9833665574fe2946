// Package poseblend implements interactive blending from the current pose of
// a rig toward a target pose.
//
// A session snapshots the rig when it starts. Every update first restores
// that snapshot and then interpolates toward the target, so updates are
// absolute rather than cumulative and a cancel restores the original pose
// exactly.
package poseblend

import (
	"context"
	"fmt"
	"sort"

	"github.com/marmos91/animbridge/internal/logger"
	"github.com/marmos91/animbridge/pkg/scene"
)

// Rig is the posable surface a session works on. *scene.Armature
// satisfies it.
type Rig interface {
	Channels() []scene.ChannelID
	Get(ch scene.ChannelID) (float64, bool)
	Set(ch scene.ChannelID, v float64) bool
}

// Target is a loaded pose. Release frees whatever the loader allocated and
// is called exactly once per target.
type Target struct {
	Name    string
	Values  map[scene.ChannelID]float64
	Release func()
}

// Loader resolves a pose reference into a Target.
type Loader func(ctx context.Context, ref string) (*Target, error)

// CommitFunc performs the discrete side effect of a committed blend, such as
// keying the affected bones. It returns how many bones it touched.
type CommitFunc func(bones []string) (int, error)

// EndResult describes a finished session.
type EndResult struct {
	Name      string
	Cancelled bool
	Committed int
}

// Session is one host's blend session. It is not safe for concurrent use and
// lives on the host tick goroutine.
type Session struct {
	load Loader

	state    State
	rig      Rig
	target   *Target
	snapshot map[scene.ChannelID]float64

	factor float64
	mirror bool
}

// New creates an inactive session loading targets with load.
func New(load Loader) *Session {
	return &Session{load: load}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Active reports whether a session is running.
func (s *Session) Active() bool { return s.state == Active }

// TargetName returns the active target's name, or "".
func (s *Session) TargetName() string {
	if s.target == nil {
		return ""
	}
	return s.target.Name
}

// Factor returns the last applied blend factor and mirror flag.
func (s *Session) Factor() (float64, bool) { return s.factor, s.mirror }

// Start loads ref, snapshots every channel of rig and activates the session.
// A failed load leaves the session inactive and the rig untouched.
func (s *Session) Start(ctx context.Context, rig Rig, ref string) error {
	next, err := transition(s.state, EventStart)
	if err != nil {
		return err
	}

	target, err := s.load(ctx, ref)
	if err != nil {
		return fmt.Errorf("load blend target %q: %w", ref, err)
	}

	// A target left behind by an earlier session must not leak.
	s.releaseTarget()

	snap := make(map[scene.ChannelID]float64)
	for _, ch := range rig.Channels() {
		if v, ok := rig.Get(ch); ok {
			snap[ch] = v
		}
	}

	s.rig = rig
	s.target = target
	s.snapshot = snap
	s.factor, s.mirror = 0, false
	s.state = next

	logger.Debug("Blend session started",
		logger.KeyTarget, target.Name, logger.KeyCount, len(target.Values))
	return nil
}

// Update restores the snapshot and blends every target channel by factor:
// value = (1-factor)*original + factor*target. With mirror the target is
// mirrored across the rig's X=0 plane first. factor is not clamped.
func (s *Session) Update(factor float64, mirror bool) error {
	next, err := transition(s.state, EventUpdate)
	if err != nil {
		return err
	}

	s.restore()
	for ch, tv := range s.target.Values {
		if mirror {
			ch, tv = scene.MirrorChannel(ch, tv)
		}
		orig, ok := s.snapshot[ch]
		if !ok {
			continue
		}
		s.rig.Set(ch, (1-factor)*orig+factor*tv)
	}

	s.factor, s.mirror = factor, mirror
	s.state = next
	return nil
}

// End finishes the session. A cancelled session restores the snapshot;
// otherwise the blended pose is kept and commit, when non-nil, runs once
// for the bones the target affects. The target is released either way.
func (s *Session) End(cancelled bool, commit CommitFunc) (EndResult, error) {
	next, err := transition(s.state, EventEnd)
	if err != nil {
		return EndResult{}, err
	}

	res := EndResult{Name: s.target.Name, Cancelled: cancelled}
	if cancelled {
		s.restore()
	} else if commit != nil {
		n, cerr := commit(s.affectedBones())
		if cerr != nil {
			// The pose is kept; only the commit side effect failed.
			s.reset(next)
			return res, fmt.Errorf("commit blend: %w", cerr)
		}
		res.Committed = n
	}

	s.reset(next)
	return res, nil
}

// Abort drops the session without restoring the pose. Used when a handler
// fails halfway.
func (s *Session) Abort() {
	next, _ := transition(s.state, EventAbort)
	s.reset(next)
}

func (s *Session) restore() {
	for ch, v := range s.snapshot {
		s.rig.Set(ch, v)
	}
}

// affectedBones returns the rig bones the last update wrote to.
func (s *Session) affectedBones() []string {
	seen := make(map[string]struct{})
	var out []string
	for ch := range s.target.Values {
		if s.mirror {
			ch, _ = scene.MirrorChannel(ch, 0)
		}
		if _, ok := s.snapshot[ch]; !ok {
			continue
		}
		if _, dup := seen[ch.Bone]; dup {
			continue
		}
		seen[ch.Bone] = struct{}{}
		out = append(out, ch.Bone)
	}
	sort.Strings(out)
	return out
}

func (s *Session) releaseTarget() {
	if s.target != nil && s.target.Release != nil {
		s.target.Release()
	}
	s.target = nil
}

func (s *Session) reset(next State) {
	s.releaseTarget()
	s.rig = nil
	s.snapshot = nil
	s.factor, s.mirror = 0, false
	s.state = next
}
