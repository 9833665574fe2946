package host

import (
	"time"

	"github.com/marmos91/animbridge/pkg/dispatch"
	"github.com/marmos91/animbridge/pkg/protocol"
)

// Status is a point-in-time view of the host, safe to read from any
// goroutine.
type Status struct {
	Version        string                 `json:"version" yaml:"version"`
	StartedAt      time.Time              `json:"started_at" yaml:"started_at"`
	Uptime         string                 `json:"uptime" yaml:"uptime"`
	Ready          bool                   `json:"ready" yaml:"ready"`
	BoundPort      int                    `json:"bound_port" yaml:"bound_port"`
	ActiveSessions int                    `json:"active_sessions" yaml:"active_sessions"`
	QueueDepth     int                    `json:"queue_depth" yaml:"queue_depth"`
	LastDrain      DrainStatus            `json:"last_drain" yaml:"last_drain"`
	Scene          SceneStatus            `json:"scene" yaml:"scene"`
	Blend          BlendStatus            `json:"blend" yaml:"blend"`
	Mailbox        *MailboxStatus         `json:"mailbox,omitempty" yaml:"mailbox,omitempty"`
	Handlers       []dispatch.HandlerInfo `json:"handlers" yaml:"handlers"`
}

// DrainStatus mirrors the last scheduler drain.
type DrainStatus struct {
	Executed  int     `json:"executed" yaml:"executed"`
	Heavy     int     `json:"heavy" yaml:"heavy"`
	Deferred  int     `json:"deferred" yaml:"deferred"`
	ElapsedMs float64 `json:"elapsed_ms" yaml:"elapsed_ms"`
	Reason    string  `json:"reason" yaml:"reason"`
}

// SceneStatus summarises the scene.
type SceneStatus struct {
	Armatures      []string `json:"armatures" yaml:"armatures"`
	ActiveArmature string   `json:"active_armature,omitempty" yaml:"active_armature,omitempty"`
	Mode           string   `json:"mode" yaml:"mode"`
	Frame          float64  `json:"frame" yaml:"frame"`
	AutoKey        bool     `json:"auto_key" yaml:"auto_key"`
	CurrentAction  string   `json:"current_action,omitempty" yaml:"current_action,omitempty"`
	LoadedActions  int      `json:"loaded_actions" yaml:"loaded_actions"`
}

// BlendStatus describes the pose blend session.
type BlendStatus struct {
	State  string  `json:"state" yaml:"state"`
	Target string  `json:"target,omitempty" yaml:"target,omitempty"`
	Factor float64 `json:"factor" yaml:"factor"`
	Mirror bool    `json:"mirror" yaml:"mirror"`
}

// MailboxStatus describes the mailbox consumer.
type MailboxStatus struct {
	Dir      string `json:"dir" yaml:"dir"`
	Layout   string `json:"layout" yaml:"layout"`
	Order    string `json:"order" yaml:"order"`
	Consumed int    `json:"consumed" yaml:"consumed"`
}

// Status returns the latest published snapshot.
func (s *Service) Status() *Status {
	return s.status.Load()
}

// snapshot builds a Status from live state. Host thread only, except during
// New and after the tick loop has stopped.
func (s *Service) snapshot() *Status {
	st := &Status{
		Version:        protocol.Version,
		StartedAt:      s.startedAt,
		Uptime:         time.Since(s.startedAt).Round(time.Second).String(),
		Ready:          s.Ready(),
		BoundPort:      s.listener.BoundPort(),
		ActiveSessions: s.listener.ActiveSessions(),
		QueueDepth:     s.queue.Len(),
		LastDrain: DrainStatus{
			Executed:  s.lastDrain.Executed,
			Heavy:     s.lastDrain.Heavy,
			Deferred:  s.lastDrain.Deferred,
			ElapsedMs: float64(s.lastDrain.Elapsed.Microseconds()) / 1000.0,
			Reason:    string(s.lastDrain.Reason),
		},
		Scene: SceneStatus{
			Armatures:     s.scene.Armatures(),
			Mode:          s.scene.Mode(),
			Frame:         s.scene.Frame(),
			AutoKey:       s.scene.AutoKey(),
			LoadedActions: len(s.scene.LoadedActions()),
		},
		Handlers: append(dispatch.Builtins(), s.registry.Handlers()...),
	}

	if arm := s.scene.Active(); arm != nil {
		st.Scene.ActiveArmature = arm.Name
		if arm.Action != nil {
			st.Scene.CurrentAction = arm.Action.Name
		}
	}

	blend := s.handlers.Blend()
	factor, mirror := blend.Factor()
	st.Blend = BlendStatus{
		State:  blend.State().String(),
		Target: blend.TargetName(),
		Factor: factor,
		Mirror: mirror,
	}

	if s.mailbox != nil {
		cfg := s.mailbox.Config()
		st.Mailbox = &MailboxStatus{
			Dir:      cfg.Dir,
			Layout:   string(cfg.Layout),
			Order:    string(cfg.Order),
			Consumed: s.consumed,
		}
	}
	return st
}

func (s *Service) publishStatus() {
	s.status.Store(s.snapshot())
}

// statusData answers the get_status built-in on the host thread. The
// scheduler adds version and queue_depth. active_armature is nil when no
// armature is active.
func (s *Service) statusData() map[string]any {
	st := s.snapshot()
	data := map[string]any{
		"active_armature": nil,
		"mode":            st.Scene.Mode,
		"blend_active":    s.handlers.Blend().Active(),
		"bound_port":      st.BoundPort,
		"active_sessions": st.ActiveSessions,
		"frame":           st.Scene.Frame,
	}
	if st.Scene.ActiveArmature != "" {
		data["active_armature"] = st.Scene.ActiveArmature
	}
	if st.Mailbox != nil {
		data["mailbox_dir"] = st.Mailbox.Dir
	}
	return data
}
