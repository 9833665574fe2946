package mailbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/marmos91/animbridge/pkg/protocol"
)

// ErrCorruptRequest is returned for request files that are not valid JSON.
var ErrCorruptRequest = errors.New("corrupt mailbox request")

// Request status values. Only pending requests are executed.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCancelled  = "cancelled"
)

// Request kinds.
const (
	KindAnimation = "animation"
	KindPose      = "pose"
)

// TimestampLayout is the producer timestamp format (local time, no zone).
const TimestampLayout = "2006-01-02T15:04:05"

// Request is the body of a mailbox file.
//
// Older producers wrote animation_id/animation_name or pose_id/pose_name and
// "type" instead of target_id/target_name and "kind"; both spellings decode
// into the same fields.
type Request struct {
	Status     string                 `json:"status"`
	Kind       string                 `json:"kind,omitempty"`
	Command    string                 `json:"command,omitempty"`
	TargetID   string                 `json:"target_id"`
	TargetName string                 `json:"target_name"`
	Timestamp  string                 `json:"timestamp"`
	Options    *protocol.ApplyOptions `json:"options,omitempty"`

	// Params is merged into the command payload. Used with Command to carry
	// arbitrary commands through the mailbox.
	Params map[string]any `json:"params,omitempty"`
}

// UnmarshalJSON accepts both the current and the legacy field names.
func (r *Request) UnmarshalJSON(data []byte) error {
	type plain Request
	var aux struct {
		plain
		Type          string `json:"type"`
		AnimationID   string `json:"animation_id"`
		AnimationName string `json:"animation_name"`
		PoseID        string `json:"pose_id"`
		PoseName      string `json:"pose_name"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Request(aux.plain)

	if r.Kind == "" {
		switch {
		case aux.Type != "":
			r.Kind = aux.Type
		case aux.PoseID != "":
			r.Kind = KindPose
		}
	}
	if r.TargetID == "" {
		r.TargetID = firstNonEmpty(aux.AnimationID, aux.PoseID)
	}
	if r.TargetName == "" {
		r.TargetName = firstNonEmpty(aux.AnimationName, aux.PoseName)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// ParseRequest decodes a request file body and fills the defaults older
// producers omit.
func ParseRequest(data []byte) (Request, error) {
	var r Request
	if err := json.Unmarshal(data, &r); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrCorruptRequest, err)
	}
	r.applyDefaults()
	return r, nil
}

func (r *Request) applyDefaults() {
	if r.Status == "" {
		r.Status = StatusPending
	}
	if r.Kind == "" {
		r.Kind = KindAnimation
	}
	if r.Options == nil {
		opts := protocol.DefaultApplyOptions()
		r.Options = &opts
	}
	if r.Options.ApplyMode == "" {
		r.Options.ApplyMode = protocol.ApplyModeNew
	}
}

// Pending reports whether the request should be executed.
func (r Request) Pending() bool {
	return r.Status == StatusPending
}

// ToCommand translates the request into the command it stands for.
func (r Request) ToCommand() protocol.Command {
	if r.Command != "" {
		payload := maps.Clone(r.Params)
		if payload == nil {
			payload = map[string]any{}
		}
		if _, ok := payload["target_id"]; !ok && r.TargetID != "" {
			payload["target_id"] = r.TargetID
		}
		return protocol.NewCommand(r.Command, payload)
	}

	opts := protocol.DefaultApplyOptions()
	if r.Options != nil {
		opts = *r.Options
	}

	if r.Kind == KindPose {
		payload := map[string]any{
			"pose_id":   r.TargetID,
			"pose_name": r.TargetName,
			"mirror":    opts.Mirror,
		}
		maps.Copy(payload, r.Params)
		return protocol.NewCommand(protocol.TypeApplyPose, payload)
	}

	payload := map[string]any{
		"animation_id":   r.TargetID,
		"animation_name": r.TargetName,
		"options": map[string]any{
			"apply_mode":          opts.ApplyMode,
			"mirror":              opts.Mirror,
			"reverse":             opts.Reverse,
			"selected_bones_only": opts.SelectedBonesOnly,
			"use_slots":           opts.UseSlots,
		},
	}
	maps.Copy(payload, r.Params)
	return protocol.NewCommand(protocol.TypeApplyAnimation, payload)
}

// NewAnimationRequest builds a pending apply-animation request.
func NewAnimationRequest(id, name string, opts protocol.ApplyOptions) Request {
	return Request{
		Status:     StatusPending,
		Kind:       KindAnimation,
		TargetID:   id,
		TargetName: name,
		Timestamp:  time.Now().Format(TimestampLayout),
		Options:    &opts,
	}
}

// NewPoseRequest builds a pending apply-pose request.
func NewPoseRequest(id, name string, mirror bool) Request {
	opts := protocol.DefaultApplyOptions()
	opts.Mirror = mirror
	return Request{
		Status:     StatusPending,
		Kind:       KindPose,
		TargetID:   id,
		TargetName: name,
		Timestamp:  time.Now().Format(TimestampLayout),
		Options:    &opts,
	}
}
