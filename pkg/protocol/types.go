package protocol

import "fmt"

// Version is reported by get_status.
const Version = "1.0.0"

// Status of a Response.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Command types understood by the host.
const (
	TypePing            = "ping"
	TypeGetStatus       = "get_status"
	TypeApplyAnimation  = "apply_animation"
	TypeApplyPose       = "apply_pose"
	TypeBlendPoseStart  = "blend_pose_start"
	TypeBlendPose       = "blend_pose"
	TypeBlendPoseEnd    = "blend_pose_end"
	TypeSelectBones     = "select_bones"
	TypeGetArmatureInfo = "get_armature_info"
)

// Command is a decoded request. Payload holds every field of the request
// object except "type".
type Command struct {
	Type     string
	ClientID string
	Payload  map[string]any
}

// NewCommand builds a command with a non-nil payload.
func NewCommand(typ string, payload map[string]any) Command {
	if payload == nil {
		payload = map[string]any{}
	}
	return Command{Type: typ, Payload: payload}
}

// Response is the result of exactly one Command.
type Response struct {
	Status  Status         `json:"status"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// OK reports whether the response is a success.
func (r Response) OK() bool {
	return r.Status == StatusSuccess
}

func (r Response) String() string {
	if r.Message == "" {
		return string(r.Status)
	}
	return fmt.Sprintf("%s: %s", r.Status, r.Message)
}

// Success builds a success response. data may be nil.
func Success(message string, data map[string]any) Response {
	return Response{Status: StatusSuccess, Message: message, Data: data}
}

// Errorf builds an error response with a formatted message.
func Errorf(format string, args ...any) Response {
	return Response{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

// ErrorResponse converts err into an error response carrying err's text.
func ErrorResponse(err error) Response {
	return Response{Status: StatusError, Message: err.Error()}
}

// Pong is the fixed reply to a ping.
func Pong() Response {
	return Response{Status: StatusSuccess, Message: "pong"}
}

// UnknownCommand is the reply to a command whose type has no handler.
func UnknownCommand(typ string) Response {
	return Errorf("Unknown command type: %s", typ)
}
