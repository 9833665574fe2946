package protocol

import (
	"github.com/invopop/jsonschema"
)

// payloadTypes maps each command type with a payload to its Go shape.
var payloadTypes = map[string]any{
	TypeApplyAnimation: &ApplyAnimation{},
	TypeApplyPose:      &ApplyPose{},
	TypeBlendPoseStart: &BlendPoseStart{},
	TypeBlendPose:      &BlendPose{},
	TypeBlendPoseEnd:   &BlendPoseEnd{},
	TypeSelectBones:    &SelectBones{},
}

// PayloadSchema returns the JSON Schema of the payload for typ, or nil when
// the command takes no payload.
func PayloadSchema(typ string) *jsonschema.Schema {
	v, ok := payloadTypes[typ]
	if !ok {
		return nil
	}
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	s := r.Reflect(v)
	s.Title = typ
	return s
}

// PayloadTypes lists the command types that have a payload schema.
func PayloadTypes() []string {
	types := make([]string, 0, len(payloadTypes))
	for t := range payloadTypes {
		types = append(types, t)
	}
	return types
}
