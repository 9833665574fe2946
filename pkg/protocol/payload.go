package protocol

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Apply modes for apply_animation.
const (
	ApplyModeNew    = "NEW"
	ApplyModeInsert = "INSERT"
)

// ApplyOptions controls how an animation is applied to the active armature.
type ApplyOptions struct {
	ApplyMode         string `json:"apply_mode" mapstructure:"apply_mode" validate:"omitempty,oneof=NEW INSERT" jsonschema:"enum=NEW,enum=INSERT,default=NEW"`
	Mirror            bool   `json:"mirror" mapstructure:"mirror"`
	Reverse           bool   `json:"reverse" mapstructure:"reverse"`
	SelectedBonesOnly bool   `json:"selected_bones_only" mapstructure:"selected_bones_only"`
	UseSlots          bool   `json:"use_slots" mapstructure:"use_slots"`
}

// DefaultApplyOptions returns the options assumed when a producer omits them.
func DefaultApplyOptions() ApplyOptions {
	return ApplyOptions{ApplyMode: ApplyModeNew}
}

// ApplyAnimation is the payload of apply_animation.
type ApplyAnimation struct {
	AnimationID   string       `json:"animation_id" mapstructure:"animation_id" validate:"required_without=TargetID"`
	TargetID      string       `json:"target_id,omitempty" mapstructure:"target_id"`
	AnimationName string       `json:"animation_name,omitempty" mapstructure:"animation_name"`
	Options       ApplyOptions `json:"options" mapstructure:"options"`
}

// ID returns the catalog id, preferring animation_id.
func (p ApplyAnimation) ID() string {
	if p.AnimationID != "" {
		return p.AnimationID
	}
	return p.TargetID
}

// ApplyPose is the payload of apply_pose.
type ApplyPose struct {
	PoseID        string `json:"pose_id" mapstructure:"pose_id" validate:"required_without_all=AnimationID TargetID"`
	AnimationID   string `json:"animation_id,omitempty" mapstructure:"animation_id"`
	TargetID      string `json:"target_id,omitempty" mapstructure:"target_id"`
	PoseName      string `json:"pose_name,omitempty" mapstructure:"pose_name"`
	BlendFilePath string `json:"blend_file_path,omitempty" mapstructure:"blend_file_path"`
	Mirror        bool   `json:"mirror" mapstructure:"mirror"`
}

// ID returns the first non-empty of pose_id, animation_id and target_id.
func (p ApplyPose) ID() string {
	switch {
	case p.PoseID != "":
		return p.PoseID
	case p.AnimationID != "":
		return p.AnimationID
	}
	return p.TargetID
}

// BlendPoseStart is the payload of blend_pose_start.
type BlendPoseStart struct {
	PoseID        string `json:"pose_id" mapstructure:"pose_id" validate:"required"`
	PoseName      string `json:"pose_name,omitempty" mapstructure:"pose_name"`
	BlendFilePath string `json:"blend_file_path,omitempty" mapstructure:"blend_file_path"`
}

// BlendPose is the payload of blend_pose.
type BlendPose struct {
	BlendFactor *float64 `json:"blend_factor" mapstructure:"blend_factor" validate:"required,gte=0,lte=1" jsonschema:"minimum=0,maximum=1"`
	Mirror      bool     `json:"mirror" mapstructure:"mirror"`
}

// BlendPoseEnd is the payload of blend_pose_end.
type BlendPoseEnd struct {
	Cancelled       bool `json:"cancelled" mapstructure:"cancelled"`
	InsertKeyframes bool `json:"insert_keyframes" mapstructure:"insert_keyframes"`
}

// SelectBones is the payload of select_bones.
type SelectBones struct {
	BoneNames      []string `json:"bone_names" mapstructure:"bone_names" validate:"required,min=1,dive,required"`
	Mirror         bool     `json:"mirror" mapstructure:"mirror"`
	AddToSelection bool     `json:"add_to_selection" mapstructure:"add_to_selection"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func payloadValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// DecodePayload decodes cmd.Payload into out (a pointer to one of the
// payload structs) and validates it. Failures wrap ErrInvalidPayload and carry
// a message suitable for the peer.
func DecodePayload(cmd Command, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("payload decoder: %w", err)
	}
	if err := dec.Decode(cmd.Payload); err != nil {
		return decodeErr(ErrInvalidPayload, "Invalid %s payload: %v", cmd.Type, err)
	}

	if err := payloadValidator().Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return decodeErr(ErrInvalidPayload, "%s", describeValidation(verrs))
		}
		return decodeErr(ErrInvalidPayload, "Invalid %s payload: %v", cmd.Type, err)
	}
	return nil
}

func describeValidation(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required", "required_without", "required_without_all":
			msgs = append(msgs, "Missing required field: "+field)
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be >= %s", field, fe.Param()))
		case "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be <= %s", field, fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
