// Package rig identifies well-known rig families from bone names.
package rig

import "strings"

// Rig types.
const (
	Unknown      = "unknown"
	Rigify       = "rigify"
	Mixamo       = "mixamo"
	AutoRigPro   = "auto_rig_pro"
	EpicSkeleton = "epic_skeleton"
)

// ConfidenceThreshold is the minimum score for a positive detection.
const ConfidenceThreshold = 0.6

// Score weights.
const (
	requiredWeight = 0.5
	commonWeight   = 0.3
	patternWeight  = 0.2
)

// Signature describes the naming conventions of one rig family.
type Signature struct {
	Type     string
	Required []string
	Patterns []string
	Common   []string
}

// Signatures are checked in this order; ties keep the earlier entry.
var Signatures = []Signature{
	{
		Type:     Rigify,
		Required: []string{"spine_fk", "torso"},
		Patterns: []string{".L", ".R", "_fk", "_ik"},
		Common: []string{
			"spine_fk.001", "spine_fk.002", "upper_arm_fk.L", "upper_arm_fk.R",
			"forearm_fk.L", "forearm_fk.R", "thigh_fk.L", "thigh_fk.R", "torso",
			"hips", "chest", "shoulder.L", "shoulder.R",
		},
	},
	{
		Type:     Mixamo,
		Required: []string{"Hips", "Spine"},
		Patterns: []string{"Left", "Right"},
		Common: []string{
			"Spine1", "Spine2", "LeftArm", "RightArm", "LeftLeg", "RightLeg",
			"LeftShoulder", "RightShoulder", "LeftForeArm", "RightForeArm",
		},
	},
	{
		Type:     AutoRigPro,
		Required: []string{"c_spine_01.x"},
		Patterns: []string{"c_", ".x", ".l", ".r"},
		Common: []string{
			"c_spine_02.x", "c_spine_03.x", "c_shoulder.l", "c_shoulder.r",
			"c_arm_fk.l", "c_arm_fk.r", "c_forearm_fk.l", "c_forearm_fk.r",
		},
	},
	{
		Type:     EpicSkeleton,
		Required: []string{"pelvis", "spine_01"},
		Patterns: []string{"_01", "_02", "_03", "_l", "_r"},
		Common: []string{
			"spine_02", "spine_03", "upperarm_l", "upperarm_r",
			"lowerarm_l", "lowerarm_r", "thigh_l", "thigh_r",
		},
	},
}

// Detect returns the best-matching rig type and its confidence. Below
// ConfidenceThreshold the type is Unknown but the best score is still
// returned.
func Detect(boneNames []string) (string, float64) {
	bones := make(map[string]struct{}, len(boneNames))
	for _, n := range boneNames {
		bones[n] = struct{}{}
	}

	best, bestScore := Unknown, 0.0
	for _, sig := range Signatures {
		if s := Score(bones, sig); s > bestScore {
			best, bestScore = sig.Type, s
		}
	}
	if bestScore < ConfidenceThreshold {
		return Unknown, bestScore
	}
	return best, bestScore
}

// Score rates how well bones match sig, in [0, 1]. Required bones weigh 0.5,
// common bones 0.3 and naming patterns 0.2; the sum is normalized by the
// weights of the non-empty lists.
//
// The pattern term only records whether any bone matches any pattern, so it
// contributes 1/len(Patterns) of its weight at most.
func Score(bones map[string]struct{}, sig Signature) float64 {
	var score, total float64

	if len(sig.Required) > 0 {
		score += fraction(bones, sig.Required) * requiredWeight
		total += requiredWeight
	}
	if len(sig.Common) > 0 {
		score += fraction(bones, sig.Common) * commonWeight
		total += commonWeight
	}
	if len(sig.Patterns) > 0 {
		matches := 0
		for b := range bones {
			if containsAny(b, sig.Patterns) {
				matches = 1
				break
			}
		}
		score += min(1.0, float64(matches)/float64(len(sig.Patterns))) * patternWeight
		total += patternWeight
	}

	if total == 0 {
		return 0
	}
	return score / total
}

func fraction(bones map[string]struct{}, names []string) float64 {
	n := 0
	for _, name := range names {
		if _, ok := bones[name]; ok {
			n++
		}
	}
	return float64(n) / float64(len(names))
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
