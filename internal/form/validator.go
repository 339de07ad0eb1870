package form

import (
	"github.com/samber/lo"

	"github.com/lowaak/smart-trainer/form-trainer-app/internal/pose"
)

// Visibility is the outcome of the landmark validator
type Visibility struct {
	Visible bool
	Side    BodySide // First side whose required joints are all visible; zero when not visible
}

// Validate reports whether at least one body side has every required joint
// above the profile's visibility threshold. Sides are tried in profile order.
func Validate(frame pose.LandmarkFrame, profile ExerciseProfile) Visibility {
	side, ok := lo.Find(profile.Sides, func(side BodySide) bool {
		return sideVisible(frame, side, profile.RequiredJoints, profile.VisibilityThreshold)
	})
	if !ok {
		return Visibility{}
	}
	return Visibility{Visible: true, Side: side}
}

func sideVisible(frame pose.LandmarkFrame, side BodySide, roles []JointRole, threshold float64) bool {
	if len(roles) == 0 {
		return false
	}
	return lo.EveryBy(roles, func(role JointRole) bool {
		id, ok := side.Joints[role]
		if !ok {
			return false
		}
		return frame.Visibility(id) > threshold
	})
}
