package form

import (
	"github.com/samber/lo"

	"github.com/lowaak/smart-trainer/form-trainer-app/internal/pose"
)

// FormVerdict is the per-frame classification
type FormVerdict int

const (
	VerdictNotVisible FormVerdict = iota // Required joints missing or low confidence
	VerdictBad                           // Visible but a form rule failed
	VerdictGood                          // Visible and every form rule holds
)

func (v FormVerdict) String() string {
	switch v {
	case VerdictGood:
		return "Good"
	case VerdictBad:
		return "Bad"
	default:
		return "NotVisible"
	}
}

// Check is the measured value of one predicate
type Check struct {
	Name      string
	Value     float64 // Degenerate when the geometry could not be measured
	Threshold float64
	Passed    bool
}

// Features are the geometric measurements of one frame
type Features struct {
	Side         string
	PrimaryAngle float64 // Degenerate when unmeasurable
	Checks       []Check
}

// Extract measures the profile's primary angle and predicates on the given side
func Extract(frame pose.LandmarkFrame, profile ExerciseProfile, side BodySide) Features {
	return Features{
		Side:         side.Name,
		PrimaryAngle: measureAngle(frame, side, profile.PrimaryAngle.A, profile.PrimaryAngle.Vertex, profile.PrimaryAngle.C),
		Checks: lo.Map(profile.Predicates, func(p Predicate, _ int) Check {
			value := p.measure(frame, side)
			return Check{
				Name:      p.Name,
				Value:     value,
				Threshold: p.Threshold,
				Passed:    p.holds(value),
			}
		}),
	}
}

// Classify combines visibility and features into a verdict. Rep profiles also need a
// measurable primary angle to be Good.
func Classify(visibility Visibility, features Features, profile ExerciseProfile) FormVerdict {
	if !visibility.Visible {
		return VerdictNotVisible
	}
	if profile.Mode == ModeRepetitionCount && IsDegenerate(features.PrimaryAngle) {
		return VerdictBad
	}
	allPassed := lo.EveryBy(features.Checks, func(c Check) bool { return c.Passed })
	if !allPassed {
		return VerdictBad
	}
	return VerdictGood
}

// Evaluate runs validator, extractor and classifier on one frame
func Evaluate(frame pose.LandmarkFrame, profile ExerciseProfile) (FormVerdict, Features) {
	visibility := Validate(frame, profile)
	if !visibility.Visible {
		return VerdictNotVisible, Features{PrimaryAngle: Degenerate}
	}
	features := Extract(frame, profile, visibility.Side)
	return Classify(visibility, features, profile), features
}

func (p Predicate) measure(frame pose.LandmarkFrame, side BodySide) float64 {
	if len(p.Joints) < p.Kind.arity() {
		return Degenerate
	}
	points := make([]pose.Point, len(p.Joints))
	for i, role := range p.Joints {
		pt, ok := frame.Position(side.Joint(role))
		if !ok {
			return Degenerate
		}
		points[i] = pt
	}

	switch p.Kind {
	case PredicateAngleAbove:
		return Angle(points[0], points[1], points[2])
	case PredicateLineOffsetBelow:
		return PointLineDistance(points[0], points[1], points[2])
	case PredicateMidpointOffsetBelow:
		return MidpointOffset(points[0], points[1], points[2])
	case PredicateNotElevated:
		return Elevation(points[0], points[1])
	case PredicateVerticalGapBelow:
		return VerticalGap(points[0], points[1])
	default:
		return Degenerate
	}
}

func (p Predicate) holds(value float64) bool {
	if IsDegenerate(value) {
		return false
	}
	if p.Kind == PredicateAngleAbove {
		return value > p.Threshold
	}
	return value < p.Threshold
}

func measureAngle(frame pose.LandmarkFrame, side BodySide, a, vertex, c JointRole) float64 {
	pa, okA := frame.Position(side.Joint(a))
	pb, okB := frame.Position(side.Joint(vertex))
	pc, okC := frame.Position(side.Joint(c))
	if !okA || !okB || !okC {
		return Degenerate
	}
	return Angle(pa, pb, pc)
}
