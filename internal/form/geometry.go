package form

import (
	"math"

	"github.com/lowaak/smart-trainer/form-trainer-app/internal/pose"
)

// Degenerate is returned by every feature function when the input cannot produce
// a meaningful value: coincident points, NaN or infinite coordinates, missing joints.
// Real features are never negative, so predicates treat it as a failed check.
const Degenerate float64 = -1

const (
	lineEpsilon    = 1e-6
	minSegmentNorm = 1e-9
)

// IsDegenerate reports whether v is the sentinel or otherwise unusable
func IsDegenerate(v float64) bool {
	return v < 0 || math.IsNaN(v) || math.IsInf(v, 0)
}

// Angle returns the angle ABC at vertex b in degrees, in [0, 180]
func Angle(a, b, c pose.Point) float64 {
	if !a.IsFinite() || !b.IsFinite() || !c.IsFinite() {
		return Degenerate
	}
	if a.Sub(b).Norm() < minSegmentNorm || c.Sub(b).Norm() < minSegmentNorm {
		return Degenerate
	}

	radians := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	angle := math.Abs(radians * 180.0 / math.Pi)
	if angle > 180.0 {
		angle = 360 - angle
	}
	return angle
}

// PointLineDistance returns the perpendicular distance from p to the infinite line through a and b
func PointLineDistance(p, a, b pose.Point) float64 {
	if !p.IsFinite() || !a.IsFinite() || !b.IsFinite() {
		return Degenerate
	}
	if b.Sub(a).Norm() < minSegmentNorm {
		return Degenerate
	}

	// line: A*x + B*y + C = 0
	A := b.Y - a.Y
	B := a.X - b.X
	C := b.X*a.Y - a.X*b.Y

	return math.Abs(A*p.X+B*p.Y+C) / math.Sqrt(A*A+B*B+lineEpsilon)
}

// MidpointOffset returns the vertical distance between p and the midpoint of a and b
func MidpointOffset(p, a, b pose.Point) float64 {
	if !p.IsFinite() || !a.IsFinite() || !b.IsFinite() {
		return Degenerate
	}
	return math.Abs(p.Y - (a.Y+b.Y)/2)
}

// VerticalGap returns |a.y - b.y|
func VerticalGap(a, b pose.Point) float64 {
	if !a.IsFinite() || !b.IsFinite() {
		return Degenerate
	}
	return math.Abs(a.Y - b.Y)
}

// Elevation returns how far p sits above ref (image y grows downward), floored at 0
func Elevation(p, ref pose.Point) float64 {
	if !p.IsFinite() || !ref.IsFinite() {
		return Degenerate
	}
	return math.Max(0, ref.Y-p.Y)
}
