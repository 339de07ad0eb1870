package pose

import "math"

// Frame builders used by the synthetic source and by tests.
// All layouts mirror the same coordinates on the left and right side.

const (
	armSegment = 0.15
	legSegment = 0.2
)

// PlankFrame draws a horizontal plank. hipDrop moves the hip down (positive) or up (negative).
func PlankFrame(hipDrop, visibility float64) LandmarkFrame {
	shoulder := Point{X: 0.3, Y: 0.5}
	return mirrored(map[string]Point{
		"shoulder": shoulder,
		"elbow":    {X: 0.3, Y: 0.65},
		"wrist":    {X: 0.38, Y: 0.65},
		"hip":      {X: 0.5, Y: 0.5 + hipDrop},
		"knee":     {X: 0.65, Y: 0.5},
		"ankle":    {X: 0.8, Y: 0.5},
	}, visibility)
}

// PushupFrame draws a push-up with the given elbow angle in degrees.
// hipDrop moves the hip away from the shoulder line.
func PushupFrame(elbowAngle, hipDrop, visibility float64) LandmarkFrame {
	shoulder := Point{X: 0.4, Y: 0.4}
	elbow := Point{X: 0.4, Y: 0.4 + armSegment}
	return mirrored(map[string]Point{
		"shoulder": shoulder,
		"elbow":    elbow,
		"wrist":    bend(elbow, elbowAngle, armSegment),
		"hip":      {X: 0.6, Y: 0.42 + hipDrop},
		"knee":     {X: 0.75, Y: 0.44},
		"ankle":    {X: 0.9, Y: 0.46},
	}, visibility)
}

// SquatFrame draws a standing body with the given knee angle in degrees
func SquatFrame(kneeAngle, visibility float64) LandmarkFrame {
	knee := Point{X: 0.5, Y: 0.7}
	return mirrored(map[string]Point{
		"shoulder": {X: 0.5, Y: 0.25},
		"elbow":    {X: 0.5, Y: 0.38},
		"wrist":    {X: 0.5, Y: 0.5},
		"hip":      {X: 0.5, Y: 0.5},
		"knee":     knee,
		"ankle":    bend(knee, kneeAngle, legSegment),
	}, visibility)
}

// bend returns the end of a segment leaving vertex so that the angle between the
// upward direction and the segment equals angle degrees
func bend(vertex Point, angle, length float64) Point {
	rad := angle * math.Pi / 180
	return Point{
		X: vertex.X + length*math.Sin(rad),
		Y: vertex.Y - length*math.Cos(rad),
	}
}

func mirrored(parts map[string]Point, visibility float64) LandmarkFrame {
	frame := make(LandmarkFrame, len(parts)*2)
	for part, p := range parts {
		lm := Landmark{X: p.X, Y: p.Y, Visibility: visibility}
		frame[JointID("left_"+part)] = lm
		frame[JointID("right_"+part)] = lm
	}
	return frame
}
