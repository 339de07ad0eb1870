package pose

import (
	"math"
	"time"
)

// JointID identifies a body landmark. Values follow the mediapipe pose names.
type JointID string

const (
	JointNose          JointID = "nose"
	JointLeftShoulder  JointID = "left_shoulder"
	JointRightShoulder JointID = "right_shoulder"
	JointLeftElbow     JointID = "left_elbow"
	JointRightElbow    JointID = "right_elbow"
	JointLeftWrist     JointID = "left_wrist"
	JointRightWrist    JointID = "right_wrist"
	JointLeftHip       JointID = "left_hip"
	JointRightHip      JointID = "right_hip"
	JointLeftKnee      JointID = "left_knee"
	JointRightKnee     JointID = "right_knee"
	JointLeftAnkle     JointID = "left_ankle"
	JointRightAnkle    JointID = "right_ankle"
)

// AllJoints lists every joint the engine understands
var AllJoints = []JointID{
	JointNose,
	JointLeftShoulder, JointRightShoulder,
	JointLeftElbow, JointRightElbow,
	JointLeftWrist, JointRightWrist,
	JointLeftHip, JointRightHip,
	JointLeftKnee, JointRightKnee,
	JointLeftAnkle, JointRightAnkle,
}

// Point is a 2D position in normalized image coordinates
type Point struct {
	X float64
	Y float64
}

// Sub returns p - q
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Norm returns the euclidean length of p
func (p Point) Norm() float64 {
	return math.Hypot(p.X, p.Y)
}

// IsFinite reports whether both coordinates are real numbers
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Landmark is one detected joint: normalized position plus detector confidence
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Visibility float64 `json:"visibility"`
}

// Point returns the landmark position
func (l Landmark) Point() Point {
	return Point{X: l.X, Y: l.Y}
}

// LandmarkFrame holds every joint detected in a single video frame.
// A joint absent from the map was not detected.
type LandmarkFrame map[JointID]Landmark

// Visibility returns the confidence of a joint, 0 when the joint is missing
func (f LandmarkFrame) Visibility(id JointID) float64 {
	lm, ok := f[id]
	if !ok {
		return 0
	}
	return lm.Visibility
}

// Position returns the position of a joint and whether it was detected
func (f LandmarkFrame) Position(id JointID) (Point, bool) {
	lm, ok := f[id]
	if !ok {
		return Point{}, false
	}
	return lm.Point(), true
}

// Sample is a frame together with its capture offset from the start of the stream
type Sample struct {
	At     time.Duration
	Frame  LandmarkFrame
	Source string
}
