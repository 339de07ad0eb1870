package form

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lowaak/smart-trainer/form-trainer-app/internal/pose"
)

func pt(x, y float64) pose.Point {
	return pose.Point{X: x, Y: y}
}

func TestAngle_Basic(t *testing.T) {
	assert.InDelta(t, 90.0, Angle(pt(0, 1), pt(0, 0), pt(1, 0)), 1e-9)
	assert.InDelta(t, 180.0, Angle(pt(-1, 0), pt(0, 0), pt(1, 0)), 1e-9)
	assert.InDelta(t, 45.0, Angle(pt(1, 1), pt(0, 0), pt(1, 0)), 1e-9)
	assert.InDelta(t, 0.0, Angle(pt(2, 0), pt(0, 0), pt(1, 0)), 1e-9)
}

func TestAngle_FoldsAbove180(t *testing.T) {
	rad := 170 * math.Pi / 180
	a := pt(math.Cos(rad), math.Sin(rad))
	c := pt(math.Cos(rad), -math.Sin(rad))

	// raw atan2 difference is 340 degrees
	assert.InDelta(t, 20.0, Angle(a, pt(0, 0), c), 1e-9)
}

func TestAngle_IsSymmetric(t *testing.T) {
	a, b, c := pt(0.2, 0.3), pt(0.5, 0.5), pt(0.9, 0.1)
	assert.InDelta(t, Angle(a, b, c), Angle(c, b, a), 1e-9)
}

func TestAngle_Degenerate(t *testing.T) {
	assert.Equal(t, Degenerate, Angle(pt(0, 0), pt(0, 0), pt(1, 0)))
	assert.Equal(t, Degenerate, Angle(pt(0, 1), pt(0, 0), pt(0, 0)))
	assert.Equal(t, Degenerate, Angle(pt(math.NaN(), 1), pt(0, 0), pt(1, 0)))
	assert.Equal(t, Degenerate, Angle(pt(0, 1), pt(math.Inf(1), 0), pt(1, 0)))
}

func TestPointLineDistance_Basic(t *testing.T) {
	// horizontal line y=0.5
	assert.InDelta(t, 0.1, PointLineDistance(pt(0.5, 0.6), pt(0, 0.5), pt(1, 0.5)), 1e-6)
	// vertical line x=0.2
	assert.InDelta(t, 0.3, PointLineDistance(pt(0.5, 0.9), pt(0.2, 0), pt(0.2, 1)), 1e-6)
	// on the line, outside the segment
	assert.InDelta(t, 0.0, PointLineDistance(pt(2, 2), pt(0, 0), pt(1, 1)), 1e-6)
	// diagonal
	assert.InDelta(t, math.Sqrt2/2, PointLineDistance(pt(1, 0), pt(0, 0), pt(1, 1)), 1e-6)
}

func TestPointLineDistance_OrderIndependent(t *testing.T) {
	p, a, b := pt(0.5, 0.58), pt(0.3, 0.5), pt(0.8, 0.52)
	assert.InDelta(t, PointLineDistance(p, a, b), PointLineDistance(p, b, a), 1e-9)
}

func TestPointLineDistance_Degenerate(t *testing.T) {
	assert.Equal(t, Degenerate, PointLineDistance(pt(0.5, 0.5), pt(0.2, 0.2), pt(0.2, 0.2)))
	assert.Equal(t, Degenerate, PointLineDistance(pt(math.NaN(), 0.5), pt(0, 0), pt(1, 1)))
}

func TestMidpointOffset_VerticalGap_Elevation(t *testing.T) {
	assert.InDelta(t, 0.1, MidpointOffset(pt(0.5, 0.6), pt(0.3, 0.5), pt(0.8, 0.5)), 1e-9)
	assert.InDelta(t, 0.25, VerticalGap(pt(0, 0.4), pt(1, 0.65)), 1e-9)

	// hip 0.1 above the shoulder
	assert.InDelta(t, 0.1, Elevation(pt(0.5, 0.4), pt(0.3, 0.5)), 1e-9)
	// hip below the shoulder is not elevated
	assert.InDelta(t, 0.0, Elevation(pt(0.5, 0.6), pt(0.3, 0.5)), 1e-9)

	assert.Equal(t, Degenerate, MidpointOffset(pt(math.NaN(), 0), pt(0, 0), pt(1, 1)))
	assert.Equal(t, Degenerate, VerticalGap(pt(0, math.Inf(-1)), pt(0, 0)))
}

func TestIsDegenerate(t *testing.T) {
	assert.True(t, IsDegenerate(Degenerate))
	assert.True(t, IsDegenerate(math.NaN()))
	assert.False(t, IsDegenerate(0))
	assert.False(t, IsDegenerate(179.9))
}
