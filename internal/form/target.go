package form

import (
	"strconv"
	"strings"
	"time"
)

// MaxTargetUnits caps every target: one day of holding or that many repetitions
const MaxTargetUnits = 24 * 60 * 60

// Target is the session goal, fixed at session start
type Target struct {
	Mode  ProgressMode
	Units int // seconds for hold, repetitions for reps
}

// Duration is the hold target as a duration
func (t Target) Duration() time.Duration {
	return time.Duration(clampUnits(t.Units)) * time.Second
}

// CalculateTarget returns base + penaltyCount * penaltyPerUnit, saturated at
// MaxTargetUnits. A negative penaltyCount counts as 0.
func CalculateTarget(profile ExerciseProfile, penaltyCount int) Target {
	if penaltyCount < 0 {
		penaltyCount = 0
	}
	base := clampUnits(profile.BaseTarget)
	units := base
	if per := profile.PenaltyPerUnit; per > 0 && penaltyCount > 0 {
		if penaltyCount > (MaxTargetUnits-base)/per {
			units = MaxTargetUnits
		} else {
			units = base + penaltyCount*per
		}
	}
	return Target{
		Mode:  profile.Mode,
		Units: units,
	}
}

func clampUnits(n int) int {
	switch {
	case n < 0:
		return 0
	case n > MaxTargetUnits:
		return MaxTargetUnits
	default:
		return n
	}
}

// ParsePenaltyCount reads the wrong answer count handed over by the quiz.
// Anything that is not a non-negative integer yields 0.
func ParsePenaltyCount(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
