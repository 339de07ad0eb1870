package form

import (
	"fmt"
	"time"

	"github.com/lowaak/smart-trainer/form-trainer-app/internal/pose"
)

// Labels shown for the verdict of a tick
const (
	LabelGood        = "Good"
	LabelBad         = "Bad Form / Adjust View"
	LabelNotVisible  = "Can't see your full body"
	LabelNotDetected = "Not Detected"
	LabelCompleted   = "COMPLETED!"
)

// TickReport is everything a renderer needs after one tick
type TickReport struct {
	Exercise ExerciseID
	Mode     ProgressMode
	Target   Target
	Now      time.Duration
	Verdict  FormVerdict
	Label    string
	Features Features
	Progress
}

// Completed reports whether the session reached its target
func (r TickReport) Completed() bool {
	return r.Stage == StageCompleted
}

// ProgressText renders remaining time as MM:SS or the rep counter
func (r TickReport) ProgressText() string {
	if r.Mode == ModeHoldDuration {
		return FormatMMSS(r.Remaining)
	}
	return fmt.Sprintf("%d", r.Counter)
}

// Session runs one exercise from start to completion
type Session struct {
	profile ExerciseProfile
	target  Target
	tracker *Tracker
	last    TickReport
}

// NewSession fixes the target for profile and penaltyCount and starts an idle tracker
func NewSession(profile ExerciseProfile, penaltyCount int) *Session {
	target := CalculateTarget(profile, penaltyCount)
	s := &Session{
		profile: profile,
		target:  target,
		tracker: NewTracker(profile, target),
	}
	s.last = s.report(VerdictNotVisible, LabelNotDetected, Features{PrimaryAngle: Degenerate}, 0, s.tracker.progress(false, false))
	return s
}

// Profile returns the exercise profile
func (s *Session) Profile() ExerciseProfile {
	return s.profile
}

// Target returns the target fixed at session start
func (s *Session) Target() Target {
	return s.target
}

// Last returns the report of the most recent step, or the initial report
func (s *Session) Last() TickReport {
	return s.last
}

// Step evaluates one frame at offset now. Once completed, frames are ignored
// and the completion report is returned unchanged.
func (s *Session) Step(frame pose.LandmarkFrame, now time.Duration) TickReport {
	if s.last.Completed() {
		return s.last
	}

	verdict, features := Evaluate(frame, s.profile)
	progress := s.tracker.Step(verdict, features.PrimaryAngle, now)

	label := verdictLabel(verdict)
	if len(frame) == 0 {
		label = LabelNotDetected
	}
	if progress.Stage == StageCompleted {
		label = LabelCompleted
	}

	s.last = s.report(verdict, label, features, now, progress)
	return s.last
}

func (s *Session) report(verdict FormVerdict, label string, features Features, now time.Duration, progress Progress) TickReport {
	return TickReport{
		Exercise: s.profile.ID,
		Mode:     s.profile.Mode,
		Target:   s.target,
		Now:      now,
		Verdict:  verdict,
		Label:    label,
		Features: features,
		Progress: progress,
	}
}

func verdictLabel(v FormVerdict) string {
	switch v {
	case VerdictGood:
		return LabelGood
	case VerdictBad:
		return LabelBad
	default:
		return LabelNotVisible
	}
}

// FormatMMSS formats a duration as MM:SS, truncating partial seconds
func FormatMMSS(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	totalSeconds := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", totalSeconds/60, totalSeconds%60)
}
