package form

import (
	"time"
)

// Stage is the progress tracker state
type Stage int

const (
	StageIdle      Stage = iota // Nothing credited yet, waiting for the user
	StageEngaged                // Progress is being credited
	StagePaused                 // Progress kept, waiting for the user to resume
	StageCompleted              // Target reached; terminal
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "Idle"
	case StageEngaged:
		return "Engaged"
	case StagePaused:
		return "Paused"
	case StageCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// RepPhase is the repetition sub-phase inside the hysteresis band
type RepPhase int

const (
	PhaseNeutral    RepPhase = iota // No contraction seen since the last reset
	PhaseContracted                 // Angle went below the contract threshold
	PhaseExtended                   // Angle went back above the extend threshold, rep credited
)

func (p RepPhase) String() string {
	switch p {
	case PhaseContracted:
		return "DOWN"
	case PhaseExtended:
		return "UP"
	default:
		return "STAND"
	}
}

// TrackerState is the mutable progress of one session
type TrackerState struct {
	Stage       Stage
	Accumulated time.Duration // hold mode
	LastGood    time.Duration // hold mode, valid when HasLastGood
	HasLastGood bool
	Achieved    int // repetition mode
	Phase       RepPhase
}

// Progress is the tracker view after one step
type Progress struct {
	Stage         Stage
	Phase         RepPhase
	Accumulated   time.Duration
	Remaining     time.Duration
	Achieved      int
	RemainingReps int
	Counter       int  // Remaining reps counting down, achieved reps counting up
	Credited      bool // A repetition was credited on this step
	JustCompleted bool // This step moved the tracker to Completed
}

// Tracker is the progress state machine. It is not safe for concurrent use;
// one tick loop owns it.
type Tracker struct {
	mode      ProgressMode
	target    Target
	direction CountDirection
	contract  float64
	extend    float64
	state     TrackerState
}

// NewTracker creates a tracker for profile with a precomputed target
func NewTracker(profile ExerciseProfile, target Target) *Tracker {
	target.Units = clampUnits(target.Units)
	return &Tracker{
		mode:      profile.Mode,
		target:    target,
		direction: profile.Direction,
		contract:  profile.ContractAngle,
		extend:    profile.ExtendAngle,
		state:     TrackerState{Stage: StageIdle, Phase: PhaseNeutral},
	}
}

// State returns a copy of the current state
func (t *Tracker) State() TrackerState {
	return t.state
}

// Target returns the session target
func (t *Tracker) Target() Target {
	return t.target
}

// Step consumes one verdict. angle is the primary angle, used in repetition mode only.
// now is the monotonic offset since the session started.
func (t *Tracker) Step(verdict FormVerdict, angle float64, now time.Duration) Progress {
	if t.state.Stage == StageCompleted {
		return t.progress(false, false)
	}

	var credited bool
	switch t.mode {
	case ModeHoldDuration:
		t.stepHold(verdict, now)
	case ModeRepetitionCount:
		credited = t.stepRep(verdict, angle)
	}

	justCompleted := t.checkCompleted()
	return t.progress(credited, justCompleted)
}

func (t *Tracker) stepHold(verdict FormVerdict, now time.Duration) {
	if verdict != VerdictGood {
		if t.state.Stage == StageEngaged {
			t.state.Stage = StagePaused
		}
		t.state.HasLastGood = false
		t.state.LastGood = 0
		return
	}

	switch t.state.Stage {
	case StageIdle, StagePaused:
		t.state.Stage = StageEngaged
	case StageEngaged:
		if t.state.HasLastGood {
			if delta := now - t.state.LastGood; delta > 0 {
				t.state.Accumulated += delta
			}
		}
	}
	t.state.LastGood = now
	t.state.HasLastGood = true
}

func (t *Tracker) stepRep(verdict FormVerdict, angle float64) bool {
	if verdict == VerdictNotVisible {
		t.state.Phase = PhaseNeutral
		if t.state.Stage == StageEngaged {
			t.state.Stage = StagePaused
		}
		return false
	}
	if IsDegenerate(angle) {
		return false
	}

	if t.state.Stage == StageIdle || t.state.Stage == StagePaused {
		t.state.Stage = StageEngaged
	}

	if angle < t.contract {
		t.state.Phase = PhaseContracted
		return false
	}
	if angle > t.extend && t.state.Phase == PhaseContracted {
		t.state.Phase = PhaseExtended
		t.state.Achieved++
		return true
	}
	return false
}

// checkCompleted moves an engaged tracker to Completed once the target is met
func (t *Tracker) checkCompleted() bool {
	if t.state.Stage != StageEngaged {
		return false
	}
	switch t.mode {
	case ModeHoldDuration:
		if t.state.Accumulated < t.target.Duration() {
			return false
		}
		t.state.Accumulated = t.target.Duration()
		t.state.HasLastGood = false
	case ModeRepetitionCount:
		if t.state.Achieved < t.target.Units {
			return false
		}
		t.state.Achieved = t.target.Units
	}
	t.state.Stage = StageCompleted
	return true
}

func (t *Tracker) progress(credited, justCompleted bool) Progress {
	p := Progress{
		Stage:         t.state.Stage,
		Phase:         t.state.Phase,
		Accumulated:   t.state.Accumulated,
		Achieved:      t.state.Achieved,
		Credited:      credited,
		JustCompleted: justCompleted,
	}
	if remaining := t.target.Duration() - t.state.Accumulated; remaining > 0 {
		p.Remaining = remaining
	}
	if remaining := t.target.Units - t.state.Achieved; remaining > 0 {
		p.RemainingReps = remaining
	}
	if t.direction == CountUp {
		p.Counter = p.Achieved
	} else {
		p.Counter = p.RemainingReps
	}
	return p
}
