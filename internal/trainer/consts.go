package trainer

import (
	"time"

	"github.com/lowaak/smart-trainer/form-trainer-app/internal/form"
)

// UIMode represents the current UI mode/screen
type UIMode int

const (
	UIModeExerciseSelection UIMode = iota // Choose the exercise to perform
	UIModeSessionDashboard                // Live form feedback and progress
)

// UIModeInfo contains display information for a UI mode
type UIModeInfo struct {
	Mode        UIMode
	DisplayName string
	KeyBinding  rune // The number key to activate this mode (1-9)
}

// AllUIModes defines all available UI modes in order
var AllUIModes = []UIModeInfo{
	{Mode: UIModeExerciseSelection, DisplayName: "Exercise Selection", KeyBinding: '1'},
	{Mode: UIModeSessionDashboard, DisplayName: "Session Dashboard", KeyBinding: '2'},
}

// GetUIModeByKey returns the mode for a given key binding
func GetUIModeByKey(key rune) (UIMode, bool) {
	for _, info := range AllUIModes {
		if info.KeyBinding == key {
			return info.Mode, true
		}
	}
	return 0, false
}

// GetUIModeInfo returns the info for a given mode
func GetUIModeInfo(mode UIMode) (UIModeInfo, bool) {
	for _, info := range AllUIModes {
		if info.Mode == mode {
			return info, true
		}
	}
	return UIModeInfo{}, false
}

// SessionStatus represents the lifecycle of a session in the manager
type SessionStatus int

const (
	SessionStatusIdle      SessionStatus = iota // No session loaded
	SessionStatusReady                          // Session loaded, ticker stopped
	SessionStatusRunning                        // Frames are being evaluated
	SessionStatusCompleted                      // Target reached, waiting out the grace period
	SessionStatusEnded                          // Pose source finished or failed before completion
)

func (s SessionStatus) String() string {
	switch s {
	case SessionStatusIdle:
		return "Idle"
	case SessionStatusReady:
		return "Ready"
	case SessionStatusRunning:
		return "Running"
	case SessionStatusCompleted:
		return "Completed"
	case SessionStatusEnded:
		return "Ended"
	default:
		return "Unknown"
	}
}

// SessionState holds everything the views need about the current session
type SessionState struct {
	ID      string                // Unique id of the loaded session, empty when idle
	Status  SessionStatus         // Current session status
	Profile *form.ExerciseProfile // The loaded exercise (nil if none)
	Source  string                // Name of the pose source
	Report  form.TickReport       // Latest tick report
	Frames  int                   // Frames evaluated so far
	Err     string                // Why the session ended, if it ended early
}

// Timing defaults
const (
	DefaultFrameInterval = time.Second / 15
	DefaultGracePeriod   = 2 * time.Second
)

// Outcome labels used in metrics and the headless summary
const (
	OutcomeCompleted = "completed"
	OutcomeEnded     = "ended"
	OutcomeStopped   = "stopped"
)
