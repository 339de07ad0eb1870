package form

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/smart-trainer/form-trainer-app/internal/pose"
)

func TestSession_InitialReport(t *testing.T) {
	s := NewSession(mustProfile(t, ExercisePlank), 2)

	last := s.Last()
	assert.Equal(t, LabelNotDetected, last.Label)
	assert.Equal(t, StageIdle, last.Stage)
	assert.Equal(t, "00:36", last.ProgressText())
	assert.Equal(t, 36, s.Target().Units)
	assert.Equal(t, ExercisePlank, s.Profile().ID)
}

func TestSession_PlankToCompletion(t *testing.T) {
	s := NewSession(mustProfile(t, ExercisePlank), 2)
	good := pose.PlankFrame(0, 0.95)

	var report TickReport
	for i := 0; i <= 36; i++ {
		report = s.Step(good, sec(i))
		if i < 36 {
			require.Equal(t, LabelGood, report.Label, "tick %d", i)
		}
	}
	assert.True(t, report.Completed())
	assert.Equal(t, LabelCompleted, report.Label)
	assert.Equal(t, "00:00", report.ProgressText())

	// frames after completion are ignored
	after := s.Step(pose.PlankFrame(0.3, 0.95), sec(40))
	assert.Equal(t, report, after)
}

func TestSession_Labels(t *testing.T) {
	s := NewSession(mustProfile(t, ExercisePlank), 0)

	assert.Equal(t, LabelNotDetected, s.Step(pose.LandmarkFrame{}, 0).Label)
	assert.Equal(t, LabelNotVisible, s.Step(pose.PlankFrame(0, 0.2), sec(1)).Label)
	assert.Equal(t, LabelBad, s.Step(pose.PlankFrame(0.15, 0.95), sec(2)).Label)

	report := s.Step(pose.PlankFrame(0, 0.95), sec(3))
	assert.Equal(t, LabelGood, report.Label)
	assert.Equal(t, VerdictGood, report.Verdict)
	assert.Equal(t, "right", report.Features.Side)
	assert.Equal(t, sec(3), report.Now)
}

func TestSession_SquatCounter(t *testing.T) {
	s := NewSession(mustProfile(t, ExerciseSquat), 0)

	report := s.Step(pose.SquatFrame(170, 0.9), 0)
	assert.Equal(t, "25", report.ProgressText())
	assert.Equal(t, PhaseNeutral, report.Phase)

	report = s.Step(pose.SquatFrame(90, 0.9), 100*time.Millisecond)
	assert.Equal(t, "DOWN", report.Phase.String())

	report = s.Step(pose.SquatFrame(170, 0.9), 200*time.Millisecond)
	assert.True(t, report.Credited)
	assert.Equal(t, "UP", report.Phase.String())
	assert.Equal(t, "24", report.ProgressText())
}

func TestSession_PenaltyFromRawInput(t *testing.T) {
	s := NewSession(mustProfile(t, ExercisePlank), ParsePenaltyCount("three"))
	assert.Equal(t, 30, s.Target().Units)
}

func TestFormatMMSS(t *testing.T) {
	assert.Equal(t, "00:00", FormatMMSS(0))
	assert.Equal(t, "00:35", FormatMMSS(35500*time.Millisecond))
	assert.Equal(t, "01:05", FormatMMSS(65*time.Second))
	assert.Equal(t, "00:00", FormatMMSS(-time.Second))
}
