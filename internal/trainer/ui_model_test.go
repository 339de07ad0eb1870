package trainer

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/smart-trainer/form-trainer-app/internal/form"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/logging"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/metrics"
)

func TestUIModel_LogTail(t *testing.T) {
	logChan := make(chan string)
	model := NewUIModel(logging.Discard(), logChan, metrics.NewTestManager(), "")
	defer model.Shutdown()

	received := make(chan string, 8)
	defer model.ListenToLog(received)()

	logChan <- "one"
	logChan <- "two"
	logChan <- "three"

	require.Eventually(t, func() bool { return len(model.GetLogTail(10)) == 3 }, waitFor, time.Millisecond)
	assert.Equal(t, []string{"two", "three"}, model.GetLogTail(2))
	assert.Empty(t, model.GetLogTail(0))
	assert.Equal(t, "one", <-received)
}

func TestUIModel_SetModePublishesChanges(t *testing.T) {
	model, _ := newTestModel(t)
	assert.Equal(t, UIModeExerciseSelection, model.GetUIState().Mode)

	ch := make(chan UIState, 4)
	defer model.ListenToUIState(ch)()

	model.SetMode(UIModeExerciseSelection)
	model.SetMode(UIModeSessionDashboard)

	select {
	case state := <-ch:
		assert.Equal(t, UIModeSessionDashboard, state.Mode)
	case <-time.After(waitFor):
		t.Fatal("no ui state published")
	}
	assert.Empty(t, ch)
}

func TestUIModel_DroppedEventsCounted(t *testing.T) {
	m := metrics.NewTestManager()
	model := NewUIModel(logging.Discard(), make(chan string), m, "")
	defer model.Shutdown()

	// unbuffered and never read
	defer model.ListenToSessionState(make(chan SessionState))()

	model.SetSessionState(SessionState{Status: SessionStatusReady})
	model.SetSessionState(SessionState{Status: SessionStatusRunning})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CounterUIEventsDrops))
	assert.Equal(t, SessionStatusRunning, model.GetSessionState().Status)
}

func TestUIModel_PersistsLastExerciseAndHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "ui_state.json")
	plank := mustProfile(t, form.ExercisePlank)

	model := NewUIModel(logging.Discard(), make(chan string), metrics.NewTestManager(), path)
	model.SetLastExercise(form.ExerciseSquat)

	completed := SessionState{
		ID:      "01HZX3M4TQ6A8R2B0C9D7E5F1G",
		Status:  SessionStatusCompleted,
		Profile: &plank,
		Frames:  31,
		Report:  form.TickReport{Target: form.CalculateTarget(plank, 1), Now: 33 * time.Second},
	}
	model.SetSessionState(completed)
	model.SetSessionState(completed)
	model.SetSessionState(SessionState{Status: SessionStatusEnded, Profile: &plank, ID: "other"})
	model.Shutdown()

	reloaded := NewUIModel(logging.Discard(), make(chan string), metrics.NewTestManager(), path)
	defer reloaded.Shutdown()

	assert.Equal(t, form.ExerciseSquat, reloaded.GetLastExercise())
	history := reloaded.GetSessionHistory()
	require.Len(t, history, 1)
	assert.Equal(t, completed.ID, history[0].ID)
	assert.Equal(t, form.ExercisePlank, history[0].Exercise)
	assert.Equal(t, 33, history[0].Target)
	assert.Equal(t, "s", history[0].Unit)
	assert.Equal(t, 31, history[0].Frames)
	assert.InDelta(t, 33.0, history[0].Elapsed, 1e-9)
}

func TestUIModelPersistence_KeepsNewestRecords(t *testing.T) {
	p := newUIModelPersistence("", logging.Discard())
	for i := 0; i < maxSessionRecords+5; i++ {
		assert.True(t, p.addSession(SessionRecord{ID: string(rune('A' + i))}))
	}
	assert.False(t, p.addSession(SessionRecord{ID: string(rune('A' + maxSessionRecords + 4))}))

	sessions := p.sessions()
	require.Len(t, sessions, maxSessionRecords)
	assert.Equal(t, string(rune('A'+5)), sessions[0].ID)
}
