package trainer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/smart-trainer/form-trainer-app/internal/form"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/logging"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/metrics"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/pose"
)

func TestNewExerciseListItems(t *testing.T) {
	exercises := []form.ExerciseProfile{
		mustProfile(t, form.ExercisePlank),
		mustProfile(t, form.ExercisePushup),
		mustProfile(t, form.ExercisePlankMidpoint),
	}

	items := NewExerciseListItems(exercises, 2)
	require.Len(t, items, 3)
	assert.Equal(t, ExerciseListItem{Title: "Plank", Detail: "hold 00:36 with good form (+6s for 2 wrong answers)"}, items[0])
	assert.Equal(t, ExerciseListItem{Title: "Push-up", Detail: "16 reps, full range of motion (+2 reps for 2 wrong answers)"}, items[1])
	assert.Equal(t, "hold 01:00 with good form", items[2].Detail)

	items = NewExerciseListItems(exercises[:2], 0)
	assert.Equal(t, "hold 00:30 with good form", items[0].Detail)
	assert.Equal(t, "14 reps, full range of motion", items[1].Detail)
}

func TestNewSessionView_NoSession(t *testing.T) {
	view := NewSessionView(SessionState{Status: SessionStatusIdle})
	assert.Equal(t, "No exercise selected", view.Title)
	assert.Equal(t, "Idle", view.Status)
	assert.Equal(t, "--", view.ProgressText)
	assert.Equal(t, "--", view.Angle)
	assert.Equal(t, form.LabelNotDetected, view.Label)
	assert.False(t, view.LabelGood)
	assert.NotEmpty(t, view.Note)
}

func TestNewSessionView_Hold(t *testing.T) {
	plank := mustProfile(t, form.ExercisePlank)
	session := form.NewSession(plank, 0)
	session.Step(pose.PlankFrame(0, 0.95), 0)
	report := session.Step(pose.PlankFrame(0, 0.95), 4500*time.Millisecond)

	view := NewSessionView(SessionState{Status: SessionStatusRunning, Profile: &plank, Report: report, Source: "synthetic plank", Frames: 2})
	assert.Equal(t, "Plank (target 30s)", view.Title)
	assert.Equal(t, "TIME LEFT", view.ProgressCaption)
	assert.Equal(t, "00:25", view.ProgressText)
	assert.Equal(t, "Engaged", view.Stage)
	assert.Equal(t, "180°", view.Angle)
	assert.Equal(t, form.LabelGood, view.Label)
	assert.True(t, view.LabelGood)
	assert.False(t, view.Completed)
	assert.Equal(t, "synthetic plank", view.Source)
	assert.Equal(t, 2, view.Frames)

	report = session.Step(pose.PlankFrame(0, 0.1), 5*time.Second)
	view = NewSessionView(SessionState{Status: SessionStatusRunning, Profile: &plank, Report: report})
	assert.Equal(t, "Paused", view.Stage)
	assert.Equal(t, form.LabelNotVisible, view.Label)
	assert.False(t, view.LabelGood)
}

func TestNewSessionView_Reps(t *testing.T) {
	squat := mustProfile(t, form.ExerciseSquat)
	session := form.NewSession(squat, 0)
	session.Step(pose.SquatFrame(170, 0.95), 0)
	report := session.Step(pose.SquatFrame(80, 0.95), time.Second)

	view := NewSessionView(SessionState{Status: SessionStatusRunning, Profile: &squat, Report: report})
	assert.Equal(t, "Squat (target 25 reps)", view.Title)
	assert.Equal(t, "REPS LEFT", view.ProgressCaption)
	assert.Equal(t, "25", view.ProgressText)
	assert.Equal(t, "DOWN", view.Stage)
	assert.Equal(t, "80°", view.Angle)

	report = session.Step(pose.SquatFrame(170, 0.95), 2*time.Second)
	view = NewSessionView(SessionState{Status: SessionStatusRunning, Profile: &squat, Report: report})
	assert.Equal(t, "24", view.ProgressText)
	assert.Equal(t, "UP", view.Stage)

	countUp := squat.WithDirection(form.CountUp)
	view = NewSessionView(SessionState{Status: SessionStatusReady, Profile: &countUp, Report: form.NewSession(countUp, 0).Last()})
	assert.Equal(t, "REPS DONE", view.ProgressCaption)
	assert.Equal(t, "0", view.ProgressText)
	assert.Equal(t, "--", view.Angle)
}

// fakeView records what BaseUIView pushes to it
type fakeView struct {
	mu        sync.Mutex
	mode      UIMode
	items     []ExerciseListItem
	selected  int
	session   SessionView
	logLines  []string
	stopped   bool
	drawCount int
}

func (v *fakeView) Initialize(*UIController)            {}
func (v *fakeView) SetupKeyboardHandlers(*UIController) {}
func (v *fakeView) Run() error                          { return nil }
func (v *fakeView) GetLogViewHeight() int               { return 2 }

func (v *fakeView) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopped = true
}

func (v *fakeView) Draw() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.drawCount++
	return nil
}

func (v *fakeView) SetMode(mode UIMode) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mode = mode
}

func (v *fakeView) GetCurrentMode() UIMode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mode
}

func (v *fakeView) ClearLogView() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.logLines = nil
}

func (v *fakeView) WriteLogLine(line string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.logLines = append(v.logLines, line)
	return nil
}

func (v *fakeView) SetExerciseList(items []ExerciseListItem) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.items = items
}

func (v *fakeView) SelectExercise(index int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selected = index
}

func (v *fakeView) UpdateSessionState(view SessionView) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.session = view
}

func (v *fakeView) snapshot() fakeView {
	v.mu.Lock()
	defer v.mu.Unlock()
	return fakeView{mode: v.mode, items: v.items, selected: v.selected, session: v.session, logLines: append([]string(nil), v.logLines...), stopped: v.stopped}
}

type controllerFixture struct {
	model      *UIModel
	handler    *SourceHandler
	sm         *SessionManager
	controller *UIController
}

func newControllerFixture(t *testing.T, posture pose.Posture, grace time.Duration) controllerFixture {
	t.Helper()
	model, m := newTestModel(t)
	sm := newTestSessionManager(t, model, m, grace)
	handler := NewSourceHandler(SourceConfig{Posture: posture, Clock: steppingClock(time.Second)}, logging.Discard())
	controller := NewUIController(model, handler, sm, form.AllExercises, 0, logging.Discard())
	t.Cleanup(controller.Shutdown)
	return controllerFixture{model: model, handler: handler, sm: sm, controller: controller}
}

func TestUIController_ExerciseLifecycle(t *testing.T) {
	f := newControllerFixture(t, pose.PostureHidden, time.Hour)
	assert.Equal(t, -1, f.controller.LastExerciseIndex())

	assert.False(t, f.controller.SelectExercise("handstand"))
	assert.Equal(t, UIModeExerciseSelection, f.model.GetUIState().Mode)

	f.controller.OnExerciseSelected(2)
	assert.Equal(t, UIModeSessionDashboard, f.model.GetUIState().Mode)
	assert.Equal(t, form.ExerciseSquat, f.model.GetLastExercise())
	assert.Equal(t, 2, f.controller.LastExerciseIndex())
	waitStatus(t, f.model, SessionStatusRunning)

	assert.True(t, f.controller.OnPostureKey('g'))
	posture, ok := f.handler.Posture()
	require.True(t, ok)
	assert.Equal(t, pose.PostureGood, posture)
	assert.False(t, f.controller.OnPostureKey('z'))

	f.controller.StopSession()
	assert.Equal(t, UIModeExerciseSelection, f.model.GetUIState().Mode)
	waitStatus(t, f.model, SessionStatusIdle)
	_, ok = f.handler.Posture()
	assert.False(t, ok)

	// out of range is ignored
	f.controller.OnExerciseSelected(len(form.AllExercises))
	assert.Equal(t, UIModeExerciseSelection, f.model.GetUIState().Mode)
}

func TestUIController_SelectWhileRunningKeepsSession(t *testing.T) {
	f := newControllerFixture(t, pose.PostureGood, time.Hour)

	require.True(t, f.controller.SelectExercise(form.ExercisePushup))
	running := waitStatus(t, f.model, SessionStatusRunning)

	require.True(t, f.controller.SelectExercise(form.ExerciseSquat))
	frames := f.sm.State().Frames
	require.Eventually(t, func() bool { return f.sm.State().Frames > frames+2 }, waitFor, time.Millisecond)

	state := f.sm.State()
	assert.Equal(t, SessionStatusRunning, state.Status)
	assert.Equal(t, running.ID, state.ID)
	assert.Equal(t, form.ExercisePushup, state.Profile.ID)
	assert.Empty(t, state.Err)
	assert.Equal(t, form.ExercisePushup, f.model.GetLastExercise())
	_, ok := f.handler.Posture()
	assert.True(t, ok)
}

func TestUIController_NewSessionDuringGraceStaysOpen(t *testing.T) {
	grace := 200 * time.Millisecond
	f := newControllerFixture(t, pose.PostureGood, grace)

	closeCh := make(chan struct{}, 1)
	defer f.model.ListenToCloseApplication(closeCh)()

	require.True(t, f.controller.SelectExercise(form.ExercisePlank))
	waitStatus(t, f.model, SessionStatusCompleted)

	// good pushups never contract, so this session keeps running
	require.True(t, f.controller.SelectExercise(form.ExercisePushup))
	waitStatus(t, f.model, SessionStatusRunning)

	select {
	case <-closeCh:
		t.Fatal("close requested while the next session runs")
	case <-time.After(3 * grace):
	}
	assert.Equal(t, SessionStatusRunning, f.sm.State().Status)
	assert.Equal(t, form.ExercisePushup, f.sm.State().Profile.ID)
}

func TestUIController_CompletedHoldClosesAfterGrace(t *testing.T) {
	model, m := newTestModel(t)
	sm := newTestSessionManager(t, model, m, 0)
	handler := NewSourceHandler(SourceConfig{Posture: pose.PostureGood, Clock: steppingClock(time.Second)}, logging.Discard())
	controller := NewUIController(model, handler, sm, form.AllExercises, 0, logging.Discard())
	defer controller.Shutdown()

	view := &fakeView{}
	base := NewBaseUIView(NewBaseUIViewArg{UIViewImpl: view, UIModel: model, UIController: controller, Logger: logging.Discard()})
	defer base.Shutdown()

	snap := view.snapshot()
	assert.Len(t, snap.items, len(form.AllExercises))
	assert.Equal(t, UIModeExerciseSelection, snap.mode)
	assert.Equal(t, "No exercise selected", snap.session.Title)

	require.True(t, controller.SelectExercise(form.ExercisePlank))

	require.Eventually(t, func() bool {
		snap := view.snapshot()
		return snap.stopped && snap.session.Completed
	}, waitFor, time.Millisecond)
	snap = view.snapshot()
	assert.Equal(t, UIModeSessionDashboard, snap.mode)
	assert.True(t, snap.session.Completed)
	assert.Equal(t, form.LabelCompleted, snap.session.Label)
	assert.Equal(t, "00:00", snap.session.ProgressText)
	assert.Len(t, model.GetSessionHistory(), 1)
}

func TestBaseUIView_ShowsLogTail(t *testing.T) {
	logChan := make(chan string)
	model := NewUIModel(logging.Discard(), logChan, metrics.NewTestManager(), "")
	defer model.Shutdown()
	sm := NewSessionManager(model, metrics.NewTestManager(), SessionTiming{}, logging.Discard())
	controller := NewUIController(model, NewSourceHandler(SourceConfig{}, logging.Discard()), sm, form.AllExercises, 0, logging.Discard())
	defer controller.Shutdown()

	view := &fakeView{selected: -1}
	base := NewBaseUIView(NewBaseUIViewArg{UIViewImpl: view, UIModel: model, UIController: controller, Logger: logging.Discard()})
	defer base.Shutdown()
	assert.Equal(t, -1, view.snapshot().selected)

	logChan <- "first"
	logChan <- "second"
	logChan <- "third"

	require.Eventually(t, func() bool {
		lines := view.snapshot().logLines
		return len(lines) == 2 && lines[1] == "third"
	}, waitFor, time.Millisecond)
	assert.Equal(t, []string{"second", "third"}, view.snapshot().logLines)
}
