package trainer

import (
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/smart-trainer/form-trainer-app/internal/logging"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/pose"
)

func newTestCursesView(t *testing.T) (*CursesUIViewImpl, *tview.Application, controllerFixture) {
	t.Helper()
	f := newControllerFixture(t, pose.PostureHidden, time.Hour)
	app := tview.NewApplication()
	view := NewCursesUIView(logging.Discard(), app)
	view.Initialize(f.controller)
	view.SetupKeyboardHandlers(f.controller)
	return view, app, f
}

func TestCursesUIView_SetMode(t *testing.T) {
	view, _, _ := newTestCursesView(t)
	assert.Equal(t, UIModeExerciseSelection, view.GetCurrentMode())

	view.SetMode(UIModeSessionDashboard)
	assert.Equal(t, UIModeSessionDashboard, view.GetCurrentMode())
	name, _ := view.pages.GetFrontPage()
	assert.Equal(t, pageSessionDashboard, name)
	assert.True(t, view.progressPanel.HasFocus())

	view.SetMode(UIModeSessionDashboard)
	assert.Equal(t, UIModeSessionDashboard, view.GetCurrentMode())

	view.SetMode(UIModeExerciseSelection)
	name, _ = view.pages.GetFrontPage()
	assert.Equal(t, pageExerciseSelection, name)
	assert.True(t, view.exerciseList.HasFocus())
}

func TestCursesUIView_ModeSwitchDuringKeyInput(t *testing.T) {
	view, app, _ := newTestCursesView(t)
	capture := app.GetInputCapture()
	require.NotNil(t, capture)

	const rounds = 200
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if i%2 == 0 {
				view.SetMode(UIModeSessionDashboard)
			} else {
				view.SetMode(UIModeExerciseSelection)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			// unknown posture keys fall through in both modes
			event := tcell.NewEventKey(tcell.KeyRune, 'z', tcell.ModNone)
			assert.Same(t, event, capture(event))
			view.GetCurrentMode()
		}
	}()
	wg.Wait()

	assert.Equal(t, UIModeExerciseSelection, view.GetCurrentMode())
}
