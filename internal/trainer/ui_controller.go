package trainer

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/lowaak/smart-trainer/form-trainer-app/internal/form"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/go_func_utils"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/pose"
)

// UIController handles UI events and coordinates with the UIModel
type UIController struct {
	model          *UIModel
	sourceHandler  *SourceHandler
	sessionManager *SessionManager
	exercises      []form.ExerciseProfile
	penaltyCount   int
	logger         *log.Logger
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
}

// NewUIController creates a new UIController with the given dependencies.
// exercises is the selectable list, penaltyCount the wrong answers carried into every target.
func NewUIController(model *UIModel, sourceHandler *SourceHandler, sessionManager *SessionManager, exercises []form.ExerciseProfile, penaltyCount int, logger *log.Logger) *UIController {
	if model == nil {
		panic("UIController: model cannot be nil")
	}
	if sourceHandler == nil {
		panic("UIController: sourceHandler cannot be nil")
	}
	if sessionManager == nil {
		panic("UIController: sessionManager cannot be nil")
	}
	if logger == nil {
		panic("UIController: logger cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &UIController{
		model:          model,
		sourceHandler:  sourceHandler,
		sessionManager: sessionManager,
		exercises:      exercises,
		penaltyCount:   penaltyCount,
		logger:         logger,
		ctx:            ctx,
		cancel:         cancel,
	}

	go_func_utils.SafeGoWG(&c.wg, logger, c.listenToSessionEnd)

	return c
}

// listenToSessionEnd releases the pose source once a session ends early
func (c *UIController) listenToSessionEnd() {

	ch := make(chan SessionState, 1)
	unregister := c.model.ListenToSessionState(ch)
	defer unregister()

	for {
		select {
		case <-c.ctx.Done():
			return
		case state, ok := <-ch:
			if !ok {
				return
			}
			if state.Status != SessionStatusEnded {
				continue
			}
			c.logger.Printf("Session ended: %s", state.Err)
			if err := c.sourceHandler.Close(); err != nil {
				c.logger.Printf("Error closing pose source: %v", err)
			}
		}
	}
}

// Exercises returns the selectable exercises in display order
func (c *UIController) Exercises() []form.ExerciseProfile {
	return c.exercises
}

// LastExerciseIndex returns the list index of the previously selected exercise, -1 if none
func (c *UIController) LastExerciseIndex() int {
	last := c.model.GetLastExercise()
	for i, profile := range c.exercises {
		if profile.ID == last {
			return i
		}
	}
	return -1
}

// PenaltyCount returns the wrong answer count used for targets
func (c *UIController) PenaltyCount() int {
	return c.penaltyCount
}

// OnExerciseSelected handles when an exercise is selected from the list
func (c *UIController) OnExerciseSelected(index int) {
	if index < 0 || index >= len(c.exercises) {
		c.logger.Printf("Invalid exercise index: %d", index)
		return
	}
	c.startExercise(c.exercises[index])
}

// SelectExercise starts the exercise with the given id, skipping the selection screen
func (c *UIController) SelectExercise(id form.ExerciseID) bool {
	for _, profile := range c.exercises {
		if profile.ID == id {
			c.startExercise(profile)
			return true
		}
	}
	c.logger.Printf("Unknown exercise: %s", id)
	return false
}

func (c *UIController) startExercise(profile form.ExerciseProfile) {
	c.logger.Printf("Exercise selected: %s", profile.DisplayName)

	// opening a source closes the one the running session reads from
	if c.sessionManager.State().Status == SessionStatusRunning {
		c.logger.Printf("A session is running, stop it first (x)")
		return
	}

	provider, err := c.sourceHandler.Open(profile)
	if err != nil {
		c.logger.Printf("Cannot open pose source: %v", err)
		return
	}

	if err := c.sessionManager.Load(profile, provider, c.penaltyCount); err != nil {
		c.logger.Printf("Cannot load session: %v", err)
		if cerr := c.sourceHandler.Close(); cerr != nil {
			c.logger.Printf("Error closing pose source: %v", cerr)
		}
		return
	}

	c.model.SetLastExercise(profile.ID)
	c.sessionManager.Start()
	c.model.SetMode(UIModeSessionDashboard)
}

// StopSession abandons the running session and returns to the selection screen
func (c *UIController) StopSession() {
	c.sessionManager.Stop()
	if err := c.sourceHandler.Close(); err != nil {
		c.logger.Printf("Error closing pose source: %v", err)
	}
	c.model.SetMode(UIModeExerciseSelection)
}

// OnEscapeKey handles when the Escape key is pressed
func (c *UIController) OnEscapeKey() {
	c.model.RequestCloseApplication()
}

// OnModeChange handles when the user requests a mode change
func (c *UIController) OnModeChange(mode UIMode) {
	if info, ok := GetUIModeInfo(mode); ok {
		c.logger.Printf("Switching to %s mode", info.DisplayName)
	}
	c.model.SetMode(mode)
}

// OnPostureKey switches the synthetic posture bound to key. Returns false when
// key is not a posture key.
func (c *UIController) OnPostureKey(key rune) bool {
	posture, ok := postureKeys[key]
	if !ok {
		return false
	}
	if err := c.sourceHandler.SetPosture(posture); err != nil {
		if errors.Is(err, ErrNoSyntheticSource) {
			c.logger.Printf("Posture keys only work with the synthetic source")
		} else {
			c.logger.Printf("Cannot set posture: %v", err)
		}
	}
	return true
}

var postureKeys = map[rune]pose.Posture{
	'g': pose.PostureGood,
	'b': pose.PostureBad,
	'h': pose.PostureHidden,
	'c': pose.PostureCycle,
}

// Shutdown stops the session manager, releases the pose source and cleans up resources
func (c *UIController) Shutdown() {
	c.cancel()
	c.wg.Wait()
	c.sessionManager.Shutdown()
	if err := c.sourceHandler.Close(); err != nil {
		c.logger.Printf("Error closing pose source: %v", err)
	}
}
