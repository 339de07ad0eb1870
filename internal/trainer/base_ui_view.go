package trainer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lowaak/smart-trainer/form-trainer-app/internal/form"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/go_func_utils"
)

// ExerciseListItem is one row of the exercise selection list
type ExerciseListItem struct {
	Title  string
	Detail string
}

// SessionView is the render-ready form of a SessionState
type SessionView struct {
	Title           string
	Status          string
	ProgressCaption string
	ProgressText    string
	Completed       bool
	Stage           string
	Angle           string
	Label           string
	LabelGood       bool
	Source          string
	Frames          int
	Note            string
}

// NewExerciseListItems lists the exercises with the target each would get for penaltyCount
func NewExerciseListItems(exercises []form.ExerciseProfile, penaltyCount int) []ExerciseListItem {
	items := make([]ExerciseListItem, 0, len(exercises))
	for _, profile := range exercises {
		target := form.CalculateTarget(profile, penaltyCount)
		var detail string
		if profile.Mode == form.ModeHoldDuration {
			detail = fmt.Sprintf("hold %s with good form", form.FormatMMSS(target.Duration()))
		} else {
			detail = fmt.Sprintf("%d reps, full range of motion", target.Units)
		}
		if penaltyCount > 0 && profile.PenaltyPerUnit > 0 {
			detail += fmt.Sprintf(" (+%s for %d wrong answers)",
				formatUnits(penaltyCount*profile.PenaltyPerUnit, profile), penaltyCount)
		}
		items = append(items, ExerciseListItem{Title: profile.DisplayName, Detail: detail})
	}
	return items
}

// formatUnits renders 36 as "36s" for holds and "16 reps" for repetitions
func formatUnits(n int, profile form.ExerciseProfile) string {
	if profile.Mode == form.ModeHoldDuration {
		return fmt.Sprintf("%d%s", n, profile.Unit())
	}
	return fmt.Sprintf("%d %s", n, profile.Unit())
}

// NewSessionView converts state for display
func NewSessionView(state SessionState) SessionView {
	view := SessionView{
		Status: state.Status.String(),
		Source: state.Source,
		Frames: state.Frames,
		Note:   state.Err,
	}
	if state.Profile == nil {
		view.Title = "No exercise selected"
		view.ProgressText = "--"
		view.Stage = "-"
		view.Angle = "--"
		view.Label = form.LabelNotDetected
		view.Note = "Pick an exercise in Exercise Selection (press 1)"
		return view
	}

	report := state.Report
	profile := state.Profile
	view.Title = fmt.Sprintf("%s (target %s)", profile.DisplayName, formatUnits(report.Target.Units, *profile))
	view.ProgressText = report.ProgressText()
	view.Completed = report.Completed()
	view.Label = report.Label
	view.LabelGood = report.Verdict == form.VerdictGood || view.Completed

	if profile.Mode == form.ModeHoldDuration {
		view.ProgressCaption = "TIME LEFT"
		view.Stage = report.Stage.String()
	} else {
		if profile.Direction == form.CountUp {
			view.ProgressCaption = "REPS DONE"
		} else {
			view.ProgressCaption = "REPS LEFT"
		}
		view.Stage = report.Phase.String()
	}

	if form.IsDegenerate(report.Features.PrimaryAngle) {
		view.Angle = "--"
	} else {
		view.Angle = fmt.Sprintf("%.0f°", report.Features.PrimaryAngle)
	}
	return view
}

// BaseUIView contains the base logic shared by all UI implementations
type BaseUIView struct {
	uiViewImpl   UIViewImpl
	uiModel      *UIModel
	uiController *UIController
	context      context.Context
	cancelFunc   context.CancelFunc
	waitGroup    sync.WaitGroup
	logger       *log.Logger
}

// NewBaseUIViewArg holds the arguments for creating a new BaseUIView
type NewBaseUIViewArg struct {
	UIViewImpl   UIViewImpl
	UIModel      *UIModel
	UIController *UIController
	Logger       *log.Logger
}

// NewBaseUIView creates a new BaseUIView with the given implementation
func NewBaseUIView(args NewBaseUIViewArg) *BaseUIView {
	if args.Logger == nil {
		panic("BaseUIView: logger cannot be nil")
	}
	if args.UIViewImpl == nil {
		panic("BaseUIView: UIViewImpl cannot be nil")
	}
	if args.UIModel == nil {
		panic("BaseUIView: UIModel cannot be nil")
	}
	if args.UIController == nil {
		panic("BaseUIView: UIController cannot be nil")
	}
	ctx, cancel := context.WithCancel(context.Background())

	base := &BaseUIView{
		uiViewImpl:   args.UIViewImpl,
		uiModel:      args.UIModel,
		uiController: args.UIController,
		context:      ctx,
		cancelFunc:   cancel,
		waitGroup:    sync.WaitGroup{},
		logger:       args.Logger,
	}

	// Initialize framework-specific widgets
	args.UIViewImpl.Initialize(args.UIController)

	// Set up keyboard handlers
	args.UIViewImpl.SetupKeyboardHandlers(args.UIController)

	args.UIViewImpl.SetExerciseList(NewExerciseListItems(args.UIController.Exercises(), args.UIController.PenaltyCount()))
	if idx := args.UIController.LastExerciseIndex(); idx >= 0 {
		args.UIViewImpl.SelectExercise(idx)
	}
	args.UIViewImpl.SetMode(args.UIModel.GetUIState().Mode)
	args.UIViewImpl.UpdateSessionState(NewSessionView(args.UIModel.GetSessionState()))

	// Set up periodic resize check and initial display
	go_func_utils.SafeGoWG(&base.waitGroup, base.logger, base.monitorLogResize)
	base.updateLogDisplay()

	base.setupEventListeners()

	return base
}

func (base *BaseUIView) setupEventListeners() {
	// Listen to log messages from model
	logChan := make(chan string, 1)
	logUnregister := base.uiModel.ListenToLog(logChan)
	go_func_utils.SafeGoWG(&base.waitGroup, base.logger, func() {
		defer logUnregister()
		for {
			select {
			case <-base.context.Done():
				return
			case _, ok := <-logChan:
				if !ok {
					return
				}
				// When a new log arrives, update the display to show the tail
				base.updateLogDisplay()
			}
		}
	})

	// Listen to close application event from model
	closeChan := make(chan struct{}, 1)
	closeUnregister := base.uiModel.ListenToCloseApplication(closeChan)
	go_func_utils.SafeGoWG(&base.waitGroup, base.logger, func() {
		defer closeUnregister()
		select {
		case <-base.context.Done():
			return
		case _, ok := <-closeChan:
			if !ok {
				return
			}
			base.uiViewImpl.Stop()
		}
	})

	// Listen to UI state changes from model
	uiStateChan := make(chan UIState, 1)
	uiStateUnregister := base.uiModel.ListenToUIState(uiStateChan)
	go_func_utils.SafeGoWG(&base.waitGroup, base.logger, func() {
		defer uiStateUnregister()
		for {
			select {
			case <-base.context.Done():
				return
			case _, ok := <-uiStateChan:
				if !ok {
					return
				}
				// the channel may have dropped newer states, render the current one
				base.uiViewImpl.SetMode(base.uiModel.GetUIState().Mode)
				if err := base.uiViewImpl.Draw(); err != nil {
					base.logger.Printf("BaseUIView: Error drawing: %v", err)
				}
			}
		}
	})

	// Listen to session state changes from model
	sessionStateChan := make(chan SessionState, 1)
	sessionStateUnregister := base.uiModel.ListenToSessionState(sessionStateChan)
	go_func_utils.SafeGoWG(&base.waitGroup, base.logger, func() {
		defer sessionStateUnregister()
		for {
			select {
			case <-base.context.Done():
				return
			case _, ok := <-sessionStateChan:
				if !ok {
					return
				}
				base.uiViewImpl.UpdateSessionState(NewSessionView(base.uiModel.GetSessionState()))
				if err := base.uiViewImpl.Draw(); err != nil {
					base.logger.Printf("BaseUIView: Error drawing: %v", err)
				}
			}
		}
	})
}

func (base *BaseUIView) updateLogDisplay() {
	height := base.uiViewImpl.GetLogViewHeight()
	if height <= 0 {
		return
	}

	logLines := base.uiModel.GetLogTail(height)

	base.uiViewImpl.ClearLogView()
	for _, line := range logLines {
		if err := base.uiViewImpl.WriteLogLine(line); err != nil {
			base.logger.Printf("BaseUIView: Error writing to log view: %v", err)
		}
	}
}

func (base *BaseUIView) monitorLogResize() {
	var lastHeight int
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-base.context.Done():
			return
		case <-ticker.C:
			height := base.uiViewImpl.GetLogViewHeight()
			if height != lastHeight && height > 0 {
				lastHeight = height
				base.updateLogDisplay()
				if err := base.uiViewImpl.Draw(); err != nil {
					base.logger.Printf("BaseUIView: Error drawing: %v", err)
				}
			}
		}
	}
}

// Shutdown stops all goroutines and waits for them to finish
func (base *BaseUIView) Shutdown() {
	base.logger.Println("BaseUIView: Shutting down")
	base.cancelFunc()
	base.waitGroup.Wait()
	base.logger.Println("BaseUIView: Shutdown complete")
}

// Run starts the UI and blocks until it exits
func (base *BaseUIView) Run() error {
	return base.uiViewImpl.Run()
}
