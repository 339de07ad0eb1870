package trainer

import (
	"fmt"
	"log"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Page names for tview.Pages
const (
	pageExerciseSelection = "exercise_selection"
	pageSessionDashboard  = "session_dashboard"
)

// CursesUIViewImpl implements UIViewImpl using tview (curses-based terminal UI)
type CursesUIViewImpl struct {
	logger *log.Logger
	app    *tview.Application

	// currentMode is written by the model listener and read by the input capture
	modeMu      sync.RWMutex
	currentMode UIMode

	// Root container that holds all pages
	pages *tview.Pages

	// Shared components (visible in all modes)
	logView  *tview.TextView
	mainFlex *tview.Flex // Main layout: mode content on left, logs on right

	// Exercise Selection mode components
	exerciseSelectionFlex       *tview.Flex
	exerciseSelectionTabWidgets []*tview.Box
	exerciseList                *tview.List
	exerciseDetailsPanel        *tview.TextView
	exercises                   []ExerciseListItem

	// Session Dashboard mode components
	sessionDashboardFlex       *tview.Flex
	sessionDashboardTabWidgets []*tview.Box
	progressPanel              *tview.TextView
	formPanel                  *tview.TextView
	sessionPanel               *tview.TextView
}

func NewCursesUIView(logger *log.Logger, app *tview.Application) *CursesUIViewImpl {
	if logger == nil {
		panic("CursesUIViewImpl: logger cannot be nil")
	}
	if app == nil {
		panic("CursesUIViewImpl: app cannot be nil")
	}
	return &CursesUIViewImpl{
		logger:      logger,
		app:         app,
		currentMode: UIModeExerciseSelection,
	}
}

// Initialize sets up the tview widgets
func (ui *CursesUIViewImpl) Initialize(controller *UIController) {
	// No SetChangedFunc with app.Draw() here: it can hang during shutdown while
	// log lines are still arriving. BaseUIView calls Draw() after updates.
	ui.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	ui.logView.SetBorder(true).SetTitle(" Logs ")

	ui.pages = tview.NewPages()

	ui.initExerciseSelectionMode(controller)
	ui.initSessionDashboardMode()

	ui.pages.AddPage(pageExerciseSelection, ui.exerciseSelectionFlex, true, true)
	ui.pages.AddPage(pageSessionDashboard, ui.sessionDashboardFlex, true, false)

	// Create main layout: pages on left, logs on right
	ui.mainFlex = tview.NewFlex().
		AddItem(ui.pages, 0, 2, true).
		AddItem(ui.logView, 0, 1, false)

	ui.setFocusForCurrentMode()
}

// initExerciseSelectionMode sets up the Exercise Selection mode UI
func (ui *CursesUIViewImpl) initExerciseSelectionMode(controller *UIController) {
	ui.exerciseList = tview.NewList().
		ShowSecondaryText(true).
		SetSelectedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
			ui.logger.Printf("UI: Exercise selected: index=%d, name=%s", index, mainText)
			controller.OnExerciseSelected(index)
		}).
		SetChangedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
			ui.updateExerciseDetailsDisplay(index)
		})
	ui.exerciseList.SetBorder(true).SetTitle(" Exercises ")

	ui.exerciseDetailsPanel = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	ui.exerciseDetailsPanel.SetBorder(true).SetTitle(" Details ")
	ui.updateExerciseDetailsDisplay(-1)

	ui.exerciseSelectionTabWidgets = append(ui.exerciseSelectionTabWidgets, ui.exerciseList.Box)
	ui.exerciseSelectionTabWidgets = append(ui.exerciseSelectionTabWidgets, ui.exerciseDetailsPanel.Box)

	instructionsText := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	instructionsText.SetText("[yellow]Enter[white] Start  |  [yellow]Tab[white] Cycle  |  [yellow]1[white] Exercises  |  [yellow]2[white] Dashboard  |  [yellow]Esc[white] Quit")

	columns := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(ui.exerciseList, 0, 1, true).
		AddItem(ui.exerciseDetailsPanel, 0, 1, false)

	ui.exerciseSelectionFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(instructionsText, 1, 0, false).
		AddItem(columns, 0, 1, true)
}

// initSessionDashboardMode sets up the Session Dashboard mode UI
func (ui *CursesUIViewImpl) initSessionDashboardMode() {
	ui.progressPanel = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	ui.progressPanel.SetBorder(true).SetTitle(" Progress ")

	ui.formPanel = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	ui.formPanel.SetBorder(true).SetTitle(" Form ")

	ui.sessionPanel = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	ui.sessionPanel.SetBorder(true).SetTitle(" Session ")

	ui.UpdateSessionState(NewSessionView(SessionState{}))

	ui.sessionDashboardTabWidgets = append(ui.sessionDashboardTabWidgets, ui.progressPanel.Box)
	ui.sessionDashboardTabWidgets = append(ui.sessionDashboardTabWidgets, ui.formPanel.Box)
	ui.sessionDashboardTabWidgets = append(ui.sessionDashboardTabWidgets, ui.sessionPanel.Box)

	bottom := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(ui.formPanel, 0, 1, false).
		AddItem(ui.sessionPanel, 0, 1, false)

	ui.sessionDashboardFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(ui.progressPanel, 0, 1, true).
		AddItem(bottom, 0, 1, false)
}

// SetExerciseList populates the exercise selection list
func (ui *CursesUIViewImpl) SetExerciseList(items []ExerciseListItem) {
	ui.exercises = items
	ui.exerciseList.Clear()

	for _, item := range items {
		ui.exerciseList.AddItem(item.Title, item.Detail, 0, nil)
	}

	if len(items) > 0 {
		ui.updateExerciseDetailsDisplay(0)
	}
}

// SelectExercise moves the list cursor to index
func (ui *CursesUIViewImpl) SelectExercise(index int) {
	if index < 0 || index >= ui.exerciseList.GetItemCount() {
		return
	}
	ui.exerciseList.SetCurrentItem(index)
	ui.updateExerciseDetailsDisplay(index)
}

// updateExerciseDetailsDisplay formats and displays the exercise details
func (ui *CursesUIViewImpl) updateExerciseDetailsDisplay(index int) {
	if ui.exerciseDetailsPanel == nil {
		return
	}

	var text string
	if index < 0 || index >= len(ui.exercises) {
		text = "\n\n  [yellow]Exercise Selection[white]\n\n"
		text += "  Select an exercise from the list to view details.\n"
	} else {
		item := ui.exercises[index]
		text = "\n"
		text += fmt.Sprintf("  [yellow]%s[white]\n\n", item.Title)
		text += fmt.Sprintf("  %s\n\n", item.Detail)
		text += "  [gray]Only frames with good form count.[white]\n\n"
		text += "  [green]Press Enter to start[white]\n"
	}

	ui.exerciseDetailsPanel.SetText(text)
}

// UpdateSessionState renders the dashboard panels
func (ui *CursesUIViewImpl) UpdateSessionState(view SessionView) {
	if ui.progressPanel == nil {
		return
	}

	progress := fmt.Sprintf("\n[yellow]%s[white]\n\n", view.Title)
	if view.Completed {
		progress += "[green::b]SUCCESS![-:-:-]\n\n"
	}
	if view.ProgressCaption != "" {
		progress += fmt.Sprintf("[gray]%s[white]\n", view.ProgressCaption)
	}
	progress += fmt.Sprintf("[::b]%s[-:-:-]\n", view.ProgressText)
	ui.progressPanel.SetText(progress)

	labelColor := "red"
	if view.LabelGood {
		labelColor = "green"
	}
	formText := "\n"
	formText += fmt.Sprintf("  [%s]%s[white]\n\n", labelColor, view.Label)
	formText += fmt.Sprintf("  [gray]Stage:[white] %s\n", view.Stage)
	formText += fmt.Sprintf("  [gray]Angle:[white] %s\n", view.Angle)
	ui.formPanel.SetText(formText)

	sessionText := "\n"
	sessionText += fmt.Sprintf("  [gray]Status:[white] %s\n", view.Status)
	if view.Source != "" {
		sessionText += fmt.Sprintf("  [gray]Source:[white] %s\n", view.Source)
	}
	sessionText += fmt.Sprintf("  [gray]Frames:[white] %d\n", view.Frames)
	if view.Note != "" {
		sessionText += fmt.Sprintf("\n  [yellow]%s[white]\n", view.Note)
	}
	sessionText += "\n  [yellow]X[white] Stop  |  [yellow]G[white]/[yellow]B[white]/[yellow]H[white]/[yellow]C[white] Posture\n"
	ui.sessionPanel.SetText(sessionText)
}

// SetMode switches the UI to the specified mode
func (ui *CursesUIViewImpl) SetMode(mode UIMode) {
	if !ui.switchMode(mode) {
		return
	}
	ui.app.Draw()
}

// switchMode swaps the page and focus under modeMu. Reports false when mode is already active.
func (ui *CursesUIViewImpl) switchMode(mode UIMode) bool {
	ui.modeMu.Lock()
	defer ui.modeMu.Unlock()

	if ui.currentMode == mode {
		return false
	}
	ui.currentMode = mode

	switch mode {
	case UIModeExerciseSelection:
		ui.pages.SwitchToPage(pageExerciseSelection)
	case UIModeSessionDashboard:
		ui.pages.SwitchToPage(pageSessionDashboard)
	}

	if widgets := ui.tabWidgets(mode); len(widgets) > 0 {
		ui.app.SetFocus(widgets[0])
	}
	return true
}

// GetCurrentMode returns the currently active UI mode
func (ui *CursesUIViewImpl) GetCurrentMode() UIMode {
	ui.modeMu.RLock()
	defer ui.modeMu.RUnlock()
	return ui.currentMode
}

// setFocusForCurrentMode sets focus to the first widget in the current mode
func (ui *CursesUIViewImpl) setFocusForCurrentMode() {
	widgets := ui.getTabWidgetsForCurrentMode()
	if len(widgets) > 0 {
		ui.app.SetFocus(widgets[0])
	}
}

// getTabWidgetsForCurrentMode returns the tab widgets for the current mode
func (ui *CursesUIViewImpl) getTabWidgetsForCurrentMode() []*tview.Box {
	return ui.tabWidgets(ui.GetCurrentMode())
}

func (ui *CursesUIViewImpl) tabWidgets(mode UIMode) []*tview.Box {
	switch mode {
	case UIModeExerciseSelection:
		return ui.exerciseSelectionTabWidgets
	case UIModeSessionDashboard:
		return ui.sessionDashboardTabWidgets
	default:
		return nil
	}
}

// SetupKeyboardHandlers sets up keyboard event handlers
func (ui *CursesUIViewImpl) SetupKeyboardHandlers(controller *UIController) {
	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// Number keys for mode switching
		if event.Key() == tcell.KeyRune {
			if mode, ok := GetUIModeByKey(event.Rune()); ok {
				controller.OnModeChange(mode)
				return nil
			}
		}

		// Tab to switch focus between widgets in current mode
		if event.Key() == tcell.KeyTab {
			widgets := ui.getTabWidgetsForCurrentMode()
			widgetCount := len(widgets)
			if widgetCount > 0 {
				for i := 0; i < widgetCount+1; i++ {
					idx := i % widgetCount
					if widgets[idx].HasFocus() {
						ui.app.SetFocus(widgets[(idx+1)%widgetCount])
						break
					}
				}
			}
			return nil
		}

		// Escape or q to quit
		if event.Key() == tcell.KeyEscape || (event.Key() == tcell.KeyRune && event.Rune() == 'q') {
			controller.OnEscapeKey()
			return nil
		}

		if ui.GetCurrentMode() == UIModeSessionDashboard && event.Key() == tcell.KeyRune {
			if event.Rune() == 'x' {
				controller.StopSession()
				return nil
			}
			if controller.OnPostureKey(event.Rune()) {
				return nil
			}
		}

		return event
	})
}

// GetLogViewHeight returns the visible height of the log view
func (ui *CursesUIViewImpl) GetLogViewHeight() int {
	_, _, _, height := ui.logView.GetInnerRect()
	return height
}

// ClearLogView clears the log view
func (ui *CursesUIViewImpl) ClearLogView() {
	ui.logView.Clear()
}

// WriteLogLine writes a line to the log view
func (ui *CursesUIViewImpl) WriteLogLine(line string) error {
	_, err := fmt.Fprint(ui.logView, line)
	return err
}

// Draw refreshes/redraws the UI
func (ui *CursesUIViewImpl) Draw() error {
	ui.app.Draw()
	return nil
}

// Run starts the UI and blocks until it exits
func (ui *CursesUIViewImpl) Run() error {
	// SetRoot must be called before setting focus, otherwise focus may be reset
	ui.app.SetRoot(ui.mainFlex, true)
	ui.setFocusForCurrentMode()
	return ui.app.Run()
}

// Stop stops the UI framework
func (ui *CursesUIViewImpl) Stop() {
	ui.app.Stop()
}
