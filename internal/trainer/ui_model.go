package trainer

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lowaak/smart-trainer/form-trainer-app/internal/events"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/form"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/go_func_utils"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/metrics"
)

// UIState holds the current state of the UI that views need to render
type UIState struct {
	Mode UIMode
}

type UIModel struct {
	logEvent              *events.Broadcaster[string]
	closeApplicationEvent *events.Broadcaster[struct{}]
	uiStateEvent          *events.Broadcaster[UIState]
	uiState               UIState
	sessionStateEvent     *events.Broadcaster[SessionState]
	sessionState          SessionState
	persistence           *uiModelPersistence
	logLines              []string
	logMu                 sync.RWMutex
	mu                    sync.RWMutex
	ctx                   context.Context
	cancel                context.CancelFunc
	wg                    sync.WaitGroup
	logger                *log.Logger
}

const maxLogLines = 1000

// NewUIModel creates the model. statePath is where the last exercise and the
// session history are kept; empty keeps them in memory only.
func NewUIModel(logger *log.Logger, uiLogChan <-chan string, metricsManager *metrics.Manager, statePath string) *UIModel {
	if logger == nil {
		panic("UIModel: logger cannot be nil")
	}
	if uiLogChan == nil {
		panic("UIModel: uiLogChan cannot be nil")
	}
	if metricsManager == nil {
		panic("UIModel: metricsManager cannot be nil")
	}
	ctx, cancel := context.WithCancel(context.Background())
	model := &UIModel{
		logEvent:              events.NewBroadcaster[string](false),
		closeApplicationEvent: events.NewBroadcaster[struct{}](true),
		uiStateEvent:          events.NewBroadcaster[UIState](true),
		uiState:               UIState{Mode: UIModeExerciseSelection},
		sessionStateEvent:     events.NewBroadcaster[SessionState](true),
		sessionState:          SessionState{Status: SessionStatusIdle},
		persistence:           newUIModelPersistence(statePath, logger),
		logLines:              make([]string, 0, maxLogLines),
		ctx:                   ctx,
		cancel:                cancel,
		logger:                logger,
	}

	// Slow views lose intermediate states, the latest one always replays
	dropped := func() { metricsManager.CounterUIEventsDrops.Inc() }
	model.logEvent.OnDrop(dropped)
	model.uiStateEvent.OnDrop(dropped)
	model.sessionStateEvent.OnDrop(dropped)

	// Read from the UI log channel and populate logLines
	go_func_utils.SafeGoWG(&model.wg, model.logger, func() { model.readFromLogChannel(ctx, uiLogChan) })

	return model
}

// Shutdown stops all goroutines and waits for them to finish
func (m *UIModel) Shutdown() {
	m.logger.Println("UIModel: Shutting down")
	m.cancel()
	m.wg.Wait()
	m.logger.Println("UIModel: Shutdown complete")
}

// ListenToLog registers a channel to receive log messages
// Returns a deregistration function that can be called to remove the listener
func (m *UIModel) ListenToLog(ch chan<- string) func() {
	return m.logEvent.Subscribe(ch)
}

// ListenToCloseApplication registers a channel to receive close application signals
// Returns a deregistration function that can be called to remove the listener
func (m *UIModel) ListenToCloseApplication(ch chan<- struct{}) func() {
	return m.closeApplicationEvent.Subscribe(ch)
}

// RequestCloseApplication signals that the application should close
func (m *UIModel) RequestCloseApplication() {
	m.closeApplicationEvent.Publish(struct{}{})
}

// ListenToUIState registers a channel to receive UI state changes
// Returns a deregistration function that can be called to remove the listener
func (m *UIModel) ListenToUIState(ch chan<- UIState) func() {
	return m.uiStateEvent.Subscribe(ch)
}

// GetUIState returns the current UI state
func (m *UIModel) GetUIState() UIState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uiState
}

// SetMode updates the current UI mode and notifies listeners
func (m *UIModel) SetMode(mode UIMode) {
	m.mu.Lock()
	if m.uiState.Mode == mode {
		m.mu.Unlock()
		return
	}
	m.uiState.Mode = mode
	state := m.uiState
	m.mu.Unlock()

	m.uiStateEvent.Publish(state)
}

// ListenToSessionState registers a channel to receive session state updates
// Returns a deregistration function that can be called to remove the listener
func (m *UIModel) ListenToSessionState(ch chan<- SessionState) func() {
	return m.sessionStateEvent.Subscribe(ch)
}

// GetSessionState returns the current session state
func (m *UIModel) GetSessionState() SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionState
}

// SetSessionState updates the session state and notifies listeners.
// A completed session is added to the history once.
func (m *UIModel) SetSessionState(state SessionState) {
	m.mu.Lock()
	m.sessionState = state
	stateCopy := m.sessionState
	if state.Status == SessionStatusCompleted && state.Profile != nil && state.ID != "" {
		m.persistence.addSession(SessionRecord{
			ID:          state.ID,
			Exercise:    state.Profile.ID,
			Target:      state.Report.Target.Units,
			Unit:        state.Profile.Unit(),
			Frames:      state.Frames,
			Elapsed:     state.Report.Now.Seconds(),
			CompletedAt: time.Now(),
		})
	}
	m.mu.Unlock()

	m.sessionStateEvent.Publish(stateCopy)
}

// GetLastExercise returns the exercise selected most recently, across runs
func (m *UIModel) GetLastExercise() form.ExerciseID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.persistence.getLastExercise()
}

// SetLastExercise remembers the selected exercise
func (m *UIModel) SetLastExercise(id form.ExerciseID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistence.setLastExercise(id)
}

// GetSessionHistory returns completed sessions, oldest first
func (m *UIModel) GetSessionHistory() []SessionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.persistence.sessions()
}

// readFromLogChannel reads log lines from the channel and populates logLines
func (m *UIModel) readFromLogChannel(ctx context.Context, logChan <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-logChan:
			if !ok {
				return
			}

			m.logMu.Lock()
			m.logLines = append(m.logLines, line)
			if len(m.logLines) > maxLogLines {
				m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
			}
			m.logMu.Unlock()

			m.logEvent.Publish(line)
		}
	}
}

// GetLogTail returns the last n lines of logs
func (m *UIModel) GetLogTail(n int) []string {
	m.logMu.RLock()
	defer m.logMu.RUnlock()

	if n <= 0 {
		return []string{}
	}

	if n >= len(m.logLines) {
		result := make([]string, len(m.logLines))
		copy(result, m.logLines)
		return result
	}

	result := make([]string, n)
	copy(result, m.logLines[len(m.logLines)-n:])
	return result
}
