package trainer

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/lowaak/smart-trainer/form-trainer-app/internal/form"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/go_func_utils"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/metrics"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/pose"
)

// ErrSessionRunning is returned by Load while a session is running
var ErrSessionRunning = errors.New("a session is already running")

// sessionCommand represents commands sent to the session goroutine
type sessionCommand int

const (
	cmdStart sessionCommand = iota
	cmdStop
)

// SessionTiming controls how often frames are pulled and how long the
// completion screen stays up
type SessionTiming struct {
	FrameInterval time.Duration
	GracePeriod   time.Duration
}

// SessionManager runs one exercise session at a time on its own goroutine and
// publishes every tick to UIModel
type SessionManager struct {
	model   *UIModel
	metrics *metrics.Manager
	logger  *log.Logger
	timing  SessionTiming

	// Current session state (protected by mu)
	mu       sync.RWMutex
	id       string
	status   SessionStatus
	session  *form.Session
	provider pose.Provider
	frames   int
	errMsg   string

	// Goroutine management
	cmdChan      chan sessionCommand
	doneChan     chan struct{} // Closed to signal shutdown
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewSessionManager creates a new SessionManager
func NewSessionManager(model *UIModel, metricsManager *metrics.Manager, timing SessionTiming, logger *log.Logger) *SessionManager {
	if model == nil {
		panic("SessionManager: model cannot be nil")
	}
	if metricsManager == nil {
		panic("SessionManager: metricsManager cannot be nil")
	}
	if logger == nil {
		panic("SessionManager: logger cannot be nil")
	}
	if timing.FrameInterval <= 0 {
		timing.FrameInterval = DefaultFrameInterval
	}
	if timing.GracePeriod < 0 {
		timing.GracePeriod = 0
	}

	sm := &SessionManager{
		model:    model,
		metrics:  metricsManager,
		logger:   logger,
		timing:   timing,
		status:   SessionStatusIdle,
		cmdChan:  make(chan sessionCommand, 1),
		doneChan: make(chan struct{}),
	}

	go_func_utils.SafeGoWG(&sm.wg, logger, sm.runSessionLoop)

	return sm
}

// Load prepares a session for profile reading frames from provider.
// The target is fixed here from penaltyCount.
func (sm *SessionManager) Load(profile form.ExerciseProfile, provider pose.Provider, penaltyCount int) error {
	if provider == nil {
		panic("SessionManager: provider cannot be nil")
	}

	sm.mu.Lock()
	if sm.status == SessionStatusRunning {
		sm.mu.Unlock()
		return ErrSessionRunning
	}

	sm.id = ulid.Make().String()
	sm.session = form.NewSession(profile, penaltyCount)
	sm.provider = provider
	sm.status = SessionStatusReady
	sm.frames = 0
	sm.errMsg = ""
	target := sm.session.Target()
	state := sm.buildState()
	sm.mu.Unlock()

	sm.logger.Printf("SessionManager: Session %s loaded: %s, target %d%s (wrong answers: %d)",
		state.ID, profile.DisplayName, target.Units, profile.Unit(), penaltyCount)

	sm.model.SetSessionState(state)
	return nil
}

// Start begins pulling frames for the loaded session
func (sm *SessionManager) Start() {
	sm.mu.RLock()
	status := sm.status
	session := sm.session
	sm.mu.RUnlock()

	if session == nil {
		sm.logger.Printf("SessionManager: No session loaded")
		return
	}

	if status == SessionStatusRunning {
		sm.logger.Printf("SessionManager: Session already running")
		return
	}

	if status != SessionStatusReady {
		sm.logger.Printf("SessionManager: Cannot start session in state %s", status)
		return
	}

	sm.cmdChan <- cmdStart
}

// Stop abandons the current session and returns to idle
func (sm *SessionManager) Stop() {
	sm.mu.RLock()
	status := sm.status
	sm.mu.RUnlock()

	if status == SessionStatusIdle {
		sm.logger.Printf("SessionManager: No session to stop")
		return
	}

	sm.logger.Printf("SessionManager: Stopping session")
	sm.cmdChan <- cmdStop
}

// State returns the current session state
func (sm *SessionManager) State() SessionState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.buildState()
}

// Shutdown stops the session manager goroutine.
// Safe to call multiple times - only the first call has effect
func (sm *SessionManager) Shutdown() {
	sm.shutdownOnce.Do(func() {
		sm.logger.Printf("SessionManager: Shutting down")
		close(sm.doneChan)
		sm.wg.Wait()
		sm.logger.Printf("SessionManager: Shutdown complete")
	})
}

// buildState snapshots the session fields.
// MUST be called with mu held (at least read lock).
func (sm *SessionManager) buildState() SessionState {
	state := SessionState{
		ID:     sm.id,
		Status: sm.status,
		Frames: sm.frames,
		Err:    sm.errMsg,
	}
	if sm.provider != nil {
		state.Source = sm.provider.Name()
	}
	if sm.session != nil {
		profile := sm.session.Profile()
		state.Profile = &profile
		state.Report = sm.session.Last()
	}
	return state
}

// tickResult holds the result of processing one frame
type tickResult struct {
	state     SessionState
	skip      bool  // status wasn't running, skip this tick
	completed bool  // target reached on this tick
	ended     bool  // provider finished or failed
	stepErr   error // frame evaluation panicked, the session ended
	exercise  string
}

// handleTick applies one sample (or provider error) under lock
func (sm *SessionManager) handleTick(sample pose.Sample, err error) tickResult {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.status != SessionStatusRunning || sm.session == nil {
		return tickResult{skip: true}
	}
	exercise := string(sm.session.Profile().ID)

	if err != nil {
		sm.status = SessionStatusEnded
		if errors.Is(err, io.EOF) {
			sm.errMsg = "pose source finished"
		} else {
			sm.errMsg = err.Error()
		}
		return tickResult{state: sm.buildState(), ended: true, exercise: exercise}
	}

	var report form.TickReport
	if stepErr := go_func_utils.Recover(sm.logger, "frame evaluation", func() {
		report = StepSession(sm.metrics, sm.session, sample)
	}); stepErr != nil {
		sm.status = SessionStatusEnded
		sm.errMsg = stepErr.Error()
		return tickResult{state: sm.buildState(), ended: true, stepErr: stepErr, exercise: exercise}
	}
	sm.frames++

	if report.JustCompleted {
		sm.status = SessionStatusCompleted
		return tickResult{state: sm.buildState(), completed: true, exercise: exercise}
	}
	return tickResult{state: sm.buildState(), exercise: exercise}
}

// nextSample reads the provider outside the lock
func (sm *SessionManager) nextSample(ctx context.Context) (pose.Sample, bool, error) {
	sm.mu.RLock()
	provider := sm.provider
	running := sm.status == SessionStatusRunning
	sm.mu.RUnlock()

	if !running || provider == nil {
		return pose.Sample{}, false, nil
	}
	sample, err := provider.Next(ctx)
	return sample, true, err
}

// runSessionLoop is the main goroutine that drives the session
func (sm *SessionManager) runSessionLoop() {

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticker := time.NewTicker(sm.timing.FrameInterval)
	ticker.Stop() // Start stopped, will be started when the session starts

	grace := time.NewTimer(sm.timing.GracePeriod)
	grace.Stop()

	for {
		select {
		case <-sm.doneChan:
			ticker.Stop()
			grace.Stop()
			sm.logger.Printf("SessionManager: Goroutine exiting")
			return

		case cmd := <-sm.cmdChan:
			switch cmd {
			case cmdStart:
				state := func() SessionState {
					sm.mu.Lock()
					defer sm.mu.Unlock()
					sm.status = SessionStatusRunning
					return sm.buildState()
				}()

				grace.Stop()
				ticker.Reset(sm.timing.FrameInterval)
				sm.metrics.GaugeActiveSession.Set(1)
				sm.model.SetSessionState(state)
				sm.logger.Printf("SessionManager: Session %s started", state.ID)

			case cmdStop:
				ticker.Stop()
				grace.Stop()
				state, exercise, wasRunning := func() (SessionState, string, bool) {
					sm.mu.Lock()
					defer sm.mu.Unlock()
					wasRunning := sm.status == SessionStatusRunning
					var exercise string
					if sm.session != nil {
						exercise = string(sm.session.Profile().ID)
					}
					sm.status = SessionStatusIdle
					sm.id = ""
					sm.session = nil
					sm.provider = nil
					sm.frames = 0
					sm.errMsg = ""
					return sm.buildState(), exercise, wasRunning
				}()

				if wasRunning {
					sm.metrics.GaugeActiveSession.Set(0)
					sm.metrics.CounterSessions.WithLabelValues(exercise, OutcomeStopped).Inc()
				}
				sm.model.SetSessionState(state)
				sm.logger.Printf("SessionManager: Session stopped")
			}

		case <-ticker.C:
			sample, ok, err := sm.nextSample(ctx)
			if !ok {
				continue
			}

			result := sm.handleTick(sample, err)
			if result.skip {
				continue
			}

			if result.ended {
				ticker.Stop()
				sm.metrics.GaugeActiveSession.Set(0)
				sm.metrics.CounterSessions.WithLabelValues(result.exercise, OutcomeEnded).Inc()
				switch {
				case result.stepErr != nil:
					sm.logger.Printf("SessionManager: Frame evaluation failed: %v", result.stepErr)
				case errors.Is(err, io.EOF):
					sm.logger.Printf("SessionManager: Pose source finished before the target was reached")
				case errors.Is(err, pose.ErrClosed):
					sm.logger.Printf("SessionManager: Pose source closed")
				default:
					sm.metrics.CounterProviderErrors.WithLabelValues(result.state.Source).Inc()
					sm.logger.Printf("SessionManager: Pose source error: %v", err)
				}
				sm.model.SetSessionState(result.state)
				continue
			}

			if result.completed {
				ticker.Stop()
				grace.Reset(sm.timing.GracePeriod)
				sm.metrics.GaugeActiveSession.Set(0)
				sm.metrics.CounterSessions.WithLabelValues(result.exercise, OutcomeCompleted).Inc()
				sm.logger.Printf("SessionManager: Session complete after %d frames!", result.state.Frames)
			}

			sm.model.SetSessionState(result.state)

		case <-grace.C:
			sm.mu.RLock()
			status := sm.status
			sm.mu.RUnlock()
			if status != SessionStatusCompleted {
				continue
			}
			sm.logger.Printf("SessionManager: Completion shown for %v, closing", sm.timing.GracePeriod)
			sm.model.RequestCloseApplication()
		}
	}
}

// StepSession evaluates one sample and records the frame metrics
func StepSession(m *metrics.Manager, session *form.Session, sample pose.Sample) form.TickReport {
	start := time.Now()
	report := session.Step(sample.Frame, sample.At)
	m.HistFrameDuration.Observe(time.Since(start).Seconds())

	exercise := string(report.Exercise)
	m.CounterFrames.WithLabelValues(exercise, report.Verdict.String()).Inc()
	if report.Credited {
		m.CounterRepsCredited.WithLabelValues(exercise).Inc()
	}
	if report.Mode == form.ModeHoldDuration {
		m.GaugeHoldSeconds.WithLabelValues(exercise).Set(report.Accumulated.Seconds())
	} else {
		m.GaugeRemainingReps.WithLabelValues(exercise).Set(float64(report.RemainingReps))
	}
	return report
}
