package trainer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/lowaak/smart-trainer/form-trainer-app/internal/form"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/go_func_utils"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/metrics"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/pose"
)

// HeadlessResult summarizes a session run without the terminal UI
type HeadlessResult struct {
	Report  form.TickReport
	Frames  int
	Outcome string // OutcomeCompleted, OutcomeEnded or OutcomeStopped
}

// HeadlessRunner drives one session straight from a provider, without UIModel.
// Used for batch evaluation of recordings and the --headless mode.
type HeadlessRunner struct {
	metrics       *metrics.Manager
	logger        *log.Logger
	frameInterval time.Duration // 0 reads frames as fast as the provider returns them
	onReport      func(form.TickReport)
}

// NewHeadlessRunner creates a HeadlessRunner. onReport may be nil.
func NewHeadlessRunner(metricsManager *metrics.Manager, frameInterval time.Duration, onReport func(form.TickReport), logger *log.Logger) *HeadlessRunner {
	if metricsManager == nil {
		panic("HeadlessRunner: metricsManager cannot be nil")
	}
	if logger == nil {
		panic("HeadlessRunner: logger cannot be nil")
	}
	return &HeadlessRunner{
		metrics:       metricsManager,
		logger:        logger,
		frameInterval: frameInterval,
		onReport:      onReport,
	}
}

// Run steps session with frames from provider until the target is reached,
// the provider is exhausted or ctx is done. The provider is not closed.
func (r *HeadlessRunner) Run(ctx context.Context, session *form.Session, provider pose.Provider) (HeadlessResult, error) {
	exercise := string(session.Profile().ID)
	result := HeadlessResult{Report: session.Last()}

	var tick <-chan time.Time
	if r.frameInterval > 0 {
		ticker := time.NewTicker(r.frameInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	r.metrics.GaugeActiveSession.Set(1)
	defer r.metrics.GaugeActiveSession.Set(0)

	finish := func(outcome string) {
		result.Outcome = outcome
		r.metrics.CounterSessions.WithLabelValues(exercise, outcome).Inc()
	}

	r.logger.Printf("HeadlessRunner: %s from %s, target %d%s",
		session.Profile().DisplayName, provider.Name(), session.Target().Units, session.Profile().Unit())

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				finish(OutcomeStopped)
				return result, ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			finish(OutcomeStopped)
			return result, err
		}

		sample, err := provider.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			r.logger.Printf("HeadlessRunner: Pose source finished after %d frames", result.Frames)
			finish(OutcomeEnded)
			return result, nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			finish(OutcomeStopped)
			return result, err
		default:
			r.metrics.CounterProviderErrors.WithLabelValues(provider.Name()).Inc()
			finish(OutcomeEnded)
			return result, fmt.Errorf("read pose source: %w", err)
		}

		var report form.TickReport
		if stepErr := go_func_utils.Recover(r.logger, "frame evaluation", func() {
			report = StepSession(r.metrics, session, sample)
			if r.onReport != nil {
				r.onReport(report)
			}
		}); stepErr != nil {
			finish(OutcomeEnded)
			return result, stepErr
		}
		result.Report = report
		result.Frames++

		if report.Completed() {
			r.logger.Printf("HeadlessRunner: Completed after %d frames at %s", result.Frames, form.FormatMMSS(report.Now))
			finish(OutcomeCompleted)
			return result, nil
		}
	}
}
