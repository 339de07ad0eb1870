package trainer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/lowaak/smart-trainer/form-trainer-app/internal/config"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/form"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/logging"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/metrics"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/pose"
)

// steppingClock advances by step on every call
func steppingClock(step time.Duration) func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(step)
		return now
	}
}

func TestHeadlessRunner_SyntheticSquatCompletes(t *testing.T) {
	m := metrics.NewTestManager()
	handler := NewSourceHandler(SourceConfig{
		Kind:        config.SourceSynthetic,
		Posture:     pose.PostureCycle,
		CyclePeriod: 3 * time.Second,
		Clock:       steppingClock(100 * time.Millisecond),
	}, logging.Discard())
	defer handler.Close()

	squat := mustProfile(t, form.ExerciseSquat)
	provider, err := handler.Open(squat)
	require.NoError(t, err)

	var credited int
	runner := NewHeadlessRunner(m, 0, func(r form.TickReport) {
		if r.Credited {
			credited++
		}
	}, logging.Discard())

	session := form.NewSession(squat, 1)
	require.Equal(t, 27, session.Target().Units)

	result, err := runner.Run(context.Background(), session, provider)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.True(t, result.Report.Completed())
	assert.Equal(t, 0, result.Report.RemainingReps)
	assert.Equal(t, "0", result.Report.ProgressText())
	assert.Equal(t, 27, credited)
	assert.Equal(t, 27.0, testutil.ToFloat64(m.CounterRepsCredited.WithLabelValues("squat")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterSessions.WithLabelValues("squat", OutcomeCompleted)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.GaugeRemainingReps.WithLabelValues("squat")))
	assert.Equal(t, float64(result.Frames), testutil.ToFloat64(m.CounterFrames.WithLabelValues("squat", "Good")))
}

func writeRecording(t *testing.T, samples []pose.Sample) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plank.jsonl")
	var data []byte
	for _, s := range samples {
		line, err := pose.EncodeReplayLine(s)
		require.NoError(t, err)
		data = append(data, line...)
		data = append(data, '\n')
	}
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestHeadlessRunner_ReplayEndsBeforeTarget(t *testing.T) {
	m := metrics.NewTestManager()

	var samples []pose.Sample
	for i := 0; i < 10; i++ {
		frame := pose.PlankFrame(0, 0.95)
		if i >= 6 {
			frame = pose.PlankFrame(0.15, 0.95)
		}
		samples = append(samples, pose.Sample{At: time.Duration(i) * time.Second, Frame: frame})
	}
	handler := NewSourceHandler(SourceConfig{
		Kind:       config.SourceReplay,
		ReplayPath: writeRecording(t, samples),
	}, logging.Discard())
	defer handler.Close()

	plank := mustProfile(t, form.ExercisePlank)
	provider, err := handler.Open(plank)
	require.NoError(t, err)

	runner := NewHeadlessRunner(m, 0, nil, logging.Discard())
	result, err := runner.Run(context.Background(), form.NewSession(plank, 0), provider)
	require.NoError(t, err)

	assert.Equal(t, OutcomeEnded, result.Outcome)
	assert.Equal(t, 10, result.Frames)
	assert.False(t, result.Report.Completed())
	assert.Equal(t, form.StagePaused, result.Report.Stage)
	assert.Equal(t, 5*time.Second, result.Report.Accumulated)
	assert.Equal(t, "00:25", result.Report.ProgressText())
	assert.Equal(t, 4.0, testutil.ToFloat64(m.CounterFrames.WithLabelValues("plank", "Bad")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterSessions.WithLabelValues("plank", OutcomeEnded)))

	// posture keys do nothing without a synthetic source
	assert.ErrorIs(t, handler.SetPosture(pose.PostureGood), ErrNoSyntheticSource)
	_, ok := handler.Posture()
	assert.False(t, ok)
	assert.False(t, handler.IsSynthetic())
}

func TestHeadlessRunner_ProviderError(t *testing.T) {
	m := metrics.NewTestManager()
	provider := newMockProvider(t)
	boom := errors.New("decoder crashed")
	provider.EXPECT().Next(gomock.Any()).Return(pose.Sample{}, boom)

	runner := NewHeadlessRunner(m, 0, nil, logging.Discard())
	result, err := runner.Run(context.Background(), form.NewSession(mustProfile(t, form.ExercisePushup), 0), provider)

	require.ErrorIs(t, err, boom)
	assert.Equal(t, OutcomeEnded, result.Outcome)
	assert.Equal(t, 0, result.Frames)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterProviderErrors.WithLabelValues("mock")))
}

func TestHeadlessRunner_PanicEndsRun(t *testing.T) {
	m := metrics.NewTestManager()
	provider := newMockProvider(t)
	provider.EXPECT().Next(gomock.Any()).DoAndReturn(plankSamples(0.95))

	runner := NewHeadlessRunner(m, 0, func(form.TickReport) { panic("renderer gone") }, logging.Discard())
	result, err := runner.Run(context.Background(), form.NewSession(mustProfile(t, form.ExercisePlank), 0), provider)

	require.ErrorContains(t, err, "frame evaluation panicked: renderer gone")
	assert.Equal(t, OutcomeEnded, result.Outcome)
	assert.Equal(t, 0, result.Frames)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterSessions.WithLabelValues("plank", OutcomeEnded)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.GaugeActiveSession))
}

func TestHeadlessRunner_CancelledContext(t *testing.T) {
	m := metrics.NewTestManager()
	provider := newMockProvider(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewHeadlessRunner(m, 10*time.Millisecond, nil, logging.Discard())
	result, err := runner.Run(ctx, form.NewSession(mustProfile(t, form.ExercisePlank), 0), provider)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, OutcomeStopped, result.Outcome)
	assert.Equal(t, "00:30", result.Report.ProgressText())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterSessions.WithLabelValues("plank", OutcomeStopped)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.GaugeActiveSession))
}

func TestSourceHandler_SyntheticPosture(t *testing.T) {
	handler := NewSourceHandler(SourceConfig{Posture: pose.PostureGood}, logging.Discard())
	defer handler.Close()
	assert.True(t, handler.IsSynthetic())

	_, err := handler.Open(mustProfile(t, form.ExercisePlank))
	require.NoError(t, err)

	posture, ok := handler.Posture()
	require.True(t, ok)
	assert.Equal(t, pose.PostureGood, posture)

	require.NoError(t, handler.SetPosture(pose.PostureHidden))
	posture, _ = handler.Posture()
	assert.Equal(t, pose.PostureHidden, posture)

	require.NoError(t, handler.Close())
	assert.ErrorIs(t, handler.SetPosture(pose.PostureGood), ErrNoSyntheticSource)
}

func TestSourceHandler_UnknownKind(t *testing.T) {
	handler := NewSourceHandler(SourceConfig{Kind: "webcam"}, logging.Discard())
	_, err := handler.Open(mustProfile(t, form.ExercisePlank))
	assert.ErrorContains(t, err, "webcam")
}
