package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterFrames         *prometheus.CounterVec
	CounterRepsCredited   *prometheus.CounterVec
	CounterSessions       *prometheus.CounterVec
	CounterProviderErrors *prometheus.CounterVec
	CounterUIEventsDrops  prometheus.Counter

	// gauges
	GaugeHoldSeconds   *prometheus.GaugeVec
	GaugeRemainingReps *prometheus.GaugeVec
	GaugeActiveSession prometheus.Gauge

	// histograms
	HistFrameDuration prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("form_trainer", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("form_trainer", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterFrames := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "frames_total",
		Help:      "Landmark frames evaluated, by exercise and verdict",
	}, []string{"exercise", "verdict"})
	counterReps := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "reps_credited_total",
		Help:      "Repetitions credited",
	}, []string{"exercise"})
	counterSessions := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sessions_total",
		Help:      "Sessions finished, by exercise and outcome",
	}, []string{"exercise", "outcome"})
	counterProviderErrors := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "provider_errors_total",
		Help:      "Errors returned by pose providers",
	}, []string{"source"})
	counterUIDrops := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "ui_events_dropped_total",
		Help:      "Session updates a slow view listener missed",
	})

	gaugeHold := factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "hold_seconds",
		Help:      "Accumulated good-form hold time of the running session",
	}, []string{"exercise"})
	gaugeRemainingReps := factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "remaining_reps",
		Help:      "Repetitions left in the running session",
	}, []string{"exercise"})
	gaugeActive := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "active_session",
		Help:      "1 while a session is running",
	})

	histFrameDuration := factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets: []float64{
				0.000001, 0.0000025, 0.000005, 0.00001, 0.000025,
				0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.01, 0.1,
			},
			Name: "frame_step_duration_seconds",
			Help: "Time spent evaluating one frame",
		},
	)

	return &Manager{
		CounterFrames:         counterFrames,
		CounterRepsCredited:   counterReps,
		CounterSessions:       counterSessions,
		CounterProviderErrors: counterProviderErrors,
		CounterUIEventsDrops:  counterUIDrops,
		GaugeHoldSeconds:      gaugeHold,
		GaugeRemainingReps:    gaugeRemainingReps,
		GaugeActiveSession:    gaugeActive,
		HistFrameDuration:     histFrameDuration,
	}
}
