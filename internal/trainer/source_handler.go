package trainer

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lowaak/smart-trainer/form-trainer-app/internal/config"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/form"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/pose"
)

// ErrNoSyntheticSource is returned when a posture change is requested but the
// open source is not synthetic
var ErrNoSyntheticSource = errors.New("no synthetic pose source open")

// SourceConfig selects and parameterizes the pose source
type SourceConfig struct {
	Kind          string // config.SourceSynthetic or config.SourceReplay
	ReplayPath    string
	Posture       pose.Posture
	CyclePeriod   time.Duration
	ControlPort   int
	FrameInterval time.Duration    // Replay sample spacing when the recording has no timestamps
	Clock         func() time.Time // Synthetic clock, defaults to time.Now
}

// SourceConfigFromConfig maps the application configuration onto a SourceConfig
func SourceConfigFromConfig(cfg *config.Config) SourceConfig {
	posture, ok := pose.ParsePosture(cfg.Posture)
	if !ok {
		posture = pose.PostureCycle
	}
	return SourceConfig{
		Kind:          cfg.Source,
		ReplayPath:    cfg.ReplayPath,
		Posture:       posture,
		CyclePeriod:   cfg.CyclePeriod,
		ControlPort:   cfg.ControlPort,
		FrameInterval: cfg.FrameInterval(),
	}
}

// SourceHandler opens pose providers for exercises and owns their lifecycle.
// At most one provider is open at a time.
type SourceHandler struct {
	logger *log.Logger
	config SourceConfig

	mu        sync.Mutex
	provider  pose.Provider
	synthetic *pose.SyntheticProvider // set when provider is synthetic
}

// NewSourceHandler creates a new SourceHandler
func NewSourceHandler(cfg SourceConfig, logger *log.Logger) *SourceHandler {
	if logger == nil {
		panic("SourceHandler: logger cannot be nil")
	}
	if cfg.Kind == "" {
		cfg.Kind = config.SourceSynthetic
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	return &SourceHandler{
		logger: logger,
		config: cfg,
	}
}

// Open closes any previously opened provider and opens a new one for profile
func (h *SourceHandler) Open(profile form.ExerciseProfile) (pose.Provider, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.closeLocked(); err != nil {
		h.logger.Printf("SourceHandler: Error closing previous source: %v", err)
	}

	switch h.config.Kind {
	case config.SourceReplay:
		p, err := pose.NewReplayProvider(h.logger, h.config.ReplayPath, h.config.FrameInterval)
		if err != nil {
			return nil, err
		}
		h.provider = p
		h.logger.Printf("SourceHandler: Opened %s for %s", p.Name(), profile.DisplayName)
		return p, nil

	case config.SourceSynthetic:
		p := pose.NewSyntheticProvider(h.logger, pose.SyntheticProviderConfig{
			Shape:       profile.SyntheticShape,
			Posture:     h.config.Posture,
			CyclePeriod: h.config.CyclePeriod,
			ControlPort: h.config.ControlPort,
			Clock:       h.config.Clock,
		})
		if err := p.Start(); err != nil {
			return nil, fmt.Errorf("start synthetic source: %w", err)
		}
		h.provider = p
		h.synthetic = p
		h.logger.Printf("SourceHandler: Opened %s for %s", p.Name(), profile.DisplayName)
		return p, nil

	default:
		return nil, fmt.Errorf("unknown pose source %q", h.config.Kind)
	}
}

// SetPosture changes what the synthetic source draws
func (h *SourceHandler) SetPosture(posture pose.Posture) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.synthetic == nil {
		return ErrNoSyntheticSource
	}
	h.synthetic.SetPosture(posture)
	h.logger.Printf("SourceHandler: Posture set to %s", posture)
	return nil
}

// Posture returns the synthetic source posture, false when no synthetic source is open
func (h *SourceHandler) Posture() (pose.Posture, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.synthetic == nil {
		return "", false
	}
	return h.synthetic.GetPosture(), true
}

// IsSynthetic reports whether the handler opens synthetic sources
func (h *SourceHandler) IsSynthetic() bool {
	return h.config.Kind == config.SourceSynthetic
}

// Close closes the open provider, if any
func (h *SourceHandler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closeLocked()
}

// closeLocked must be called with mu held
func (h *SourceHandler) closeLocked() error {
	if h.provider == nil {
		return nil
	}
	err := h.provider.Close()
	h.provider = nil
	h.synthetic = nil
	return err
}
