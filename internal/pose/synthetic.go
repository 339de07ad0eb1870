package pose

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/lowaak/smart-trainer/form-trainer-app/internal/go_func_utils"
)

// Posture selects what the synthetic source draws
type Posture string

const (
	PostureGood   Posture = "good"   // Correct form, joints clearly visible
	PostureBad    Posture = "bad"    // Visible but breaking the form rules
	PostureHidden Posture = "hidden" // Joints reported with low confidence
	PostureCycle  Posture = "cycle"  // Animated movement through the exercise
)

// AllPostures in display order
var AllPostures = []Posture{PostureCycle, PostureGood, PostureBad, PostureHidden}

// ParsePosture validates a posture name
func ParsePosture(s string) (Posture, bool) {
	for _, p := range AllPostures {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

const (
	syntheticVisible = 0.95
	syntheticHidden  = 0.2

	cycleMinAngle = 70.0
	cycleMaxAngle = 175.0
)

// SyntheticState is the JSON view served by the control API
type SyntheticState struct {
	Shape    string  `json:"shape"`
	Posture  Posture `json:"posture"`
	Period   float64 `json:"periodSeconds"`
	Frames   int     `json:"frames"`
	Elapsed  float64 `json:"elapsedSeconds"`
	Angle    float64 `json:"angle"`
	ServedAt string  `json:"servedAt"`
}

// SyntheticProviderConfig holds configuration for the synthetic source
type SyntheticProviderConfig struct {
	Shape       BodyShape
	Posture     Posture
	CyclePeriod time.Duration    // Duration of one full movement (or good/bad plank cycle)
	ControlPort int              // 0 disables the control web server
	Clock       func() time.Time // Defaults to time.Now
}

// SyntheticProvider generates landmark frames without a camera.
// The posture can be changed at runtime through SetPosture or the control web page.
type SyntheticProvider struct {
	logger *log.Logger
	shape  BodyShape
	clock  func() time.Time
	period time.Duration

	mu        sync.RWMutex
	posture   Posture
	start     time.Time
	started   bool
	frames    int
	lastAngle float64
	closed    bool

	server     *http.Server
	serverPort int
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

// NewSyntheticProvider creates a synthetic source
func NewSyntheticProvider(logger *log.Logger, config SyntheticProviderConfig) *SyntheticProvider {
	if logger == nil {
		panic("SyntheticProvider: logger cannot be nil")
	}
	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}
	period := config.CyclePeriod
	if period <= 0 {
		period = 3 * time.Second
	}
	posture := config.Posture
	if posture == "" {
		posture = PostureCycle
	}
	return &SyntheticProvider{
		logger:     logger,
		shape:      config.Shape,
		clock:      clock,
		period:     period,
		posture:    posture,
		serverPort: config.ControlPort,
	}
}

// Start launches the control web server when a port is configured
func (p *SyntheticProvider) Start() error {
	if p.serverPort <= 0 {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", p.handleIndex)
	mux.HandleFunc("/api/state", p.handleGetState)
	mux.HandleFunc("/api/set", p.handleSetPosture)

	p.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", p.serverPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go_func_utils.SafeGoWG(&p.wg, p.logger, func() {
		p.logger.Printf("SyntheticProvider: Control page on http://localhost:%d", p.serverPort)
		if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			p.logger.Printf("SyntheticProvider: Web server error: %v", err)
		}
	})
	return nil
}

func (p *SyntheticProvider) Name() string {
	return fmt.Sprintf("synthetic %s", p.shape)
}

// SetPosture switches the generated posture
func (p *SyntheticProvider) SetPosture(posture Posture) {
	p.mu.Lock()
	p.posture = posture
	p.mu.Unlock()
	p.logger.Printf("SyntheticProvider: Posture set to %s", posture)
}

// GetPosture returns the current posture
func (p *SyntheticProvider) GetPosture() Posture {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.posture
}

// Next draws a frame for the current posture at the current clock offset
func (p *SyntheticProvider) Next(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return Sample{}, ErrClosed
	}

	now := p.clock()
	if !p.started {
		p.start = now
		p.started = true
	}
	at := now.Sub(p.start)
	if at < 0 {
		at = 0
	}

	frame, angle := p.draw(p.posture, at)
	p.frames++
	p.lastAngle = angle

	return Sample{At: at, Frame: frame, Source: p.Name()}, nil
}

// draw builds the frame for posture at offset at. Must be called with mu held.
func (p *SyntheticProvider) draw(posture Posture, at time.Duration) (LandmarkFrame, float64) {
	switch posture {
	case PostureGood:
		return p.goodFrame(syntheticVisible)
	case PostureHidden:
		return p.goodFrame(syntheticHidden)
	case PostureBad:
		return p.badFrame()
	default:
		return p.cycleFrame(at)
	}
}

func (p *SyntheticProvider) goodFrame(visibility float64) (LandmarkFrame, float64) {
	switch p.shape {
	case ShapePushup:
		return PushupFrame(cycleMaxAngle, 0, visibility), cycleMaxAngle
	case ShapeSquat:
		return SquatFrame(cycleMaxAngle, visibility), cycleMaxAngle
	default:
		return PlankFrame(0, visibility), 180
	}
}

func (p *SyntheticProvider) badFrame() (LandmarkFrame, float64) {
	switch p.shape {
	case ShapePushup:
		return PushupFrame(cycleMaxAngle, 0.3, syntheticVisible), cycleMaxAngle
	case ShapeSquat:
		// ankle collapsed onto the knee: no usable knee angle
		frame := SquatFrame(cycleMaxAngle, syntheticVisible)
		frame[JointLeftAnkle] = frame[JointLeftKnee]
		frame[JointRightAnkle] = frame[JointRightKnee]
		return frame, 0
	default:
		return PlankFrame(0.15, syntheticVisible), 0
	}
}

// cycleFrame animates one movement per period. The plank alternates 80% good and 20% sagging.
func (p *SyntheticProvider) cycleFrame(at time.Duration) (LandmarkFrame, float64) {
	phase := math.Mod(at.Seconds(), p.period.Seconds()) / p.period.Seconds()

	if p.shape == ShapePlank {
		if phase < 0.8 {
			return p.goodFrame(syntheticVisible)
		}
		return p.badFrame()
	}

	// starts extended, bottoms out at half period
	mid := (cycleMaxAngle + cycleMinAngle) / 2
	amp := (cycleMaxAngle - cycleMinAngle) / 2
	angle := mid + amp*math.Cos(2*math.Pi*phase)

	if p.shape == ShapeSquat {
		return SquatFrame(angle, syntheticVisible), angle
	}
	return PushupFrame(angle, 0, syntheticVisible), angle
}

// Close stops the control server. Further Next calls return ErrClosed.
func (p *SyntheticProvider) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		if p.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			err = p.server.Shutdown(ctx)
		}
		p.wg.Wait()
		p.logger.Printf("SyntheticProvider: Closed")
	})
	return err
}

// State returns a snapshot for the control API
func (p *SyntheticProvider) State() SyntheticState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var elapsed float64
	if p.started {
		elapsed = p.clock().Sub(p.start).Seconds()
	}
	return SyntheticState{
		Shape:    p.shape.String(),
		Posture:  p.posture,
		Period:   p.period.Seconds(),
		Frames:   p.frames,
		Elapsed:  elapsed,
		Angle:    p.lastAngle,
		ServedAt: p.clock().Format(time.RFC3339),
	}
}

// --- Web Server Handlers ---

func (p *SyntheticProvider) handleIndex(w http.ResponseWriter, r *http.Request) {
	html := `<!DOCTYPE html>
<html>
<head>
    <title>Synthetic Pose Control</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; }
        button { padding: 10px 20px; margin: 5px; cursor: pointer; }
        .status { padding: 10px; background: #e0e0e0; border-radius: 5px; margin: 10px 0; }
    </style>
</head>
<body>
    <h1>Synthetic Pose Control</h1>
    <div id="state" class="status">Loading...</div>
    <button onclick="setPosture('cycle')">Cycle</button>
    <button onclick="setPosture('good')">Good</button>
    <button onclick="setPosture('bad')">Bad</button>
    <button onclick="setPosture('hidden')">Hidden</button>
    <script>
        function refreshState() {
            fetch('/api/state')
                .then(r => r.json())
                .then(data => {
                    document.getElementById('state').innerHTML =
                        'Shape: ' + data.shape + '<br>' +
                        'Posture: ' + data.posture + '<br>' +
                        'Frames: ' + data.frames + '<br>' +
                        'Angle: ' + data.angle.toFixed(1);
                });
        }
        function setPosture(p) {
            fetch('/api/set?posture=' + p, {method: 'POST'}).then(() => refreshState());
        }
        refreshState();
        setInterval(refreshState, 1000);
    </script>
</body>
</html>`
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(html))
}

func (p *SyntheticProvider) handleGetState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(p.State()); err != nil {
		p.logger.Printf("SyntheticProvider: Encode state failed: %v", err)
	}
}

func (p *SyntheticProvider) handleSetPosture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	if raw := query.Get("posture"); raw != "" {
		posture, ok := ParsePosture(raw)
		if !ok {
			http.Error(w, "unknown posture "+strconv.Quote(raw), http.StatusBadRequest)
			return
		}
		p.SetPosture(posture)
	}

	w.WriteHeader(http.StatusOK)
}
