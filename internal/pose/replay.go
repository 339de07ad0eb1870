package pose

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

const maxReplayLineBytes = 1024 * 1024

// replayLandmark matches one entry of the mediapipe landmark export
type replayLandmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
	Presence   float64 `json:"presence"`
}

// replayRecord is one line of a recording
type replayRecord struct {
	TimestampMs *int64                    `json:"t_ms,omitempty"`
	Mediapipe   map[string]replayLandmark `json:"mediapipe"`
}

// ReplayProvider reads recorded landmark frames from a JSON Lines stream.
// Lines without t_ms are spaced by frameInterval.
type ReplayProvider struct {
	logger        *log.Logger
	name          string
	reader        io.ReadCloser
	scanner       *bufio.Scanner
	frameInterval time.Duration

	mu        sync.Mutex
	index     int
	lineNo    int
	lastAt    time.Duration
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// NewReplayProvider opens a recording file
func NewReplayProvider(logger *log.Logger, path string, frameInterval time.Duration) (*ReplayProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording %s: %w", path, err)
	}
	return NewReplayProviderFromReader(logger, path, f, frameInterval), nil
}

// NewReplayProviderFromReader replays frames from an already opened stream
func NewReplayProviderFromReader(logger *log.Logger, name string, r io.ReadCloser, frameInterval time.Duration) *ReplayProvider {
	if logger == nil {
		panic("ReplayProvider: logger cannot be nil")
	}
	if r == nil {
		panic("ReplayProvider: reader cannot be nil")
	}
	if frameInterval <= 0 {
		panic("ReplayProvider: frameInterval must be positive")
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxReplayLineBytes)
	return &ReplayProvider{
		logger:        logger,
		name:          name,
		reader:        r,
		scanner:       scanner,
		frameInterval: frameInterval,
	}
}

func (p *ReplayProvider) Name() string {
	return "replay " + p.name
}

// Next decodes the next usable line. Malformed lines are logged and skipped.
func (p *ReplayProvider) Next(ctx context.Context) (Sample, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return Sample{}, ErrClosed
	}

	for {
		if err := ctx.Err(); err != nil {
			return Sample{}, err
		}
		if !p.scanner.Scan() {
			if err := p.scanner.Err(); err != nil {
				return Sample{}, fmt.Errorf("read recording %s: %w", p.name, err)
			}
			return Sample{}, io.EOF
		}
		p.lineNo++

		line := strings.TrimSpace(p.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var rec replayRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			p.logger.Printf("ReplayProvider: %s line %d skipped: %v", p.name, p.lineNo, err)
			continue
		}

		at := time.Duration(p.index) * p.frameInterval
		if rec.TimestampMs != nil {
			at = time.Duration(*rec.TimestampMs) * time.Millisecond
		}
		// recordings are expected to be ordered; never hand out a decreasing offset
		if at < p.lastAt {
			at = p.lastAt
		}
		p.lastAt = at
		p.index++

		return Sample{At: at, Frame: rec.toFrame(), Source: p.name}, nil
	}
}

// Close closes the underlying stream
func (p *ReplayProvider) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		p.closeErr = p.reader.Close()
	})
	return p.closeErr
}

func (r replayRecord) toFrame() LandmarkFrame {
	frame := make(LandmarkFrame, len(r.Mediapipe))
	for name, lm := range r.Mediapipe {
		frame[JointID(name)] = Landmark{X: lm.X, Y: lm.Y, Visibility: lm.Visibility}
	}
	return frame
}

// EncodeReplayLine renders a sample in the recording format
func EncodeReplayLine(s Sample) ([]byte, error) {
	ms := s.At.Milliseconds()
	rec := replayRecord{
		TimestampMs: &ms,
		Mediapipe:   make(map[string]replayLandmark, len(s.Frame)),
	}
	for id, lm := range s.Frame {
		rec.Mediapipe[string(id)] = replayLandmark{X: lm.X, Y: lm.Y, Visibility: lm.Visibility, Presence: lm.Visibility}
	}
	return json.Marshal(rec)
}
