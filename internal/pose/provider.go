package pose

import (
	"context"
	"errors"
)

//go:generate mockgen -source=provider.go -destination=mocks/mock_provider.go -package=mocks

// Provider supplies landmark frames, one per tick.
// Next returns io.EOF once the stream is exhausted.
type Provider interface {
	// Name is a short human readable description of the source
	Name() string

	// Next returns the next frame. It must not block longer than one frame interval.
	Next(ctx context.Context) (Sample, error)

	// Close releases the underlying resources. Safe to call more than once.
	Close() error
}

// ErrClosed is returned by Next after Close
var ErrClosed = errors.New("pose provider closed")

// BodyShape selects which body layout the synthetic source draws
type BodyShape int

const (
	ShapePlank  BodyShape = iota // Horizontal body, forearms down
	ShapePushup                  // Horizontal body, arm angle animated
	ShapeSquat                   // Standing body, knee angle animated
)

func (s BodyShape) String() string {
	switch s {
	case ShapePlank:
		return "plank"
	case ShapePushup:
		return "pushup"
	case ShapeSquat:
		return "squat"
	default:
		return "unknown"
	}
}
