package logging

import (
	"io"

	"go.uber.org/multierr"
)

type CombinedWriter struct {
	Writers []io.Writer
}

func NewCombinedWriter(writers ...io.Writer) *CombinedWriter {
	cw := &CombinedWriter{}
	for _, w := range writers {
		if w != nil {
			cw.Writers = append(cw.Writers, w)
		}
	}
	return cw
}

// Write hands p to every writer. n is the largest count any writer accepted.
func (cw CombinedWriter) Write(p []byte) (n int, err error) {
	for _, w := range cw.Writers {
		written, werr := w.Write(p)
		if werr != nil {
			err = multierr.Append(err, werr)
			continue
		}
		if written > n {
			n = written
		}
	}
	return n, err
}

// ChannelWriter turns each Write into one string on a channel for the UI log pane.
// A full channel drops the line.
type ChannelWriter struct {
	ch chan<- string
}

func NewChannelWriter(ch chan<- string) *ChannelWriter {
	if ch == nil {
		panic("ChannelWriter: channel cannot be nil")
	}
	return &ChannelWriter{ch: ch}
}

func (w *ChannelWriter) Write(p []byte) (int, error) {
	select {
	case w.ch <- string(p):
	default:
	}
	return len(p), nil
}
