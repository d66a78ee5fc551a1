package main

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"weekplan/internal/domain"
)

// consoleSink renders capture session events on the terminal. Live
// output (interim previews, countdown) is only shown while a capture
// command runs; errors are always shown.
type consoleSink struct {
	mu   sync.Mutex
	out  io.Writer
	live atomic.Bool
}

func newConsoleSink(out io.Writer) *consoleSink {
	return &consoleSink{out: out}
}

func (c *consoleSink) SetLive(live bool) {
	c.live.Store(live)
}

func (c *consoleSink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	if !c.live.Load() {
		return
	}
	if message := reasonMessage(reason); message != "" {
		c.printf("%s\n", message)
	}
}

func (c *consoleSink) FieldsChanged(fields []domain.CaptureField) {
	if !c.live.Load() {
		return
	}
	for i := len(fields) - 1; i >= 0; i-- {
		if !fields[i].Blank() {
			c.printf("\r\033[K  %d. %s\n", i+1, fields[i].Text)
			return
		}
	}
}

func (c *consoleSink) InterimTranscript(text string) {
	if !c.live.Load() {
		return
	}
	c.printf("\r\033[K  … %s", text)
}

func (c *consoleSink) CountdownTick(remaining int) {
	if !c.live.Load() {
		return
	}
	if remaining <= 10 || remaining%30 == 0 {
		c.printf("\r\033[K  (%d ticks left)\n", remaining)
	}
}

func (c *consoleSink) SessionError(err domain.CaptureError) {
	c.printf("\r\033[K%s\n", err.Message())
}

func (c *consoleSink) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func reasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonReady:
		return "Ready"
	case domain.SessionReasonListeningStarted:
		return "Listening..."
	case domain.SessionReasonStopped:
		return "Capture stopped"
	case domain.SessionReasonCaptureFailed:
		return "Capture ended"
	default:
		return ""
	}
}
