package ports

import (
	"context"
	"io"

	"weekplan/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// SourceSession is one open transcript stream. Events terminates with
// a final "ended" event and is then closed; Stop asks the source to
// end early and is safe to call more than once.
type SourceSession interface {
	Events() <-chan domain.SourceEvent
	Stop() error
}

// TranscriptSource opens transcript stream sessions. Any engine
// honoring the SourceSession event contract is substitutable.
type TranscriptSource interface {
	Open(ctx context.Context) (SourceSession, error)
}

// Normalizer cleans up recognizer text before it is committed.
type Normalizer interface {
	Apply(text string) (string, error)
}

// TaskResolver resolves task ids against the canonical task list.
type TaskResolver interface {
	Get(id string) (domain.Task, bool)
}

// EventSink receives capture session state for the UI collaborator.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	FieldsChanged(fields []domain.CaptureField)
	InterimTranscript(text string)
	CountdownTick(remaining int)
	SessionError(err domain.CaptureError)
}
