package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"weekplan/internal/domain"
	"weekplan/internal/ports"
)

var (
	ErrSessionActive   = errors.New("a capture session is already active")
	ErrNoActiveSession = errors.New("no active capture session")
	ErrNoSuchField     = errors.New("no capture field at that index")
)

// Config controls capture session behavior.
type Config struct {
	// CountdownTicks is the display-only countdown start value.
	CountdownTicks int
	// TickInterval is how often the countdown decrements while listening.
	TickInterval time.Duration
}

// Session turns a live, restartable transcript stream into a mutable
// ordered list of capture fields. All field mutation, whether from
// source callbacks or user edits, is serialized through one lock so a
// commit always resolves against the latest field list.
type Session struct {
	source ports.TranscriptSource
	norm   ports.Normalizer
	events ports.EventSink
	cfg    Config

	mu            sync.Mutex
	state         domain.SessionState
	fields        []domain.CaptureField
	current       int
	interim       string
	lastErr       *domain.CaptureError
	stopRequested bool
	remaining     int
	tickerStop    chan struct{}
	active        *activeSource
}

type activeSource struct {
	cancel context.CancelFunc
	src    ports.SourceSession
	done   chan struct{}
}

// New builds a session over initial fields, typically restored by the
// persistence collaborator. The normalizer may be nil.
func New(source ports.TranscriptSource, norm ports.Normalizer, events ports.EventSink, initial []domain.CaptureField, cfg Config) *Session {
	if cfg.CountdownTicks <= 0 {
		cfg.CountdownTicks = 120
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	fields := make([]domain.CaptureField, len(initial))
	copy(fields, initial)
	return &Session{
		source:  source,
		norm:    norm,
		events:  events,
		cfg:     cfg,
		state:   domain.SessionStateIdle,
		fields:  fields,
		current: -1,
	}
}

// Start clears any prior error, resets the countdown and opens the
// transcript source. The Listening state is entered only once the
// source confirms it has started.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.active != nil {
		s.mu.Unlock()
		return ErrSessionActive
	}
	s.lastErr = nil
	s.stopRequested = false
	s.state = domain.SessionStateIdle
	s.remaining = s.cfg.CountdownTicks
	s.mu.Unlock()

	sessionCtx, cancel := context.WithCancel(ctx)
	src, err := s.source.Open(sessionCtx)
	if err != nil {
		cancel()
		s.fail(classify(err))
		return err
	}

	active := &activeSource{cancel: cancel, src: src, done: make(chan struct{})}
	tickerStop := make(chan struct{})

	s.mu.Lock()
	s.active = active
	s.tickerStop = tickerStop
	s.mu.Unlock()

	go s.countdown(tickerStop)
	go s.run(sessionCtx, active)
	return nil
}

// Stop ends the session: countdown cancelled, interim discarded, and
// every blank field pruned. Committed content is always kept. An
// "ended" event arriving after Stop never triggers an auto-restart.
func (s *Session) Stop() error {
	s.mu.Lock()
	active := s.active
	if active == nil {
		s.mu.Unlock()
		return ErrNoActiveSession
	}
	s.stopRequested = true
	s.state = domain.SessionStateIdle
	s.interim = ""
	s.pruneBlankFieldsLocked()
	s.stopTickerLocked()
	src := active.src
	fields := s.snapshotFieldsLocked()
	s.mu.Unlock()

	_ = src.Stop()
	active.cancel()
	<-active.done

	s.events.FieldsChanged(fields)
	s.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonStopped)
	return nil
}

// AddEmptyField appends an empty field. Designating the dictation
// target stays with the session itself, so a manually added field is
// never silently overwritten by the next final transcript.
func (s *Session) AddEmptyField() []domain.CaptureField {
	s.mu.Lock()
	s.fields = append(s.fields, domain.CaptureField{})
	fields := s.snapshotFieldsLocked()
	s.mu.Unlock()

	s.events.FieldsChanged(fields)
	return fields
}

// UpdateField overwrites the text of the field at index.
func (s *Session) UpdateField(index int, text string) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.fields) {
		s.mu.Unlock()
		return ErrNoSuchField
	}
	s.fields[index].Text = text
	fields := s.snapshotFieldsLocked()
	s.mu.Unlock()

	s.events.FieldsChanged(fields)
	return nil
}

// RemovePhrase removes the field at index. Removing the current field
// leaves the next final transcript to open a fresh one.
func (s *Session) RemovePhrase(index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.fields) {
		s.mu.Unlock()
		return ErrNoSuchField
	}
	s.fields = append(s.fields[:index], s.fields[index+1:]...)
	switch {
	case index == s.current:
		s.current = -1
	case index < s.current:
		s.current--
	}
	fields := s.snapshotFieldsLocked()
	s.mu.Unlock()

	s.events.FieldsChanged(fields)
	return nil
}

// Fields returns a snapshot of the current field list.
func (s *Session) Fields() []domain.CaptureField {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotFieldsLocked()
}

// State returns the current lifecycle state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the current session error, if any.
func (s *Session) Err() (domain.CaptureError, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr == nil {
		return domain.CaptureError{}, false
	}
	return *s.lastErr, true
}

// Interim returns the transient non-committed preview text.
func (s *Session) Interim() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interim
}

// Remaining returns the countdown value.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Status summarizes the session for UI consumers.
func (s *Session) Status() domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := domain.Status{
		State:     s.state,
		Listening: s.state == domain.SessionStateListening,
		Remaining: s.remaining,
	}
	if s.lastErr != nil {
		status.Message = s.lastErr.Message()
	}
	return status
}

// run consumes source events, reopening the source when it ends while
// a stop was not requested. The loop exits once the source ends for a
// requested stop or a terminal error.
func (s *Session) run(ctx context.Context, active *activeSource) {
	defer func() {
		active.cancel()
		s.mu.Lock()
		if s.active == active {
			s.active = nil
		}
		s.mu.Unlock()
		close(active.done)
	}()

	src := active.src
	for {
		for event := range src.Events() {
			switch event.Kind {
			case domain.SourceEventStarted:
				s.handleStarted()
			case domain.SourceEventResult:
				s.handleResults(event.Results)
			case domain.SourceEventError:
				s.fail(domain.ClassifyRawCode(event.Code))
			case domain.SourceEventEnded:
				// restart decision happens once the channel closes
			}
		}

		if !s.shouldRestart() {
			return
		}

		next, err := s.source.Open(ctx)
		if err != nil {
			s.mu.Lock()
			stopped := s.stopRequested
			s.mu.Unlock()
			if !stopped {
				s.fail(classify(err))
			}
			return
		}

		s.mu.Lock()
		if s.stopRequested || s.lastErr != nil {
			s.mu.Unlock()
			_ = next.Stop()
			return
		}
		active.src = next
		s.mu.Unlock()
		src = next
	}
}

func (s *Session) shouldRestart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopRequested && s.lastErr == nil
}

func (s *Session) handleStarted() {
	s.mu.Lock()
	if s.stopRequested || s.lastErr != nil {
		s.mu.Unlock()
		return
	}
	first := s.state != domain.SessionStateListening
	s.state = domain.SessionStateListening
	s.ensureCurrentFieldLocked()
	fields := s.snapshotFieldsLocked()
	s.mu.Unlock()

	// A restart after an unexpected end is invisible to the user.
	if first {
		s.events.SessionStateChanged(domain.SessionStateListening, domain.SessionReasonListeningStarted)
		s.events.FieldsChanged(fields)
	}
}

func (s *Session) handleResults(results []domain.TranscriptResult) {
	for _, result := range results {
		if result.Final {
			s.commitFinal(result.Text)
		} else {
			s.publishInterim(result.Text)
		}
	}
}

func (s *Session) publishInterim(text string) {
	s.mu.Lock()
	if s.stopRequested || s.lastErr != nil {
		s.mu.Unlock()
		return
	}
	s.interim = text
	s.mu.Unlock()

	s.events.InterimTranscript(text)
}

// commitFinal overwrites the current field with the transcript and
// opens a fresh empty field, so rapid utterances each land in their
// own field.
func (s *Session) commitFinal(text string) {
	if s.norm != nil {
		if cleaned, err := s.norm.Apply(text); err == nil {
			text = cleaned
		}
	}
	if strings.TrimSpace(text) == "" {
		return
	}

	s.mu.Lock()
	if s.stopRequested || s.lastErr != nil {
		s.mu.Unlock()
		return
	}
	s.interim = ""
	s.ensureCurrentFieldLocked()
	s.fields[s.current].Text = text
	s.fields = append(s.fields, domain.CaptureField{})
	s.current = len(s.fields) - 1
	fields := s.snapshotFieldsLocked()
	s.mu.Unlock()

	s.events.FieldsChanged(fields)
}

// fail records the single current error and terminates the session.
// Captured fields are retained; blank pruning only happens on Stop.
func (s *Session) fail(captureErr domain.CaptureError) {
	s.mu.Lock()
	if s.stopRequested || s.lastErr != nil {
		s.mu.Unlock()
		return
	}
	s.lastErr = &captureErr
	s.state = domain.SessionStateError
	s.interim = ""
	s.stopTickerLocked()
	s.mu.Unlock()

	s.events.SessionError(captureErr)
	s.events.SessionStateChanged(domain.SessionStateError, domain.SessionReasonCaptureFailed)
}

func (s *Session) countdown(stop chan struct{}) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.state != domain.SessionStateListening || s.remaining <= 0 {
				s.mu.Unlock()
				continue
			}
			s.remaining--
			remaining := s.remaining
			s.mu.Unlock()

			s.events.CountdownTick(remaining)
		}
	}
}

func (s *Session) ensureCurrentFieldLocked() {
	if s.current >= 0 && s.current < len(s.fields) {
		return
	}
	s.fields = append(s.fields, domain.CaptureField{})
	s.current = len(s.fields) - 1
}

func (s *Session) pruneBlankFieldsLocked() {
	kept := s.fields[:0]
	for _, field := range s.fields {
		if !field.Blank() {
			kept = append(kept, field)
		}
	}
	s.fields = kept
	s.current = -1
}

func (s *Session) snapshotFieldsLocked() []domain.CaptureField {
	out := make([]domain.CaptureField, len(s.fields))
	copy(out, s.fields)
	return out
}

func (s *Session) stopTickerLocked() {
	if s.tickerStop != nil {
		close(s.tickerStop)
		s.tickerStop = nil
	}
}

func classify(err error) domain.CaptureError {
	var captureErr domain.CaptureError
	if errors.As(err, &captureErr) {
		return captureErr
	}
	return domain.ClassifyRawCode(err.Error())
}
