package domain

import "strings"

// SessionState models the speech-capture lifecycle.
type SessionState string

const (
	SessionStateIdle      SessionState = "idle"
	SessionStateListening SessionState = "listening"
	SessionStateError     SessionState = "error"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonReady            SessionStateReason = "ready"
	SessionReasonListeningStarted SessionStateReason = "listening_started"
	SessionReasonStopped          SessionStateReason = "stopped"
	SessionReasonCaptureFailed    SessionStateReason = "capture_failed"
)

// ErrorCode identifies why a capture session terminated.
type ErrorCode string

const (
	ErrorCodeUnsupported       ErrorCode = "capability_unsupported"
	ErrorCodePermissionDenied  ErrorCode = "permission_denied"
	ErrorCodeNoSpeech          ErrorCode = "no_speech"
	ErrorCodeDeviceUnavailable ErrorCode = "device_unavailable"
	ErrorCodeConnectivity      ErrorCode = "connectivity"
	ErrorCodeSource            ErrorCode = "source_error"
)

// CaptureError is the single current session error. Raw carries the
// source-reported code for ErrorCodeSource.
type CaptureError struct {
	Code ErrorCode `json:"code"`
	Raw  string    `json:"raw,omitempty"`
}

func (e CaptureError) Error() string {
	if e.Code == ErrorCodeSource && e.Raw != "" {
		return string(e.Code) + ": " + e.Raw
	}
	return string(e.Code)
}

// Message returns the user-facing text for the error. One message per code.
func (e CaptureError) Message() string {
	switch e.Code {
	case ErrorCodeUnsupported:
		return "Speech capture is not supported in this environment"
	case ErrorCodePermissionDenied:
		return "Microphone permission was denied"
	case ErrorCodeNoSpeech:
		return "No speech was detected"
	case ErrorCodeDeviceUnavailable:
		return "No capture device was found"
	case ErrorCodeConnectivity:
		return "Speech service connection failed"
	default:
		if e.Raw != "" {
			return "Speech capture failed (" + e.Raw + ")"
		}
		return "Speech capture failed"
	}
}

// ClassifyRawCode maps a source-reported failure code onto the capture
// error taxonomy. Unrecognized codes are carried through raw.
func ClassifyRawCode(raw string) CaptureError {
	code := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(code, "not-allowed"), strings.Contains(code, "permission"):
		return CaptureError{Code: ErrorCodePermissionDenied, Raw: raw}
	case strings.Contains(code, "no-speech"):
		return CaptureError{Code: ErrorCodeNoSpeech, Raw: raw}
	case strings.Contains(code, "audio-capture"), strings.Contains(code, "device"):
		return CaptureError{Code: ErrorCodeDeviceUnavailable, Raw: raw}
	case strings.Contains(code, "network"), strings.Contains(code, "connect"):
		return CaptureError{Code: ErrorCodeConnectivity, Raw: raw}
	case strings.Contains(code, "unsupported"), strings.Contains(code, "not-supported"):
		return CaptureError{Code: ErrorCodeUnsupported, Raw: raw}
	default:
		return CaptureError{Code: ErrorCodeSource, Raw: raw}
	}
}

// SourceEventKind identifies a transcript source lifecycle or result event.
type SourceEventKind string

const (
	SourceEventStarted SourceEventKind = "started"
	SourceEventEnded   SourceEventKind = "ended"
	SourceEventError   SourceEventKind = "error"
	SourceEventResult  SourceEventKind = "result"
)

// TranscriptResult is one recognizer result inside a source event.
// Interim results are provisional and superseded by later results at
// the same index; final results are stable.
type TranscriptResult struct {
	Final bool   `json:"final"`
	Text  string `json:"text"`
	Index int    `json:"index"`
}

// SourceEvent is one event from a transcript source session. Results
// within a single event are ordered and must be processed in order.
type SourceEvent struct {
	Kind    SourceEventKind    `json:"kind"`
	Code    string             `json:"code,omitempty"`
	Results []TranscriptResult `json:"results,omitempty"`
}

// CaptureField is one slot in the ordered list of in-progress task
// texts. Ordering is significant and never silently changed.
type CaptureField struct {
	Text string `json:"text"`
}

// Blank reports whether the field holds no committed content.
func (f CaptureField) Blank() bool {
	return strings.TrimSpace(f.Text) == ""
}

// Priority ranks a task 1 (highest) through 4. Zero means unprioritized.
type Priority int

const (
	PriorityNone Priority = 0
	PriorityMin  Priority = 1
	PriorityMax  Priority = 4
)

// Valid reports whether p is an assignable priority.
func (p Priority) Valid() bool {
	return p >= PriorityMin && p <= PriorityMax
}

// Task is one planned item. ID is assigned once at creation and never
// changes; Content may change across reconciles.
type Task struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Priority Priority `json:"priority,omitempty"`
}

// PrioritySection is static descriptive metadata for one priority level.
type PrioritySection struct {
	ID          Priority `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Color       string   `json:"color"`
}

// Day is one weekday in the fixed Monday-first planning week.
type Day string

const (
	Monday    Day = "monday"
	Tuesday   Day = "tuesday"
	Wednesday Day = "wednesday"
	Thursday  Day = "thursday"
	Friday    Day = "friday"
	Saturday  Day = "saturday"
	Sunday    Day = "sunday"
)

// Week is the fixed ordered set of planning days.
var Week = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Valid reports whether d names a planning day.
func (d Day) Valid() bool {
	for _, day := range Week {
		if d == day {
			return true
		}
	}
	return false
}

// Period splits a planning day.
type Period string

const (
	AM Period = "am"
	PM Period = "pm"
)

// Valid reports whether p is a planning period.
func (p Period) Valid() bool {
	return p == AM || p == PM
}

// SlotsPerPeriod is the number of schedulable slots in each half-day.
const SlotsPerPeriod = 3

// ScheduleEntry binds one (day, period, slot) triple to a task id. The
// task may have been deleted since assignment; resolution then reads
// as an empty slot.
type ScheduleEntry struct {
	Day    Day    `json:"day"`
	Period Period `json:"period"`
	Slot   int    `json:"slot"`
	TaskID string `json:"taskId"`
}

// Status summarizes the current capture session for UI consumers.
type Status struct {
	State     SessionState `json:"state"`
	Listening bool         `json:"listening"`
	Remaining int          `json:"remaining"`
	Message   string       `json:"message,omitempty"`
}
