package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"weekplan/internal/domain"
	"weekplan/internal/ports"
)

// Config controls the Deepgram websocket connection.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

// StreamConfig describes the audio the source will send.
type StreamConfig struct {
	SampleRate int
	Channels   int
	Encoding   string
	ChunkSize  int
}

// Source is a transcript source backed by Deepgram live streaming. It
// owns the microphone capture and the audio pump, so the capture
// session sees a single black box emitting source events.
type Source struct {
	cfg      Config
	stream   StreamConfig
	capture  ports.AudioCapture
	audioCfg ports.AudioConfig
}

func NewSource(cfg Config, stream StreamConfig, capture ports.AudioCapture, audioCfg ports.AudioConfig) *Source {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.deepgram.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if stream.Encoding == "" {
		stream.Encoding = "linear16"
	}
	if stream.SampleRate <= 0 {
		stream.SampleRate = 16000
	}
	if stream.Channels <= 0 {
		stream.Channels = 1
	}
	if stream.ChunkSize < 256 {
		stream.ChunkSize = 4096
	}
	return &Source{cfg: cfg, stream: stream, capture: capture, audioCfg: audioCfg}
}

// Open dials Deepgram and starts the microphone. The returned session
// emits started, results, error and ended events in that order.
func (s *Source) Open(ctx context.Context) (ports.SourceSession, error) {
	if strings.TrimSpace(s.cfg.APIKey) == "" {
		return nil, domain.CaptureError{Code: domain.ErrorCodeUnsupported, Raw: "DEEPGRAM_API_KEY is not configured"}
	}

	wsURL, err := listenURL(s.cfg, s.stream)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+s.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, domain.CaptureError{Code: domain.ErrorCodeConnectivity, Raw: err.Error()}
	}

	mic, err := s.capture.Start(ctx, s.audioCfg)
	if err != nil {
		_ = conn.Close()
		return nil, domain.CaptureError{Code: domain.ErrorCodeDeviceUnavailable, Raw: err.Error()}
	}

	session := &sourceSession{
		conn:      conn,
		mic:       mic,
		chunkSize: s.stream.ChunkSize,
		events:    make(chan domain.SourceEvent, 64),
		done:      make(chan struct{}),
	}

	session.wg.Add(2)
	go session.readLoop()
	go session.pumpLoop()
	go session.finish()
	go func() {
		select {
		case <-ctx.Done():
			session.forceClose()
		case <-session.done:
		}
	}()

	session.emit(domain.SourceEvent{Kind: domain.SourceEventStarted})
	return session, nil
}

type sourceSession struct {
	conn      *websocket.Conn
	mic       ports.AudioSession
	chunkSize int

	events chan domain.SourceEvent
	done   chan struct{}
	wg     sync.WaitGroup

	writeMu sync.Mutex

	errMu sync.Mutex
	err   *domain.CaptureError

	stopOnce  sync.Once
	closeOnce sync.Once

	indexMu   sync.Mutex
	nextIndex int
}

func (s *sourceSession) Events() <-chan domain.SourceEvent {
	return s.events
}

// Stop ends the stream early: the microphone is stopped, the pump
// flushes its CloseStream marker, and the server close propagates to
// the read loop. A stubborn connection is torn down after a timeout.
func (s *sourceSession) Stop() error {
	s.stopOnce.Do(func() {
		_ = s.mic.Stop()
		go func() {
			select {
			case <-s.done:
			case <-time.After(3 * time.Second):
				s.forceClose()
			}
		}()
	})
	return nil
}

// pumpLoop streams microphone chunks to Deepgram until the microphone
// drains, then sends the CloseStream handshake.
func (s *sourceSession) pumpLoop() {
	defer s.wg.Done()

	buf := make([]byte, s.chunkSize)
	for {
		n, err := s.mic.Read(buf)
		if n > 0 {
			if writeErr := s.write(websocket.BinaryMessage, buf[:n]); writeErr != nil {
				s.setErr(domain.ErrorCodeConnectivity, fmt.Sprintf("failed to stream audio: %v", writeErr))
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				s.setErr(domain.ErrorCodeDeviceUnavailable, fmt.Sprintf("microphone read failed: %v", err))
				return
			}
			break
		}
	}

	if err := s.write(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		s.setErr(domain.ErrorCodeConnectivity, fmt.Sprintf("failed to close stream: %v", err))
	}
}

// readLoop translates Deepgram messages into result events.
func (s *sourceSession) readLoop() {
	defer s.wg.Done()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if !isExpectedClose(err) {
				s.setErr(domain.ErrorCodeConnectivity, err.Error())
			}
			return
		}

		var response listenResponse
		if err := json.Unmarshal(payload, &response); err != nil {
			continue
		}

		if strings.EqualFold(response.Type, "Error") {
			message := strings.TrimSpace(response.Message)
			if message == "" {
				message = "deepgram returned an unknown error"
			}
			s.setErr(domain.ErrorCodeSource, message)
			return
		}

		text := response.transcript()
		if text == "" {
			continue
		}

		final := response.IsFinal || response.SpeechFinal
		s.emit(domain.SourceEvent{
			Kind:    domain.SourceEventResult,
			Results: []domain.TranscriptResult{{Final: final, Text: text, Index: s.index(final)}},
		})
	}
}

// finish waits for both loops, then emits the trailing error and ended
// events and closes the channel.
func (s *sourceSession) finish() {
	s.wg.Wait()

	if captureErr := s.takeErr(); captureErr != nil {
		s.emit(domain.SourceEvent{Kind: domain.SourceEventError, Code: captureErr.Raw})
	}
	s.emit(domain.SourceEvent{Kind: domain.SourceEventEnded})

	_ = s.mic.Stop()
	_ = s.conn.Close()
	close(s.events)
	close(s.done)
}

func (s *sourceSession) forceClose() {
	s.closeOnce.Do(func() {
		_ = s.mic.Stop()
		_ = s.conn.Close()
	})
}

func (s *sourceSession) write(messageType int, payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(messageType, payload)
}

func (s *sourceSession) emit(event domain.SourceEvent) {
	select {
	case s.events <- event:
	default:
	}
}

// index returns the result slot for interim results and advances it
// once a final lands there.
func (s *sourceSession) index(final bool) int {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	current := s.nextIndex
	if final {
		s.nextIndex++
	}
	return current
}

func (s *sourceSession) setErr(code domain.ErrorCode, raw string) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = &domain.CaptureError{Code: code, Raw: raw}
	}
}

func (s *sourceSession) takeErr() *domain.CaptureError {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func isExpectedClose(err error) bool {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return true
	}
	// A forced teardown surfaces as a read on a closed connection.
	return errors.Is(err, net.ErrClosed)
}

type listenResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (r listenResponse) transcript() string {
	if len(r.Channel.Alternatives) > 0 {
		return strings.TrimSpace(r.Channel.Alternatives[0].Transcript)
	}
	return ""
}

func listenURL(cfg Config, stream StreamConfig) (string, error) {
	base := strings.TrimSpace(cfg.APIBaseURL)
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	u, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}

	query := u.Query()
	query.Set("model", cfg.Model)
	query.Set("encoding", stream.Encoding)
	query.Set("sample_rate", fmt.Sprintf("%d", stream.SampleRate))
	query.Set("channels", fmt.Sprintf("%d", stream.Channels))
	query.Set("interim_results", "true")
	query.Set("smart_format", fmt.Sprintf("%t", cfg.SmartFormat))
	if cfg.Language != "" {
		query.Set("language", cfg.Language)
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}
