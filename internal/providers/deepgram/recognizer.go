// Package deepgram implements streaming speech recognition against the
// Deepgram live transcription websocket API.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"voicedesk/internal/domain"
	"voicedesk/internal/logging"
	"voicedesk/internal/ports"
)

// keepAliveInterval keeps the websocket open through pauses in speech.
const keepAliveInterval = 5 * time.Second

// Config controls the Deepgram connection.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

// Recognizer implements ports.SpeechRecognizer for Deepgram.
type Recognizer struct {
	cfg    Config
	logger zerolog.Logger
}

func NewRecognizer(cfg Config) *Recognizer {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.deepgram.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	return &Recognizer{cfg: cfg, logger: logging.WithComponent("deepgram")}
}

// Available reports whether live recognition can be started at all. Without
// an API key the environment has no speech capability and callers surface a
// notice instead of attempting a connection.
func (r *Recognizer) Available() bool {
	return strings.TrimSpace(r.cfg.APIKey) != ""
}

func (r *Recognizer) StartStream(ctx context.Context, cfg ports.RecognizerConfig) (ports.RecognizerSession, error) {
	if !r.Available() {
		return nil, errors.New("DEEPGRAM_API_KEY is not configured")
	}

	endpoint, err := listenEndpoint(r.cfg, cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+r.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to recognition stream: %w", err)
	}
	r.logger.Debug().Str("model", r.cfg.Model).Msg("recognition stream opened")

	stream := &liveStream{
		conn:   conn,
		events: make(chan domain.TranscriptEvent, 64),
		audio:  make(chan []byte, 32),
		done:   make(chan struct{}),
	}

	stream.wg.Add(2)
	go stream.readLoop()
	go stream.writeLoop()
	go func() {
		stream.wg.Wait()
		close(stream.events)
		close(stream.done)
		_ = conn.Close()
	}()
	go func() {
		<-ctx.Done()
		_ = stream.Close()
	}()

	return stream, nil
}

type liveStream struct {
	conn *websocket.Conn

	events chan domain.TranscriptEvent
	audio  chan []byte
	done   chan struct{}

	wg sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeSendOnce sync.Once
	closeOnce     sync.Once
	sendMu        sync.RWMutex
	sendClosed    bool
}

func (s *liveStream) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	// The read lock spans the channel send so CloseSend cannot close the
	// audio channel underneath an in-flight send.
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.sendClosed {
		return errors.New("audio stream is already closed")
	}

	copied := append([]byte(nil), chunk...)
	select {
	case s.audio <- copied:
		return nil
	case <-s.done:
		if err := s.firstErr(); err != nil {
			return err
		}
		return errors.New("stream closed")
	}
}

func (s *liveStream) CloseSend() error {
	s.closeSendOnce.Do(func() {
		s.sendMu.Lock()
		s.sendClosed = true
		close(s.audio)
		s.sendMu.Unlock()
	})
	return nil
}

func (s *liveStream) Events() <-chan domain.TranscriptEvent {
	return s.events
}

func (s *liveStream) Wait() error {
	<-s.done
	return s.firstErr()
}

func (s *liveStream) Close() error {
	s.closeOnce.Do(func() {
		_ = s.CloseSend()
		_ = s.conn.Close()
	})
	<-s.done
	return s.firstErr()
}

func (s *liveStream) firstErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *liveStream) setErr(err error) {
	if err == nil {
		return
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *liveStream) writeLoop() {
	defer s.wg.Done()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case chunk, ok := <-s.audio:
			if !ok {
				if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
					s.setErr(fmt.Errorf("failed to close stream: %w", err))
				}
				return
			}
			if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				s.setErr(fmt.Errorf("failed to send audio: %w", err))
				return
			}
		case <-keepAlive.C:
			if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"KeepAlive"}`)); err != nil {
				s.setErr(fmt.Errorf("failed to send keepalive: %w", err))
				return
			}
		}
	}
}

func (s *liveStream) readLoop() {
	defer s.wg.Done()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.setErr(fmt.Errorf("failed to read recognition event: %w", err))
			return
		}

		var message listenMessage
		if err := json.Unmarshal(payload, &message); err != nil {
			continue
		}

		if strings.EqualFold(message.Type, "Error") {
			detail := strings.TrimSpace(message.Message)
			if detail == "" {
				detail = "recognition provider returned an unknown error"
			}
			s.setErr(errors.New(detail))
			return
		}

		text := message.transcript()
		if text == "" {
			continue
		}

		event := domain.TranscriptEvent{Text: text, IsSpeechFinal: message.SpeechFinal}
		if message.IsFinal || message.SpeechFinal {
			event.Kind = domain.TranscriptKindFinal
		} else {
			event.Kind = domain.TranscriptKindPartial
		}

		// Finals are part of the transcript and must not be lost to a full
		// buffer; a stale partial is superseded by the next event anyway.
		if event.Kind == domain.TranscriptKindFinal {
			select {
			case s.events <- event:
			case <-s.done:
			}
		} else {
			select {
			case s.events <- event:
			default:
			}
		}
	}
}

type listenAlternative struct {
	Transcript string `json:"transcript"`
}

type listenMessage struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []listenAlternative `json:"alternatives"`
	} `json:"channel"`

	Results struct {
		Channels []struct {
			Alternatives []listenAlternative `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// transcript picks the best hypothesis from either response shape.
func (m listenMessage) transcript() string {
	if len(m.Channel.Alternatives) > 0 {
		if text := strings.TrimSpace(m.Channel.Alternatives[0].Transcript); text != "" {
			return text
		}
	}
	if len(m.Results.Channels) > 0 && len(m.Results.Channels[0].Alternatives) > 0 {
		return strings.TrimSpace(m.Results.Channels[0].Alternatives[0].Transcript)
	}
	return ""
}

func listenEndpoint(providerCfg Config, streamCfg ports.RecognizerConfig) (string, error) {
	base := strings.TrimSpace(providerCfg.APIBaseURL)
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}

	endpoint, err := url.Parse(strings.TrimRight(base, "/") + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid recognition API base URL: %w", err)
	}

	if streamCfg.Encoding == "" {
		streamCfg.Encoding = "linear16"
	}
	if streamCfg.SampleRate <= 0 {
		streamCfg.SampleRate = 16000
	}
	if streamCfg.Channels <= 0 {
		streamCfg.Channels = 1
	}

	query := endpoint.Query()
	query.Set("model", providerCfg.Model)
	query.Set("encoding", streamCfg.Encoding)
	query.Set("sample_rate", strconv.Itoa(streamCfg.SampleRate))
	query.Set("channels", strconv.Itoa(streamCfg.Channels))
	query.Set("interim_results", strconv.FormatBool(streamCfg.InterimResults))
	query.Set("smart_format", strconv.FormatBool(providerCfg.SmartFormat))
	if providerCfg.Language != "" {
		query.Set("language", providerCfg.Language)
	}
	endpoint.RawQuery = query.Encode()
	return endpoint.String(), nil
}
