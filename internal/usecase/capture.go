package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voicedesk/internal/audio"
	"voicedesk/internal/domain"
	"voicedesk/internal/logging"
	"voicedesk/internal/ports"
)

var (
	// ErrCaptureBusy rejects starting a capture while another is live.
	ErrCaptureBusy = errors.New("another capture is already active")
	// ErrNoActiveCapture rejects stopping when nothing is live.
	ErrNoActiveCapture = errors.New("no active capture")
	// ErrRecognizerUnavailable means the environment has no speech capability.
	ErrRecognizerUnavailable = errors.New("speech recognition is not available")
	// ErrRecordingTooLarge rejects a voice note past the upload cap.
	ErrRecordingTooLarge = errors.New("recording exceeds the maximum upload size")
)

// CaptureConfig controls capture behavior for both modes.
type CaptureConfig struct {
	Audio          ports.AudioConfig
	Recognizer     ports.RecognizerConfig
	ChunkSize      int
	StreamingGrace time.Duration
	MaxRecordBytes int64
}

// CaptureController owns the microphone/recognizer lifecycle: at most one
// live capture across both modes, with guaranteed device release on stop,
// discard, and shutdown.
type CaptureController struct {
	audio       ports.AudioCapture
	recognizer  ports.SpeechRecognizer
	corrections ports.Corrections
	events      ports.EventSink
	cfg         CaptureConfig
	logger      zerolog.Logger

	mu     sync.Mutex
	listen *listenSession
	record *recordSession
}

func NewCaptureController(
	audioCapture ports.AudioCapture,
	recognizer ports.SpeechRecognizer,
	corrections ports.Corrections,
	events ports.EventSink,
	cfg CaptureConfig,
) *CaptureController {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	return &CaptureController{
		audio:       audioCapture,
		recognizer:  recognizer,
		corrections: corrections,
		events:      events,
		cfg:         cfg,
		logger:      logging.WithComponent("capture"),
	}
}

// State reports which capture mode, if any, is live.
func (c *CaptureController) State() domain.CaptureState {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.listen != nil:
		return domain.CaptureStateListening
	case c.record != nil:
		return domain.CaptureStateRecording
	default:
		return domain.CaptureStateIdle
	}
}

// StartListening opens a streaming recognition session fed from the mic.
func (c *CaptureController) StartListening(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listen != nil || c.record != nil {
		return ErrCaptureBusy
	}
	if !c.recognizer.Available() {
		return ErrRecognizerUnavailable
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	stream, err := c.recognizer.StartStream(sessionCtx, c.cfg.Recognizer)
	if err != nil {
		cancel()
		return fmt.Errorf("start recognition stream: %w", err)
	}

	micCfg := c.cfg.Audio
	micCfg.OutputFormat = audio.OutputRawPCM
	micSession, err := c.audio.Start(sessionCtx, micCfg)
	if err != nil {
		_ = stream.Close()
		cancel()
		return err
	}

	session := &listenSession{
		cancel:     cancel,
		audio:      micSession,
		stream:     stream,
		hypotheses: newHypothesisBuffer(),
		eventsDone: make(chan struct{}),
		audioDone:  make(chan struct{}),
	}
	c.listen = session

	go consumeRecognition(session.stream, session.hypotheses, c.events, session.eventsDone)
	go pumpListenAudio(session.audio, session.stream, c.cfg.ChunkSize, c.events, session.audioDone)

	c.logger.Debug().Msg("listening started")
	c.events.CaptureStateChanged(domain.CaptureStateListening, domain.CaptureReasonListeningStarted)
	return nil
}

// StopListening finalizes the accumulated transcript as a text utterance.
// It is safe to call before any final hypothesis arrived: the last partial is
// used. An empty transcript produces no utterance and no error.
func (c *CaptureController) StopListening(ctx context.Context) (domain.Utterance, bool, error) {
	c.mu.Lock()
	session := c.listen
	c.listen = nil
	c.mu.Unlock()

	if session == nil {
		return domain.Utterance{}, false, ErrNoActiveCapture
	}

	if err := session.audio.Stop(); err != nil {
		c.events.SessionError(domain.ErrorCodeAudioStop, "failed to stop audio capture cleanly")
	}

	// Give the recognizer a moment to finalize in-flight segments.
	if c.cfg.StreamingGrace > 0 {
		timer := time.NewTimer(c.cfg.StreamingGrace)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	_ = session.stream.CloseSend()
	streamErr := waitForStream(session.stream, 4*time.Second)
	<-session.eventsDone
	<-session.audioDone
	session.cancel()

	raw := session.hypotheses.Text()
	if raw == "" && streamErr != nil {
		c.events.SessionError(domain.ErrorCodeRecognition, streamErr.Error())
		c.events.CaptureStateChanged(domain.CaptureStateIdle, domain.CaptureReasonRecognitionFailed)
		return domain.Utterance{}, false, streamErr
	}
	if raw == "" {
		c.events.CaptureStateChanged(domain.CaptureStateIdle, domain.CaptureReasonNoSpeech)
		return domain.Utterance{}, false, nil
	}

	text := raw
	if c.corrections != nil {
		corrected, err := c.corrections.Apply(raw)
		if err != nil {
			// Corrections never block a command; fall back to the raw text.
			c.events.SessionError(domain.ErrorCodeCorrections, err.Error())
		} else {
			text = corrected
		}
	}

	c.logger.Debug().Str("transcript", text).Msg("listening finalized")
	c.events.CaptureStateChanged(domain.CaptureStateIdle, domain.CaptureReasonListeningStopped)
	return domain.Utterance{Kind: domain.UtteranceText, Text: text}, true, nil
}

// StartRecording opens a voice-note capture accumulating encoded audio.
func (c *CaptureController) StartRecording(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listen != nil || c.record != nil {
		return ErrCaptureBusy
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	micCfg := c.cfg.Audio
	micCfg.OutputFormat = audio.OutputWAV
	micSession, err := c.audio.Start(sessionCtx, micCfg)
	if err != nil {
		cancel()
		return err
	}

	session := &recordSession{
		cancel: cancel,
		audio:  micSession,
		sink:   newRecordingSink(c.cfg.MaxRecordBytes),
		done:   make(chan struct{}),
	}
	c.record = session

	go drainRecording(session.audio, session.sink, c.cfg.ChunkSize, c.events, session.done)

	c.logger.Debug().Msg("recording started")
	c.events.CaptureStateChanged(domain.CaptureStateRecording, domain.CaptureReasonRecordingStarted)
	return nil
}

// StopRecording releases the device unconditionally and finalizes the
// accumulated bytes as an audio utterance.
func (c *CaptureController) StopRecording(ctx context.Context) (domain.Utterance, bool, error) {
	c.mu.Lock()
	session := c.record
	c.record = nil
	c.mu.Unlock()

	if session == nil {
		return domain.Utterance{}, false, ErrNoActiveCapture
	}

	if err := session.audio.Stop(); err != nil {
		c.events.SessionError(domain.ErrorCodeAudioStop, "failed to stop audio capture cleanly")
	}
	<-session.done
	session.cancel()

	if session.sink.Overflowed() {
		c.events.CaptureStateChanged(domain.CaptureStateIdle, domain.CaptureReasonCaptureDiscarded)
		return domain.Utterance{}, false, fmt.Errorf("%w (%d bytes)", ErrRecordingTooLarge, c.cfg.MaxRecordBytes)
	}

	data := session.sink.Bytes()
	if len(data) == 0 {
		c.events.CaptureStateChanged(domain.CaptureStateIdle, domain.CaptureReasonNoSpeech)
		return domain.Utterance{}, false, nil
	}

	c.logger.Debug().Int("bytes", len(data)).Msg("recording finalized")
	c.events.CaptureStateChanged(domain.CaptureStateIdle, domain.CaptureReasonRecordingStopped)
	return domain.Utterance{Kind: domain.UtteranceAudio, Audio: data, MimeType: "audio/wav"}, true, nil
}

// Discard cancels any live capture without producing an utterance.
func (c *CaptureController) Discard() error {
	c.mu.Lock()
	listen := c.listen
	record := c.record
	c.listen = nil
	c.record = nil
	c.mu.Unlock()

	if listen == nil && record == nil {
		return ErrNoActiveCapture
	}

	if listen != nil {
		listen.cancel()
		_ = listen.audio.Stop()
		_ = listen.stream.Close()
		<-listen.eventsDone
		<-listen.audioDone
	}
	if record != nil {
		record.cancel()
		_ = record.audio.Stop()
		<-record.done
	}

	c.events.CaptureStateChanged(domain.CaptureStateIdle, domain.CaptureReasonCaptureDiscarded)
	return nil
}

// Shutdown force-stops any live capture and releases its device resources.
// Safe to call mid-capture and more than once.
func (c *CaptureController) Shutdown() {
	if err := c.Discard(); err != nil && !errors.Is(err, ErrNoActiveCapture) {
		c.logger.Warn().Err(err).Msg("shutdown discard failed")
	}
}
