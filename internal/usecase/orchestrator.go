package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voicedesk/internal/domain"
	"voicedesk/internal/logging"
	"voicedesk/internal/ports"
	"voicedesk/internal/transcript"
)

var (
	// ErrSubmissionInFlight signals a submit attempt while one is already
	// outstanding. Callers ignore it; nothing is queued.
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	// ErrEmptySubmission rejects blank input before anything is appended.
	ErrEmptySubmission = errors.New("nothing to submit")
	// ErrUnsupportedAudioType rejects non-audio payloads locally.
	ErrUnsupportedAudioType = errors.New("payload is not an audio type")
	// ErrAudioTooLarge rejects oversized payloads before any network call.
	ErrAudioTooLarge = errors.New("audio payload exceeds the upload limit")
)

// voiceNoteLabel is the transcript text for audio submissions; the backend
// transcription arrives with the agent's reply, and log entries are immutable.
const voiceNoteLabel = "(voice command)"

// OrchestratorConfig bounds submission payloads and the one-shot status poll.
type OrchestratorConfig struct {
	MaxAudioBytes int64
	StatusTimeout time.Duration
}

// Orchestrator is the Ready/Busy session state machine. It serializes
// submissions (one in flight, later attempts ignored), owns all transcript
// appends, and folds the one-shot status poll into the UI state.
type Orchestrator struct {
	capture *CaptureController
	client  ports.AgentClient
	log     *transcript.Log
	events  ports.EventSink
	cfg     OrchestratorConfig
	logger  zerolog.Logger

	mu         sync.Mutex
	busy       bool
	agent      domain.SessionStatus
	generation uint64

	statusOnce sync.Once
}

func NewOrchestrator(
	capture *CaptureController,
	client ports.AgentClient,
	log *transcript.Log,
	events ports.EventSink,
	cfg OrchestratorConfig,
) *Orchestrator {
	if cfg.StatusTimeout <= 0 {
		cfg.StatusTimeout = 5 * time.Second
	}
	return &Orchestrator{
		capture: capture,
		client:  client,
		log:     log,
		events:  events,
		cfg:     cfg,
		agent:   domain.OfflineStatus(),
		logger:  logging.WithComponent("orchestrator"),
	}
}

// LoadStatus fetches agent availability exactly once. Failure degrades to
// offline with no capabilities; it never blocks or retries, and never touches
// the Ready/Busy machine.
func (o *Orchestrator) LoadStatus(ctx context.Context) {
	o.statusOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, o.cfg.StatusTimeout)
		defer cancel()

		status, err := o.client.FetchStatus(ctx)
		if err != nil {
			o.logger.Warn().Err(err).Msg("status poll failed; agent treated as offline")
			status = domain.OfflineStatus()
		}

		o.mu.Lock()
		o.agent = status
		o.mu.Unlock()
		o.events.StatusChanged(status)
	})
}

// SubmitText runs one text command round trip: user message appended, Busy,
// pipeline, agent message appended, Ready.
func (o *Orchestrator) SubmitText(ctx context.Context, text string) (domain.AgentOutcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.AgentOutcome{}, ErrEmptySubmission
	}
	return o.submit(ctx, text, func(ctx context.Context) domain.AgentOutcome {
		return o.client.ExecuteText(ctx, text)
	})
}

// SubmitUtterance dispatches a finalized capture result. Audio payloads are
// validated locally first; the pipeline is never invoked for a rejected one.
func (o *Orchestrator) SubmitUtterance(ctx context.Context, utterance domain.Utterance) (domain.AgentOutcome, error) {
	switch utterance.Kind {
	case domain.UtteranceText:
		return o.SubmitText(ctx, utterance.Text)
	case domain.UtteranceAudio:
		if err := o.validateAudio(utterance); err != nil {
			return domain.AgentOutcome{}, err
		}
		return o.submit(ctx, voiceNoteLabel, func(ctx context.Context) domain.AgentOutcome {
			return o.client.ExecuteAudio(ctx, utterance.Audio, utterance.MimeType)
		})
	default:
		return domain.AgentOutcome{}, fmt.Errorf("unknown utterance kind %q", utterance.Kind)
	}
}

func (o *Orchestrator) validateAudio(utterance domain.Utterance) error {
	if !strings.HasPrefix(utterance.MimeType, "audio/") {
		return fmt.Errorf("%w: %q", ErrUnsupportedAudioType, utterance.MimeType)
	}
	if len(utterance.Audio) == 0 {
		return ErrEmptySubmission
	}
	if o.cfg.MaxAudioBytes > 0 && int64(len(utterance.Audio)) > o.cfg.MaxAudioBytes {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrAudioTooLarge, len(utterance.Audio), o.cfg.MaxAudioBytes)
	}
	return nil
}

// submit is the single Ready→Busy→Ready path. Exactly two messages are
// appended per completed round trip, in order, regardless of outcome.
func (o *Orchestrator) submit(ctx context.Context, userText string, run func(context.Context) domain.AgentOutcome) (domain.AgentOutcome, error) {
	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		o.logger.Debug().Msg("submission ignored while busy")
		return domain.AgentOutcome{}, ErrSubmissionInFlight
	}
	o.busy = true
	generation := o.generation
	o.mu.Unlock()

	o.events.BusyChanged(true)
	o.events.MessageAppended(o.log.Append(transcript.NewUserMessage(userText)))

	outcome := run(ctx)

	// A Clear during the round trip wiped the user entry; appending the late
	// reply would leave an unpaired agent entry at the head of the fresh log.
	o.mu.Lock()
	current := o.generation == generation
	var reply domain.Message
	if current {
		reply = o.log.Append(transcript.NewAgentMessage(outcome))
	}
	o.busy = false
	o.mu.Unlock()

	if current {
		o.events.MessageAppended(reply)
	} else {
		o.logger.Debug().Msg("reply dropped; transcript cleared mid round trip")
	}
	o.events.BusyChanged(false)

	return outcome, nil
}

// StartListening begins live speech capture.
func (o *Orchestrator) StartListening(ctx context.Context) error {
	return o.capture.StartListening(ctx)
}

// StopListening finalizes the spoken command and submits it. A finalized
// utterance arriving while a submission is in flight is dropped, not queued.
func (o *Orchestrator) StopListening(ctx context.Context) (domain.AgentOutcome, bool, error) {
	utterance, ok, err := o.capture.StopListening(ctx)
	if err != nil || !ok {
		return domain.AgentOutcome{}, false, err
	}
	return o.submitFinalized(ctx, utterance)
}

// StartRecording begins voice-note capture.
func (o *Orchestrator) StartRecording(ctx context.Context) error {
	return o.capture.StartRecording(ctx)
}

// StopRecording finalizes the voice note and submits it.
func (o *Orchestrator) StopRecording(ctx context.Context) (domain.AgentOutcome, bool, error) {
	utterance, ok, err := o.capture.StopRecording(ctx)
	if err != nil || !ok {
		return domain.AgentOutcome{}, false, err
	}
	return o.submitFinalized(ctx, utterance)
}

func (o *Orchestrator) submitFinalized(ctx context.Context, utterance domain.Utterance) (domain.AgentOutcome, bool, error) {
	outcome, err := o.SubmitUtterance(ctx, utterance)
	if errors.Is(err, ErrSubmissionInFlight) {
		o.logger.Debug().Msg("finalized utterance dropped while busy")
		return domain.AgentOutcome{}, false, nil
	}
	if err != nil {
		return domain.AgentOutcome{}, false, err
	}
	return outcome, true, nil
}

// DiscardCapture cancels a live capture without submitting.
func (o *Orchestrator) DiscardCapture() error {
	return o.capture.Discard()
}

// Clear discards the whole local transcript and asks the backend to drop its
// conversation context. The backend call is best-effort.
func (o *Orchestrator) Clear(ctx context.Context) {
	o.mu.Lock()
	o.generation++
	o.log.Clear()
	o.mu.Unlock()
	o.events.TranscriptCleared()

	ctx, cancel := context.WithTimeout(ctx, o.cfg.StatusTimeout)
	defer cancel()
	if err := o.client.ClearHistory(ctx); err != nil {
		o.logger.Warn().Err(err).Msg("backend clear-history failed")
	}
}

// Messages returns the ordered transcript snapshot.
func (o *Orchestrator) Messages() []domain.Message {
	return o.log.Messages()
}

// Message returns one transcript entry by id.
func (o *Orchestrator) Message(id string) (domain.Message, bool) {
	return o.log.Find(id)
}

// Status summarizes capture, busy, and agent availability for the UI.
func (o *Orchestrator) Status() domain.Status {
	o.mu.Lock()
	busy := o.busy
	agent := o.agent
	o.mu.Unlock()

	return domain.Status{
		Capture: o.capture.State(),
		Busy:    busy,
		Agent:   agent,
	}
}

// Shutdown force-stops any live capture.
func (o *Orchestrator) Shutdown() {
	o.capture.Shutdown()
}
