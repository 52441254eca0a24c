package ports

import (
	"context"
	"errors"
	"io"

	"voicedesk/internal/domain"
)

// ErrPermissionDenied reports that the platform refused microphone access.
// It is recoverable; callers surface a user-facing notice, not a crash.
var ErrPermissionDenied = errors.New("microphone access denied")

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate   int
	Channels     int
	InputFormat  string
	InputDevice  string
	OutputFormat string // raw pcm for streaming recognition, wav for voice notes
}

// AudioSession is a live microphone capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// RecognizerConfig describes provider-agnostic streaming recognition settings.
type RecognizerConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	InterimResults bool
}

// RecognizerSession is an active streaming recognition session.
type RecognizerSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan domain.TranscriptEvent
	Wait() error
	Close() error
}

// SpeechRecognizer starts streaming recognition sessions. Available reports
// whether the environment supports live recognition at all; callers surface
// a user-facing notice when it does not.
type SpeechRecognizer interface {
	Available() bool
	StartStream(ctx context.Context, cfg RecognizerConfig) (RecognizerSession, error)
}

// AgentClient is the backend submission pipeline and status poller. Execute
// calls normalize every failure shape into an ok=false outcome and never
// return an error; they are stateless and reentrant.
type AgentClient interface {
	ExecuteText(ctx context.Context, text string) domain.AgentOutcome
	ExecuteAudio(ctx context.Context, audio []byte, mimeType string) domain.AgentOutcome
	FetchStatus(ctx context.Context) (domain.SessionStatus, error)
	ClearHistory(ctx context.Context) error
}

// Corrections transforms finalized transcripts using deterministic user rules.
type Corrections interface {
	Apply(text string) (string, error)
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// EventSink emits session state and transcript updates to the UI.
type EventSink interface {
	CaptureStateChanged(state domain.CaptureState, reason domain.CaptureReason)
	PartialTranscript(text string)
	BusyChanged(busy bool)
	MessageAppended(message domain.Message)
	TranscriptCleared()
	StatusChanged(status domain.SessionStatus)
	SessionError(code domain.ErrorCode, detail string)
}
