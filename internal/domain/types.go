package domain

import "time"

// CaptureState models the microphone/recognizer lifecycle. At most one
// capture mode is active at a time.
type CaptureState string

const (
	CaptureStateIdle      CaptureState = "idle"
	CaptureStateListening CaptureState = "listening"
	CaptureStateRecording CaptureState = "recording"
)

// CaptureReason provides a structured reason for capture transitions.
type CaptureReason string

const (
	CaptureReasonStartup           CaptureReason = "startup"
	CaptureReasonListeningStarted  CaptureReason = "listening_started"
	CaptureReasonListeningStopped  CaptureReason = "listening_stopped"
	CaptureReasonRecordingStarted  CaptureReason = "recording_started"
	CaptureReasonRecordingStopped  CaptureReason = "recording_stopped"
	CaptureReasonCaptureDiscarded  CaptureReason = "capture_discarded"
	CaptureReasonNoSpeech          CaptureReason = "no_speech"
	CaptureReasonRecognitionFailed CaptureReason = "recognition_failed"
)

// ErrorCode identifies recoverable session errors surfaced to the UI.
// There is no fatal class; the worst case is "this command failed".
type ErrorCode string

const (
	ErrorCodeStartup     ErrorCode = "startup"
	ErrorCodeUnsupported ErrorCode = "unsupported_environment"
	ErrorCodePermission  ErrorCode = "permission_denied"
	ErrorCodeCaptureBusy ErrorCode = "capture_busy"
	ErrorCodeValidation  ErrorCode = "validation"
	ErrorCodeAudioStop   ErrorCode = "audio_stop"
	ErrorCodeAudioStream ErrorCode = "audio_stream"
	ErrorCodeRecognition ErrorCode = "recognition"
	ErrorCodeCorrections ErrorCode = "corrections"
	ErrorCodeNetwork     ErrorCode = "network"
	ErrorCodeClipboard   ErrorCode = "clipboard"
)

// TranscriptKind identifies whether a recognizer event is partial or final text.
type TranscriptKind string

const (
	TranscriptKindPartial TranscriptKind = "partial"
	TranscriptKindFinal   TranscriptKind = "final"
)

// TranscriptEvent represents incremental recognition output from a provider.
type TranscriptEvent struct {
	Kind          TranscriptKind `json:"kind"`
	Text          string         `json:"text"`
	IsSpeechFinal bool           `json:"isSpeechFinal"`
}

// UtteranceKind tags a finalized unit of user input.
type UtteranceKind string

const (
	UtteranceText  UtteranceKind = "text"
	UtteranceAudio UtteranceKind = "audio"
)

// Utterance is a finalized capture result ready for submission. It is
// immutable once produced; ownership passes to the submission pipeline.
type Utterance struct {
	Kind     UtteranceKind
	Text     string
	Audio    []byte
	MimeType string
}

// ActionKind is the closed set of agent outcome variants on the wire.
type ActionKind string

const (
	ActionChatResponse ActionKind = "chat_response"
	ActionEmailSent    ActionKind = "email_sent"
	ActionEmailFailed  ActionKind = "email_failed"
	ActionNeedMoreInfo ActionKind = "need_more_info"
)

// ParseActionKind maps a wire action value onto the closed set. Unknown
// values collapse to ActionChatResponse so rendering stays exhaustive.
func ParseActionKind(value string) ActionKind {
	switch ActionKind(value) {
	case ActionEmailSent, ActionEmailFailed, ActionNeedMoreInfo, ActionChatResponse:
		return ActionKind(value)
	default:
		return ActionChatResponse
	}
}

// EmailDetail carries the parsed email fields of an email action.
type EmailDetail struct {
	To      string `json:"to,omitempty"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`
}

// AgentOutcome is the normalized result of one backend round trip. A failed
// round trip is OK=false with a human-readable ErrorMessage; the pipeline
// never surfaces any other failure shape.
type AgentOutcome struct {
	OK           bool         `json:"ok"`
	Action       ActionKind   `json:"action,omitempty"`
	Message      string       `json:"message,omitempty"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
	Email        *EmailDetail `json:"email,omitempty"`
}

// FailedOutcome builds the single ok=false variant used for every failure shape.
func FailedOutcome(message string) AgentOutcome {
	return AgentOutcome{OK: false, ErrorMessage: message}
}

// MessageOrigin identifies who produced a transcript entry.
type MessageOrigin string

const (
	OriginUser  MessageOrigin = "user"
	OriginAgent MessageOrigin = "agent"
)

// Message is one entry of the transcript log. Entries are never mutated or
// removed once appended.
type Message struct {
	ID        string        `json:"id"`
	Origin    MessageOrigin `json:"origin"`
	Text      string        `json:"text"`
	Outcome   *AgentOutcome `json:"outcome,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Capability describes one advertised agent capability.
type Capability struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Example     string `json:"example"`
}

// SessionStatus is the agent availability snapshot fetched once at startup.
type SessionStatus struct {
	Online       bool         `json:"online"`
	EmailCapable bool         `json:"emailCapable"`
	Capabilities []Capability `json:"capabilities"`
}

// OfflineStatus is the status used when the poll fails or has not resolved.
func OfflineStatus() SessionStatus {
	return SessionStatus{Online: false, Capabilities: []Capability{}}
}

// Status summarizes the current session for the UI.
type Status struct {
	Capture CaptureState  `json:"capture"`
	Busy    bool          `json:"busy"`
	Agent   SessionStatus `json:"agent"`
	Message string        `json:"message,omitempty"`
}
