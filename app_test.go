package main

import (
	"errors"
	"testing"

	"voicedesk/internal/domain"
	"voicedesk/internal/ports"
	"voicedesk/internal/usecase"
)

func TestCaptureReasonMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.CaptureReason]string{
		domain.CaptureReasonStartup:           "Ready",
		domain.CaptureReasonListeningStarted:  "Listening...",
		domain.CaptureReasonListeningStopped:  "Command captured",
		domain.CaptureReasonRecordingStarted:  "Recording voice note...",
		domain.CaptureReasonRecordingStopped:  "Voice note captured",
		domain.CaptureReasonCaptureDiscarded:  "Capture discarded",
		domain.CaptureReasonNoSpeech:          "No speech captured",
		domain.CaptureReasonRecognitionFailed: "Recognition failed",
	}

	for reason, want := range cases {
		reason := reason
		want := want
		t.Run(string(reason), func(t *testing.T) {
			t.Parallel()
			if got := captureReasonMessage(reason); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := captureReasonMessage("unknown"); got != "" {
		t.Fatalf("expected empty unknown reason message, got %q", got)
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.ErrorCode]string{
		domain.ErrorCodeStartup:     "Startup failed",
		domain.ErrorCodeUnsupported: "Speech recognition is not available in this environment",
		domain.ErrorCodePermission:  "Microphone access denied",
		domain.ErrorCodeCaptureBusy: "Another capture is already active",
		domain.ErrorCodeValidation:  "Command rejected",
		domain.ErrorCodeAudioStop:   "Audio stop issue",
		domain.ErrorCodeAudioStream: "Audio streaming issue",
		domain.ErrorCodeRecognition: "Recognition error",
		domain.ErrorCodeCorrections: "Corrections processing failed",
		domain.ErrorCodeClipboard:   "Clipboard write failed",
	}
	for code, want := range cases {
		code := code
		want := want
		t.Run(string(code), func(t *testing.T) {
			t.Parallel()
			if got := errorMessage(code, "ignored"); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := errorMessage("unknown", "detail"); got != "detail" {
		t.Fatalf("expected detail fallback, got %q", got)
	}
	if got := errorMessage("unknown", ""); got != "Unknown error" {
		t.Fatalf("expected unknown fallback, got %q", got)
	}
}

func TestCaptureErrorCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want domain.ErrorCode
	}{
		{name: "busy", err: usecase.ErrCaptureBusy, want: domain.ErrorCodeCaptureBusy},
		{name: "no recognizer", err: usecase.ErrRecognizerUnavailable, want: domain.ErrorCodeUnsupported},
		{name: "mic denied", err: ports.ErrPermissionDenied, want: domain.ErrorCodePermission},
		{name: "recording too large", err: usecase.ErrRecordingTooLarge, want: domain.ErrorCodeValidation},
		{name: "audio too large", err: usecase.ErrAudioTooLarge, want: domain.ErrorCodeValidation},
		{name: "wrong payload type", err: usecase.ErrUnsupportedAudioType, want: domain.ErrorCodeValidation},
		{name: "empty", err: usecase.ErrEmptySubmission, want: domain.ErrorCodeValidation},
		{name: "other", err: errors.New("socket closed"), want: domain.ErrorCodeRecognition},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := captureErrorCode(tc.err); got != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestRequireReady(t *testing.T) {
	t.Parallel()

	app := &App{}
	if err := app.requireReady(); err == nil {
		t.Fatalf("expected uninitialized error")
	}

	bootErr := errors.New("boot")
	app.bootErr = bootErr
	if err := app.requireReady(); !errors.Is(err, bootErr) {
		t.Fatalf("expected boot error, got %v", err)
	}
}

func TestGetStatusWhenNotInitialized(t *testing.T) {
	t.Parallel()

	app := &App{}
	status := app.GetStatus()
	if status.Capture != domain.CaptureStateIdle || status.Busy || status.Agent.Online {
		t.Fatalf("unexpected status: %+v", status)
	}

	app.bootErr = errors.New("boot")
	status = app.GetStatus()
	if status.Capture != domain.CaptureStateIdle || status.Message != "boot" {
		t.Fatalf("unexpected boot status: %+v", status)
	}
}

func TestGetTranscriptWhenNotInitialized(t *testing.T) {
	t.Parallel()

	app := &App{}
	if got := app.GetTranscript(); len(got) != 0 {
		t.Fatalf("expected empty transcript, got %v", got)
	}
}
