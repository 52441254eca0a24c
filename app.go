package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"voicedesk/internal/bootstrap"
	"voicedesk/internal/config"
	"voicedesk/internal/domain"
	"voicedesk/internal/ports"
	"voicedesk/internal/usecase"
)

const (
	eventCapture = "voicedesk:capture"
	eventPartial = "voicedesk:partial"
	eventBusy    = "voicedesk:busy"
	eventMessage = "voicedesk:message"
	eventCleared = "voicedesk:cleared"
	eventStatus  = "voicedesk:status"
	eventError   = "voicedesk:error"
)

// partialEmitDelay coalesces bursts of interim hypotheses into one UI update.
const partialEmitDelay = 60 * time.Millisecond

// App is the Wails application root.
type App struct {
	ctx context.Context

	orchestrator *usecase.Orchestrator
	clipboard    ports.Clipboard
	cfg          config.Config
	bootErr      error

	partialMu   sync.Mutex
	partialText string
	emitPartial func(f func())
}

func NewApp() *App {
	return &App{emitPartial: debounce.New(partialEmitDelay)}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, &wailsClipboard{})
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.clipboard = services.Clipboard
	a.orchestrator = services.Orchestrator
	a.CaptureStateChanged(domain.CaptureStateIdle, domain.CaptureReasonStartup)

	go a.orchestrator.LoadStatus(ctx)
}

func (a *App) shutdown(_ context.Context) {
	if a.orchestrator != nil {
		a.orchestrator.Shutdown()
	}
}

// StartListening begins live speech capture.
func (a *App) StartListening() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.orchestrator.StartListening(a.ctx); err != nil {
		a.SessionError(captureErrorCode(err), err.Error())
		return a.orchestrator.Status(), err
	}
	return a.orchestrator.Status(), nil
}

// StopListening finalizes the spoken command and submits it.
func (a *App) StopListening() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if _, _, err := a.orchestrator.StopListening(a.ctx); err != nil {
		if !errors.Is(err, usecase.ErrNoActiveCapture) {
			a.SessionError(captureErrorCode(err), err.Error())
		}
		return a.orchestrator.Status(), err
	}
	return a.orchestrator.Status(), nil
}

// StartRecording begins voice-note capture.
func (a *App) StartRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.orchestrator.StartRecording(a.ctx); err != nil {
		a.SessionError(captureErrorCode(err), err.Error())
		return a.orchestrator.Status(), err
	}
	return a.orchestrator.Status(), nil
}

// StopRecording finalizes the voice note and submits it.
func (a *App) StopRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if _, _, err := a.orchestrator.StopRecording(a.ctx); err != nil {
		if !errors.Is(err, usecase.ErrNoActiveCapture) {
			a.SessionError(captureErrorCode(err), err.Error())
		}
		return a.orchestrator.Status(), err
	}
	return a.orchestrator.Status(), nil
}

// Submit sends a typed command. Attempts while a submission is in flight are
// ignored rather than queued.
func (a *App) Submit(text string) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if _, err := a.orchestrator.SubmitText(a.ctx, text); err != nil {
		if errors.Is(err, usecase.ErrSubmissionInFlight) {
			return a.orchestrator.Status(), nil
		}
		a.SessionError(domain.ErrorCodeValidation, err.Error())
		return a.orchestrator.Status(), err
	}
	return a.orchestrator.Status(), nil
}

// DiscardCapture cancels a live capture without submitting anything.
func (a *App) DiscardCapture() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.orchestrator.DiscardCapture(); err != nil {
		if errors.Is(err, usecase.ErrNoActiveCapture) {
			return nil
		}
		return err
	}
	return nil
}

// ClearTranscript discards the conversation locally and on the backend.
func (a *App) ClearTranscript() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.orchestrator.Clear(a.ctx)
	return nil
}

// GetTranscript returns the ordered conversation log.
func (a *App) GetTranscript() []domain.Message {
	if a.orchestrator == nil {
		return []domain.Message{}
	}
	return a.orchestrator.Messages()
}

// CopyMessage writes one transcript entry's text into the system clipboard.
func (a *App) CopyMessage(id string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	message, ok := a.orchestrator.Message(id)
	if !ok {
		return fmt.Errorf("no transcript entry with id %q", id)
	}
	if err := a.clipboard.SetText(a.ctx, message.Text); err != nil {
		a.SessionError(domain.ErrorCodeClipboard, err.Error())
		return err
	}
	return nil
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.orchestrator == nil {
		if a.bootErr != nil {
			return domain.Status{Capture: domain.CaptureStateIdle, Agent: domain.OfflineStatus(), Message: a.bootErr.Error()}
		}
		return domain.Status{Capture: domain.CaptureStateIdle, Agent: domain.OfflineStatus()}
	}
	return a.orchestrator.Status()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"backend":          a.cfg.Backend.BaseURL,
		"provider":         "Deepgram",
		"model":            a.cfg.Deepgram.Model,
		"language":         a.cfg.Deepgram.Language,
		"correctionsFile":  a.cfg.Corrections.Path,
		"audioInput":       a.cfg.Audio.InputDevice,
		"audioInputFormat": a.cfg.Audio.InputFormat,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.orchestrator == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// CaptureStateChanged emits capture lifecycle updates to the frontend.
func (a *App) CaptureStateChanged(state domain.CaptureState, reason domain.CaptureReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventCapture, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": captureReasonMessage(reason),
	})
}

// PartialTranscript emits live interim hypotheses, debounced so a burst of
// recognizer updates becomes one repaint with the latest text.
func (a *App) PartialTranscript(text string) {
	if a.ctx == nil {
		return
	}
	a.partialMu.Lock()
	a.partialText = text
	a.partialMu.Unlock()

	a.emitPartial(func() {
		a.partialMu.Lock()
		latest := a.partialText
		a.partialMu.Unlock()
		runtime.EventsEmit(a.ctx, eventPartial, map[string]string{"text": latest})
	})
}

// BusyChanged emits Ready/Busy transitions.
func (a *App) BusyChanged(busy bool) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventBusy, map[string]bool{"busy": busy})
}

// MessageAppended emits each new transcript entry.
func (a *App) MessageAppended(message domain.Message) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventMessage, message)
}

// TranscriptCleared notifies the frontend the conversation restarted.
func (a *App) TranscriptCleared() {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventCleared)
}

// StatusChanged emits the resolved agent availability.
func (a *App) StatusChanged(status domain.SessionStatus) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventStatus, status)
}

// SessionError emits recoverable errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func captureErrorCode(err error) domain.ErrorCode {
	switch {
	case errors.Is(err, usecase.ErrCaptureBusy):
		return domain.ErrorCodeCaptureBusy
	case errors.Is(err, usecase.ErrRecognizerUnavailable):
		return domain.ErrorCodeUnsupported
	case errors.Is(err, ports.ErrPermissionDenied):
		return domain.ErrorCodePermission
	case errors.Is(err, usecase.ErrRecordingTooLarge),
		errors.Is(err, usecase.ErrAudioTooLarge),
		errors.Is(err, usecase.ErrUnsupportedAudioType),
		errors.Is(err, usecase.ErrEmptySubmission):
		return domain.ErrorCodeValidation
	default:
		return domain.ErrorCodeRecognition
	}
}

func captureReasonMessage(reason domain.CaptureReason) string {
	switch reason {
	case domain.CaptureReasonStartup:
		return "Ready"
	case domain.CaptureReasonListeningStarted:
		return "Listening..."
	case domain.CaptureReasonListeningStopped:
		return "Command captured"
	case domain.CaptureReasonRecordingStarted:
		return "Recording voice note..."
	case domain.CaptureReasonRecordingStopped:
		return "Voice note captured"
	case domain.CaptureReasonCaptureDiscarded:
		return "Capture discarded"
	case domain.CaptureReasonNoSpeech:
		return "No speech captured"
	case domain.CaptureReasonRecognitionFailed:
		return "Recognition failed"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeUnsupported:
		return "Speech recognition is not available in this environment"
	case domain.ErrorCodePermission:
		return "Microphone access denied"
	case domain.ErrorCodeCaptureBusy:
		return "Another capture is already active"
	case domain.ErrorCodeValidation:
		return "Command rejected"
	case domain.ErrorCodeAudioStop:
		return "Audio stop issue"
	case domain.ErrorCodeAudioStream:
		return "Audio streaming issue"
	case domain.ErrorCodeRecognition:
		return "Recognition error"
	case domain.ErrorCodeCorrections:
		return "Corrections processing failed"
	case domain.ErrorCodeClipboard:
		return "Clipboard write failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

type wailsClipboard struct{}

func (c *wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}
