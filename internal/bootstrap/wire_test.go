package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"voicedesk/internal/domain"
)

func TestBuildSuccess(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DEEPGRAM_API_KEY", "test-key")

	services, err := Build(noopEventSink{}, noopClipboard{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if services.Orchestrator == nil {
		t.Fatalf("expected orchestrator")
	}
	if services.Config.Backend.BaseURL == "" {
		t.Fatalf("expected backend url resolved")
	}
}

func TestBuildFailsOnInvalidCorrections(t *testing.T) {
	home := t.TempDir()
	corrections := filepath.Join(home, "bad.rules")
	if err := os.WriteFile(corrections, []byte("not a valid rule\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	t.Setenv("HOME", home)
	t.Setenv("VOICEDESK_CORRECTIONS_FILE", corrections)

	_, err := Build(noopEventSink{}, noopClipboard{})
	if err == nil {
		t.Fatalf("expected build error due to invalid corrections file")
	}
}

type noopEventSink struct{}

func (noopEventSink) CaptureStateChanged(_ domain.CaptureState, _ domain.CaptureReason) {}
func (noopEventSink) PartialTranscript(_ string)                                        {}
func (noopEventSink) BusyChanged(_ bool)                                                {}
func (noopEventSink) MessageAppended(_ domain.Message)                                  {}
func (noopEventSink) TranscriptCleared()                                                {}
func (noopEventSink) StatusChanged(_ domain.SessionStatus)                              {}
func (noopEventSink) SessionError(_ domain.ErrorCode, _ string)                         {}

type noopClipboard struct{}

func (noopClipboard) SetText(_ context.Context, _ string) error { return nil }
