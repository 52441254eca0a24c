package agentapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"voicedesk/internal/domain"
)

func TestExecuteTextSuccessPreservesParsedFields(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/agent/execute" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request failed: %v", err)
		}
		if req["text"] != "email John about the meeting" {
			t.Errorf("unexpected text: %q", req["text"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"action":  "email_sent",
			"intent":  "send_email",
			"message": "Sent.",
			"parsed": map[string]string{
				"to":      "john@example.com",
				"subject": "Meeting",
				"body":    "See you at 10.",
			},
		})
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})
	outcome := client.ExecuteText(context.Background(), "email John about the meeting")

	if !outcome.OK {
		t.Fatalf("expected ok outcome: %+v", outcome)
	}
	if outcome.Action != domain.ActionEmailSent {
		t.Fatalf("unexpected action: %s", outcome.Action)
	}
	if outcome.Message != "Sent." {
		t.Fatalf("unexpected message: %q", outcome.Message)
	}
	if outcome.Email == nil || outcome.Email.To != "john@example.com" || outcome.Email.Subject != "Meeting" || outcome.Email.Body != "See you at 10." {
		t.Fatalf("parsed fields not preserved: %+v", outcome.Email)
	}
}

func TestExecuteTextBackendFailureIsNormalized(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"action":  "email_failed",
			"message": "SMTP rejected the message",
		})
	}))
	defer server.Close()

	outcome := New(Config{BaseURL: server.URL}).ExecuteText(context.Background(), "email")
	if outcome.OK {
		t.Fatalf("expected failure outcome")
	}
	if outcome.Action != domain.ActionEmailFailed {
		t.Fatalf("unexpected action: %s", outcome.Action)
	}
	if outcome.ErrorMessage != "SMTP rejected the message" {
		t.Fatalf("unexpected error message: %q", outcome.ErrorMessage)
	}
}

func TestExecuteTextNetworkErrorNeverEscapes(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // connection refused from here on

	outcome := New(Config{BaseURL: server.URL}).ExecuteText(context.Background(), "hello")
	if outcome.OK || outcome.ErrorMessage == "" {
		t.Fatalf("expected normalized network failure, got %+v", outcome)
	}
}

func TestExecuteTextServerErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	outcome := New(Config{BaseURL: server.URL}).ExecuteText(context.Background(), "hello")
	if outcome.OK {
		t.Fatalf("expected failure outcome")
	}
	if !strings.Contains(outcome.ErrorMessage, "500") {
		t.Fatalf("expected status in message, got %q", outcome.ErrorMessage)
	}
}

func TestExecuteTextMalformedResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>nope</html>"))
	}))
	defer server.Close()

	outcome := New(Config{BaseURL: server.URL}).ExecuteText(context.Background(), "hello")
	if outcome.OK || outcome.ErrorMessage == "" {
		t.Fatalf("expected normalized malformed-response failure, got %+v", outcome)
	}
}

func TestExecuteTextTimeout(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	client := New(Config{BaseURL: server.URL, SubmitTimeout: 50 * time.Millisecond})
	outcome := client.ExecuteText(context.Background(), "hello")
	if outcome.OK {
		t.Fatalf("expected timeout failure")
	}
	if !strings.Contains(outcome.ErrorMessage, "too long") {
		t.Fatalf("unexpected timeout message: %q", outcome.ErrorMessage)
	}
}

func TestExecuteAudioUploadsMultipart(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/process-audio" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file field: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer file.Close()
		if !strings.HasSuffix(header.Filename, ".wav") {
			t.Errorf("unexpected filename: %s", header.Filename)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":       true,
			"transcription": "send a test email",
			"response":      "Done.",
		})
	}))
	defer server.Close()

	outcome := New(Config{BaseURL: server.URL}).ExecuteAudio(context.Background(), []byte("RIFFdata"), "audio/wav")
	if !outcome.OK {
		t.Fatalf("expected ok outcome: %+v", outcome)
	}
	if !strings.Contains(outcome.Message, "send a test email") || !strings.Contains(outcome.Message, "Done.") {
		t.Fatalf("expected transcription echoed in message, got %q", outcome.Message)
	}
}

func TestExecuteAudioFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"message": "transcription failed",
		})
	}))
	defer server.Close()

	outcome := New(Config{BaseURL: server.URL}).ExecuteAudio(context.Background(), []byte("x"), "audio/wav")
	if outcome.OK || outcome.ErrorMessage != "transcription failed" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestFetchStatusDecodesCapabilities(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/agent/status" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "online",
			"capabilities": []map[string]string{
				{"id": "send_email", "name": "Send Email", "description": "Send emails", "icon": "mail", "example": "Email John"},
				{"id": "general_chat", "name": "General Chat", "description": "Chat", "icon": "chat", "example": "Hi"},
			},
			"email_configured": true,
		})
	}))
	defer server.Close()

	status, err := New(Config{BaseURL: server.URL}).FetchStatus(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if !status.Online || !status.EmailCapable {
		t.Fatalf("unexpected status: %+v", status)
	}
	if len(status.Capabilities) != 2 || status.Capabilities[0].ID != "send_email" {
		t.Fatalf("unexpected capabilities: %+v", status.Capabilities)
	}
}

func TestFetchStatusReturnsErrorOnFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	if _, err := New(Config{BaseURL: server.URL}).FetchStatus(context.Background()); err == nil {
		t.Fatalf("expected network error")
	}
}

func TestClearHistory(t *testing.T) {
	t.Parallel()

	var called bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/api/agent/clear-history" {
			called = true
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "cleared"})
	}))
	defer server.Close()

	if err := New(Config{BaseURL: server.URL}).ClearHistory(context.Background()); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if !called {
		t.Fatalf("expected clear-history request")
	}
}

func TestExtensionFor(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"audio/wav":  ".wav",
		"audio/webm": ".webm",
		"audio/ogg":  ".ogg",
		"audio/mpeg": ".mp3",
		"audio/flac": ".bin",
	}
	for mime, want := range cases {
		if got := extensionFor(mime); got != want {
			t.Fatalf("extensionFor(%q) = %q, want %q", mime, got, want)
		}
	}
}
