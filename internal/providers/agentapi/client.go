// Package agentapi is the HTTP client for the Voice AI Agent backend. It is
// the submission pipeline of the session: stateless, reentrant, no retries
// (a resubmitted command could double-send an email), and every failure shape
// collapses into a single ok=false outcome.
package agentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"voicedesk/internal/domain"
	"voicedesk/internal/logging"
)

// Config controls the backend connection.
type Config struct {
	BaseURL       string
	SubmitTimeout time.Duration
}

// Client talks to the agent backend.
type Client struct {
	cfg    Config
	http   *http.Client
	logger zerolog.Logger
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8000"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.SubmitTimeout},
		logger: logging.WithComponent("agentapi"),
	}
}

type executeRequest struct {
	Text string `json:"text"`
}

type parsedEmail struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type executeResponse struct {
	Success bool        `json:"success"`
	Action  string      `json:"action"`
	Intent  string      `json:"intent"`
	Message string      `json:"message"`
	Parsed  parsedEmail `json:"parsed"`
	Error   string      `json:"error"`
}

// ExecuteText submits a text command to /api/agent/execute. The round trip is
// bounded by the configured submit timeout.
func (c *Client) ExecuteText(ctx context.Context, text string) domain.AgentOutcome {
	body, err := json.Marshal(executeRequest{Text: text})
	if err != nil {
		return c.failure("encode command", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SubmitTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/agent/execute", bytes.NewReader(body))
	if err != nil {
		return c.failure("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var decoded executeResponse
	if err := c.do(req, &decoded); err != nil {
		return c.failure("execute command", err)
	}

	outcome := domain.AgentOutcome{
		OK:      decoded.Success,
		Action:  domain.ParseActionKind(decoded.Action),
		Message: decoded.Message,
	}
	if decoded.Parsed != (parsedEmail{}) {
		outcome.Email = &domain.EmailDetail{
			To:      decoded.Parsed.To,
			Subject: decoded.Parsed.Subject,
			Body:    decoded.Parsed.Body,
		}
	}
	if !decoded.Success {
		outcome.ErrorMessage = decoded.Message
		if decoded.Error != "" {
			outcome.ErrorMessage = decoded.Error
		}
		if outcome.ErrorMessage == "" {
			outcome.ErrorMessage = "The agent could not complete the command."
		}
	}
	return outcome
}

type processAudioResponse struct {
	Success       bool   `json:"success"`
	Transcription string `json:"transcription"`
	Response      string `json:"response"`
	Message       string `json:"message"`
}

// ExecuteAudio uploads a voice note to /api/process-audio as a multipart form.
// Size and MIME validation happen upstream; the client only ships the payload.
func (c *Client) ExecuteAudio(ctx context.Context, audio []byte, mimeType string) domain.AgentOutcome {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "command"+extensionFor(mimeType))
	if err != nil {
		return c.failure("encode audio", err)
	}
	if _, err := part.Write(audio); err != nil {
		return c.failure("encode audio", err)
	}
	if err := form.Close(); err != nil {
		return c.failure("encode audio", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SubmitTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/process-audio", &body)
	if err != nil {
		return c.failure("build request", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var decoded processAudioResponse
	if err := c.do(req, &decoded); err != nil {
		return c.failure("process audio", err)
	}

	message := decoded.Response
	if message == "" {
		message = decoded.Message
	}
	if !decoded.Success {
		errText := message
		if errText == "" {
			errText = "The agent could not process the voice note."
		}
		return domain.FailedOutcome(errText)
	}

	out := domain.AgentOutcome{OK: true, Action: domain.ActionChatResponse, Message: message}
	if decoded.Transcription != "" {
		out.Message = fmt.Sprintf("Heard: %q. %s", decoded.Transcription, message)
	}
	return out
}

type statusCapability struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Example     string `json:"example"`
}

type statusResponse struct {
	Status          string             `json:"status"`
	Capabilities    []statusCapability `json:"capabilities"`
	EmailConfigured bool               `json:"email_configured"`
}

// FetchStatus queries /api/agent/status once. Unlike Execute calls the error
// is returned: the caller folds it into an offline status.
func (c *Client) FetchStatus(ctx context.Context) (domain.SessionStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/agent/status", nil)
	if err != nil {
		return domain.SessionStatus{}, err
	}

	var decoded statusResponse
	if err := c.do(req, &decoded); err != nil {
		return domain.SessionStatus{}, err
	}

	return domain.SessionStatus{
		Online:       strings.EqualFold(decoded.Status, "online"),
		EmailCapable: decoded.EmailConfigured,
		Capabilities: lo.Map(decoded.Capabilities, func(c statusCapability, _ int) domain.Capability {
			return domain.Capability{
				ID:          c.ID,
				Name:        c.Name,
				Description: c.Description,
				Icon:        c.Icon,
				Example:     c.Example,
			}
		}),
	}, nil
}

// ClearHistory asks the backend to drop its bounded conversation context.
func (c *Client) ClearHistory(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/agent/clear-history", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("backend returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}
	return nil
}

// failure logs the underlying error and produces the user-facing ok=false
// outcome. Timeouts get their own wording since the backend call has
// otherwise unbounded latency.
func (c *Client) failure(op string, err error) domain.AgentOutcome {
	c.logger.Warn().Err(err).Str("op", op).Msg("round trip failed")
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.FailedOutcome("The agent took too long to respond. Please try again.")
	}
	return domain.FailedOutcome(fmt.Sprintf("Could not reach the agent: %v", err))
}

func extensionFor(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "wav"):
		return ".wav"
	case strings.Contains(mimeType, "webm"):
		return ".webm"
	case strings.Contains(mimeType, "ogg"):
		return ".ogg"
	case strings.Contains(mimeType, "mpeg"), strings.Contains(mimeType, "mp3"):
		return ".mp3"
	default:
		return ".bin"
	}
}
