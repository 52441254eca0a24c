package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// MaxAudioBytesDefault is the largest voice note the backend accepts.
const MaxAudioBytesDefault = 25 * 1024 * 1024

// Config stores runtime configuration for the desktop client.
type Config struct {
	Backend     BackendConfig
	Deepgram    DeepgramConfig
	Audio       AudioConfig
	Corrections CorrectionsConfig
	Session     SessionConfig
	Log         LogConfig
}

type BackendConfig struct {
	BaseURL       string
	SubmitTimeout time.Duration
	StatusTimeout time.Duration
	MaxAudioBytes int64
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
}

type CorrectionsConfig struct {
	Path           string
	IterationLimit int
}

type SessionConfig struct {
	ChunkSize      int
	StreamingGrace time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// Load resolves configuration from environment variables and sensible defaults.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	correctionsPath := strings.TrimSpace(os.Getenv("VOICEDESK_CORRECTIONS_FILE"))
	if correctionsPath == "" {
		correctionsPath = firstExisting(
			filepath.Join(home, ".config", "voicedesk", "corrections.rules"),
		)
	}

	cfg := Config{
		Backend: BackendConfig{
			BaseURL:       envOrDefault("VOICEDESK_BACKEND_URL", "http://localhost:8000"),
			SubmitTimeout: envMillis("VOICEDESK_SUBMIT_TIMEOUT_MS", 30_000),
			StatusTimeout: envMillis("VOICEDESK_STATUS_TIMEOUT_MS", 5_000),
			MaxAudioBytes: int64(envOrDefaultInt("VOICEDESK_MAX_AUDIO_BYTES", MaxAudioBytesDefault)),
		},
		Deepgram: DeepgramConfig{
			APIKey:      strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:  envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:       envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			Language:    strings.TrimSpace(os.Getenv("DEEPGRAM_LANGUAGE")),
			SmartFormat: envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
		},
		Audio: AudioConfig{
			RecorderCommand: envOrDefault("VOICEDESK_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("VOICEDESK_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:     envOrDefault("VOICEDESK_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:      envOrDefaultInt("VOICEDESK_SAMPLE_RATE", 16000),
			Channels:        envOrDefaultInt("VOICEDESK_CHANNELS", 1),
		},
		Corrections: CorrectionsConfig{
			Path:           correctionsPath,
			IterationLimit: envOrDefaultInt("VOICEDESK_CORRECTION_ITERATION_LIMIT", 30),
		},
		Session: SessionConfig{
			ChunkSize:      envOrDefaultInt("VOICEDESK_AUDIO_CHUNK_SIZE", 4096),
			StreamingGrace: envMillis("VOICEDESK_STREAMING_GRACE_MS", 1_000),
		},
		Log: LogConfig{
			Level:  envOrDefault("VOICEDESK_LOG_LEVEL", "info"),
			Format: envOrDefault("VOICEDESK_LOG_FORMAT", "console"),
		},
	}

	cfg.Backend.BaseURL = strings.TrimRight(cfg.Backend.BaseURL, "/")
	if cfg.Backend.MaxAudioBytes <= 0 {
		cfg.Backend.MaxAudioBytes = MaxAudioBytesDefault
	}
	if cfg.Backend.SubmitTimeout <= 0 {
		cfg.Backend.SubmitTimeout = 30 * time.Second
	}
	if cfg.Backend.StatusTimeout <= 0 {
		cfg.Backend.StatusTimeout = 5 * time.Second
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Corrections.IterationLimit <= 0 {
		cfg.Corrections.IterationLimit = 30
	}
	if cfg.Session.ChunkSize < 256 {
		cfg.Session.ChunkSize = 4096
	}

	return cfg, nil
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func envMillis(key string, fallback int) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return time.Duration(fallback) * time.Millisecond
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return time.Duration(fallback) * time.Millisecond
	}
	return time.Duration(parsed) * time.Millisecond
}
