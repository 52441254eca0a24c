// Package bootstrap assembles the runtime dependency graph.
package bootstrap

import (
	"voicedesk/internal/audio"
	"voicedesk/internal/config"
	"voicedesk/internal/logging"
	"voicedesk/internal/ports"
	"voicedesk/internal/providers/agentapi"
	"voicedesk/internal/providers/deepgram"
	"voicedesk/internal/rules"
	"voicedesk/internal/transcript"
	"voicedesk/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Orchestrator *usecase.Orchestrator
	Clipboard    ports.Clipboard
	Config       config.Config
}

// Build wires all backend dependencies for the current runtime.
func Build(eventSink ports.EventSink, clipboard ports.Clipboard) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	corrections, err := rules.NewEngine(cfg.Corrections.Path, cfg.Corrections.IterationLimit)
	if err != nil {
		return Services{}, err
	}

	capture := usecase.NewCaptureController(
		audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand),
		deepgram.NewRecognizer(deepgram.Config{
			APIKey:      cfg.Deepgram.APIKey,
			APIBaseURL:  cfg.Deepgram.APIBaseURL,
			Model:       cfg.Deepgram.Model,
			Language:    cfg.Deepgram.Language,
			SmartFormat: cfg.Deepgram.SmartFormat,
		}),
		corrections,
		eventSink,
		usecase.CaptureConfig{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			Recognizer: ports.RecognizerConfig{
				SampleRate:     cfg.Audio.SampleRate,
				Channels:       cfg.Audio.Channels,
				Encoding:       "linear16",
				InterimResults: true,
			},
			ChunkSize:      cfg.Session.ChunkSize,
			StreamingGrace: cfg.Session.StreamingGrace,
			MaxRecordBytes: cfg.Backend.MaxAudioBytes,
		},
	)

	orchestrator := usecase.NewOrchestrator(
		capture,
		agentapi.New(agentapi.Config{
			BaseURL:       cfg.Backend.BaseURL,
			SubmitTimeout: cfg.Backend.SubmitTimeout,
		}),
		transcript.NewLog(),
		eventSink,
		usecase.OrchestratorConfig{
			MaxAudioBytes: cfg.Backend.MaxAudioBytes,
			StatusTimeout: cfg.Backend.StatusTimeout,
		},
	)

	return Services{Orchestrator: orchestrator, Clipboard: clipboard, Config: cfg}, nil
}
