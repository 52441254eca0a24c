package usecase

import (
	"strings"
	"sync"

	"voicedesk/internal/domain"
	"voicedesk/internal/ports"
)

// hypothesisBuffer accumulates recognizer output for one listening session.
// Partials describe only the current unfinalized segment, so each final
// supersedes the pending hypothesis. The pending hypothesis covers the case
// where the user stops before the recognizer finalizes the tail.
type hypothesisBuffer struct {
	mu      sync.Mutex
	finals  []string
	pending string
}

func newHypothesisBuffer() *hypothesisBuffer {
	return &hypothesisBuffer{}
}

func (b *hypothesisBuffer) Observe(event domain.TranscriptEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	text := strings.TrimSpace(event.Text)
	if text == "" {
		return
	}
	if event.Kind == domain.TranscriptKindFinal {
		b.finals = append(b.finals, text)
		b.pending = ""
		return
	}
	b.pending = text
}

// Text merges finalized segments with the trailing hypothesis.
func (b *hypothesisBuffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	joined := strings.TrimSpace(strings.Join(b.finals, " "))
	switch {
	case b.pending == "":
		return joined
	case joined == "":
		return b.pending
	default:
		return joined + " " + b.pending
	}
}

// consumeRecognition drains recognizer events into the buffer and forwards
// partial hypotheses for live display. Partials never touch the transcript
// log; they exist only until the next event replaces them.
func consumeRecognition(
	stream ports.RecognizerSession,
	buffer *hypothesisBuffer,
	events ports.EventSink,
	done chan struct{},
) {
	defer close(done)

	for event := range stream.Events() {
		if strings.TrimSpace(event.Text) == "" {
			continue
		}
		buffer.Observe(event)
		if event.Kind == domain.TranscriptKindPartial {
			events.PartialTranscript(strings.TrimSpace(event.Text))
		}
	}
}
