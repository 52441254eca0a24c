// Package transcript holds the append-only conversation log.
package transcript

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"voicedesk/internal/domain"
)

// Log is an ordered, append-only record of exchanged messages. Entries are
// never mutated or removed individually; Clear discards the whole log.
type Log struct {
	mu      sync.RWMutex
	entries []domain.Message
}

func NewLog() *Log {
	return &Log{}
}

// Append adds one message and returns it with its assigned timestamp.
// Timestamps are strictly increasing: a collision with the previous entry is
// bumped forward so ordering stays total.
func (l *Log) Append(message domain.Message) domain.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}
	if n := len(l.entries); n > 0 {
		last := l.entries[n-1].Timestamp
		if !message.Timestamp.After(last) {
			message.Timestamp = last.Add(time.Nanosecond)
		}
	}

	l.entries = append(l.entries, message)
	return message
}

// Clear atomically discards all entries.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Messages returns a copy of the ordered entries.
func (l *Log) Messages() []domain.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Message, len(l.entries))
	copy(out, l.entries)
	return out
}

// Find returns the entry with the given id.
func (l *Log) Find(id string) (domain.Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, entry := range l.entries {
		if entry.ID == id {
			return entry, true
		}
	}
	return domain.Message{}, false
}

// Len reports the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// NewUserMessage builds a transcript entry for user input.
func NewUserMessage(text string) domain.Message {
	return domain.Message{
		ID:     uuid.NewString(),
		Origin: domain.OriginUser,
		Text:   text,
	}
}

// NewAgentMessage builds a transcript entry from a backend outcome. Failed
// outcomes render their error message as the entry text.
func NewAgentMessage(outcome domain.AgentOutcome) domain.Message {
	text := outcome.Message
	if !outcome.OK {
		text = outcome.ErrorMessage
	}
	copied := outcome
	return domain.Message{
		ID:      uuid.NewString(),
		Origin:  domain.OriginAgent,
		Text:    text,
		Outcome: &copied,
	}
}
