package transcript

import (
	"testing"
	"time"

	"voicedesk/internal/domain"
)

func TestLogAppendPreservesOrder(t *testing.T) {
	t.Parallel()

	log := NewLog()
	log.Append(NewUserMessage("first"))
	log.Append(NewAgentMessage(domain.AgentOutcome{OK: true, Message: "second"}))
	log.Append(NewUserMessage("third"))

	messages := log.Messages()
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	if messages[0].Text != "first" || messages[1].Text != "second" || messages[2].Text != "third" {
		t.Fatalf("unexpected order: %+v", messages)
	}
	if messages[0].Origin != domain.OriginUser || messages[1].Origin != domain.OriginAgent {
		t.Fatalf("unexpected origins: %+v", messages)
	}
}

func TestLogTimestampsStrictlyIncrease(t *testing.T) {
	t.Parallel()

	log := NewLog()
	fixed := time.Unix(1700000000, 0).UTC()
	for i := 0; i < 50; i++ {
		message := NewUserMessage("entry")
		message.Timestamp = fixed
		log.Append(message)
	}

	messages := log.Messages()
	for i := 1; i < len(messages); i++ {
		if !messages[i].Timestamp.After(messages[i-1].Timestamp) {
			t.Fatalf("timestamps not strictly increasing at %d", i)
		}
	}
}

func TestLogClearEmptiesAndRestartsFromZero(t *testing.T) {
	t.Parallel()

	log := NewLog()
	log.Append(NewUserMessage("one"))
	log.Append(NewUserMessage("two"))
	log.Clear()

	if log.Len() != 0 {
		t.Fatalf("expected empty log, got %d", log.Len())
	}

	log.Append(NewUserMessage("fresh"))
	messages := log.Messages()
	if len(messages) != 1 || messages[0].Text != "fresh" {
		t.Fatalf("unexpected entries after clear: %+v", messages)
	}
}

func TestLogMessagesReturnsCopy(t *testing.T) {
	t.Parallel()

	log := NewLog()
	log.Append(NewUserMessage("original"))

	snapshot := log.Messages()
	snapshot[0].Text = "mutated"

	if log.Messages()[0].Text != "original" {
		t.Fatalf("snapshot mutation leaked into the log")
	}
}

func TestLogFind(t *testing.T) {
	t.Parallel()

	log := NewLog()
	appended := log.Append(NewUserMessage("needle"))

	found, ok := log.Find(appended.ID)
	if !ok || found.Text != "needle" {
		t.Fatalf("expected to find appended entry, got %v %v", found, ok)
	}
	if _, ok := log.Find("missing"); ok {
		t.Fatalf("expected miss for unknown id")
	}
}

func TestNewAgentMessageFailureUsesErrorText(t *testing.T) {
	t.Parallel()

	message := NewAgentMessage(domain.FailedOutcome("backend unreachable"))
	if message.Text != "backend unreachable" {
		t.Fatalf("unexpected text: %q", message.Text)
	}
	if message.Outcome == nil || message.Outcome.OK {
		t.Fatalf("expected ok=false outcome")
	}
}
