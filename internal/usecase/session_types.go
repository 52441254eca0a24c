package usecase

import (
	"sync"

	"voicedesk/internal/ports"
)

// listenSession is one live speech-recognition capture.
type listenSession struct {
	cancel func()
	audio  ports.AudioSession
	stream ports.RecognizerSession

	hypotheses *hypothesisBuffer
	eventsDone chan struct{}
	audioDone  chan struct{}
}

// recordSession is one live voice-note capture.
type recordSession struct {
	cancel func()
	audio  ports.AudioSession

	sink *recordingSink
	done chan struct{}
}

// recordingSink accumulates encoded audio up to a byte cap. Overflow marks
// the recording rejected instead of growing without bound.
type recordingSink struct {
	mu       sync.Mutex
	buf      []byte
	max      int64
	overflow bool
}

func newRecordingSink(max int64) *recordingSink {
	return &recordingSink{max: max}
}

// Write appends a chunk. It reports false once the cap is exceeded so the
// drain loop can stop consuming.
func (s *recordingSink) Write(chunk []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overflow {
		return false
	}
	if s.max > 0 && int64(len(s.buf))+int64(len(chunk)) > s.max {
		s.overflow = true
		return false
	}
	s.buf = append(s.buf, chunk...)
	return true
}

func (s *recordingSink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.buf))
	copy(out, s.buf)
	return out
}

func (s *recordingSink) Overflowed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overflow
}
