package usecase

import (
	"errors"
	"fmt"
	"io"
	"time"

	"voicedesk/internal/domain"
	"voicedesk/internal/ports"
)

// pumpListenAudio feeds microphone chunks into the recognizer stream until
// the device is stopped or either side fails.
func pumpListenAudio(
	audio ports.AudioSession,
	stream ports.RecognizerSession,
	chunkSize int,
	events ports.EventSink,
	done chan struct{},
) {
	defer close(done)

	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			if sendErr := stream.SendAudio(buf[:n]); sendErr != nil {
				events.SessionError(domain.ErrorCodeAudioStream, fmt.Sprintf("failed to stream audio: %v", sendErr))
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				events.SessionError(domain.ErrorCodeAudioStream, fmt.Sprintf("audio capture error: %v", err))
			}
			return
		}
	}
}

// drainRecording accumulates encoded audio into the sink. On overflow it
// stops consuming; the stop path reports the oversized recording.
func drainRecording(
	audio ports.AudioSession,
	sink *recordingSink,
	chunkSize int,
	events ports.EventSink,
	done chan struct{},
) {
	defer close(done)

	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			if !sink.Write(buf[:n]) {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				events.SessionError(domain.ErrorCodeAudioStream, fmt.Sprintf("audio capture error: %v", err))
			}
			return
		}
	}
}

// waitForStream bounds the recognizer shutdown wait, force-closing on timeout.
func waitForStream(stream ports.RecognizerSession, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- stream.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		_ = stream.Close()
		return <-done
	}
}
