// Package recorder captures the rendered monitor output into WAV clips.
package recorder

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/satindergrewal/promptwave/internal/audio"
	"github.com/satindergrewal/promptwave/internal/stream"
)

// ErrFinalizeTimeout means the recorder never confirmed its stop within
// the bounded wait. Distinct from an empty recording, which finalizes
// cleanly to no clip.
var ErrFinalizeTimeout = errors.New("recorder: finalize timed out")

const (
	finalizeAttempts = 20
	finalizeInterval = 100 * time.Millisecond
)

// Clip is one finalized recording. Immutable once returned.
type Clip struct {
	ID         string
	PCM        []byte
	SampleRate int
	Channels   int
	CreatedAt  time.Time
}

// Size returns the raw PCM payload length in bytes.
func (c *Clip) Size() int {
	return len(c.PCM)
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	bytesPerSecond := c.SampleRate * c.Channels * audio.BytesPerSample
	if bytesPerSecond == 0 {
		return 0
	}
	return float64(len(c.PCM)) / float64(bytesPerSecond)
}

// WAV returns the clip encoded as a complete WAV file.
func (c *Clip) WAV() []byte {
	return audio.EncodeWAV(c.PCM, c.SampleRate, c.Channels)
}

// Sink accumulates PCM chunks from the broadcaster while recording is
// active. The broadcaster tap is created on first use and reused across
// play/pause cycles; finalize concatenates the chunks of one cycle into
// a single clip.
type Sink struct {
	broadcaster *stream.Broadcaster
	sampleRate  int
	channels    int

	mu        sync.Mutex
	tap       *stream.Listener
	recording bool
	chunks    [][]byte
	byteTotal int
	stopCh    chan struct{}
	stopDone  bool
	clip      *Clip
}

// NewSink creates a recording sink over the given broadcaster.
func NewSink(b *stream.Broadcaster, sampleRate, channels int) *Sink {
	return &Sink{
		broadcaster: b,
		sampleRate:  sampleRate,
		channels:    channels,
		stopCh:      make(chan struct{}, 1),
	}
}

// Start begins accumulating chunks. The first call subscribes the tap
// and starts the capture loop; later calls just resume recording.
func (s *Sink) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recording {
		return
	}
	if s.tap == nil {
		s.tap = s.broadcaster.Subscribe()
		go s.run(s.tap)
	}
	s.recording = true
	s.stopDone = false
	s.clip = nil
	log.Printf("Recorder: started")
}

// Stop requests an asynchronous stop. The chunk list is only complete
// once the capture loop acknowledges; use StopAndFinalize to wait.
func (s *Sink) Stop() {
	s.mu.Lock()
	if !s.recording {
		s.mu.Unlock()
		return
	}
	s.recording = false
	s.mu.Unlock()

	select {
	case s.stopCh <- struct{}{}:
	default:
	}
}

// BytesRecorded returns the running byte total of the current cycle.
func (s *Sink) BytesRecorded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byteTotal
}

// Recording reports whether a capture cycle is active.
func (s *Sink) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// StopAndFinalize stops the recorder and waits (bounded) for the
// finalized clip. Returns (nil, nil) when the cycle captured no audio
// and ErrFinalizeTimeout when the stop never completed.
func (s *Sink) StopAndFinalize() (*Clip, error) {
	s.Stop()
	for i := 0; i < finalizeAttempts; i++ {
		s.mu.Lock()
		done, clip := s.stopDone, s.clip
		s.mu.Unlock()
		if done {
			return clip, nil
		}
		time.Sleep(finalizeInterval)
	}
	return nil, ErrFinalizeTimeout
}

// Close tears down the broadcaster tap. The sink cannot be reused after.
func (s *Sink) Close() {
	s.mu.Lock()
	tap := s.tap
	s.tap = nil
	s.recording = false
	s.mu.Unlock()
	if tap != nil {
		s.broadcaster.Unsubscribe(tap)
	}
}

func (s *Sink) run(tap *stream.Listener) {
	for {
		select {
		case <-tap.Done():
			return
		case frame, ok := <-tap.C:
			if !ok {
				return
			}
			s.capture(frame, false)
		case <-s.stopCh:
			s.drain(tap)
			s.finalize()
		}
	}
}

// drain pulls any frames already queued ahead of the stop request so
// the finalized clip includes everything delivered before Stop.
func (s *Sink) drain(tap *stream.Listener) {
	for {
		select {
		case frame := <-tap.C:
			s.capture(frame, true)
		default:
			return
		}
	}
}

func (s *Sink) capture(frame []int16, draining bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.recording && !draining {
		return
	}
	chunk := audio.SamplesToBytes(frame)
	s.chunks = append(s.chunks, chunk)
	s.byteTotal += len(chunk)
}

func (s *Sink) finalize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.chunks) == 0 {
		s.stopDone = true
		s.clip = nil
		log.Printf("Recorder: stopped, no audio captured")
		return
	}

	pcm := make([]byte, 0, s.byteTotal)
	for _, chunk := range s.chunks {
		pcm = append(pcm, chunk...)
	}
	s.clip = &Clip{
		ID:         uuid.NewString(),
		PCM:        pcm,
		SampleRate: s.sampleRate,
		Channels:   s.channels,
		CreatedAt:  time.Now(),
	}
	s.chunks = nil
	s.byteTotal = 0
	s.stopDone = true
	log.Printf("Recorder: finalized clip %s (%d bytes, %.1fs)", s.clip.ID, s.clip.Size(), s.clip.Duration())
}
