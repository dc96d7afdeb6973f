package player

import (
	"log"
	"sync"

	"github.com/satindergrewal/promptwave/internal/audio"
)

// DefaultPreroll is the safety buffer built up before playback starts.
const DefaultPreroll = 2.0 // seconds

// Scheduler owns the nextStartTime cursor and places decoded chunks
// back-to-back on the render sink's timeline. The cursor invariant: no
// source starts before it, and it never trails the clock by more than one
// buffer duration -- falling behind is an underrun and resets the cursor
// entirely rather than attempting partial correction.
type Scheduler struct {
	sink    *RenderSink
	machine *Machine
	preroll float64

	mu        sync.Mutex
	nextStart float64 // 0 = unset, first chunk re-establishes preroll
	gen       int     // invalidates deferred loading->playing transitions
}

func NewScheduler(sink *RenderSink, machine *Machine, preroll float64) *Scheduler {
	if preroll <= 0 {
		preroll = DefaultPreroll
	}
	return &Scheduler{sink: sink, machine: machine, preroll: preroll}
}

// Preroll returns the configured preroll in seconds.
func (s *Scheduler) Preroll() float64 {
	return s.preroll
}

// NextStart returns the cursor value (0 = unset).
func (s *Scheduler) NextStart() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStart
}

// ScheduleChunk places a decoded buffer on the timeline. Chunks arriving
// while paused or stopped are dropped silently: the remote session may keep
// streaming briefly after a local pause and that backpressure is intended.
func (s *Scheduler) ScheduleChunk(buf *audio.Buffer) {
	switch s.machine.State() {
	case StatePaused, StateStopped:
		return
	}

	s.mu.Lock()
	now := s.sink.Now()

	if s.nextStart == 0 {
		// First chunk since (re)start: build the preroll buffer and defer
		// the loading -> playing transition until it elapses on the clock.
		s.nextStart = now + s.preroll
		gen := s.gen
		s.sink.NotifyAt(s.nextStart, func() {
			s.mu.Lock()
			current := gen == s.gen
			s.mu.Unlock()
			if current && s.machine.State() == StateLoading {
				s.machine.Transition(StatePlaying)
			}
		})
	}

	if s.nextStart < now {
		log.Printf("Audio underrun detected: schedule %.3fs behind clock, rebuffering", now-s.nextStart)
		s.nextStart = 0
		s.gen++
		s.mu.Unlock()
		s.machine.Transition(StateLoading)
		return
	}

	s.sink.ScheduleAt(buf, s.nextStart)
	s.nextStart += buf.Duration()
	s.mu.Unlock()
}

// ResetCursor clears the cursor; the next chunk re-establishes preroll.
// Called on pause, stop, and after underrun recovery.
func (s *Scheduler) ResetCursor() {
	s.mu.Lock()
	s.nextStart = 0
	s.gen++
	s.mu.Unlock()
}
