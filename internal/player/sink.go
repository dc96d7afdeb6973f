package player

import (
	"math"
	"sync"

	"github.com/satindergrewal/promptwave/internal/audio"
)

// gainNode mirrors a Web-Audio style gain with linear ramp automation.
// Recreating the node (ResetGain) discards any lingering ramp curve.
type gainNode struct {
	value            float64
	rampFrom, rampTo float64
	rampStart        float64
	rampEnd          float64
	ramping          bool
}

func newGainNode(v float64) *gainNode {
	return &gainNode{value: v}
}

func (g *gainNode) setValue(v float64) {
	g.value = v
	g.ramping = false
}

func (g *gainNode) linearRampTo(target, from, until float64) {
	g.rampFrom = g.valueAt(from)
	g.rampTo = target
	g.rampStart = from
	g.rampEnd = until
	g.ramping = true
}

func (g *gainNode) valueAt(t float64) float64 {
	if !g.ramping {
		return g.value
	}
	if t <= g.rampStart {
		return g.rampFrom
	}
	if t >= g.rampEnd {
		return g.rampTo
	}
	p := (t - g.rampStart) / (g.rampEnd - g.rampStart)
	return g.rampFrom + (g.rampTo-g.rampFrom)*p
}

// source is a decoded chunk pinned to an absolute start frame.
type source struct {
	start int64
	data  [][]float32
}

func (s *source) end() int64 {
	if len(s.data) == 0 {
		return s.start
	}
	return s.start + int64(len(s.data[0]))
}

type pendingNotify struct {
	at int64
	fn func()
}

// RenderSink is the output graph: a timeline mixer whose playhead is the
// audio clock. Sources are scheduled at absolute times and mixed with the
// gain envelope as frames are pulled. Rendering is pull-driven: the oto
// device pulls via Read in production, tests pull via Advance, and the
// clock only moves when frames are rendered. Rendered 20ms frames are also
// fanned out on Frames for the recorder and monitor streams.
type RenderSink struct {
	sampleRate int
	channels   int

	mu       sync.Mutex
	playhead int64
	sources  []*source
	gain     *gainNode
	notifies []pendingNotify
	flushAt  int64 // frame at which sources are dropped and gain reset; -1 = none

	frameCh chan []int16
	partial []int16
}

func NewRenderSink(sampleRate, channels int) *RenderSink {
	return &RenderSink{
		sampleRate: sampleRate,
		channels:   channels,
		gain:       newGainNode(1),
		flushAt:    -1,
		frameCh:    make(chan []int16, 100),
	}
}

// Now returns the audio clock position in seconds.
func (s *RenderSink) Now() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.playhead) / float64(s.sampleRate)
}

// Frames returns the channel of rendered 20ms PCM frames.
func (s *RenderSink) Frames() <-chan []int16 {
	return s.frameCh
}

// ScheduleAt pins a decoded buffer to an absolute start time.
func (s *RenderSink) ScheduleAt(buf *audio.Buffer, at float64) {
	src := &source{
		start: int64(math.Round(at * float64(s.sampleRate))),
		data:  buf.Data,
	}
	s.mu.Lock()
	s.sources = append(s.sources, src)
	s.mu.Unlock()
}

// ScheduledSources returns the number of live (not yet fully played) sources.
func (s *RenderSink) ScheduledSources() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sources)
}

// NotifyAt invokes fn from the render loop once the clock reaches t.
func (s *RenderSink) NotifyAt(t float64, fn func()) {
	at := int64(math.Round(t * float64(s.sampleRate)))
	s.mu.Lock()
	defer s.mu.Unlock()
	if at <= s.playhead {
		// Already past: fire on the next render pass.
		at = s.playhead
	}
	s.notifies = append(s.notifies, pendingNotify{at: at, fn: fn})
}

// FadeIn ramps the gain from 0 to 1 over dur seconds starting now.
func (s *RenderSink) FadeIn(dur float64) {
	s.mu.Lock()
	now := float64(s.playhead) / float64(s.sampleRate)
	s.gain.setValue(0)
	s.gain.linearRampTo(1, now, now+dur)
	s.flushAt = -1
	s.mu.Unlock()
}

// FadeOutAndFlush ramps the gain to 0 over dur seconds; once the ramp
// completes, remaining scheduled sources are dropped and a fresh gain node
// replaces the faded one so no automation curve leaks into the next cycle.
func (s *RenderSink) FadeOutAndFlush(dur float64) {
	s.mu.Lock()
	now := float64(s.playhead) / float64(s.sampleRate)
	s.gain.linearRampTo(0, now, now+dur)
	s.flushAt = s.playhead + int64(math.Round(dur*float64(s.sampleRate)))
	s.mu.Unlock()
}

// ResetGain installs a fresh gain node at unity, discarding ramps.
func (s *RenderSink) ResetGain() {
	s.mu.Lock()
	s.gain = newGainNode(1)
	s.flushAt = -1
	s.mu.Unlock()
}

// GainNow returns the current envelope value. Intended for tests and status.
func (s *RenderSink) GainNow() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gain.valueAt(float64(s.playhead) / float64(s.sampleRate))
}

// Read renders interleaved little-endian int16 PCM into p, advancing the
// clock. Implements io.Reader so an oto player can drive the sink directly.
func (s *RenderSink) Read(p []byte) (int, error) {
	frames := len(p) / (2 * s.channels)
	if frames == 0 {
		return 0, nil
	}
	buf := make([]int16, frames*s.channels)
	s.render(buf)
	for i, v := range buf {
		p[i*2] = byte(v)
		p[i*2+1] = byte(uint16(v) >> 8)
	}
	return frames * 2 * s.channels, nil
}

// Advance renders and discards the given number of sample frames. Taps and
// deferred notifications still fire; tests use this to move the clock.
func (s *RenderSink) Advance(frames int) {
	buf := make([]int16, frames*s.channels)
	s.render(buf)
}

func (s *RenderSink) render(dst []int16) {
	frames := len(dst) / s.channels

	s.mu.Lock()
	start := s.playhead
	rate := float64(s.sampleRate)

	for i := 0; i < frames; i++ {
		abs := start + int64(i)
		g := s.gain.valueAt(float64(abs) / rate)
		for ch := 0; ch < s.channels; ch++ {
			var sum float64
			for _, src := range s.sources {
				idx := abs - src.start
				if idx >= 0 && ch < len(src.data) && idx < int64(len(src.data[ch])) {
					sum += float64(src.data[ch][idx])
				}
			}
			v := sum * g * 32767
			if v > 32767 {
				v = 32767
			} else if v < -32768 {
				v = -32768
			}
			dst[i*s.channels+ch] = int16(v)
		}
		if s.flushAt >= 0 && abs+1 >= s.flushAt {
			s.sources = s.sources[:0]
			s.gain = newGainNode(1)
			s.flushAt = -1
		}
	}
	s.playhead = start + int64(frames)

	// Drop sources that have fully played out.
	live := s.sources[:0]
	for _, src := range s.sources {
		if src.end() > s.playhead {
			live = append(live, src)
		}
	}
	s.sources = live

	// Collect due notifications.
	var fired []func()
	waiting := s.notifies[:0]
	for _, n := range s.notifies {
		if n.at <= s.playhead {
			fired = append(fired, n.fn)
		} else {
			waiting = append(waiting, n)
		}
	}
	s.notifies = waiting

	// Assemble fixed-size frames for the tap.
	s.partial = append(s.partial, dst...)
	var out [][]int16
	for len(s.partial) >= audio.FrameSamples {
		frame := make([]int16, audio.FrameSamples)
		copy(frame, s.partial[:audio.FrameSamples])
		s.partial = s.partial[audio.FrameSamples:]
		out = append(out, frame)
	}
	s.mu.Unlock()

	for _, fn := range fired {
		fn()
	}
	for _, frame := range out {
		select {
		case s.frameCh <- frame:
		default:
			// tap consumer too slow, drop rather than stall rendering
		}
	}
}
