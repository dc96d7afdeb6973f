package player

import (
	"testing"

	"github.com/satindergrewal/promptwave/internal/audio"
)

// testBuffer builds a constant-valued stereo buffer of the given duration.
func testBuffer(seconds float64, value float32) *audio.Buffer {
	frames := int(seconds * float64(audio.SampleRate))
	data := make([][]float32, audio.Channels)
	for ch := range data {
		data[ch] = make([]float32, frames)
		for i := range data[ch] {
			data[ch][i] = value
		}
	}
	return &audio.Buffer{SampleRate: audio.SampleRate, Data: data}
}

func newTestRig(preroll float64) (*RenderSink, *Machine, *Scheduler) {
	sink := NewRenderSink(audio.SampleRate, audio.Channels)
	machine := NewMachine()
	sched := NewScheduler(sink, machine, preroll)
	return sink, machine, sched
}

// advanceSeconds renders the given amount of clock time.
func advanceSeconds(sink *RenderSink, sec float64) {
	sink.Advance(int(sec * float64(audio.SampleRate)))
}

func TestFirstChunkEstablishesPreroll(t *testing.T) {
	_, machine, sched := newTestRig(2.0)
	machine.Transition(StateLoading)

	sched.ScheduleChunk(testBuffer(0.5, 0.1))

	// cursor = now(0) + preroll + chunk duration
	if got := sched.NextStart(); got != 2.5 {
		t.Errorf("NextStart = %v, want 2.5", got)
	}
}

func TestCursorMonotonic(t *testing.T) {
	sink, machine, sched := newTestRig(2.0)
	machine.Transition(StateLoading)

	prev := 0.0
	for i := 0; i < 5; i++ {
		sched.ScheduleChunk(testBuffer(0.5, 0.1))
		next := sched.NextStart()
		if next <= prev {
			t.Fatalf("Cursor not monotonic: chunk %d moved cursor %v -> %v", i, prev, next)
		}
		prev = next
	}
	if got := sink.ScheduledSources(); got != 5 {
		t.Errorf("ScheduledSources = %d, want 5", got)
	}
}

func TestDeferredPlayingTransition(t *testing.T) {
	sink, machine, sched := newTestRig(1.0)
	machine.Transition(StateLoading)

	sched.ScheduleChunk(testBuffer(2.0, 0.1))
	if machine.State() != StateLoading {
		t.Fatalf("State before preroll elapsed = %s, want loading", machine.State())
	}

	// Half the preroll: still loading
	advanceSeconds(sink, 0.5)
	if machine.State() != StateLoading {
		t.Errorf("State at half preroll = %s, want loading", machine.State())
	}

	// Cross the preroll boundary on the render clock
	advanceSeconds(sink, 0.6)
	if machine.State() != StatePlaying {
		t.Errorf("State after preroll = %s, want playing", machine.State())
	}
}

func TestUnderrunResetsCursorAndRebuffers(t *testing.T) {
	sink, machine, sched := newTestRig(0.5)
	machine.Transition(StateLoading)

	sched.ScheduleChunk(testBuffer(0.2, 0.1))
	// Clock overshoots the scheduled audio: 0.5 + 0.2 < 1.0
	advanceSeconds(sink, 1.0)
	if machine.State() != StatePlaying {
		t.Fatalf("State after preroll = %s, want playing", machine.State())
	}

	sched.ScheduleChunk(testBuffer(0.2, 0.1))
	if machine.State() != StateLoading {
		t.Errorf("State after underrun = %s, want loading", machine.State())
	}
	if got := sched.NextStart(); got != 0 {
		t.Errorf("NextStart after underrun = %v, want 0 (cursor reset)", got)
	}

	// Next chunk re-establishes the preroll from the current clock
	sched.ScheduleChunk(testBuffer(0.2, 0.1))
	now := sink.Now()
	want := now + 0.5 + 0.2
	if got := sched.NextStart(); got < want-1e-6 || got > want+1e-6 {
		t.Errorf("NextStart after rebuffer = %v, want %v", got, want)
	}
}

func TestStaleDeferredTransitionIgnoredAfterUnderrun(t *testing.T) {
	sink, machine, sched := newTestRig(0.5)
	machine.Transition(StateLoading)

	sched.ScheduleChunk(testBuffer(0.2, 0.1))
	// Reset before the preroll elapses; the pending notification is stale.
	sched.ResetCursor()
	machine.Transition(StatePaused)
	machine.Transition(StateLoading)

	advanceSeconds(sink, 1.0)
	if machine.State() != StateLoading {
		t.Errorf("Stale preroll notification fired: state = %s, want loading", machine.State())
	}
}

func TestChunksDroppedWhilePaused(t *testing.T) {
	sink, machine, sched := newTestRig(2.0)
	machine.Transition(StateLoading)
	machine.Transition(StatePlaying)
	machine.Transition(StatePaused)

	sched.ScheduleChunk(testBuffer(0.5, 0.1))
	if got := sink.ScheduledSources(); got != 0 {
		t.Errorf("ScheduledSources while paused = %d, want 0", got)
	}
	if got := sched.NextStart(); got != 0 {
		t.Errorf("NextStart while paused = %v, want 0", got)
	}
}

func TestChunksDroppedWhileStopped(t *testing.T) {
	sink, _, sched := newTestRig(2.0)

	sched.ScheduleChunk(testBuffer(0.5, 0.1))
	if got := sink.ScheduledSources(); got != 0 {
		t.Errorf("ScheduledSources while stopped = %d, want 0", got)
	}
}

// Three chunks arrive, play out gapless, and the state machine follows
// loading -> playing across the preroll.
func TestThreeChunkPlayback(t *testing.T) {
	sink, machine, sched := newTestRig(1.0)
	machine.Transition(StateLoading)

	for i := 0; i < 3; i++ {
		sched.ScheduleChunk(testBuffer(0.5, 0.25))
	}
	// Timeline: silence [0, 1.0), audio [1.0, 2.5)
	if got := sched.NextStart(); got != 2.5 {
		t.Fatalf("NextStart = %v, want 2.5", got)
	}

	// Preroll region renders silence
	p := make([]byte, audio.SampleRate*audio.Channels*2) // 1 second
	sink.Read(p)
	for i := 0; i < len(p); i++ {
		if p[i] != 0 {
			t.Fatalf("Non-zero sample at byte %d during preroll", i)
		}
	}
	if machine.State() != StatePlaying {
		t.Errorf("State after preroll = %s, want playing", machine.State())
	}

	// Audio region renders the mixed chunks
	sink.Read(p)
	samples := audio.BytesToSamples(p)
	want := int16(0.25 * 32767)
	for i, s := range samples[:16] {
		if s < want-2 || s > want+2 {
			t.Fatalf("Sample %d = %d, want ~%d", i, s, want)
		}
	}

	// Past the end everything is drained
	advanceSeconds(sink, 1.0)
	if got := sink.ScheduledSources(); got != 0 {
		t.Errorf("ScheduledSources after playout = %d, want 0", got)
	}
}
