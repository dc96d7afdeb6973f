package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/satindergrewal/promptwave/internal/audio"
	"github.com/satindergrewal/promptwave/internal/music"
	"github.com/satindergrewal/promptwave/internal/player"
)

// fadeSeconds is the gain ramp applied on play, pause and stop.
const fadeSeconds = 0.1

// DefaultConnectTimeout bounds a single connection attempt.
const DefaultConnectTimeout = 5 * time.Second

// ErrNotConnected is returned by control calls before a session exists.
var ErrNotConnected = errors.New("session: not connected")

// ConnState is the connection lifecycle state.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
	MockConnected
)

func (c ConnState) String() string {
	switch c {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case MockConnected:
		return "mock-connected"
	}
	return "unknown"
}

// Options control a single Connect call.
type Options struct {
	// ForceRefresh reconnects even if a session already exists.
	ForceRefresh bool
	// NoMockFallback disables the mock-session substitution on failure.
	// The zero value keeps the fallback enabled, which is the default.
	NoMockFallback bool
	// Timeout bounds the connection attempt. Zero means DefaultConnectTimeout.
	Timeout time.Duration
}

// Dialer produces a live session. Swapped out in tests.
type Dialer func(ctx context.Context, cb Callbacks) (Session, error)

// RecordingSink is the slice of the recorder the adapter drives from
// playback transitions.
type RecordingSink interface {
	Start()
	Stop()
}

// Adapter wraps the generation session: it owns the connection lifecycle,
// forwards outbound control messages, and demultiplexes inbound messages to
// the scheduler and the filtered-prompt set. When the real service is
// unreachable it falls back to a MockSession so the client stays operable.
type Adapter struct {
	dial    Dialer
	machine *player.Machine
	sched   *player.Scheduler
	sink    *player.RenderSink
	rec     RecordingSink // may be nil

	sampleRate int
	channels   int

	noticeFn func(string) // optional user-facing transient notifications

	mu         sync.Mutex
	sess       Session
	connState  ConnState
	connecting bool
	filtered   map[string]struct{}
}

func NewAdapter(dial Dialer, machine *player.Machine, sched *player.Scheduler, sink *player.RenderSink) *Adapter {
	return &Adapter{
		dial:       dial,
		machine:    machine,
		sched:      sched,
		sink:       sink,
		sampleRate: audio.SampleRate,
		channels:   audio.Channels,
		filtered:   make(map[string]struct{}),
	}
}

// SetRecorder attaches the recording sink driven by play/pause/stop.
func (a *Adapter) SetRecorder(rec RecordingSink) {
	a.rec = rec
}

// SetNoticeFunc sets an optional callback for transient user notices.
func (a *Adapter) SetNoticeFunc(fn func(string)) {
	a.noticeFn = fn
}

func (a *Adapter) notice(msg string) {
	log.Println(msg)
	if a.noticeFn != nil {
		a.noticeFn(msg)
	}
}

// ConnState returns the connection lifecycle state.
func (a *Adapter) ConnState() ConnState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connState
}

// IsConnected reports whether a session (real or mock) is usable.
func (a *Adapter) IsConnected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connState == Connected || a.connState == MockConnected
}

// Connect establishes the session. Returns true on success (including mock
// fallback). A second call while one is in flight is rejected outright and
// returns false; it is not queued.
func (a *Adapter) Connect(ctx context.Context, opts Options) (bool, error) {
	a.mu.Lock()
	if a.connecting {
		a.mu.Unlock()
		log.Println("Session connect already in progress")
		return false, nil
	}
	if a.sess != nil && (a.connState == Connected || a.connState == MockConnected) && !opts.ForceRefresh {
		a.mu.Unlock()
		return true, nil
	}
	a.connecting = true
	a.connState = Connecting
	a.mu.Unlock()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cb := Callbacks{
		OnMessage: a.dispatchInbound,
		OnError:   a.handleError,
		OnClose:   a.handleClose,
	}

	sess, err := a.dial(dialCtx, cb)
	if err != nil {
		if !opts.NoMockFallback {
			a.mu.Lock()
			a.sess = NewMockSession(a.machine)
			a.connState = MockConnected
			a.connecting = false
			a.mu.Unlock()
			a.machine.Transition(player.StateStopped)
			a.notice("Using mock session: generation service unreachable")
			return true, nil
		}
		a.mu.Lock()
		a.connState = Disconnected
		a.connecting = false
		a.mu.Unlock()
		return false, fmt.Errorf("session connect: %w", err)
	}

	a.mu.Lock()
	a.sess = sess
	a.connState = Connected
	a.connecting = false
	a.mu.Unlock()
	a.machine.Transition(player.StateStopped)
	log.Println("Session connected")
	return true, nil
}

// dispatchInbound routes one server message. Runs on the single read-pump
// goroutine, so messages are handled strictly in arrival order.
func (a *Adapter) dispatchInbound(msg ServerMessage) {
	if msg.SetupComplete {
		a.mu.Lock()
		if a.connState == Connecting {
			a.connState = Connected
		}
		a.mu.Unlock()
		log.Println("Session setup complete")
	}

	if fp := msg.FilteredPrompt; fp != nil {
		a.mu.Lock()
		a.filtered[fp.Text] = struct{}{}
		a.mu.Unlock()
		a.notice(fmt.Sprintf("Prompt filtered: %s (%s)", fp.Text, fp.FilteredReason))
	}

	if sc := msg.ServerContent; sc != nil && len(sc.AudioChunks) > 0 {
		data, err := audio.DecodeBase64(sc.AudioChunks[0].Data)
		if err != nil {
			log.Printf("Dropping audio chunk: %v", err)
			return
		}
		buf, err := audio.PCMToBuffer(data, a.sampleRate, a.channels)
		if err != nil {
			log.Printf("Dropping audio chunk: %v", err)
			return
		}
		a.sched.ScheduleChunk(buf)
	}
}

func (a *Adapter) handleError(err error) {
	log.Printf("Session error: %v", err)
	a.mu.Lock()
	a.connState = Disconnected
	a.mu.Unlock()
	a.machine.Transition(player.StateStopped)
	a.notice("Connection error: please restart audio")
}

func (a *Adapter) handleClose() {
	a.mu.Lock()
	if a.connState == Disconnected {
		a.mu.Unlock()
		return
	}
	a.connState = Disconnected
	a.mu.Unlock()
	a.machine.Transition(player.StateStopped)
	a.notice("Connection closed: please restart audio")
}

func (a *Adapter) session() (Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sess == nil {
		return nil, ErrNotConnected
	}
	return a.sess, nil
}

// SendWeightedPrompts pushes the outbound weighted set: prompts with weight
// above zero whose text the generator has not filtered. Transport failures
// are reported but never fatal to the session.
func (a *Adapter) SendWeightedPrompts(ctx context.Context, prompts []music.Prompt) error {
	sess, err := a.session()
	if err != nil {
		return err
	}

	a.mu.Lock()
	out := make([]music.WeightedPrompt, 0, len(prompts))
	for _, p := range prompts {
		if p.Weight <= 0 {
			continue
		}
		if _, rejected := a.filtered[p.Text]; rejected {
			continue
		}
		out = append(out, music.WeightedPrompt{Text: p.Text, Weight: p.Weight})
	}
	a.mu.Unlock()

	if err := sess.SetWeightedPrompts(ctx, out); err != nil {
		a.notice("Failed to update prompts")
		return err
	}
	return nil
}

// SendConfig pushes the generation config as-is.
func (a *Adapter) SendConfig(ctx context.Context, cfg music.GenerationConfig) error {
	sess, err := a.session()
	if err != nil {
		return err
	}
	if err := sess.SetGenerationConfig(ctx, cfg); err != nil {
		a.notice("Failed to update settings")
		return err
	}
	return nil
}

// FilteredPrompts returns a snapshot of the texts the generator rejected.
func (a *Adapter) FilteredPrompts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.filtered))
	for t := range a.filtered {
		out = append(out, t)
	}
	return out
}

// IsFiltered reports whether a prompt text was rejected by the generator.
func (a *Adapter) IsFiltered(text string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.filtered[text]
	return ok
}

// Play drives the stopped/paused -> loading transition: fade the gain in,
// start recording on a fresh cycle, and ask the session to play.
func (a *Adapter) Play(ctx context.Context) error {
	if !a.IsConnected() {
		ok, err := a.Connect(ctx, Options{})
		if !ok {
			if err == nil {
				err = ErrNotConnected
			}
			return err
		}
	}
	sess, err := a.session()
	if err != nil {
		return err
	}

	fresh := a.machine.State() == player.StateStopped
	a.machine.Transition(player.StateLoading)
	a.sink.ResetGain()
	a.sink.FadeIn(fadeSeconds)
	if fresh && a.rec != nil {
		a.rec.Start()
	}

	if err := sess.Play(ctx); err != nil {
		a.notice("Playback failed to start")
		return err
	}
	return nil
}

// Pause fades out, resets the cursor so the next play rebuilds the preroll,
// and stops the recording window.
func (a *Adapter) Pause(ctx context.Context) error {
	sess, err := a.session()
	if err != nil {
		return err
	}

	playErr := sess.Pause(ctx)
	a.machine.Transition(player.StatePaused)
	a.sink.FadeOutAndFlush(fadeSeconds)
	a.sched.ResetCursor()
	if a.rec != nil {
		a.rec.Stop()
	}

	if playErr != nil {
		a.notice("Failed to pause playback")
	}
	return playErr
}

// Stop ends the play cycle: fade out, reset the cursor, stop recording.
// The finalized clip is collected separately from the recording sink.
func (a *Adapter) Stop(ctx context.Context) error {
	sess, err := a.session()
	if err != nil {
		return err
	}

	stopErr := sess.Stop(ctx)
	a.machine.Transition(player.StateStopped)
	a.sink.FadeOutAndFlush(fadeSeconds)
	a.sched.ResetCursor()
	if a.rec != nil {
		a.rec.Stop()
	}

	if stopErr != nil {
		a.notice("Failed to stop playback")
	}
	return stopErr
}

// ResetContext asks the generator to drop its musical context and clears
// the filtered-prompt set, which only resets on a full session reset.
func (a *Adapter) ResetContext(ctx context.Context) error {
	sess, err := a.session()
	if err != nil {
		return err
	}
	if err := sess.ResetContext(ctx); err != nil {
		a.notice("Failed to reset context")
		return err
	}
	a.mu.Lock()
	a.filtered = make(map[string]struct{})
	a.mu.Unlock()
	return nil
}

// Teardown releases the session best-effort. It runs during shutdown where
// no caller can react, so failures are logged, never returned.
func (a *Adapter) Teardown() {
	a.mu.Lock()
	sess := a.sess
	a.sess = nil
	a.connState = Disconnected
	a.mu.Unlock()

	if sess == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sess.Stop(ctx); err != nil {
		log.Printf("Teardown: stop failed: %v", err)
	}
	if err := sess.Close(); err != nil {
		log.Printf("Teardown: close failed: %v", err)
	}
	a.machine.Transition(player.StateStopped)
}
