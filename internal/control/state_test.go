package control

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/satindergrewal/promptwave/internal/audio"
	"github.com/satindergrewal/promptwave/internal/music"
	"github.com/satindergrewal/promptwave/internal/player"
	"github.com/satindergrewal/promptwave/internal/session"
)

// recordingSession captures outbound sends for assertions.
type recordingSession struct {
	mu      sync.Mutex
	prompts [][]music.WeightedPrompt
	configs []music.GenerationConfig
}

func (r *recordingSession) SetWeightedPrompts(ctx context.Context, p []music.WeightedPrompt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, p)
	return nil
}

func (r *recordingSession) SetGenerationConfig(ctx context.Context, cfg music.GenerationConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = append(r.configs, cfg)
	return nil
}

func (r *recordingSession) Play(ctx context.Context) error         { return nil }
func (r *recordingSession) Pause(ctx context.Context) error        { return nil }
func (r *recordingSession) Stop(ctx context.Context) error         { return nil }
func (r *recordingSession) ResetContext(ctx context.Context) error { return nil }
func (r *recordingSession) Close() error                           { return nil }

func (r *recordingSession) promptSends() [][]music.WeightedPrompt {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]music.WeightedPrompt, len(r.prompts))
	copy(out, r.prompts)
	return out
}

func (r *recordingSession) configSends() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.configs)
}

// connectedState builds a State over an adapter holding sess.
func connectedState(t *testing.T, sess session.Session) *State {
	t.Helper()
	machine := player.NewMachine()
	sink := player.NewRenderSink(audio.SampleRate, audio.Channels)
	sched := player.NewScheduler(sink, machine, 2.0)
	dial := func(ctx context.Context, cb session.Callbacks) (session.Session, error) {
		return sess, nil
	}
	adapter := session.NewAdapter(dial, machine, sched, sink)
	if ok, err := adapter.Connect(context.Background(), session.Options{}); !ok || err != nil {
		t.Fatalf("Connect = (%v, %v)", ok, err)
	}
	return NewState(adapter)
}

func disconnectedState() *State {
	machine := player.NewMachine()
	sink := player.NewRenderSink(audio.SampleRate, audio.Channels)
	sched := player.NewScheduler(sink, machine, 2.0)
	dial := func(ctx context.Context, cb session.Callbacks) (session.Session, error) {
		return nil, context.DeadlineExceeded
	}
	return NewState(session.NewAdapter(dial, machine, sched, sink))
}

func TestAddPromptValidation(t *testing.T) {
	s := connectedState(t, &recordingSession{})

	if _, err := s.AddPrompt("   ", "#fff"); err != ErrEmptyPrompt {
		t.Errorf("AddPrompt(blank) error = %v, want ErrEmptyPrompt", err)
	}

	p, err := s.AddPrompt("  warm jazz  ", "#9900ff")
	if err != nil {
		t.Fatalf("AddPrompt error: %v", err)
	}
	if p.Text != "warm jazz" {
		t.Errorf("Prompt text = %q, want trimmed %q", p.Text, "warm jazz")
	}
	if p.Weight != 1.0 {
		t.Errorf("New prompt weight = %v, want 1.0", p.Weight)
	}
	if p.ID == "" {
		t.Error("New prompt has empty id")
	}
}

func TestSetPromptWeightClamps(t *testing.T) {
	s := connectedState(t, &recordingSession{})
	p, _ := s.AddPrompt("drums", "")

	if err := s.SetPromptWeight(p.ID, 5.0); err != nil {
		t.Fatalf("SetPromptWeight error: %v", err)
	}
	if got := s.Prompts()[0].Weight; got != music.MaxWeight {
		t.Errorf("Weight after over-range set = %v, want %v", got, music.MaxWeight)
	}

	if err := s.SetPromptWeight(p.ID, -1.0); err != nil {
		t.Fatalf("SetPromptWeight error: %v", err)
	}
	if got := s.Prompts()[0].Weight; got != music.MinWeight {
		t.Errorf("Weight after under-range set = %v, want %v", got, music.MinWeight)
	}

	if err := s.SetPromptWeight("missing-id", 1.0); err != ErrUnknownPrompt {
		t.Errorf("SetPromptWeight(unknown) error = %v, want ErrUnknownPrompt", err)
	}
}

func TestRemovePrompt(t *testing.T) {
	s := connectedState(t, &recordingSession{})
	p, _ := s.AddPrompt("strings", "")

	if err := s.RemovePrompt(p.ID); err != nil {
		t.Fatalf("RemovePrompt error: %v", err)
	}
	if s.PromptCount() != 0 {
		t.Errorf("PromptCount after remove = %d, want 0", s.PromptCount())
	}
	if err := s.RemovePrompt(p.ID); err != ErrUnknownPrompt {
		t.Errorf("Second remove error = %v, want ErrUnknownPrompt", err)
	}
}

func TestPromptBurstCoalescesToOneSend(t *testing.T) {
	sess := &recordingSession{}
	s := connectedState(t, sess)

	p, _ := s.AddPrompt("ambient pads", "")
	// Slider drag: many weight updates in quick succession
	for _, w := range []float64{0.2, 0.5, 0.9, 1.3, 1.7} {
		s.SetPromptWeight(p.ID, w)
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(PromptDebounce + 200*time.Millisecond)

	sends := sess.promptSends()
	if len(sends) != 1 {
		t.Fatalf("Prompt sends after burst = %d, want 1", len(sends))
	}
	// The one send reflects the final value, not any intermediate
	last := sends[0]
	if len(last) != 1 || last[0].Weight != 1.7 {
		t.Errorf("Sent prompts = %+v, want single prompt at weight 1.7", last)
	}
}

func TestNoPromptSendWhileDisconnected(t *testing.T) {
	s := disconnectedState()
	s.AddPrompt("techno", "")

	time.Sleep(PromptDebounce + 150*time.Millisecond)
	// Nothing to assert on a session that was never created; reaching here
	// without a panic means the flush checked the connection first.
	if s.PromptCount() != 1 {
		t.Errorf("PromptCount = %d, want 1", s.PromptCount())
	}
}

func TestNoPromptSendWithZeroPrompts(t *testing.T) {
	sess := &recordingSession{}
	s := connectedState(t, sess)

	p, _ := s.AddPrompt("glitch", "")
	s.RemovePrompt(p.ID)

	time.Sleep(PromptDebounce + 150*time.Millisecond)
	if got := len(sess.promptSends()); got != 0 {
		t.Errorf("Prompt sends with empty set = %d, want 0", got)
	}
}

func TestUpdateConfigMergesPartial(t *testing.T) {
	sess := &recordingSession{}
	s := connectedState(t, sess)

	bpm := 120
	s.UpdateConfig(music.GenerationConfig{BPM: &bpm})

	cfg := s.Config()
	if cfg.BPM == nil || *cfg.BPM != 120 {
		t.Errorf("BPM after partial update = %v, want 120", cfg.BPM)
	}
	// Untouched defaults survive the merge
	if cfg.Temperature == nil || *cfg.Temperature != 1.1 {
		t.Errorf("Temperature after partial update = %v, want 1.1 (unchanged)", cfg.Temperature)
	}
}

func TestSetConfigReplacesWholesale(t *testing.T) {
	sess := &recordingSession{}
	s := connectedState(t, sess)

	bpm := 90
	s.UpdateConfig(music.GenerationConfig{BPM: &bpm})

	// Wholesale replace without BPM: explicit clear back to auto
	temp := 0.8
	s.SetConfig(music.GenerationConfig{Temperature: &temp})

	cfg := s.Config()
	if cfg.BPM != nil {
		t.Errorf("BPM after wholesale replace = %v, want nil (cleared)", *cfg.BPM)
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0.8 {
		t.Errorf("Temperature = %v, want 0.8", cfg.Temperature)
	}
}

func TestResetConfigRestoresDefaults(t *testing.T) {
	sess := &recordingSession{}
	s := connectedState(t, sess)

	bpm := 150
	s.UpdateConfig(music.GenerationConfig{BPM: &bpm})
	s.ResetConfig()

	cfg := s.Config()
	if cfg.BPM != nil {
		t.Error("BPM survived ResetConfig")
	}
	if cfg.Temperature == nil || *cfg.Temperature != 1.1 {
		t.Errorf("Temperature after reset = %v, want 1.1", cfg.Temperature)
	}

	time.Sleep(ConfigDebounce + 150*time.Millisecond)
	if sess.configSends() == 0 {
		t.Error("ResetConfig produced no debounced send")
	}
}

func TestConfigBurstCoalesces(t *testing.T) {
	sess := &recordingSession{}
	s := connectedState(t, sess)

	for i := 60; i < 70; i++ {
		bpm := i
		s.UpdateConfig(music.GenerationConfig{BPM: &bpm})
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(ConfigDebounce + 200*time.Millisecond)
	if got := sess.configSends(); got != 1 {
		t.Errorf("Config sends after burst = %d, want 1", got)
	}
}
