package control

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/satindergrewal/promptwave/internal/music"
	"github.com/satindergrewal/promptwave/internal/session"
)

// ErrEmptyPrompt rejects prompts that are blank after trimming.
var ErrEmptyPrompt = errors.New("control: prompt text is empty")

// ErrUnknownPrompt is returned for operations on a missing prompt id.
var ErrUnknownPrompt = errors.New("control: unknown prompt id")

// sendTimeout bounds a single debounced outbound send.
const sendTimeout = 5 * time.Second

// State is the owning container for the prompt map and the generation
// config. All mutation funnels through it; edits feed debouncers that push
// coalesced updates to the session adapter. The adapter only ever sees
// read-only snapshots.
type State struct {
	adapter *session.Adapter

	mu      sync.Mutex
	prompts map[string]music.Prompt
	config  music.GenerationConfig

	promptDeb *Debouncer
	configDeb *Debouncer
}

func NewState(adapter *session.Adapter) *State {
	s := &State{
		adapter: adapter,
		prompts: make(map[string]music.Prompt),
		config:  music.DefaultConfig(),
	}
	s.promptDeb = NewDebouncer(PromptDebounce, s.pushPrompts)
	s.configDeb = NewDebouncer(ConfigDebounce, s.pushConfig)
	return s
}

// AddPrompt creates a prompt with weight 1.0 and queues an update.
func (s *State) AddPrompt(text, color string) (music.Prompt, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return music.Prompt{}, ErrEmptyPrompt
	}
	p := music.Prompt{
		ID:     uuid.NewString(),
		Text:   text,
		Weight: 1.0,
		Color:  color,
	}
	s.mu.Lock()
	s.prompts[p.ID] = p
	s.mu.Unlock()

	s.promptDeb.Trigger()
	return p, nil
}

// SetPromptWeight updates a prompt's slider weight, clamped to [0, 2].
// A weight of zero keeps the prompt but drops it from outbound sets.
func (s *State) SetPromptWeight(id string, weight float64) error {
	s.mu.Lock()
	p, ok := s.prompts[id]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownPrompt
	}
	p.Weight = music.ClampWeight(weight)
	s.prompts[id] = p
	s.mu.Unlock()

	s.promptDeb.Trigger()
	return nil
}

// RemovePrompt deletes a prompt and queues an update.
func (s *State) RemovePrompt(id string) error {
	s.mu.Lock()
	if _, ok := s.prompts[id]; !ok {
		s.mu.Unlock()
		return ErrUnknownPrompt
	}
	delete(s.prompts, id)
	s.mu.Unlock()

	s.promptDeb.Trigger()
	return nil
}

// Prompts returns a snapshot of all prompts, including weight-zero and
// filtered ones: the UI keeps showing them.
func (s *State) Prompts() []music.Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]music.Prompt, 0, len(s.prompts))
	for _, p := range s.prompts {
		out = append(out, p)
	}
	return out
}

// PromptCount returns the number of prompts.
func (s *State) PromptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

// Config returns the current complete generation config.
func (s *State) Config() music.GenerationConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// UpdateConfig merges a partial update onto the current config through the
// builder and queues a debounced send. Absent fields are unchanged.
func (s *State) UpdateConfig(update music.GenerationConfig) {
	s.mu.Lock()
	s.config = music.FromConfig(s.config).ApplyUpdates(update).Build()
	s.mu.Unlock()

	s.configDeb.Trigger()
}

// SetConfig replaces the config wholesale. Used for explicit clears, where
// a field switches back to auto by being absent from the new config.
func (s *State) SetConfig(cfg music.GenerationConfig) {
	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()

	s.configDeb.Trigger()
}

// ResetConfig restores the defaults and queues a send.
func (s *State) ResetConfig() {
	s.SetConfig(music.DefaultConfig())
}

// pushPrompts is the debounced prompt flush. It reads the state at fire
// time, so a burst of slider moves produces one send with the final values.
// Fires only while connected and with at least one prompt present.
func (s *State) pushPrompts() {
	if !s.adapter.IsConnected() || s.PromptCount() == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := s.adapter.SendWeightedPrompts(ctx, s.Prompts()); err != nil {
		log.Printf("Prompt update failed: %v", err)
	}
}

// pushConfig is the debounced config flush.
func (s *State) pushConfig() {
	if !s.adapter.IsConnected() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := s.adapter.SendConfig(ctx, s.Config()); err != nil {
		log.Printf("Config update failed: %v", err)
	}
}

// Flush cancels pending debounce timers. Used on shutdown.
func (s *State) Flush() {
	s.promptDeb.Cancel()
	s.configDeb.Cancel()
}
