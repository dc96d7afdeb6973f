package session

import (
	"context"
	"log"
	"time"

	"github.com/satindergrewal/promptwave/internal/music"
	"github.com/satindergrewal/promptwave/internal/player"
)

// mockStartupDelay simulates the generator's warm-up before audio flows.
const mockStartupDelay = time.Second

// MockSession is a local stand-in for the generation service. Every control
// call succeeds; Play simulates the loading -> playing warm-up with a fixed
// timer. It keeps the whole client operable with no backend.
type MockSession struct {
	machine *player.Machine
}

func NewMockSession(machine *player.Machine) *MockSession {
	return &MockSession{machine: machine}
}

func (m *MockSession) SetWeightedPrompts(ctx context.Context, prompts []music.WeightedPrompt) error {
	log.Printf("Mock session: set %d weighted prompts", len(prompts))
	return nil
}

func (m *MockSession) SetGenerationConfig(ctx context.Context, cfg music.GenerationConfig) error {
	log.Println("Mock session: set generation config")
	return nil
}

func (m *MockSession) Play(ctx context.Context) error {
	log.Println("Mock session: play")
	m.machine.Transition(player.StateLoading)
	time.AfterFunc(mockStartupDelay, func() {
		if m.machine.State() == player.StateLoading {
			m.machine.Transition(player.StatePlaying)
		}
	})
	return nil
}

func (m *MockSession) Pause(ctx context.Context) error {
	log.Println("Mock session: pause")
	return nil
}

func (m *MockSession) Stop(ctx context.Context) error {
	log.Println("Mock session: stop")
	return nil
}

func (m *MockSession) ResetContext(ctx context.Context) error {
	log.Println("Mock session: reset context")
	return nil
}

func (m *MockSession) Close() error {
	return nil
}
