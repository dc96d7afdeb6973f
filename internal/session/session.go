package session

import (
	"context"

	"github.com/satindergrewal/promptwave/internal/music"
)

// Session is the generation-session contract. Both the live service
// connection and the local mock implement it; the adapter picks one at
// connect time.
type Session interface {
	SetWeightedPrompts(ctx context.Context, prompts []music.WeightedPrompt) error
	SetGenerationConfig(ctx context.Context, cfg music.GenerationConfig) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Stop(ctx context.Context) error
	ResetContext(ctx context.Context) error
	Close() error
}

// ServerMessage is an inbound frame from the generation session.
type ServerMessage struct {
	SetupComplete  bool            `json:"setupComplete,omitempty"`
	FilteredPrompt *FilteredPrompt `json:"filteredPrompt,omitempty"`
	ServerContent  *ServerContent  `json:"serverContent,omitempty"`
}

// FilteredPrompt reports a prompt the remote generator rejected.
type FilteredPrompt struct {
	Text           string `json:"text"`
	FilteredReason string `json:"filteredReason"`
}

// ServerContent carries generated audio.
type ServerContent struct {
	AudioChunks []AudioChunk `json:"audioChunks"`
}

// AudioChunk is one base64-encoded PCM payload.
type AudioChunk struct {
	Data string `json:"data"`
}

// Callbacks receive inbound session events. OnMessage is invoked strictly
// in arrival order from a single dispatch goroutine.
type Callbacks struct {
	OnMessage func(ServerMessage)
	OnError   func(error)
	OnClose   func()
}
