package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/satindergrewal/promptwave/internal/music"
)

// clientMessage is an outbound control frame.
type clientMessage struct {
	Setup              *setupPayload   `json:"setup,omitempty"`
	SetWeightedPrompts *promptsPayload `json:"setWeightedPrompts,omitempty"`
	SetConfig          *configPayload  `json:"setMusicGenerationConfig,omitempty"`
	PlaybackControl    string          `json:"playbackControl,omitempty"`
}

type setupPayload struct {
	Model string `json:"model"`
}

type promptsPayload struct {
	WeightedPrompts []music.WeightedPrompt `json:"weightedPrompts"`
}

type configPayload struct {
	Config music.GenerationConfig `json:"musicGenerationConfig"`
}

// LiveSession is the real generation session over a WebSocket. Writes are
// serialized with a mutex; a single read pump delivers inbound messages in
// arrival order.
type LiveSession struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	closed  chan struct{}
	once    sync.Once
}

// DialOptions configure a live session connection.
type DialOptions struct {
	URL    string
	APIKey string
	Model  string
}

// Dial connects to the generation service and starts the read pump.
func Dial(ctx context.Context, opts DialOptions, cb Callbacks) (*LiveSession, error) {
	header := http.Header{}
	if opts.APIKey != "" {
		header.Set("Authorization", "Bearer "+opts.APIKey)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, opts.URL, header)
	if err != nil {
		return nil, fmt.Errorf("dial session: %w", err)
	}

	s := &LiveSession{
		conn:   conn,
		closed: make(chan struct{}),
	}

	if err := s.write(clientMessage{Setup: &setupPayload{Model: opts.Model}}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("session setup: %w", err)
	}

	go s.readPump(cb)
	return s, nil
}

func (s *LiveSession) readPump(cb Callbacks) {
	defer func() {
		if cb.OnClose != nil {
			cb.OnClose()
		}
	}()

	for {
		var msg ServerMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			select {
			case <-s.closed:
				// local close, not an error
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && cb.OnError != nil {
					cb.OnError(fmt.Errorf("session read: %w", err))
				}
			}
			return
		}
		if cb.OnMessage != nil {
			cb.OnMessage(msg)
		}
	}
}

func (s *LiveSession) write(msg clientMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(msg)
}

func (s *LiveSession) SetWeightedPrompts(ctx context.Context, prompts []music.WeightedPrompt) error {
	return s.write(clientMessage{SetWeightedPrompts: &promptsPayload{WeightedPrompts: prompts}})
}

func (s *LiveSession) SetGenerationConfig(ctx context.Context, cfg music.GenerationConfig) error {
	return s.write(clientMessage{SetConfig: &configPayload{Config: cfg}})
}

func (s *LiveSession) Play(ctx context.Context) error {
	return s.write(clientMessage{PlaybackControl: "play"})
}

func (s *LiveSession) Pause(ctx context.Context) error {
	return s.write(clientMessage{PlaybackControl: "pause"})
}

func (s *LiveSession) Stop(ctx context.Context) error {
	return s.write(clientMessage{PlaybackControl: "stop"})
}

func (s *LiveSession) ResetContext(ctx context.Context) error {
	return s.write(clientMessage{PlaybackControl: "resetContext"})
}

// Close tears down the connection. The read pump exits and fires OnClose.
func (s *LiveSession) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closed)
		s.writeMu.Lock()
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}
