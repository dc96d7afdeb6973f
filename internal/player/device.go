package player

import (
	"fmt"
	"log"

	"github.com/ebitengine/oto/v3"

	"github.com/satindergrewal/promptwave/internal/audio"
)

// Device binds a RenderSink to the system audio output. The oto player
// pulls PCM from the sink continuously, which is what advances the audio
// clock in production.
type Device struct {
	ctx    *oto.Context
	player *oto.Player
}

// OpenDevice initializes the system audio context and starts pulling from
// the sink. Returns an error if no output device is available.
func OpenDevice(sink *RenderSink) (*Device, error) {
	op := &oto.NewContextOptions{
		SampleRate:   audio.SampleRate,
		ChannelCount: audio.Channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	<-ready

	p := ctx.NewPlayer(sink)
	p.Play()

	log.Printf("Audio device open (rate=%d, channels=%d)", audio.SampleRate, audio.Channels)
	return &Device{ctx: ctx, player: p}, nil
}

// Close stops pulling from the sink and releases the player.
func (d *Device) Close() error {
	return d.player.Close()
}
