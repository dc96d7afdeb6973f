package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrDecode indicates a malformed base64 payload from the session.
	ErrDecode = errors.New("audio: base64 decode failed")
	// ErrMalformedAudio indicates PCM data whose length does not divide
	// evenly into 16-bit frames for the given channel count.
	ErrMalformedAudio = errors.New("audio: malformed PCM data")
)

// Buffer holds decoded audio as normalized per-channel float samples.
type Buffer struct {
	SampleRate int
	Data       [][]float32 // one slice per channel, equal lengths
}

// Frames returns the number of sample frames in the buffer.
func (b *Buffer) Frames() int {
	if len(b.Data) == 0 {
		return 0
	}
	return len(b.Data[0])
}

// Duration returns the buffer's play time in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate == 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// DecodeBase64 decodes a base64 session payload into raw bytes.
func DecodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return data, nil
}

// PCMToBuffer interprets data as little-endian signed 16-bit samples
// interleaved by channel and de-interleaves them into a Buffer with
// each sample normalized to [-1, 1].
func PCMToBuffer(data []byte, sampleRate, channels int) (*Buffer, error) {
	if channels < 1 {
		return nil, fmt.Errorf("%w: channel count %d", ErrMalformedAudio, channels)
	}
	if len(data)%(BytesPerSample*channels) != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of %d-channel frames", ErrMalformedAudio, len(data), channels)
	}

	frames := len(data) / BytesPerSample / channels
	buf := &Buffer{
		SampleRate: sampleRate,
		Data:       make([][]float32, channels),
	}
	for ch := range buf.Data {
		buf.Data[ch] = make([]float32, frames)
	}

	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * BytesPerSample
			s := int16(binary.LittleEndian.Uint16(data[off : off+2]))
			buf.Data[ch][i] = float32(s) / 32768.0
		}
	}
	return buf, nil
}

// Interleave converts a Buffer back to interleaved int16 samples,
// clipping to the int16 range.
func Interleave(buf *Buffer) []int16 {
	frames := buf.Frames()
	channels := len(buf.Data)
	out := make([]int16, frames*channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			v := float64(buf.Data[ch][i]) * 32768.0
			if v > 32767 {
				v = 32767
			} else if v < -32768 {
				v = -32768
			}
			out[i*channels+ch] = int16(v)
		}
	}
	return out
}

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// BytesToSamples converts little-endian bytes to int16 samples.
// A trailing odd byte is ignored.
func BytesToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
	}
	return samples
}
