// Package sink defines the platform audio output boundary: stereo int16
// interleaved at 48 kHz in fixed-size blocks, plus a concrete implementation
// backed by github.com/ebitengine/oto/v3. internal/mixgraph does not import
// this package (cmd/regroove connects Graph.Render to a Sink's callback),
// so it is exercisable in tests without an audio device.
package sink

import (
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// Sink is the platform audio output boundary. Callback is invoked by the
// implementation whenever it needs more frames; it must fill buf (stereo
// int16 interleaved, len(buf) == frames*2) and must not block.
type Sink interface {
	Start(frames int, callback func(buf []int16)) error
	Close() error
}

// OtoSink drives an ebitengine/oto/v3 context. oto's API is a pull-based
// io.Reader player, so the render callback is adapted into a Read method
// on a small internal reader type.
type OtoSink struct {
	sampleRate int
	ctx        *oto.Context
	player     *oto.Player
	mu         sync.Mutex
	callback   func(buf []int16)
}

// NewOtoSink opens the default platform audio device at sampleRate (48000),
// stereo, 16-bit.
func NewOtoSink(sampleRate int) (*OtoSink, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("sink: open audio device: %w", err)
	}
	<-ready
	return &OtoSink{sampleRate: sampleRate, ctx: ctx}, nil
}

type pullReader struct {
	s *OtoSink
}

// Read is called by oto's player on its own internal goroutine; it must
// never block beyond producing the requested bytes, matching the "audio
// callback must be short and must never block" rule.
func (p *pullReader) Read(b []byte) (int, error) {
	frames := len(b) / 4 // 2 channels * 2 bytes/sample
	if frames == 0 {
		return 0, nil
	}
	buf := make([]int16, frames*2)
	p.s.mu.Lock()
	cb := p.s.callback
	p.s.mu.Unlock()
	if cb != nil {
		cb(buf)
	}
	for i, s := range buf {
		b[i*2] = byte(uint16(s))
		b[i*2+1] = byte(uint16(s) >> 8)
	}
	return frames * 4, nil
}

// Start begins continuous playback, invoking callback for every block.
func (s *OtoSink) Start(frames int, callback func(buf []int16)) error {
	s.mu.Lock()
	s.callback = callback
	s.mu.Unlock()

	var r io.Reader = &pullReader{s: s}
	s.player = s.ctx.NewPlayer(r)
	s.player.Play()
	return nil
}

// Close stops playback and releases the player.
func (s *OtoSink) Close() error {
	if s.player != nil {
		return s.player.Close()
	}
	return nil
}

// NullSink discards rendered audio; used in tests and headless runs where
// no platform audio device is desired.
type NullSink struct {
	mu       sync.Mutex
	callback func(buf []int16)
	closed   bool
}

func NewNullSink() *NullSink { return &NullSink{} }

func (n *NullSink) Start(frames int, callback func(buf []int16)) error {
	n.mu.Lock()
	n.callback = callback
	n.mu.Unlock()
	return nil
}

func (n *NullSink) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	return nil
}

// Pump manually drives one block through the registered callback; used by
// tests to simulate the audio driver's pull without a real device.
func (n *NullSink) Pump(frames int) []int16 {
	n.mu.Lock()
	cb := n.callback
	n.mu.Unlock()
	buf := make([]int16, frames*2)
	if cb != nil {
		cb(buf)
	}
	return buf
}

var _ Sink = (*OtoSink)(nil)
var _ Sink = (*NullSink)(nil)
