// Package mixgraph implements the audio mix graph: it is called once per
// audio callback with a stereo int16 buffer, drives the decoder's render,
// mixes captured input through the ring buffer, routes the effects chain
// at exactly one stage, and applies per-bus volume/pan/mute before handing
// the buffer to the sink.
package mixgraph

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/schollz/regroove/internal/decoder"
	"github.com/schollz/regroove/internal/effects"
	"github.com/schollz/regroove/internal/ringbuf"
)

// FXRoute is the single stage at which the effects chain is inserted.
type FXRoute int

const (
	FXRouteNone FXRoute = iota
	FXRouteMaster
	FXRoutePlayback
	FXRouteInput
)

// Bus is a mix bus with atomically-updated parameters so the audio
// callback never blocks on a mutex held across a render.
type Bus struct {
	volume atomic.Uint64 // math.Float64bits
	pan    atomic.Uint64
	mute   atomic.Bool
}

func newBus(volume, pan float64) *Bus {
	b := &Bus{}
	b.SetVolume(volume)
	b.SetPan(pan)
	return b
}

func (b *Bus) Volume() float64      { return math.Float64frombits(b.volume.Load()) }
func (b *Bus) SetVolume(v float64)  { b.volume.Store(math.Float64bits(clamp01(v))) }
func (b *Bus) Pan() float64         { return math.Float64frombits(b.pan.Load()) }
func (b *Bus) SetPan(p float64)     { b.pan.Store(math.Float64bits(clamp01(p))) }
func (b *Bus) Mute() bool           { return b.mute.Load() }
func (b *Bus) SetMute(m bool)       { b.mute.Store(m) }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Graph owns the three buses, the effects chain, the capture ring buffer,
// and a non-exclusive handle to the decoder.
type Graph struct {
	Decoder decoder.Decoder
	Capture *ringbuf.RingBuffer
	Chain   *effects.Chain

	Master   *Bus
	Playback *Bus
	Input    *Bus

	route   atomic.Int32
	playing atomic.Bool
	rate    int

	effectiveBPM atomic.Uint64
	pitchFactor  atomic.Uint64 // math.Float64bits; 1.0 until SetPitchFactor is called

	scratch []int16 // reused across renders, sized to the largest block seen

	// RenderMu is held for the duration of Render and is also taken by
	// internal/transport around an immediate seek, so a jump's per-channel
	// settings re-apply can never straddle a render.
	RenderMu sync.Mutex
}

// New builds a mix graph at the given sample rate.
func New(rate int, capture *ringbuf.RingBuffer, chain *effects.Chain) *Graph {
	g := &Graph{
		Capture:  capture,
		Chain:    chain,
		Master:   newBus(1, 0.5),
		Playback: newBus(1, 0.5),
		Input:    newBus(1, 0.5),
		rate:     rate,
	}
	g.pitchFactor.Store(math.Float64bits(1))
	return g
}

func (g *Graph) SetDecoder(d decoder.Decoder) { g.Decoder = d }
func (g *Graph) SetPlaying(p bool)            { g.playing.Store(p) }
func (g *Graph) Playing() bool                { return g.playing.Load() }
func (g *Graph) SetRoute(r FXRoute)           { g.route.Store(int32(r)) }
func (g *Graph) Route() FXRoute               { return FXRoute(g.route.Load()) }

// EffectiveBPM returns the BPM last published by Render, already compensated
// for pitch (module_bpm / pitch_factor). Read by internal/midiclock.
func (g *Graph) EffectiveBPM() float64 {
	return math.Float64frombits(g.effectiveBPM.Load())
}

func (g *Graph) publishEffectiveBPM(bpm float64) {
	g.effectiveBPM.Store(math.Float64bits(bpm))
}

func (g *Graph) scratchBuf(n int) []int16 {
	if cap(g.scratch) < n {
		g.scratch = make([]int16, n)
	}
	return g.scratch[:n]
}

func zero(buf []int16) {
	for i := range buf {
		buf[i] = 0
	}
}

func saturatingAdd(a, b int16) int16 {
	sum := int32(a) + int32(b)
	if sum > 32767 {
		return 32767
	}
	if sum < -32768 {
		return -32768
	}
	return int16(sum)
}

func applyVolPan(buf []int16, frames int, volume, pan float64) {
	lvol := (1 - pan) * 2 * volume
	rvol := pan * 2 * volume
	for i := 0; i < frames; i++ {
		l := float64(buf[i*2]) * lvol
		r := float64(buf[i*2+1]) * rvol
		buf[i*2] = clampI16(l)
		buf[i*2+1] = clampI16(r)
	}
}

func mixAddVolPan(dst []int16, src []int16, frames int, volume, pan float64) {
	lvol := (1 - pan) * 2 * volume
	rvol := pan * 2 * volume
	for i := 0; i < frames; i++ {
		l := float64(src[i*2]) * lvol
		r := float64(src[i*2+1]) * rvol
		dst[i*2] = saturatingAdd(dst[i*2], clampI16(l))
		dst[i*2+1] = saturatingAdd(dst[i*2+1], clampI16(r))
	}
}

func clampI16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// Render fills buf (len == frames*2). It must never panic: any internal
// error degrades to silence for that frame.
func (g *Graph) Render(buf []int16, frames int) {
	g.RenderMu.Lock()
	defer g.RenderMu.Unlock()
	defer func() {
		if recover() != nil {
			zero(buf)
		}
	}()

	// 1. Zero the buffer.
	zero(buf)

	route := g.Route()
	playing := g.Playing()

	// 2. Render decoder into buffer if playing and playback bus unmuted.
	rendered := false
	if playing && !g.Playback.Mute() && g.Decoder != nil {
		g.Decoder.RenderAudio(buf, frames)
		rendered = true
		if route == FXRoutePlayback {
			g.Chain.Process(buf, frames, g.rate)
		}
		applyVolPan(buf, frames, g.Playback.Volume(), g.Playback.Pan())
	} else if route == FXRoutePlayback {
		// 3. Let reverb/delay tails decay even when not playing.
		g.Chain.Process(buf, frames, g.rate)
	}

	// 4/5. Mix in captured input.
	needed := frames * 2
	if !g.Input.Mute() {
		scratch := g.scratchBuf(needed)
		n := g.Capture.Read(scratch)
		for i := n; i < needed; i++ {
			scratch[i] = 0 // substitute silence for a short read
		}
		if n >= needed {
			if route == FXRouteInput {
				g.Chain.Process(scratch, frames, g.rate)
			}
			mixAddVolPan(buf, scratch, frames, g.Input.Volume(), g.Input.Pan())
		} else if route == FXRouteInput {
			// 5. No input available but the route still needs its tail.
			zero(scratch)
			g.Chain.Process(scratch, frames, g.rate)
			mixAddVolPan(buf, scratch, frames, g.Input.Volume(), g.Input.Pan())
		}
	} else if route == FXRouteInput {
		scratch := g.scratchBuf(needed)
		zero(scratch)
		g.Chain.Process(scratch, frames, g.rate)
		mixAddVolPan(buf, scratch, frames, g.Input.Volume(), g.Input.Pan())
	}

	// 6. Master-routed effects process the summed signal.
	if route == FXRouteMaster {
		g.Chain.Process(buf, frames, g.rate)
	}

	// 7. Master volume/pan, or silence if master is muted.
	if g.Master.Mute() {
		zero(buf)
	} else {
		applyVolPan(buf, frames, g.Master.Volume(), g.Master.Pan())
	}

	if rendered && g.Decoder != nil {
		moduleBPM := g.Decoder.CurrentBPM()
		g.publishEffectiveBPM(moduleBPM / g.PitchFactor())
	}
}

// PitchFactor returns the pitch factor last set by SetPitchFactor (1.0 until
// it is first called).
func (g *Graph) PitchFactor() float64 {
	return math.Float64frombits(g.pitchFactor.Load())
}

// SetPitchFactor informs the graph of the currently applied pitch factor so
// EffectiveBPM = module_bpm / pitch_factor can be published both here and on
// every subsequent Render (e.g. paused, still rendering tails). Call this
// whenever the decoder's SetPitch is used.
func (g *Graph) SetPitchFactor(moduleBPM, pitchFactor float64) {
	if pitchFactor == 0 {
		pitchFactor = 1
	}
	g.pitchFactor.Store(math.Float64bits(pitchFactor))
	g.publishEffectiveBPM(moduleBPM / pitchFactor)
}
