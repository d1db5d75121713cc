// Package effects implements the fixed-order stereo effects chain:
// distortion -> filter -> EQ -> compressor -> delay. Every effect shares
// the same in-place process entry point and a normalized [0,1] parameter
// set; semantic mapping to real units (Hz, dB, ms) stays internal to each
// effect.
package effects

import "math"

// Effect is one stage of the chain.
type Effect interface {
	Name() string
	Enabled() bool
	SetEnabled(bool)
	// Param gets/sets a named, normalized [0,1] parameter. Unknown names
	// are no-ops on Set and return 0 on Get, matching the "ignore unknown
	// binding, continue" parse-warning policy.
	Param(name string) float64
	SetParam(name string, v float64)
	Process(buf []int16, frames int, rate int)
	// Reset clears internal delay-line / filter-state memory so effect
	// tails don't bleed across module loads.
	Reset()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
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

// Chain runs the fixed five-stage pipeline over a stereo int16 buffer.
type Chain struct {
	Distortion *Distortion
	Filter     *Filter
	EQ         *EQ
	Compressor *Compressor
	Delay      *Delay
}

// NewChain builds a chain with every stage disabled and default parameters.
func NewChain() *Chain {
	return &Chain{
		Distortion: &Distortion{drive: 0.3},
		Filter:     &Filter{cutoff: 1.0, resonance: 0.2},
		EQ:         &EQ{low: 0.5, mid: 0.5, high: 0.5},
		Compressor: &Compressor{threshold: 0.7, ratio: 0.3, makeup: 0.5},
		Delay:      &Delay{time: 0.3, feedback: 0.3, mix: 0.3},
	}
}

// Stages returns the chain in its fixed processing order.
func (c *Chain) Stages() []Effect {
	return []Effect{c.Distortion, c.Filter, c.EQ, c.Compressor, c.Delay}
}

// Process runs every enabled stage, in order, over buf in place.
func (c *Chain) Process(buf []int16, frames int, rate int) {
	for _, e := range c.Stages() {
		if e.Enabled() {
			e.Process(buf, frames, rate)
		}
	}
}

// Reset clears every stage's internal memory.
func (c *Chain) Reset() {
	for _, e := range c.Stages() {
		e.Reset()
	}
}

// ---- Distortion --------------------------------------------------------

type Distortion struct {
	enabled bool
	drive   float64 // [0,1], 0 = clean, 1 = hard clip
}

func (d *Distortion) Name() string      { return "distortion" }
func (d *Distortion) Enabled() bool     { return d.enabled }
func (d *Distortion) SetEnabled(b bool) { d.enabled = b }
func (d *Distortion) Reset()            {}
func (d *Distortion) Param(name string) float64 {
	if name == "drive" {
		return d.drive
	}
	return 0
}
func (d *Distortion) SetParam(name string, v float64) {
	if name == "drive" {
		d.drive = clamp01(v)
	}
}

func (d *Distortion) Process(buf []int16, frames int, _ int) {
	gain := 1 + d.drive*20
	shape := 1 - d.drive*0.8
	for i := 0; i < frames*2 && i < len(buf); i++ {
		x := float64(buf[i]) / 32768 * gain
		y := math.Tanh(x) * shape
		buf[i] = clampI16(y * 32767)
	}
}

// ---- Filter (one-pole low-pass with resonance feedback) ----------------

type Filter struct {
	enabled        bool
	cutoff         float64 // [0,1] -> 20Hz..20kHz exponential
	resonance      float64
	stateL, stateR float64
}

func (f *Filter) Name() string      { return "filter" }
func (f *Filter) Enabled() bool     { return f.enabled }
func (f *Filter) SetEnabled(b bool) { f.enabled = b }
func (f *Filter) Reset()            { f.stateL, f.stateR = 0, 0 }
func (f *Filter) Param(name string) float64 {
	switch name {
	case "cutoff":
		return f.cutoff
	case "resonance":
		return f.resonance
	}
	return 0
}
func (f *Filter) SetParam(name string, v float64) {
	switch name {
	case "cutoff":
		f.cutoff = clamp01(v)
	case "resonance":
		f.resonance = clamp01(v)
	}
}

func (f *Filter) cutoffHz() float64 {
	return 20 * math.Pow(1000, f.cutoff) // 20Hz..20kHz
}

func (f *Filter) Process(buf []int16, frames int, rate int) {
	hz := f.cutoffHz()
	rc := 1 / (2 * math.Pi * hz)
	dt := 1 / float64(rate)
	alpha := dt / (rc + dt)
	res := 1 + f.resonance*3

	for i := 0; i < frames && i*2+1 < len(buf); i++ {
		l := float64(buf[i*2])
		r := float64(buf[i*2+1])
		f.stateL += alpha * (l*res - f.stateL)
		f.stateR += alpha * (r*res - f.stateR)
		buf[i*2] = clampI16(f.stateL)
		buf[i*2+1] = clampI16(f.stateR)
	}
}

// ---- EQ (three-band shelf/peak approximation) ---------------------------

type EQ struct {
	enabled           bool
	low, mid, high    float64 // [0,1], 0.5 = unity
	lowState, hiState float64
}

func (e *EQ) Name() string      { return "eq" }
func (e *EQ) Enabled() bool     { return e.enabled }
func (e *EQ) SetEnabled(b bool) { e.enabled = b }
func (e *EQ) Reset()            { e.lowState, e.hiState = 0, 0 }
func (e *EQ) Param(name string) float64 {
	switch name {
	case "low":
		return e.low
	case "mid":
		return e.mid
	case "high":
		return e.high
	}
	return 0
}
func (e *EQ) SetParam(name string, v float64) {
	switch name {
	case "low":
		e.low = clamp01(v)
	case "mid":
		e.mid = clamp01(v)
	case "high":
		e.high = clamp01(v)
	}
}

func (e *EQ) Process(buf []int16, frames int, rate int) {
	lowGain := (e.low - 0.5) * 2
	midGain := (e.mid - 0.5) * 2
	highGain := (e.high - 0.5) * 2
	alpha := 200.0 / float64(rate) // crude low-band split point

	for i := 0; i < frames && i*2+1 < len(buf); i++ {
		for ch := 0; ch < 2; ch++ {
			x := float64(buf[i*2+ch])
			state := &e.lowState
			if ch == 1 {
				state = &e.hiState
			}
			*state += alpha * (x - *state)
			low := *state
			high := x - low
			mid := x * 0.5
			y := x + low*lowGain + mid*midGain + high*highGain
			buf[i*2+ch] = clampI16(y)
		}
	}
}

// ---- Compressor ----------------------------------------------------------

type Compressor struct {
	enabled   bool
	threshold float64 // [0,1] -> -48dBFS..0dBFS
	ratio     float64 // [0,1] -> 1:1..20:1
	makeup    float64 // [0,1] -> 0..+24dB
	envelope  float64
}

func (c *Compressor) Name() string      { return "compressor" }
func (c *Compressor) Enabled() bool     { return c.enabled }
func (c *Compressor) SetEnabled(b bool) { c.enabled = b }
func (c *Compressor) Reset()            { c.envelope = 0 }
func (c *Compressor) Param(name string) float64 {
	switch name {
	case "threshold":
		return c.threshold
	case "ratio":
		return c.ratio
	case "makeup":
		return c.makeup
	}
	return 0
}
func (c *Compressor) SetParam(name string, v float64) {
	switch name {
	case "threshold":
		c.threshold = clamp01(v)
	case "ratio":
		c.ratio = clamp01(v)
	case "makeup":
		c.makeup = clamp01(v)
	}
}

func (c *Compressor) Process(buf []int16, frames int, rate int) {
	threshLin := math.Pow(10, (-48*(1-c.threshold))/20)
	ratio := 1 + c.ratio*19
	makeupLin := math.Pow(10, c.makeup*24/20)
	attack := math.Exp(-1 / (0.005 * float64(rate)))
	release := math.Exp(-1 / (0.1 * float64(rate)))

	for i := 0; i < frames && i*2+1 < len(buf); i++ {
		peak := math.Max(math.Abs(float64(buf[i*2])), math.Abs(float64(buf[i*2+1]))) / 32768
		if peak > c.envelope {
			c.envelope = attack*c.envelope + (1-attack)*peak
		} else {
			c.envelope = release*c.envelope + (1-release)*peak
		}
		gain := 1.0
		if c.envelope > threshLin {
			over := c.envelope / threshLin
			gain = (threshLin * math.Pow(over, 1/ratio)) / c.envelope
		}
		gain *= makeupLin
		buf[i*2] = clampI16(float64(buf[i*2]) * gain)
		buf[i*2+1] = clampI16(float64(buf[i*2+1]) * gain)
	}
}

// ---- Delay ----------------------------------------------------------------

const maxDelaySeconds = 2.0

type Delay struct {
	enabled      bool
	time         float64 // [0,1] -> 0..maxDelaySeconds
	feedback     float64 // [0,1] -> 0..0.95
	mix          float64 // [0,1] dry/wet
	lineL, lineR []int16
	writePos     int
}

func (d *Delay) Name() string      { return "delay" }
func (d *Delay) Enabled() bool     { return d.enabled }
func (d *Delay) SetEnabled(b bool) { d.enabled = b }
func (d *Delay) Param(name string) float64 {
	switch name {
	case "time":
		return d.time
	case "feedback":
		return d.feedback
	case "mix":
		return d.mix
	}
	return 0
}
func (d *Delay) SetParam(name string, v float64) {
	switch name {
	case "time":
		d.time = clamp01(v)
	case "feedback":
		d.feedback = clamp01(v)
	case "mix":
		d.mix = clamp01(v)
	}
}

// Reset clears the delay line so inter-song tails don't bleed through on
// module load.
func (d *Delay) Reset() {
	for i := range d.lineL {
		d.lineL[i] = 0
	}
	for i := range d.lineR {
		d.lineR[i] = 0
	}
	d.writePos = 0
}

func (d *Delay) ensureLine(rate int) {
	want := int(maxDelaySeconds * float64(rate))
	if len(d.lineL) != want {
		d.lineL = make([]int16, want)
		d.lineR = make([]int16, want)
		d.writePos = 0
	}
}

func (d *Delay) Process(buf []int16, frames int, rate int) {
	d.ensureLine(rate)
	n := len(d.lineL)
	if n == 0 {
		return
	}
	delaySamples := int(d.time * maxDelaySeconds * float64(rate))
	if delaySamples >= n {
		delaySamples = n - 1
	}
	fb := d.feedback * 0.95

	for i := 0; i < frames && i*2+1 < len(buf); i++ {
		readPos := (d.writePos - delaySamples + n) % n
		wetL := d.lineL[readPos]
		wetR := d.lineR[readPos]

		dryL := buf[i*2]
		dryR := buf[i*2+1]

		d.lineL[d.writePos] = clampI16(float64(dryL) + float64(wetL)*fb)
		d.lineR[d.writePos] = clampI16(float64(dryR) + float64(wetR)*fb)
		d.writePos = (d.writePos + 1) % n

		buf[i*2] = clampI16(float64(dryL)*(1-d.mix) + float64(wetL)*d.mix)
		buf[i*2+1] = clampI16(float64(dryR)*(1-d.mix) + float64(wetR)*d.mix)
	}
}
