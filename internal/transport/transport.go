// Package transport implements the commit semantics layered on top of the
// decoder's own queue primitives: immediate vs. queued jump commit points,
// cancellation-by-reissue, derived solo, pattern-mode scrub-vs-queue, and
// the 16-step loop bar.
package transport

import (
	"github.com/schollz/regroove/internal/decoder"
	"github.com/schollz/regroove/internal/mixgraph"
)

// pendingQueue tracks the last queued navigation action so an identical
// reissue can cancel it instead of re-queueing a duplicate.
type pendingQueue struct {
	active    bool
	action    string // "next", "prev", "order", "pattern"
	parameter int
}

// Transport wraps a decoder.Decoder and a mix graph to add the commit-point
// and cancellation policy the decoder itself doesn't know about.
type Transport struct {
	Decoder decoder.Decoder
	Graph   *mixgraph.Graph

	patternMode bool // off = scrub immediately, on = queue
	queue       pendingQueue

	// channelMuteQueued mirrors per-channel queued mute/solo cancel-by-
	// reissue state; the decoder commits these at the pattern boundary.
	channelMuteQueued map[int]string
}

func New(d decoder.Decoder, g *mixgraph.Graph) *Transport {
	return &Transport{Decoder: d, Graph: g, channelMuteQueued: make(map[int]string)}
}

// SetPatternMode toggles whether the scrub controls act immediately or
// queue at the next pattern boundary.
func (t *Transport) SetPatternMode(enabled bool) {
	t.patternMode = enabled
	t.Decoder.SetPatternMode(enabled)
}

func (t *Transport) PatternMode() bool { return t.patternMode }

// JumpToOrder performs an immediate jump, re-applying per-channel settings
// across the seek (the decoder may reset them) and excluding the mix
// callback for the duration of the jump.
func (t *Transport) JumpToOrder(order int) {
	t.withMixExcluded(func() {
		saved := t.captureChannelSettings()
		t.Decoder.JumpToOrder(order)
		t.restoreChannelSettings(saved)
	})
}

func (t *Transport) JumpToPattern(pattern int) {
	t.withMixExcluded(func() {
		saved := t.captureChannelSettings()
		t.Decoder.JumpToPattern(pattern)
		t.restoreChannelSettings(saved)
	})
}

func (t *Transport) withMixExcluded(fn func()) {
	if t.Graph != nil {
		t.Graph.RenderMu.Lock()
		defer t.Graph.RenderMu.Unlock()
	}
	fn()
}

type channelSetting struct {
	volume, pan float64
	muted       bool
}

func (t *Transport) captureChannelSettings() []channelSetting {
	n := t.Decoder.NumChannels()
	out := make([]channelSetting, n)
	for ch := 0; ch < n; ch++ {
		out[ch] = channelSetting{
			volume: t.Decoder.ChannelVolume(ch),
			pan:    t.Decoder.ChannelPanning(ch),
			muted:  t.Decoder.IsChannelMuted(ch),
		}
	}
	return out
}

func (t *Transport) restoreChannelSettings(saved []channelSetting) {
	for ch, s := range saved {
		t.Decoder.SetChannelPanning(ch, s.pan)
		t.Decoder.SetChannelVolume(ch, s.volume)
		if t.Decoder.IsChannelMuted(ch) != s.muted {
			t.Decoder.ToggleChannelMute(ch)
		}
	}
}

// QueueNextOrder / QueuePrevOrder / QueueOrder / QueuePattern commit at row
// 0 of the next pattern (owned by the decoder). Reissuing the identical
// queued action while pending cancels it instead.
func (t *Transport) QueueNextOrder() { t.toggleQueue("next", 0, t.Decoder.QueueNextOrder) }
func (t *Transport) QueuePrevOrder() { t.toggleQueue("prev", 0, t.Decoder.QueuePrevOrder) }

func (t *Transport) QueueOrder(order int) {
	t.toggleQueue("order", order, func() { t.Decoder.QueueOrder(order) })
}

func (t *Transport) QueuePattern(pattern int) {
	t.toggleQueue("pattern", pattern, func() { t.Decoder.QueuePattern(pattern) })
}

func (t *Transport) toggleQueue(kind string, parameter int, issue func()) {
	if t.queue.active && t.queue.action == kind && t.queue.parameter == parameter &&
		t.Decoder.QueuedJumpType() != decoder.QueueNone {
		t.Decoder.ClearPendingJump()
		t.queue = pendingQueue{}
		return
	}
	issue()
	t.queue = pendingQueue{active: true, action: kind, parameter: parameter}
}

// ScrubPrevOrder / ScrubNextOrder implement the `<<`/`>>` controls, whose
// semantics flip between immediate ("scrub") and queued depending on
// pattern mode.
func (t *Transport) ScrubPrevOrder() {
	if t.patternMode {
		t.QueuePrevOrder()
		return
	}
	t.JumpToOrder(t.Decoder.CurrentOrder() - 1)
}

func (t *Transport) ScrubNextOrder() {
	if t.patternMode {
		t.QueueNextOrder()
		return
	}
	t.JumpToOrder(t.Decoder.CurrentOrder() + 1)
}

// ---- Channel mute/solo, derived -----------------------------

// ToggleMute is a direct, immediate mute toggle.
func (t *Transport) ToggleMute(ch int) { t.Decoder.ToggleChannelMute(ch) }

// ToggleSolo recomputes "this channel solo" from current mute state rather
// than storing a separate solo flag: solo means this channel is unmuted and
// every other channel is muted. Toggling re-derives and flips that state.
func (t *Transport) ToggleSolo(ch int) { t.Decoder.ToggleChannelSolo(ch) }

// QueueChannelMute / QueueChannelSolo commit at the pattern boundary,
// cancellable by reissuing the identical queued action for that channel.
func (t *Transport) QueueChannelMute(ch int) {
	t.toggleChannelQueue(ch, "mute")
}

func (t *Transport) QueueChannelSolo(ch int) {
	t.toggleChannelQueue(ch, "solo")
}

func (t *Transport) toggleChannelQueue(ch int, kind string) {
	if t.channelMuteQueued[ch] == kind && t.Decoder.QueuedActionForChannel(ch) != decoder.QueueChannelNone {
		delete(t.channelMuteQueued, ch)
		t.Decoder.QueueChannelAction(ch, decoder.QueueChannelNone)
		return
	}
	t.channelMuteQueued[ch] = kind
	if kind == "mute" {
		t.Decoder.QueueChannelAction(ch, decoder.QueueChannelMute)
	} else {
		t.Decoder.QueueChannelAction(ch, decoder.QueueChannelSolo)
	}
}

// ---- Loop ----------------------------------------------------

func (t *Transport) TriggerLoop() { t.Decoder.TriggerLoop() }
func (t *Transport) PlayToLoop()  { t.Decoder.PlayToLoop() }

// SetLoopStep maps one of 16 equidistant steps to the custom loop length,
// where step 15 disables the custom loop entirely.
func (t *Transport) SetLoopStep(step int) {
	if step < 0 {
		step = 0
	}
	if step > 15 {
		step = 15
	}
	if step == 15 {
		t.Decoder.SetCustomLoopRows(0)
		return
	}
	total := t.Decoder.FullPatternRows()
	rows := (step + 1) * total / 16
	if rows < 1 {
		rows = 1
	}
	t.Decoder.SetCustomLoopRows(rows)
}

// HalveLoop halves the current custom loop length; FullLoop clears it.
func (t *Transport) HalveLoop() {
	rows := t.Decoder.CustomLoopRows()
	if rows > 1 {
		t.Decoder.SetCustomLoopRows(rows / 2)
	}
}

func (t *Transport) FullLoop() {
	t.Decoder.SetCustomLoopRows(0)
}

// RetriggerPattern restarts the current pattern from row 0 immediately.
func (t *Transport) RetriggerPattern() { t.Decoder.RetriggerPattern() }
