package transport

import (
	"testing"

	"github.com/schollz/regroove/internal/decoder"
)

// fakeDecoder is a minimal in-memory stand-in exercising only the subset of
// decoder.Decoder the transport package calls.
type fakeDecoder struct {
	decoder.Decoder

	order, pattern int
	numChannels    int
	fullRows       int
	customLoop     int
	pan            []float64

	queuedJump  decoder.QueuedJumpType
	queuedOrder int
	cleared     bool
	patternMode bool

	muted  map[int]bool
	solod  map[int]bool
	volume []float64

	queuedChannelAction map[int]decoder.QueuedChannelAction
}

func newFakeDecoder() *fakeDecoder {
	return &fakeDecoder{
		numChannels:         4,
		fullRows:            64,
		pan:                 []float64{0.5, 0.5, 0.5, 0.5},
		volume:              []float64{1, 1, 1, 1},
		muted:               map[int]bool{},
		solod:               map[int]bool{},
		queuedChannelAction: map[int]decoder.QueuedChannelAction{},
	}
}

func (f *fakeDecoder) CurrentOrder() int                   { return f.order }
func (f *fakeDecoder) NumChannels() int                    { return f.numChannels }
func (f *fakeDecoder) FullPatternRows() int                { return f.fullRows }
func (f *fakeDecoder) ChannelPanning(ch int) float64       { return f.pan[ch] }
func (f *fakeDecoder) SetChannelPanning(ch int, p float64) { f.pan[ch] = p }
func (f *fakeDecoder) JumpToOrder(order int)               { f.order = order }
func (f *fakeDecoder) JumpToPattern(p int)                 { f.pattern = p }
func (f *fakeDecoder) QueueNextOrder()                     { f.queuedJump = decoder.QueueNextOrder }
func (f *fakeDecoder) QueuePrevOrder()                     { f.queuedJump = decoder.QueuePrevOrder }
func (f *fakeDecoder) QueueOrder(o int)                    { f.queuedJump = decoder.QueueOrder; f.queuedOrder = o }
func (f *fakeDecoder) QueuePattern(p int)                  { f.queuedJump = decoder.QueuePattern; f.queuedOrder = p }
func (f *fakeDecoder) ClearPendingJump()                   { f.queuedJump = decoder.QueueNone; f.cleared = true }
func (f *fakeDecoder) SetPatternMode(b bool)               { f.patternMode = b }
func (f *fakeDecoder) SetCustomLoopRows(r int)             { f.customLoop = r }
func (f *fakeDecoder) CustomLoopRows() int                 { return f.customLoop }
func (f *fakeDecoder) ToggleChannelMute(ch int)            { f.muted[ch] = !f.muted[ch] }
func (f *fakeDecoder) IsChannelMuted(ch int) bool          { return f.muted[ch] }
func (f *fakeDecoder) ChannelVolume(ch int) float64        { return f.volume[ch] }
func (f *fakeDecoder) SetChannelVolume(ch int, v float64)  { f.volume[ch] = v }
func (f *fakeDecoder) QueueChannelAction(ch int, act decoder.QueuedChannelAction) {
	if act == decoder.QueueChannelNone {
		delete(f.queuedChannelAction, ch)
		return
	}
	f.queuedChannelAction[ch] = act
}
func (f *fakeDecoder) ToggleChannelSolo(ch int) {
	if f.solod[ch] {
		for c := range f.muted {
			delete(f.muted, c)
		}
		f.solod[ch] = false
		return
	}
	for c := 0; c < f.numChannels; c++ {
		f.muted[c] = c != ch
	}
	f.solod[ch] = true
}
func (f *fakeDecoder) QueuedJumpType() decoder.QueuedJumpType {
	return f.queuedJump
}
func (f *fakeDecoder) QueuedActionForChannel(ch int) decoder.QueuedChannelAction {
	return f.queuedChannelAction[ch]
}

// TestQueueNextOrderThenCancelByReissue exercises cancellation-by-reissue:
// issuing the same queued action twice with no intervening commit leaves
// nothing queued.
func TestQueueNextOrderThenCancelByReissue(t *testing.T) {
	d := newFakeDecoder()
	tr := New(d, nil)

	tr.QueueNextOrder()
	if d.queuedJump != decoder.QueueNextOrder {
		t.Fatalf("expected queued next order, got %v", d.queuedJump)
	}

	tr.QueueNextOrder()
	if !d.cleared || d.queuedJump != decoder.QueueNone {
		t.Fatalf("expected reissue to cancel queued jump, got %v cleared=%v", d.queuedJump, d.cleared)
	}
}

func TestQueueOrderDifferentParameterDoesNotCancel(t *testing.T) {
	d := newFakeDecoder()
	tr := New(d, nil)

	tr.QueueOrder(2)
	tr.QueueOrder(3)

	if d.queuedJump != decoder.QueueOrder || d.queuedOrder != 3 {
		t.Fatalf("expected second distinct queue_order to replace, got type=%v order=%d", d.queuedJump, d.queuedOrder)
	}
}

// TestSoloIsInvolutive: solo(c) then solo(c) again (no intervening mute
// changes) returns to the pre-solo mute set.
func TestSoloIsInvolutive(t *testing.T) {
	d := newFakeDecoder()
	tr := New(d, nil)
	d.muted[1] = true // some pre-existing unrelated mute

	tr.ToggleSolo(0)
	if d.muted[0] {
		t.Fatalf("soloed channel must not be muted")
	}
	for c := 1; c < d.numChannels; c++ {
		if !d.muted[c] {
			t.Fatalf("channel %d should be muted while channel 0 is soloed", c)
		}
	}

	tr.ToggleSolo(0)
	for c := 0; c < d.numChannels; c++ {
		if d.muted[c] {
			t.Fatalf("after un-soloing, channel %d should not be muted (solo clears mute set)", c)
		}
	}
}

func TestSetLoopStepMapsToCustomLoopRows(t *testing.T) {
	d := newFakeDecoder()
	tr := New(d, nil)

	tr.SetLoopStep(0)
	if d.customLoop != 4 { // (0+1)*64/16
		t.Fatalf("step 0 -> customLoop = %d, want 4", d.customLoop)
	}
	tr.SetLoopStep(7)
	if d.customLoop != 32 { // (7+1)*64/16
		t.Fatalf("step 7 -> customLoop = %d, want 32", d.customLoop)
	}
	tr.SetLoopStep(15)
	if d.customLoop != 0 {
		t.Fatalf("step 15 must disable custom loop, got %d", d.customLoop)
	}
}

func TestScrubVsQueueDependsOnPatternMode(t *testing.T) {
	d := newFakeDecoder()
	d.order = 5
	tr := New(d, nil)

	tr.ScrubNextOrder()
	if d.order != 6 {
		t.Fatalf("pattern mode off: scrub should jump immediately, order = %d", d.order)
	}

	tr.SetPatternMode(true)
	tr.ScrubNextOrder()
	if d.order != 6 {
		t.Fatalf("pattern mode on: scrub should queue, not jump immediately, order = %d", d.order)
	}
	if d.queuedJump != decoder.QueueNextOrder {
		t.Fatalf("pattern mode on: expected queued next order, got %v", d.queuedJump)
	}
}

func TestJumpToOrderReappliesChannelPanning(t *testing.T) {
	d := newFakeDecoder()
	d.pan[2] = 0.25
	tr := New(d, nil)

	tr.JumpToOrder(3)
	if d.pan[2] != 0.25 {
		t.Fatalf("channel panning should be re-applied across jump, got %v", d.pan[2])
	}
	if d.order != 3 {
		t.Fatalf("order = %d, want 3", d.order)
	}
}

// TestJumpToOrderReappliesVolumeAndMute exercises the same re-apply path for
// the settings captureChannelSettings/restoreChannelSettings round-trips
// besides panning.
func TestJumpToOrderReappliesVolumeAndMute(t *testing.T) {
	d := newFakeDecoder()
	d.volume[1] = 0.4
	d.muted[1] = true
	tr := New(d, nil)

	tr.JumpToOrder(2)
	if d.volume[1] != 0.4 {
		t.Fatalf("channel volume should be re-applied across jump, got %v", d.volume[1])
	}
	if !d.muted[1] {
		t.Fatalf("channel mute should be re-applied across jump")
	}
}

// TestQueueChannelMuteCommitsThroughDecoderQueue: queue_channel_mute must
// stage the action on the decoder's own deferred path rather than toggling
// the mute immediately.
func TestQueueChannelMuteCommitsThroughDecoderQueue(t *testing.T) {
	d := newFakeDecoder()
	tr := New(d, nil)

	tr.QueueChannelMute(1)
	if d.muted[1] {
		t.Fatalf("queue_channel_mute must not mute immediately")
	}
	if d.queuedChannelAction[1] != decoder.QueueChannelMute {
		t.Fatalf("expected channel 1 queued for mute, got %v", d.queuedChannelAction[1])
	}

	tr.QueueChannelMute(1)
	if _, ok := d.queuedChannelAction[1]; ok {
		t.Fatalf("reissuing the same queued channel mute should cancel it")
	}
}

// TestSetLoopStepFloorsAtOneRow: a short pattern must never compute a
// zero-row custom loop for a non-disabling step.
func TestSetLoopStepFloorsAtOneRow(t *testing.T) {
	d := newFakeDecoder()
	d.fullRows = 4
	tr := New(d, nil)

	tr.SetLoopStep(0) // (0+1)*4/16 = 0 without the floor
	if d.customLoop < 1 {
		t.Fatalf("step 0 on a short pattern must floor to at least 1 row, got %d", d.customLoop)
	}
}
