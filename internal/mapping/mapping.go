// Package mapping implements the keyboard/MIDI-CC/trigger-pad binding table
// and its learn-mode state machine: three parallel binding lists plus the
// armed/idle state that mutates them. The table is mutated only from the
// UI/control thread; lookups from the MIDI and keyboard event paths read a
// consistent snapshot.
package mapping

import (
	"fmt"
	"sync"

	"github.com/schollz/regroove/internal/action"
)

// KeyBinding maps one keyboard key to an action.
type KeyBinding struct {
	KeyCode   string
	Action    action.Action
	Parameter int32
}

// CCBinding maps a MIDI CC to an action, either continuous (value passes
// through) or threshold-gated (fires on rising edge).
type CCBinding struct {
	DeviceID   int // -1 means "any"
	CC         int
	Action     action.Action
	Parameter  int32
	Threshold  int // 0..127
	Continuous bool

	lastAboveThreshold bool // rising-edge detector state, not persisted
}

// PadBinding is one of the 32 trigger pads (16 application + 16 song-scoped).
type PadBinding struct {
	Action       action.Action
	Parameter    int32
	MIDINote     int // -1 = unbound
	MIDIDevice   int // -1 = any, -2 = disabled
	NoteOutput   int
	NoteVelocity int
	NoteProgram  int // 0 = pass-through
	NoteChannel  int // -1 = omni
}

const (
	NumApplicationPads = 16
	NumSongPads        = 16
	NumPads            = NumApplicationPads + NumSongPads
)

// LearnState is the learn-mode state machine's current phase.
type LearnState int

const (
	LearnIdle LearnState = iota
	LearnArmed
)

// LearnTarget is what an armed learn session will bind the next event to.
type LearnTarget struct {
	Action    action.Action
	Parameter int32
	PadIndex  int // -1 unless this target is a pad
}

// Table holds the three binding lists and the learn-mode state machine.
// Every mutating method is safe to call from the UI thread only; readers
// call Snapshot (or the lookup helpers, which internally snapshot) from any
// thread.
type Table struct {
	mu   sync.RWMutex
	keys []KeyBinding
	ccs  []CCBinding
	pads [NumPads]PadBinding

	heldPad int // index of the pad currently holding a note, or -1

	learn       LearnState
	learnTarget LearnTarget

	// OnChange is invoked after any successful mutation (bind/unbind/learn
	// commit) so the caller can persist to INI/RGX. It is never invoked
	// while the table's lock is held.
	OnChange func()
}

// New returns an empty table with all pads unbound and learn mode idle.
func New() *Table {
	t := &Table{heldPad: -1}
	for i := range t.pads {
		t.pads[i] = PadBinding{MIDINote: -1, MIDIDevice: -1, NoteChannel: -1}
	}
	return t
}

func (t *Table) notifyChange() {
	if t.OnChange != nil {
		t.OnChange()
	}
}

// ---- Lookup paths ------------------------------------------

// LookupKey performs the "first match wins" linear scan for a keyboard key.
func (t *Table) LookupKey(keyCode string) (action.InputEvent, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, b := range t.keys {
		if b.KeyCode == keyCode {
			return action.InputEvent{Action: b.Action, Parameter: b.Parameter, Value: 127}, true
		}
	}
	return action.InputEvent{}, false
}

// LookupCC resolves a MIDI CC message. Continuous bindings pass value
// through directly; threshold bindings fire only on the rising edge past
// Threshold, mirroring the momentary-button convention used for CC-as-pad.
func (t *Table) LookupCC(deviceID, cc, value int) (action.InputEvent, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.ccs {
		b := &t.ccs[i]
		if b.CC != cc {
			continue
		}
		if b.DeviceID != -1 && b.DeviceID != deviceID {
			continue
		}
		if b.Continuous {
			return action.InputEvent{Action: b.Action, Parameter: b.Parameter, Value: int32(value)}, true
		}
		above := value >= b.Threshold
		edge := above && !b.lastAboveThreshold
		b.lastAboveThreshold = above
		if edge {
			return action.InputEvent{Action: b.Action, Parameter: b.Parameter, Value: int32(value)}, true
		}
		return action.InputEvent{}, false
	}
	return action.InputEvent{}, false
}

// LookupNote resolves a MIDI note message to a pad index. Note-off only
// fires a release (ActionTriggerNotePad with Value 0) if it matches the pad
// currently held.
func (t *Table) LookupNote(deviceID, note int, isNoteOn bool) (padIndex int, ev action.InputEvent, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.pads {
		p := &t.pads[i]
		if p.MIDINote != note {
			continue
		}
		if p.MIDIDevice == -2 {
			continue // disabled
		}
		if p.MIDIDevice != -1 && p.MIDIDevice != deviceID {
			continue
		}
		if isNoteOn {
			t.heldPad = i
			return i, action.InputEvent{Action: p.Action, Parameter: p.Parameter, Value: 127}, true
		}
		if t.heldPad == i {
			t.heldPad = -1
			return i, action.InputEvent{Action: action.ActionTriggerNotePad, Parameter: int32(i), Value: 0}, true
		}
		return i, action.InputEvent{}, false
	}
	return -1, action.InputEvent{}, false
}

// ---- Direct binding mutation -----------------------------------------------

func (t *Table) BindKey(keyCode string, a action.Action, param int32) {
	t.mu.Lock()
	t.removeKeyLocked(keyCode)
	t.keys = append(t.keys, KeyBinding{KeyCode: keyCode, Action: a, Parameter: param})
	t.mu.Unlock()
	t.notifyChange()
}

func (t *Table) removeKeyLocked(keyCode string) {
	out := t.keys[:0]
	for _, b := range t.keys {
		if b.KeyCode != keyCode {
			out = append(out, b)
		}
	}
	t.keys = out
}

func (t *Table) BindCC(deviceID, cc int, a action.Action, param int32, threshold int, continuous bool) {
	t.mu.Lock()
	t.removeCCLocked(deviceID, cc)
	t.ccs = append(t.ccs, CCBinding{DeviceID: deviceID, CC: cc, Action: a, Parameter: param, Threshold: threshold, Continuous: continuous})
	t.mu.Unlock()
	t.notifyChange()
}

func (t *Table) removeCCLocked(deviceID, cc int) {
	out := t.ccs[:0]
	for _, b := range t.ccs {
		if !(b.DeviceID == deviceID && b.CC == cc) {
			out = append(out, b)
		}
	}
	t.ccs = out
}

func (t *Table) SetPad(index int, b PadBinding) error {
	if index < 0 || index >= NumPads {
		return fmt.Errorf("mapping: pad index %d out of range", index)
	}
	t.mu.Lock()
	t.pads[index] = b
	t.mu.Unlock()
	t.notifyChange()
	return nil
}

func (t *Table) Pad(index int) (PadBinding, error) {
	if index < 0 || index >= NumPads {
		return PadBinding{}, fmt.Errorf("mapping: pad index %d out of range", index)
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pads[index], nil
}

// ---- Learn mode ---------------------------------------------

func (t *Table) StartLearn(target LearnTarget) {
	t.mu.Lock()
	if target.PadIndex < 0 {
		target.PadIndex = -1
	}
	t.learn = LearnArmed
	t.learnTarget = target
	t.mu.Unlock()
}

func (t *Table) CancelLearn() {
	t.mu.Lock()
	t.learn = LearnIdle
	t.mu.Unlock()
}

func (t *Table) LearnState() LearnState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.learn
}

// CaptureKey is called with the next keyboard key while learn mode is
// armed. Same-key-same-target re-press unlearns; binding to a different
// target first removes any existing binding pointing at that key.
func (t *Table) CaptureKey(keyCode string) {
	t.mu.Lock()
	if t.learn != LearnArmed {
		t.mu.Unlock()
		return
	}
	target := t.learnTarget
	for _, b := range t.keys {
		if b.KeyCode == keyCode && b.Action == target.Action && b.Parameter == target.Parameter {
			t.removeKeyLocked(keyCode)
			t.learn = LearnIdle
			t.mu.Unlock()
			t.notifyChange()
			return
		}
	}
	t.removeKeyLocked(keyCode)
	t.keys = append(t.keys, KeyBinding{KeyCode: keyCode, Action: target.Action, Parameter: target.Parameter})
	t.learn = LearnIdle
	t.mu.Unlock()
	t.notifyChange()
}

// CaptureCC is called with the next qualifying MIDI CC event (value >= 64)
// while learn mode is armed. Continuous mode is auto-selected for
// "knob-like" actions per action.IsContinuous.
func (t *Table) CaptureCC(deviceID, cc int) {
	t.mu.Lock()
	if t.learn != LearnArmed {
		t.mu.Unlock()
		return
	}
	target := t.learnTarget
	for _, b := range t.ccs {
		if b.DeviceID == deviceID && b.CC == cc && b.Action == target.Action && b.Parameter == target.Parameter {
			t.removeCCLocked(deviceID, cc)
			t.learn = LearnIdle
			t.mu.Unlock()
			t.notifyChange()
			return
		}
	}
	t.removeCCLocked(deviceID, cc)
	t.ccs = append(t.ccs, CCBinding{
		DeviceID:   deviceID,
		CC:         cc,
		Action:     target.Action,
		Parameter:  target.Parameter,
		Threshold:  64,
		Continuous: action.IsContinuous(target.Action),
	})
	t.learn = LearnIdle
	t.mu.Unlock()
	t.notifyChange()
}

// CaptureNote binds the armed target to a pad note while learn mode is
// armed and the target names a pad index.
func (t *Table) CaptureNote(deviceID, note int) {
	t.mu.Lock()
	if t.learn != LearnArmed || t.learnTarget.PadIndex < 0 {
		t.mu.Unlock()
		return
	}
	idx := t.learnTarget.PadIndex
	if idx < 0 || idx >= NumPads {
		t.learn = LearnIdle
		t.mu.Unlock()
		return
	}
	if t.pads[idx].MIDINote == note && t.pads[idx].MIDIDevice == deviceID {
		t.pads[idx].MIDINote = -1
		t.pads[idx].MIDIDevice = -1
		t.learn = LearnIdle
		t.mu.Unlock()
		t.notifyChange()
		return
	}
	// Unlearn any other pad already bound to this exact (device, note).
	for i := range t.pads {
		if i != idx && t.pads[i].MIDINote == note && t.pads[i].MIDIDevice == deviceID {
			t.pads[i].MIDINote = -1
			t.pads[i].MIDIDevice = -1
		}
	}
	t.pads[idx].MIDINote = note
	t.pads[idx].MIDIDevice = deviceID
	t.learn = LearnIdle
	t.mu.Unlock()
	t.notifyChange()
}

// Unlearn removes all bindings pointing at target, without requiring a
// fresh key/CC/note event.
func (t *Table) Unlearn(target LearnTarget) {
	t.mu.Lock()
	out := t.keys[:0]
	for _, b := range t.keys {
		if !(b.Action == target.Action && b.Parameter == target.Parameter) {
			out = append(out, b)
		}
	}
	t.keys = out

	outCC := t.ccs[:0]
	for _, b := range t.ccs {
		if !(b.Action == target.Action && b.Parameter == target.Parameter) {
			outCC = append(outCC, b)
		}
	}
	t.ccs = outCC

	if target.PadIndex >= 0 && target.PadIndex < NumPads {
		t.pads[target.PadIndex].MIDINote = -1
		t.pads[target.PadIndex].MIDIDevice = -1
	}
	t.learn = LearnIdle
	t.mu.Unlock()
	t.notifyChange()
}

// Snapshot returns copies of the three binding lists for serialization.
func (t *Table) Snapshot() (keys []KeyBinding, ccs []CCBinding, pads [NumPads]PadBinding) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys = append([]KeyBinding(nil), t.keys...)
	ccs = append([]CCBinding(nil), t.ccs...)
	pads = t.pads
	return
}
