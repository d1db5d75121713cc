// Package performance implements the performance timeline: a single
// monotonic row counter, record/play coexistence, and sorted-by-row event
// storage with a single bubble pass on manual insert.
package performance

import (
	"sort"

	"github.com/schollz/regroove/internal/action"
)

// Event is one recorded performance action at a specific timeline row.
type Event struct {
	Row       uint32
	Action    action.Action
	Parameter int32
	Value     float32
}

// Dispatch is the callback the timeline invokes to actually execute an
// event during playback. Every call comes from playback, so the dispatcher
// must not re-record them.
type Dispatch func(ev Event)

// Timeline owns the monotonic row counter and the sorted event list.
type Timeline struct {
	row           uint32
	events        []Event
	recording     bool
	playing       bool
	playbackIndex int

	OnDispatch Dispatch
}

func New() *Timeline { return &Timeline{} }

func (t *Timeline) Row() uint32     { return t.row }
func (t *Timeline) Recording() bool { return t.recording }
func (t *Timeline) Playing() bool   { return t.playing }
func (t *Timeline) Events() []Event { return t.events }

// SetRecording(true) clears events, resets the row, and cancels playback.
// SetRecording(false) while event count > 0 signals the caller to persist
// (the caller observes the return value and triggers an RGX save).
func (t *Timeline) SetRecording(on bool) (shouldSave bool) {
	if on {
		t.events = nil
		t.row = 0
		t.playing = false
		t.playbackIndex = 0
		t.recording = true
		return false
	}
	t.recording = false
	return len(t.events) > 0
}

// SetPlayback(true) resets row and playback_index so the first row is row
// 0 (events recorded at row 0 fire immediately on the next Tick).
func (t *Timeline) SetPlayback(on bool) {
	t.playing = on
	if on {
		t.row = 0
		t.playbackIndex = 0
	}
}

// LoadEvents replaces the stored events with a previously-recorded set
// (e.g. restored from an RGX file), sorted by row. It does not touch
// record/playback state.
func (t *Timeline) LoadEvents(events []Event) {
	t.events = append([]Event(nil), events...)
	sort.Slice(t.events, func(i, j int) bool { return t.events[i].Row < t.events[j].Row })
	t.playbackIndex = 0
}

// Reset zeroes row and playback_index only, leaving recorded events intact.
func (t *Timeline) Reset() {
	t.row = 0
	t.playbackIndex = 0
}

// Record appends an event at the current row. fromPlayback events (those
// sourced from Tick's own dispatch) must never be recorded; callers enforce
// this by only calling Record for user/MIDI/keyboard/phrase-originated
// actions.
func (t *Timeline) Record(a action.Action, parameter int32, value float32) {
	if !t.recording {
		return
	}
	t.events = append(t.events, Event{Row: t.row, Action: a, Parameter: parameter, Value: value})
	t.bubbleSortByRow()
}

// bubbleSortByRow performs a single bubble pass: sufficient because Record
// only ever appends one out-of-order element at a time (the current row is
// monotonic, so a new event can only be later than, or equal to, the
// insertion point it needs to settle into against concurrently-adjusted
// neighbors).
func (t *Timeline) bubbleSortByRow() {
	for i := len(t.events) - 1; i > 0; i-- {
		if t.events[i].Row < t.events[i-1].Row {
			t.events[i], t.events[i-1] = t.events[i-1], t.events[i]
		} else {
			break
		}
	}
}

// Tick advances the row counter by one (only while playing && !recording)
// and, during playback, dispatches every event at the current row in
// recorded order: each row fires its events exactly once.
func (t *Timeline) Tick() {
	if t.playing && !t.recording {
		t.dispatchCurrentRow()
		t.row++
	}
}

// DispatchCurrentRow dispatches events at the current row without first
// advancing; used once after SetPlayback(true) so row-0 events fire
// immediately, then subsequent calls should use Tick.
func (t *Timeline) DispatchCurrentRow() {
	t.dispatchCurrentRow()
}

func (t *Timeline) dispatchCurrentRow() {
	if !t.playing || t.OnDispatch == nil {
		return
	}
	for t.playbackIndex < len(t.events) && t.events[t.playbackIndex].Row == t.row {
		t.OnDispatch(t.events[t.playbackIndex])
		t.playbackIndex++
	}
}
