// Package action defines the closed Action enum and the InputEvent envelope
// that every control-path component (mapping, transport, performance, phrase,
// MIDI, state) routes through. It matches a tagged union, not a
// v-table, so dispatch stays a flat switch.
package action

// Action is the closed set of things a user, MIDI message, keyboard key,
// phrase step, or recorded performance event can ask the system to do.
type Action int

const (
	ActionNone Action = iota

	// Transport
	ActionPlay
	ActionStop
	ActionRetrigger

	// Immediate order/pattern navigation
	ActionJumpToOrder
	ActionJumpToPattern

	// Queued order/pattern navigation
	ActionQueueNextOrder
	ActionQueuePrevOrder
	ActionQueueOrder
	ActionQueuePattern

	// Pattern mode (loop_enabled) toggles scrub-vs-queue semantics for </>
	ActionTogglePatternMode
	ActionScrubPrevOrder
	ActionScrubNextOrder

	// Channel
	ActionMute
	ActionSolo
	ActionQueueMute
	ActionQueueSolo
	ActionVolume
	ActionPan

	// Pads
	ActionTriggerPad
	ActionTriggerNotePad

	// Phrase
	ActionTriggerPhrase

	// Loop
	ActionTriggerLoop
	ActionPlayToLoop
	ActionSetLoopStep
	ActionHalveLoop
	ActionFullLoop

	// Mix buses
	ActionMasterVolume
	ActionMasterPan
	ActionMasterMute
	ActionPlaybackVolume
	ActionPlaybackPan
	ActionPlaybackMute
	ActionInputVolume
	ActionInputPan
	ActionInputMute
	ActionPitchSet
	ActionPitchUp
	ActionPitchDown
	ActionTapTempo

	// Effects chain: per-knob continuous and per-toggle
	ActionEffectDistortionToggle
	ActionEffectDistortionParam
	ActionEffectFilterToggle
	ActionEffectFilterParam
	ActionEffectEQToggle
	ActionEffectEQParam
	ActionEffectCompressorToggle
	ActionEffectCompressorParam
	ActionEffectDelayToggle
	ActionEffectDelayParam
	ActionFXRoute

	// MIDI sync toggles
	ActionMidiSendTransport
	ActionMidiSendClock
	ActionMidiReceiveTransport
	ActionMidiReceiveClock
	ActionMidiSyncTempo
	ActionMidiSPPMode
	ActionMidiSPPInterval

	// File navigation
	ActionFileNext
	ActionFilePrev
	ActionFileSelect
	ActionFileDirUp

	// Recording
	ActionRecordToggle

	// Learn mode
	ActionLearnStart
	ActionLearnCancel
	ActionLearnUnlearn

	// Process lifecycle
	ActionQuit

	actionCount
)

// Count is the number of distinct Action values, including ActionNone.
func Count() int { return int(actionCount) }

// Source identifies who originated a dispatched action. The dispatch
// contract branches on this.
type Source int

const (
	SourceUser Source = iota
	SourceMIDI
	SourceKeyboard
	SourcePhrase
	SourcePerformancePlayback
)

func (s Source) String() string {
	switch s {
	case SourceUser:
		return "user"
	case SourceMIDI:
		return "midi"
	case SourceKeyboard:
		return "keyboard"
	case SourcePhrase:
		return "phrase"
	case SourcePerformancePlayback:
		return "performance_playback"
	default:
		return "unknown"
	}
}

// InputEvent is the normalized shape every input path (keyboard, MIDI CC,
// MIDI note, phrase step, recorded event) converges to before dispatch.
// Parameter disambiguates by Action (channel index, order number, pad
// index,...). Value conveys continuous data (0-127 convention) or note-on
// velocity (0 = release).
type InputEvent struct {
	Action    Action
	Parameter int32
	Value     int32
}

// IsTransportOrNavigation reports whether an action is a transport or
// order/pattern navigation action, the set that aborts an active phrase and
// cancels a pending queued action of the same kind when reissued.
func IsTransportOrNavigation(a Action) bool {
	switch a {
	case ActionPlay, ActionStop, ActionRetrigger,
		ActionJumpToOrder, ActionJumpToPattern,
		ActionQueueNextOrder, ActionQueuePrevOrder, ActionQueueOrder, ActionQueuePattern,
		ActionScrubPrevOrder, ActionScrubNextOrder,
		ActionTriggerLoop, ActionPlayToLoop:
		return true
	default:
		return false
	}
}

// IsQueueable reports whether an action participates in the cancel-by-
// reissue policy: issuing the same queued action twice with no intervening
// commit cancels it.
func IsQueueable(a Action) bool {
	switch a {
	case ActionQueueNextOrder, ActionQueuePrevOrder, ActionQueueOrder, ActionQueuePattern,
		ActionQueueMute, ActionQueueSolo:
		return true
	default:
		return false
	}
}

// IsContinuous reports whether an action is "knob-like" for the purposes of
// MIDI-CC learn mode auto-selecting continuous binding.
func IsContinuous(a Action) bool {
	switch a {
	case ActionMasterVolume, ActionMasterPan, ActionPlaybackVolume, ActionPlaybackPan,
		ActionInputVolume, ActionInputPan, ActionPitchSet, ActionVolume, ActionPan,
		ActionEffectDistortionParam, ActionEffectFilterParam, ActionEffectEQParam,
		ActionEffectCompressorParam, ActionEffectDelayParam:
		return true
	default:
		return false
	}
}
