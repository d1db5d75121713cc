package config

import "github.com/schollz/regroove/internal/action"

// actionNames/actionByName give every action.Action a stable, human-readable
// token for INI/RGX persistence, independent of the enum's numeric values
// (which must stay free to be reordered as actions are added).
var actionNames = map[action.Action]string{
	action.ActionNone:                  "none",
	action.ActionPlay:                  "play",
	action.ActionStop:                  "stop",
	action.ActionRetrigger:             "retrigger",
	action.ActionJumpToOrder:           "jump_to_order",
	action.ActionJumpToPattern:         "jump_to_pattern",
	action.ActionQueueNextOrder:        "queue_next_order",
	action.ActionQueuePrevOrder:        "queue_prev_order",
	action.ActionQueueOrder:            "queue_order",
	action.ActionQueuePattern:          "queue_pattern",
	action.ActionTogglePatternMode:     "toggle_pattern_mode",
	action.ActionScrubPrevOrder:        "scrub_prev_order",
	action.ActionScrubNextOrder:        "scrub_next_order",
	action.ActionMute:                  "mute",
	action.ActionSolo:                  "solo",
	action.ActionQueueMute:             "queue_mute",
	action.ActionQueueSolo:             "queue_solo",
	action.ActionVolume:                "volume",
	action.ActionPan:                   "pan",
	action.ActionTriggerPad:            "trigger_pad",
	action.ActionTriggerNotePad:        "trigger_note_pad",
	action.ActionTriggerPhrase:         "trigger_phrase",
	action.ActionTriggerLoop:           "trigger_loop",
	action.ActionPlayToLoop:            "play_to_loop",
	action.ActionSetLoopStep:           "set_loop_step",
	action.ActionHalveLoop:             "halve_loop",
	action.ActionFullLoop:              "full_loop",
	action.ActionMasterVolume:          "master_volume",
	action.ActionMasterPan:             "master_pan",
	action.ActionMasterMute:            "master_mute",
	action.ActionPlaybackVolume:        "playback_volume",
	action.ActionPlaybackPan:           "playback_pan",
	action.ActionPlaybackMute:          "playback_mute",
	action.ActionInputVolume:           "input_volume",
	action.ActionInputPan:              "input_pan",
	action.ActionInputMute:             "input_mute",
	action.ActionPitchSet:              "pitch_set",
	action.ActionPitchUp:               "pitch_up",
	action.ActionPitchDown:             "pitch_down",
	action.ActionTapTempo:              "tap_tempo",
	action.ActionEffectDistortionToggle: "effect_distortion_toggle",
	action.ActionEffectDistortionParam:  "effect_distortion_param",
	action.ActionEffectFilterToggle:     "effect_filter_toggle",
	action.ActionEffectFilterParam:      "effect_filter_param",
	action.ActionEffectEQToggle:         "effect_eq_toggle",
	action.ActionEffectEQParam:          "effect_eq_param",
	action.ActionEffectCompressorToggle: "effect_compressor_toggle",
	action.ActionEffectCompressorParam:  "effect_compressor_param",
	action.ActionEffectDelayToggle:      "effect_delay_toggle",
	action.ActionEffectDelayParam:       "effect_delay_param",
	action.ActionFXRoute:                "fx_route",
	action.ActionMidiSendTransport:      "midi_send_transport",
	action.ActionMidiSendClock:          "midi_send_clock",
	action.ActionMidiReceiveTransport:   "midi_receive_transport",
	action.ActionMidiReceiveClock:       "midi_receive_clock",
	action.ActionMidiSyncTempo:          "midi_sync_tempo",
	action.ActionMidiSPPMode:            "midi_spp_mode",
	action.ActionMidiSPPInterval:        "midi_spp_interval",
	action.ActionFileNext:               "file_next",
	action.ActionFilePrev:               "file_prev",
	action.ActionFileSelect:             "file_select",
	action.ActionFileDirUp:              "file_dir_up",
	action.ActionRecordToggle:           "record_toggle",
	action.ActionLearnStart:             "learn_start",
	action.ActionLearnCancel:            "learn_cancel",
	action.ActionLearnUnlearn:           "learn_unlearn",
	action.ActionQuit:                   "quit",
}

var actionByName = func() map[string]action.Action {
	m := make(map[string]action.Action, len(actionNames))
	for a, name := range actionNames {
		m[name] = a
	}
	return m
}()
