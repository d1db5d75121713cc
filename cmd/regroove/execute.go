package main

import (
	"fmt"
	"math"

	"github.com/schollz/regroove/internal/action"
	"github.com/schollz/regroove/internal/config"
	"github.com/schollz/regroove/internal/diag"
	"github.com/schollz/regroove/internal/effects"
	"github.com/schollz/regroove/internal/mapping"
	"github.com/schollz/regroove/internal/midiclock"
	"github.com/schollz/regroove/internal/midiio"
	"github.com/schollz/regroove/internal/mixgraph"
	"github.com/schollz/regroove/internal/state"
	"github.com/schollz/regroove/internal/telemetry"
)

// midiValueToUnit maps a 0-127 MIDI-style value to the [0,1] normalized
// range every continuous action expects.
func midiValueToUnit(v int32) float64 {
	return math.Max(0, math.Min(1, float64(v)/127.0))
}

// execute is the Executor installed on state.State: it is the only place
// that turns a dispatched action.InputEvent into a concrete side effect on
// the decoder, mix graph, effects chain, MIDI output, or process lifecycle.
// Exactly one goroutine (the keyboard/MIDI input reader) calls Dispatch, so
// no locking is needed here beyond what the called components already
// provide.
func execute(s *state.State, tbl *mapping.Table, clock *midiclock.Clock, midiOut *midiio.OutPort, tele *telemetry.Publisher, ev action.InputEvent, source action.Source) {
	d := s.Decoder
	g := s.Graph
	tr := s.Transport

	switch ev.Action {
	case action.ActionPlay:
		s.SetPlaying(true)
		clock.NotifyStart()
	case action.ActionStop:
		s.SetPlaying(false)
		clock.NotifyStop(currentPosition(s))
	case action.ActionRetrigger:
		tr.RetriggerPattern()

	case action.ActionJumpToOrder:
		tr.JumpToOrder(int(ev.Parameter))
		clock.NotifyContinue()
	case action.ActionJumpToPattern:
		tr.JumpToPattern(int(ev.Parameter))
		clock.NotifyContinue()
	case action.ActionQueueNextOrder:
		tr.QueueNextOrder()
	case action.ActionQueuePrevOrder:
		tr.QueuePrevOrder()
	case action.ActionQueueOrder:
		tr.QueueOrder(int(ev.Parameter))
	case action.ActionQueuePattern:
		tr.QueuePattern(int(ev.Parameter))
	case action.ActionTogglePatternMode:
		tr.SetPatternMode(!tr.PatternMode())
	case action.ActionScrubPrevOrder:
		tr.ScrubPrevOrder()
	case action.ActionScrubNextOrder:
		tr.ScrubNextOrder()

	case action.ActionMute:
		tr.ToggleMute(int(ev.Parameter))
	case action.ActionSolo:
		tr.ToggleSolo(int(ev.Parameter))
	case action.ActionQueueMute:
		tr.QueueChannelMute(int(ev.Parameter))
	case action.ActionQueueSolo:
		tr.QueueChannelSolo(int(ev.Parameter))
	case action.ActionVolume:
		d.SetChannelVolume(int(ev.Parameter), midiValueToUnit(ev.Value))
	case action.ActionPan:
		d.SetChannelPanning(int(ev.Parameter), midiValueToUnit(ev.Value))

	case action.ActionTriggerPad:
		firePad(tbl, midiOut, int(ev.Parameter))
	case action.ActionTriggerNotePad:
		firePad(tbl, midiOut, int(ev.Parameter))

	case action.ActionTriggerLoop:
		tr.TriggerLoop()
	case action.ActionPlayToLoop:
		tr.PlayToLoop()
	case action.ActionSetLoopStep:
		tr.SetLoopStep(int(ev.Parameter))
	case action.ActionHalveLoop:
		tr.HalveLoop()
	case action.ActionFullLoop:
		tr.FullLoop()

	case action.ActionMasterVolume:
		g.Master.SetVolume(midiValueToUnit(ev.Value))
	case action.ActionMasterPan:
		g.Master.SetPan(midiValueToUnit(ev.Value))
	case action.ActionMasterMute:
		g.Master.SetMute(!g.Master.Mute())
	case action.ActionPlaybackVolume:
		g.Playback.SetVolume(midiValueToUnit(ev.Value))
	case action.ActionPlaybackPan:
		g.Playback.SetPan(midiValueToUnit(ev.Value))
	case action.ActionPlaybackMute:
		g.Playback.SetMute(!g.Playback.Mute())
	case action.ActionInputVolume:
		g.Input.SetVolume(midiValueToUnit(ev.Value))
	case action.ActionInputPan:
		g.Input.SetPan(midiValueToUnit(ev.Value))
	case action.ActionInputMute:
		g.Input.SetMute(!g.Input.Mute())

	case action.ActionPitchSet:
		p := math.Max(0.05, math.Min(2.0, 0.25+midiValueToUnit(ev.Value)*2.75))
		d.SetPitch(p)
		g.SetPitchFactor(d.CurrentBPM(), p)
	case action.ActionPitchUp:
		p := math.Max(0.05, math.Min(2.0, 1.0+float64(ev.Parameter)/100.0))
		d.SetPitch(p)
		g.SetPitchFactor(d.CurrentBPM(), p)
	case action.ActionPitchDown:
		p := math.Max(0.05, math.Min(2.0, 1.0-float64(ev.Parameter)/100.0))
		d.SetPitch(p)
		g.SetPitchFactor(d.CurrentBPM(), p)
	case action.ActionTapTempo:
		// No effect: taps are not timed or accumulated anywhere, so this
		// action changes neither pitch nor tempo.

	case action.ActionEffectDistortionToggle:
		toggleEffect(g, "distortion")
	case action.ActionEffectDistortionParam:
		setEffectParam(g, "distortion", effectParamName(ev.Parameter), midiValueToUnit(ev.Value))
	case action.ActionEffectFilterToggle:
		toggleEffect(g, "filter")
	case action.ActionEffectFilterParam:
		setEffectParam(g, "filter", effectParamName(ev.Parameter), midiValueToUnit(ev.Value))
	case action.ActionEffectEQToggle:
		toggleEffect(g, "eq")
	case action.ActionEffectEQParam:
		setEffectParam(g, "eq", effectParamName(ev.Parameter), midiValueToUnit(ev.Value))
	case action.ActionEffectCompressorToggle:
		toggleEffect(g, "compressor")
	case action.ActionEffectCompressorParam:
		setEffectParam(g, "compressor", effectParamName(ev.Parameter), midiValueToUnit(ev.Value))
	case action.ActionEffectDelayToggle:
		toggleEffect(g, "delay")
	case action.ActionEffectDelayParam:
		setEffectParam(g, "delay", effectParamName(ev.Parameter), midiValueToUnit(ev.Value))
	case action.ActionFXRoute:
		g.SetRoute(fxRouteFromParam(ev.Parameter))

	case action.ActionMidiSyncTempo:
		// No effect: inbound tempo recovery runs continuously off
		// InPort.OnClock, but this action does not change clock.SyncTempo
		// and no OnInboundBPM handler is installed, so the recovered tempo
		// never adjusts pitch.
	case action.ActionMidiSendTransport, action.ActionMidiSendClock,
		action.ActionMidiReceiveTransport, action.ActionMidiReceiveClock,
		action.ActionMidiSPPMode, action.ActionMidiSPPInterval:
		// No effect: these actions change neither the clock's settings nor
		// the saved INI, and the INI's [MIDI] values are not applied to the
		// clock at startup either.

	case action.ActionFileNext, action.ActionFilePrev, action.ActionFileSelect, action.ActionFileDirUp:
		// File-browser navigation is a UI-only concern layered above this
		// CLI's single-file startup argument; no decoder state to mutate.

	case action.ActionRecordToggle:
		if shouldSave := s.Timeline.SetRecording(!s.Timeline.Recording()); shouldSave {
			saveRGX(s)
		}

	case action.ActionLearnStart:
		tbl.StartLearn(mapping.LearnTarget{PadIndex: -1})
	case action.ActionLearnCancel:
		tbl.CancelLearn()
	case action.ActionLearnUnlearn:
		tbl.Unlearn(mapping.LearnTarget{PadIndex: -1})

	case action.ActionQuit:
		// Handled by the keyboard reader, which cancels the run context after
		// dispatch returns; nothing to do here besides letting dispatch's
		// recording/telemetry paths run.
	}

	tele.Transport(g.Playing(), s.Timeline.Recording(), d.CurrentOrder(), d.CurrentRow())
	tele.Mix(g.Master.Volume(), g.Master.Pan(), g.Playback.Volume(), g.Playback.Pan(), g.Input.Volume(), g.Input.Pan())
}

// saveRGX persists the per-song metadata file when recording stops with at
// least one captured event, per the record-stop save contract.
func saveRGX(s *state.State) {
	if s.RGXPath == "" {
		return
	}
	var loopRanges []config.LoopRange
	so, sr, eo, er := s.Decoder.LoopRange()
	if eo >= 0 {
		loopRanges = append(loopRanges, config.LoopRange{StartOrder: so, StartRow: sr, EndOrder: eo, EndRow: er})
	}
	doc := config.RGXDoc{
		Phrases:    s.Phrases,
		LoopRanges: loopRanges,
		Events:     s.Timeline.Events(),
	}
	orderOf := func(row uint32) int {
		patternRows := s.Decoder.FullPatternRows()
		if patternRows == 0 {
			return 0
		}
		return int(row) / patternRows
	}
	if err := config.SaveRGX(s.RGXPath, doc, orderOf); err != nil {
		diag.Load(fmt.Sprintf("rgx save failed: %v", err))
	}
}

func currentPosition(s *state.State) midiclock.Position {
	return midiclock.Position{
		Order:        s.Decoder.CurrentOrder(),
		Row:          s.Decoder.CurrentRow(),
		PatternRows:  s.Decoder.FullPatternRows(),
		TrackerSpeed: s.Decoder.CurrentSpeed(),
	}
}

func firePad(tbl *mapping.Table, midiOut *midiio.OutPort, idx int) {
	b, err := tbl.Pad(idx)
	if err != nil {
		return
	}
	if midiOut != nil && b.NoteOutput >= 0 {
		ch := uint8(0)
		if b.NoteChannel >= 0 {
			ch = uint8(b.NoteChannel)
		}
		midiOut.SendNoteOn(ch, uint8(b.NoteOutput), uint8(b.NoteVelocity))
		if b.NoteProgram > 0 {
			midiOut.SendProgramChange(ch, uint8(b.NoteProgram))
		}
	}
}

func fxRouteFromParam(parameter int32) mixgraph.FXRoute {
	switch parameter {
	case 1:
		return mixgraph.FXRouteMaster
	case 2:
		return mixgraph.FXRoutePlayback
	case 3:
		return mixgraph.FXRouteInput
	default:
		return mixgraph.FXRouteNone
	}
}

func effectParamName(parameter int32) string {
	// Parameter encodes which knob of the stage this event targets; the
	// first four normalized knobs per effect are named uniformly so a
	// single table covers all five stages.
	names := []string{"drive", "cutoff", "resonance", "mix"}
	if int(parameter) < 0 || int(parameter) >= len(names) {
		return "drive"
	}
	return names[parameter]
}

func findStage(g *mixgraph.Graph, name string) (effects.Effect, bool) {
	for _, e := range g.Chain.Stages() {
		if e.Name() == name {
			return e, true
		}
	}
	return nil, false
}

func toggleEffect(g *mixgraph.Graph, name string) {
	if e, ok := findStage(g, name); ok {
		e.SetEnabled(!e.Enabled())
	}
}

func setEffectParam(g *mixgraph.Graph, name, param string, v float64) {
	if e, ok := findStage(g, name); ok {
		e.SetParam(param, v)
	}
}
