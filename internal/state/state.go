// Package state implements the central state object and its single
// dispatch entry point. It owns the mapping table, performance timeline,
// phrase engine, and mix buses, and holds non-owning handles to the
// decoder, mix graph, and MIDI output. Dispatch is the entry point for
// keyboard and MIDI input; phrase steps and recorded performance playback
// reach the same Executor through the hooks installed in New.
package state

import (
	"github.com/schollz/regroove/internal/action"
	"github.com/schollz/regroove/internal/decoder"
	"github.com/schollz/regroove/internal/mapping"
	"github.com/schollz/regroove/internal/midiclock"
	"github.com/schollz/regroove/internal/midiio"
	"github.com/schollz/regroove/internal/mixgraph"
	"github.com/schollz/regroove/internal/performance"
	"github.com/schollz/regroove/internal/phrase"
	"github.com/schollz/regroove/internal/transport"
)

// Executor translates a single action into calls on decoder/mix/effects/
// MIDI-out. It is installed once and referenced by both State.Dispatch and
// the phrase engine's Dispatch hook, which resolves the phrase-versus-
// dispatch dependency cycle: the phrase engine needs to execute actions,
// and dispatch needs to trigger the phrase engine.
type Executor func(ev action.InputEvent, source action.Source)

// State is the single owning object created at startup.
// Metadata (mapping table contents, song data) is replaced on each module
// load; the timeline and phrase engine are reset on load.
type State struct {
	Decoder   decoder.Decoder
	Graph     *mixgraph.Graph
	Transport *transport.Transport
	Mapping   *mapping.Table
	Timeline  *performance.Timeline
	Phrase    *phrase.Engine
	Clock     *midiclock.Clock
	MIDIOut   *midiio.OutPort

	execute Executor
	playing bool

	// ResolvePhrase maps a trigger_phrase parameter to the concrete phrase
	// to run; installed by the song/config loader, which owns the phrase
	// list.
	ResolvePhrase func(idx int) *phrase.Phrase

	// Phrases is the song's loaded phrase list (from RGX), indexed by
	// ResolvePhrase and re-saved by the RGX writer on record-stop.
	Phrases []*phrase.Phrase

	// RGXPath is the per-song metadata file the record-stop save writes to.
	RGXPath string
}

// New wires a state object. execute is the caller-supplied translation
// from InputEvent to concrete side effects; it is shared by both direct
// dispatch and phrase step firing.
func New(d decoder.Decoder, g *mixgraph.Graph, tr *transport.Transport, execute Executor) *State {
	s := &State{
		Decoder:   d,
		Graph:     g,
		Transport: tr,
		Mapping:   mapping.New(),
		Timeline:  performance.New(),
		execute:   execute,
	}
	s.Phrase = phrase.New(phrase.Hooks{
		PreReset: s.phrasePreReset,
		Dispatch: func(step phrase.Step) {
			s.execute(action.InputEvent{Action: step.Action, Parameter: step.Parameter, Value: step.Value}, action.SourcePhrase)
		},
		StartPlaybackIfStopped: s.startPlaybackIfStopped,
		OnComplete:             s.phraseComplete,
	})
	s.Timeline.OnDispatch = func(ev performance.Event) {
		s.execute(action.InputEvent{Action: ev.Action, Parameter: ev.Parameter, Value: int32(ev.Value)}, action.SourcePerformancePlayback)
	}
	return s
}

func (s *State) phrasePreReset() {
	if s.Decoder != nil {
		s.Decoder.UnmuteAll()
	}
	if s.Graph != nil && s.Graph.Chain != nil {
		s.Graph.RenderMu.Lock()
		s.Graph.Chain.Reset()
		s.Graph.RenderMu.Unlock()
	}
	// Shadow GUI mute/solo state lives above this package (it tracks pulse
	// visuals only); nothing to clear here beyond the decoder-owned mutes.
}

func (s *State) startPlaybackIfStopped() bool {
	already := s.playing
	if !already {
		s.SetPlaying(true)
	}
	return already
}

func (s *State) phraseComplete(stillPlaying bool) {
	if s.Decoder != nil {
		s.Decoder.UnmuteAll()
	}
	if !stillPlaying {
		s.Transport.JumpToOrder(0)
	}
}

// SetPlaying updates the shared playing flag observed by mixgraph and the
// performance timeline. Starting playback dispatches whatever events are
// recorded at row 0 immediately, matching performance.Timeline's contract
// that DispatchCurrentRow fires once right after SetPlayback(true), before
// the decoder's row callback starts driving Tick.
func (s *State) SetPlaying(playing bool) {
	s.playing = playing
	if s.Graph != nil {
		s.Graph.SetPlaying(playing)
	}
	s.Timeline.SetPlayback(playing)
	if playing {
		s.Timeline.DispatchCurrentRow()
	}
}

// OnDecoderRow is wired to the decoder's per-row callback: it advances the
// performance timeline (replaying recorded events at the row they were
// captured on) and ticks the phrase engine against the same row clock.
func (s *State) OnDecoderRow(order, row int) {
	s.Timeline.Tick()
	s.Phrase.Tick(s.playing)
}

// Dispatch is the entry point for mapped keyboard and MIDI input. source
// disambiguates who originated ev. Phrase steps and recorded performance
// playback do not come through here: their hooks (see New) call the
// Executor directly, so they are neither recorded nor subject to step 2.
func (s *State) Dispatch(ev action.InputEvent, source action.Source) {
	// 1. Phrase triggers bypass recording and route directly to the phrase
	// engine, regardless of source.
	if ev.Action == action.ActionTriggerPhrase {
		s.triggerPhrase(int(ev.Parameter))
		return
	}

	// 2. A user-initiated transport/navigation action aborts any active
	// phrase first.
	if source == action.SourceUser && action.IsTransportOrNavigation(ev.Action) {
		if s.Phrase.Active() {
			s.Phrase.Abort(s.playing)
		}
	}

	// 3. Cancellation-by-reissue for queueable actions is handled inside
	// internal/transport (it owns the pending-queue state), so dispatch
	// gives queueable actions no special treatment: they fall through to
	// steps 4 and 5 like any other action.

	// 4. Route through the performance timeline: records if recording and
	// source isn't itself performance playback, then always executes.
	if source != action.SourcePerformancePlayback {
		s.Timeline.Record(ev.Action, ev.Parameter, float32(ev.Value))
	}

	// 5. Execute.
	if s.execute != nil {
		s.execute(ev, source)
	}
}

func (s *State) triggerPhrase(idx int) {
	if s.ResolvePhrase == nil {
		return
	}
	if p := s.ResolvePhrase(idx); p != nil {
		s.Phrase.Trigger(p)
	}
}

// Reload resets the timeline and phrase engine on module load.
func (s *State) Reload() {
	s.Timeline.Reset()
	if s.Phrase.Active() {
		s.Phrase.Abort(false)
	}
	s.playing = false
}
