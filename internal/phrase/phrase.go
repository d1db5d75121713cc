// Package phrase implements the phrase engine: position-indexed steps
// dispatched exactly once as the decoder's row counter advances, with the
// pre-reset/completion callback pair. The engine does not stop performance
// playback; user transport actions abort a phrase through internal/state.
package phrase

import "github.com/schollz/regroove/internal/action"

// Step is one phrase event, firing when the phrase's row-since-start
// counter reaches Position.
type Step struct {
	Action    action.Action
	Parameter int32
	Value     int32
	Position  int // position_rows
}

// Phrase is a named, ordered list of steps. At most one phrase is active at
// a time; a recorded performance that is playing back keeps playing while
// a phrase runs.
type Phrase struct {
	Name  string
	Steps []Step
}

// Hooks are the callbacks the engine invokes around a phrase run.
type Hooks struct {
	// PreReset clears effect buffers, clears mute/solo shadow state, and
	// unmutes all channels in the decoder.
	PreReset func()
	// Dispatch executes one step's action.
	Dispatch func(Step)
	// StartPlaybackIfStopped starts playback if not already running, and
	// reports whether playback was already running before this call.
	StartPlaybackIfStopped func() bool
	// OnComplete runs once the last step has dispatched: if playback kept
	// running, position is left as-is; otherwise it resets to order 0. In
	// either case the callback unmutes all and clears shadow mute/solo.
	OnComplete func(stillPlaying bool)
}

// Engine drives at most one active phrase, using the decoder's row counter
// (fed in via Tick) as phase.
type Engine struct {
	hooks Hooks

	active       *Phrase
	stepIndex    int
	rowSinceZero int
	running      bool
}

func New(hooks Hooks) *Engine { return &Engine{hooks: hooks} }

func (e *Engine) Active() bool { return e.running }

// Trigger starts p from its first step.
func (e *Engine) Trigger(p *Phrase) {
	if e.hooks.PreReset != nil {
		e.hooks.PreReset()
	}
	stillPlaying := false
	if e.hooks.StartPlaybackIfStopped != nil {
		stillPlaying = e.hooks.StartPlaybackIfStopped()
	}
	_ = stillPlaying
	e.active = p
	e.stepIndex = 0
	e.rowSinceZero = 0
	e.running = true
}

// Tick is called once per decoder row callback while a phrase is active; it
// dispatches every step whose Position matches the current row-since-start
// exactly once, then advances.
func (e *Engine) Tick(playbackStillRunning bool) {
	if !e.running || e.active == nil {
		return
	}
	for e.stepIndex < len(e.active.Steps) && e.active.Steps[e.stepIndex].Position == e.rowSinceZero {
		step := e.active.Steps[e.stepIndex]
		if e.hooks.Dispatch != nil {
			e.hooks.Dispatch(step)
		}
		e.stepIndex++
	}
	if e.stepIndex >= len(e.active.Steps) {
		e.complete(playbackStillRunning)
		e.rowSinceZero++
		return
	}
	e.rowSinceZero++
}

func (e *Engine) complete(stillPlaying bool) {
	e.running = false
	e.active = nil
	if e.hooks.OnComplete != nil {
		e.hooks.OnComplete(stillPlaying)
	}
}

// Abort implements the exclusion rule: any user-initiated transport action
// aborts the active phrase immediately and runs the completion callback as
// if it had naturally finished.
func (e *Engine) Abort(stillPlaying bool) {
	if !e.running {
		return
	}
	e.complete(stillPlaying)
}
