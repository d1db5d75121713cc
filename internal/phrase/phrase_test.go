package phrase

import (
	"testing"

	"github.com/schollz/regroove/internal/action"
)

// TestPhraseJumpsPlaysThenStops: a phrase with a jump at row 0 and a stop at
// row 32, triggered mid-playback, jumps immediately, runs 32 rows, then
// stops and clears shadow mute/solo.
func TestPhraseJumpsPlaysThenStops(t *testing.T) {
	var dispatched []action.Action
	preResetCalled := false
	completeCalled := false
	var completeStillPlaying bool

	e := New(Hooks{
		PreReset:               func() { preResetCalled = true },
		Dispatch:                func(s Step) { dispatched = append(dispatched, s.Action) },
		StartPlaybackIfStopped: func() bool { return true }, // already playing at order 0 row 40
		OnComplete: func(stillPlaying bool) {
			completeCalled = true
			completeStillPlaying = stillPlaying
		},
	})

	p := &Phrase{
		Name: "jump-and-stop",
		Steps: []Step{
			{Action: action.ActionJumpToOrder, Parameter: 2, Position: 0},
			{Action: action.ActionStop, Position: 32},
		},
	}

	e.Trigger(p)
	if !preResetCalled {
		t.Fatalf("expected pre-reset callback on trigger")
	}
	if !e.Active() {
		t.Fatalf("expected phrase active after trigger")
	}

	// Row 0: jump fires immediately.
	e.Tick(true)
	if len(dispatched) != 1 || dispatched[0] != action.ActionJumpToOrder {
		t.Fatalf("expected jump to fire at row 0, got %v", dispatched)
	}

	// Rows 1..31: nothing fires.
	for i := 1; i < 32; i++ {
		e.Tick(true)
	}
	if len(dispatched) != 1 {
		t.Fatalf("expected no additional dispatch before row 32, got %v", dispatched)
	}

	// Row 32: stop fires, phrase completes.
	e.Tick(false)
	if len(dispatched) != 2 || dispatched[1] != action.ActionStop {
		t.Fatalf("expected stop to fire at row 32, got %v", dispatched)
	}
	if e.Active() {
		t.Fatalf("expected phrase inactive after last step")
	}
	if !completeCalled {
		t.Fatalf("expected completion callback")
	}
	if completeStillPlaying {
		t.Fatalf("expected stillPlaying=false after the stop step completed it")
	}
}

func TestAbortRunsCompletionImmediately(t *testing.T) {
	completed := false
	e := New(Hooks{
		OnComplete: func(bool) { completed = true },
	})
	e.Trigger(&Phrase{Steps: []Step{{Action: action.ActionPlay, Position: 100}}})

	e.Abort(true)
	if e.Active() {
		t.Fatalf("expected phrase inactive after abort")
	}
	if !completed {
		t.Fatalf("expected completion callback on abort")
	}
}

func TestAbortOnIdleEngineIsNoop(t *testing.T) {
	called := false
	e := New(Hooks{OnComplete: func(bool) { called = true }})
	e.Abort(true)
	if called {
		t.Fatalf("expected no completion callback when no phrase is active")
	}
}
