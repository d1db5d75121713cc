package state

import (
	"testing"

	"github.com/schollz/regroove/internal/action"
	"github.com/schollz/regroove/internal/phrase"
)

func TestDispatchRecordsWhenRecording(t *testing.T) {
	var executed []action.Action
	s := New(nil, nil, nil, func(ev action.InputEvent, source action.Source) {
		executed = append(executed, ev.Action)
	})
	s.Timeline.SetRecording(true)

	s.Dispatch(action.InputEvent{Action: action.ActionMute, Parameter: 2}, action.SourceUser)

	if len(s.Timeline.Events()) != 1 {
		t.Fatalf("expected event recorded, got %v", s.Timeline.Events())
	}
	if len(executed) != 1 || executed[0] != action.ActionMute {
		t.Fatalf("expected execute called once with ActionMute, got %v", executed)
	}
}

func TestDispatchDoesNotRecordPerformancePlayback(t *testing.T) {
	s := New(nil, nil, nil, func(action.InputEvent, action.Source) {})
	s.Timeline.SetRecording(true)

	s.Dispatch(action.InputEvent{Action: action.ActionMute}, action.SourcePerformancePlayback)

	if len(s.Timeline.Events()) != 0 {
		t.Fatalf("performance-playback-sourced events must not be re-recorded, got %v", s.Timeline.Events())
	}
}

func TestDispatchTriggerPhraseBypassesRecording(t *testing.T) {
	var triggered *phrase.Phrase
	s := New(nil, nil, nil, func(action.InputEvent, action.Source) {})
	s.Timeline.SetRecording(true)
	target := &phrase.Phrase{Name: "p1"}
	s.ResolvePhrase = func(idx int) *phrase.Phrase {
		triggered = target
		return target
	}

	s.Dispatch(action.InputEvent{Action: action.ActionTriggerPhrase, Parameter: 0}, action.SourceUser)

	if triggered != target {
		t.Fatalf("expected phrase resolver invoked")
	}
	if len(s.Timeline.Events()) != 0 {
		t.Fatalf("trigger_phrase must bypass recording, got %v", s.Timeline.Events())
	}
	if !s.Phrase.Active() {
		t.Fatalf("expected phrase engine active after trigger")
	}
}

func TestDispatchUserTransportAbortsActivePhrase(t *testing.T) {
	completed := false
	s := New(nil, nil, nil, func(action.InputEvent, action.Source) {})
	s.Phrase = phrase.New(phrase.Hooks{
		OnComplete: func(bool) { completed = true },
	})
	s.Phrase.Trigger(&phrase.Phrase{Steps: []phrase.Step{{Action: action.ActionPlay, Position: 10}}})

	s.Dispatch(action.InputEvent{Action: action.ActionStop}, action.SourceUser)

	if !completed {
		t.Fatalf("expected active phrase aborted by user transport action")
	}
}
