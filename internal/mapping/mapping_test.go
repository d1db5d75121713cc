package mapping

import (
	"testing"

	"github.com/schollz/regroove/internal/action"
)

func TestBindKeyRebindReplacesPriorBinding(t *testing.T) {
	tbl := New()
	tbl.BindKey("a", action.ActionPlay, 0)
	tbl.BindKey("a", action.ActionStop, 0) // rebinds "a", old binding removed

	ev, ok := tbl.LookupKey("a")
	if !ok || ev.Action != action.ActionStop {
		t.Fatalf("LookupKey(a) = %v,%v want ActionStop", ev, ok)
	}
}

func TestLookupCCContinuousPassesValueThrough(t *testing.T) {
	tbl := New()
	tbl.BindCC(-1, 7, action.ActionMasterVolume, 0, 0, true)
	ev, ok := tbl.LookupCC(5, 7, 42)
	if !ok || ev.Value != 42 {
		t.Fatalf("LookupCC continuous = %v,%v want value 42", ev, ok)
	}
}

func TestLookupCCThresholdFiresOnRisingEdgeOnly(t *testing.T) {
	tbl := New()
	tbl.BindCC(-1, 10, action.ActionTriggerPad, 3, 64, false)

	if _, ok := tbl.LookupCC(0, 10, 30); ok {
		t.Fatalf("below threshold must not fire")
	}
	if _, ok := tbl.LookupCC(0, 10, 90); !ok {
		t.Fatalf("rising edge above threshold must fire")
	}
	if _, ok := tbl.LookupCC(0, 10, 100); ok {
		t.Fatalf("staying above threshold must not re-fire")
	}
	if _, ok := tbl.LookupCC(0, 10, 20); ok {
		t.Fatalf("falling below threshold must not fire")
	}
	if _, ok := tbl.LookupCC(0, 10, 90); !ok {
		t.Fatalf("second rising edge must fire again")
	}
}

func TestLookupNoteOnThenOffReleasesHeldPad(t *testing.T) {
	tbl := New()
	tbl.SetPad(0, PadBinding{Action: action.ActionTriggerPad, Parameter: 0, MIDINote: 60, MIDIDevice: -1, NoteChannel: -1})

	idx, ev, ok := tbl.LookupNote(0, 60, true)
	if !ok || idx != 0 || ev.Action != action.ActionTriggerPad {
		t.Fatalf("note-on lookup = %d,%v,%v", idx, ev, ok)
	}

	idx, ev, ok = tbl.LookupNote(0, 60, false)
	if !ok || idx != 0 || ev.Action != action.ActionTriggerNotePad || ev.Value != 0 {
		t.Fatalf("note-off release = %d,%v,%v", idx, ev, ok)
	}
}

func TestLearnSameKeySameTargetUnlearns(t *testing.T) {
	tbl := New()
	target := LearnTarget{Action: action.ActionPlay, Parameter: 0, PadIndex: -1}

	tbl.StartLearn(target)
	tbl.CaptureKey("x")
	if _, ok := tbl.LookupKey("x"); !ok {
		t.Fatalf("expected binding after first learn")
	}

	tbl.StartLearn(target)
	tbl.CaptureKey("x")
	if _, ok := tbl.LookupKey("x"); ok {
		t.Fatalf("expected unlearn on re-press of same key/target")
	}
}

func TestLearnRebindingRemovesPriorKeyOwner(t *testing.T) {
	tbl := New()
	tbl.BindKey("z", action.ActionPlay, 0)

	tbl.StartLearn(LearnTarget{Action: action.ActionStop, Parameter: 0, PadIndex: -1})
	tbl.CaptureKey("z")

	ev, ok := tbl.LookupKey("z")
	if !ok || ev.Action != action.ActionStop {
		t.Fatalf("expected rebinding to ActionStop, got %v,%v", ev, ok)
	}
}

func TestCaptureCCAutoSelectsContinuousForKnobLikeActions(t *testing.T) {
	tbl := New()
	tbl.StartLearn(LearnTarget{Action: action.ActionMasterVolume, Parameter: 0, PadIndex: -1})
	tbl.CaptureCC(0, 20)

	ev, ok := tbl.LookupCC(0, 20, 10)
	if !ok || ev.Value != 10 {
		t.Fatalf("expected continuous binding to pass low values through, got %v,%v", ev, ok)
	}
}

func TestUnlearnRemovesAllBindingsForTarget(t *testing.T) {
	tbl := New()
	target := LearnTarget{Action: action.ActionPlay, Parameter: 0, PadIndex: -1}
	tbl.BindKey("q", target.Action, target.Parameter)
	tbl.BindCC(-1, 1, target.Action, target.Parameter, 64, false)

	tbl.Unlearn(target)

	if _, ok := tbl.LookupKey("q"); ok {
		t.Fatalf("expected key binding removed")
	}
	if _, ok := tbl.LookupCC(0, 1, 100); ok {
		t.Fatalf("expected CC binding removed")
	}
}
