package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/schollz/regroove/internal/action"
	"github.com/schollz/regroove/internal/mapping"
	"github.com/schollz/regroove/internal/performance"
	"github.com/schollz/regroove/internal/phrase"
)

// TestSaveLoadResaveIsIdempotent: saving the mapping table to INI, loading
// into a fresh table, and re-serializing produces byte-identical output.
func TestSaveLoadResaveIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regroove.ini")

	tbl := mapping.New()
	tbl.BindKey("a", action.ActionPlay, 0)
	tbl.BindKey("s", action.ActionStop, 0)
	tbl.BindCC(-1, 7, action.ActionMasterVolume, 0, 0, true)
	tbl.SetPad(0, mapping.PadBinding{Action: action.ActionTriggerPad, Parameter: 0, MIDINote: 60, MIDIDevice: -1, NoteChannel: -1})

	base := &INI{Effects: map[string]EffectDefaults{
		"distortion": {Enabled: true, Params: map[string]float64{"drive": 0.4}},
		"filter":     {},
		"eq":         {},
		"compressor": {},
		"delay":      {},
	}}

	doc1 := PersistTable(base, tbl)
	if err := SaveINI(path, doc1); err != nil {
		t.Fatalf("SaveINI: %v", err)
	}
	firstBytes, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	loaded, err := LoadINI(path)
	if err != nil {
		t.Fatalf("LoadINI: %v", err)
	}

	freshTbl := mapping.New()
	for _, b := range loaded.Keys {
		freshTbl.BindKey(b.KeyCode, b.Action, b.Parameter)
	}
	for _, b := range loaded.CCs {
		freshTbl.BindCC(b.DeviceID, b.CC, b.Action, b.Parameter, b.Threshold, b.Continuous)
	}
	for i, p := range loaded.Pads {
		freshTbl.SetPad(i, p)
	}

	doc2 := PersistTable(loaded, freshTbl)
	path2 := filepath.Join(dir, "regroove2.ini")
	if err := SaveINI(path2, doc2); err != nil {
		t.Fatalf("second SaveINI: %v", err)
	}
	secondBytes, err := os.ReadFile(path2)
	if err != nil {
		t.Fatalf("ReadFile second: %v", err)
	}

	if string(firstBytes) != string(secondBytes) {
		t.Fatalf("re-serialization not idempotent:\n--- first ---\n%s\n--- second ---\n%s", firstBytes, secondBytes)
	}
}

// TestSaveINIUsesDocumentedBindingGrammar checks the on-disk key names
// match the grammar named in the RGX/INI format reference: KEY_<code> for
// keyboard bindings, CC_<dev>_<cc> under [MIDI] for CC bindings, and
// PAD_<n> for trigger pads.
func TestSaveINIUsesDocumentedBindingGrammar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regroove.ini")

	tbl := mapping.New()
	tbl.BindKey("a", action.ActionPlay, 0)
	tbl.BindCC(2, 74, action.ActionMasterVolume, 0, 0, true)
	tbl.SetPad(0, mapping.PadBinding{Action: action.ActionTriggerPad, Parameter: 0, MIDINote: 60, MIDIDevice: -1, NoteChannel: -1})

	doc := PersistTable(&INI{Effects: map[string]EffectDefaults{}}, tbl)
	if err := SaveINI(path, doc); err != nil {
		t.Fatalf("SaveINI: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	text := string(raw)

	for _, want := range []string{"KEY_a", "CC_2_74", "PAD_0"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected saved ini to contain %q, got:\n%s", want, text)
		}
	}

	loaded, err := LoadINI(path)
	if err != nil {
		t.Fatalf("LoadINI: %v", err)
	}
	if len(loaded.Keys) != 1 || loaded.Keys[0].KeyCode != "a" {
		t.Fatalf("expected keyboard binding for 'a' to round-trip, got %+v", loaded.Keys)
	}
	if len(loaded.CCs) != 1 || loaded.CCs[0].DeviceID != 2 || loaded.CCs[0].CC != 74 {
		t.Fatalf("expected CC binding dev=2 cc=74 to round-trip, got %+v", loaded.CCs)
	}
}

// TestSaveLoadRGXRoundTrips exercises the per-song metadata file: phrases,
// a loop range, and recorded events all survive a save/load cycle.
func TestSaveLoadRGXRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.rgx")

	doc := RGXDoc{
		Phrases: []*phrase.Phrase{
			{
				Name: "intro",
				Steps: []phrase.Step{
					{Action: action.ActionMute, Parameter: 1, Value: 0, Position: 0},
					{Action: action.ActionSolo, Parameter: 2, Value: 0, Position: 16},
				},
			},
		},
		LoopRanges: []LoopRange{
			{StartOrder: 1, StartRow: 0, EndOrder: 3, EndRow: 32, Desc: "build"},
		},
		Events: []performance.Event{
			{Row: 0, Action: action.ActionMute, Parameter: 1, Value: 0},
			{Row: 64, Action: action.ActionVolume, Parameter: 2, Value: 0.5},
		},
	}

	orderOf := func(row uint32) int { return int(row) / 64 }
	if err := SaveRGX(path, doc, orderOf); err != nil {
		t.Fatalf("SaveRGX: %v", err)
	}

	loaded, err := LoadRGX(path)
	if err != nil {
		t.Fatalf("LoadRGX: %v", err)
	}

	if len(loaded.Phrases) != 1 || loaded.Phrases[0].Name != "intro" || len(loaded.Phrases[0].Steps) != 2 {
		t.Fatalf("expected one phrase with two steps, got %+v", loaded.Phrases)
	}
	if loaded.Phrases[0].Steps[1].Position != 16 || loaded.Phrases[0].Steps[1].Parameter != 2 {
		t.Fatalf("phrase step fields did not round-trip, got %+v", loaded.Phrases[0].Steps[1])
	}
	if len(loaded.LoopRanges) != 1 || loaded.LoopRanges[0].EndOrder != 3 || loaded.LoopRanges[0].Desc != "build" {
		t.Fatalf("loop range did not round-trip, got %+v", loaded.LoopRanges)
	}
	if len(loaded.Events) != 2 || loaded.Events[1].Row != 64 || loaded.Events[1].Value != 0.5 {
		t.Fatalf("events did not round-trip, got %+v", loaded.Events)
	}
}

// TestLoadRGXMissingFileReturnsEmptyDoc matches LoadINI's "defaults on
// first run" convention for a song with no prior recorded performance.
func TestLoadRGXMissingFileReturnsEmptyDoc(t *testing.T) {
	doc, err := LoadRGX(filepath.Join(t.TempDir(), "missing.rgx"))
	if err != nil {
		t.Fatalf("LoadRGX on missing file should return an empty doc, got error: %v", err)
	}
	if len(doc.Phrases) != 0 || len(doc.LoopRanges) != 0 || len(doc.Events) != 0 {
		t.Fatalf("expected empty doc, got %+v", doc)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadINI(filepath.Join(t.TempDir(), "does-not-exist.ini"))
	if err != nil {
		t.Fatalf("LoadINI on missing file should return defaults, got error: %v", err)
	}
	if cfg.Playback.Interpolation != "linear" {
		t.Fatalf("expected default interpolation, got %q", cfg.Playback.Interpolation)
	}
}

func TestAutosaverDebouncesRepeatedRequests(t *testing.T) {
	calls := 0
	done := make(chan struct{})
	a := NewAutosaver(10*1e6, func() { // 10ms
		calls++
		close(done)
	})
	a.Request()
	a.Request()
	a.Request()
	<-done
	if calls != 1 {
		t.Fatalf("expected exactly one debounced save, got %d", calls)
	}
}
