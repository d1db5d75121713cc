// Package config implements the INI/RGX persistence layer: the INI file
// holds devices, mix/effects defaults, and keyboard/MIDI/pad bindings; the
// RGX file holds per-song phrases, loop ranges, and recorded performance
// events. Both are line-oriented `[Section]`/
// `key=value` formats read and written with gopkg.in/ini.v1. Debounced
// autosave is adapted from the teacher's storage.go timer pattern.
package config

import (
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/ini.v1"

	"github.com/schollz/regroove/internal/action"
	"github.com/schollz/regroove/internal/mapping"
	"github.com/schollz/regroove/internal/mixgraph"
	"github.com/schollz/regroove/internal/performance"
	"github.com/schollz/regroove/internal/phrase"
)

// Devices holds the INI [Devices] section.
type Devices struct {
	AudioIn  string
	AudioOut string
	MIDIIn   [3]string
	MIDIOut  string
}

// Playback holds INI [Playback] options.
type Playback struct {
	Interpolation string
	Dither        bool
	Resampler     string
}

// EffectDefaults mirrors the five-stage chain's default normalized params.
type EffectDefaults struct {
	Enabled bool
	Params  map[string]float64
}

// MIDISettings holds the INI [MIDI] section.
type MIDISettings struct {
	SendTransport    bool
	SendClock        bool
	ReceiveTransport bool
	ReceiveClock     bool
	SyncTempo        bool
	SPPMode          int
	SPPInterval      int
}

// INI is the top-level decoded INI document (device/app-level state).
type INI struct {
	Devices  Devices
	Playback Playback
	Effects  map[string]EffectDefaults // keyed by effect name
	MIDI     MIDISettings
	Keys     []mapping.KeyBinding
	CCs      []mapping.CCBinding
	Pads     [mapping.NumApplicationPads]mapping.PadBinding
}

// LoadINI reads the device/mapping/effects INI file. Missing files return
// built-in defaults (interpolation "linear", resampler "default", unbound
// pads), matching the "use built-in defaults on first run"
// convention visible throughout the corpus's config loaders.
func LoadINI(path string) (*INI, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{Loose: true}, path)
	if err != nil {
		return nil, fmt.Errorf("config: load ini %s: %w", path, err)
	}

	out := &INI{Effects: map[string]EffectDefaults{}}

	dev := cfg.Section("Devices")
	out.Devices.AudioIn = dev.Key("audio_in").String()
	out.Devices.AudioOut = dev.Key("audio_out").String()
	out.Devices.MIDIOut = dev.Key("midi_out").String()
	for i := 0; i < 3; i++ {
		out.Devices.MIDIIn[i] = dev.Key(fmt.Sprintf("midi_in_%d", i+1)).String()
	}

	pb := cfg.Section("Playback")
	out.Playback.Interpolation = pb.Key("interpolation").MustString("linear")
	out.Playback.Dither = pb.Key("dither").MustBool(false)
	out.Playback.Resampler = pb.Key("resampler").MustString("default")

	for _, name := range []string{"distortion", "filter", "eq", "compressor", "delay"} {
		sec := cfg.Section("Effects." + name)
		ed := EffectDefaults{Enabled: sec.Key("enabled").MustBool(false), Params: map[string]float64{}}
		for _, k := range sec.Keys() {
			if k.Name() == "enabled" {
				continue
			}
			if v, err := k.Float64(); err == nil {
				ed.Params[k.Name()] = v
			}
		}
		out.Effects[name] = ed
	}

	mi := cfg.Section("MIDI")
	out.MIDI.SendTransport = mi.Key("send_transport").MustBool(false)
	out.MIDI.SendClock = mi.Key("send_clock").MustBool(false)
	out.MIDI.ReceiveTransport = mi.Key("receive_transport").MustBool(false)
	out.MIDI.ReceiveClock = mi.Key("receive_clock").MustBool(false)
	out.MIDI.SyncTempo = mi.Key("sync_tempo").MustBool(false)
	out.MIDI.SPPMode = mi.Key("spp_mode").MustInt(0)
	out.MIDI.SPPInterval = mi.Key("spp_interval").MustInt(0)

	kb := cfg.Section("Keyboard")
	for _, k := range kb.Keys() {
		code, ok := strings.CutPrefix(k.Name(), "KEY_")
		if !ok {
			continue
		}
		a, param, err := parseActionParam(k.String())
		if err != nil {
			log.Printf("config: skipping malformed keyboard binding %q: %v", k.Name(), err)
			continue
		}
		out.Keys = append(out.Keys, mapping.KeyBinding{KeyCode: code, Action: a, Parameter: param})
	}

	for _, k := range mi.Keys() {
		deviceID, cc, ok := parseCCKey(k.Name())
		if !ok {
			continue
		}
		b, err := parseCCBinding(deviceID, cc, k.String())
		if err != nil {
			log.Printf("config: skipping malformed CC binding %q: %v", k.Name(), err)
			continue
		}
		out.CCs = append(out.CCs, b)
	}

	padSec := cfg.Section("TriggerPads")
	for i := range out.Pads {
		out.Pads[i] = mapping.PadBinding{MIDINote: -1, MIDIDevice: -1, NoteChannel: -1}
		key := fmt.Sprintf("PAD_%d", i)
		if v := padSec.Key(key).String(); v != "" {
			if b, err := parsePadBinding(v); err == nil {
				out.Pads[i] = b
			} else {
				log.Printf("config: skipping malformed pad binding %q: %v", key, err)
			}
		}
	}

	return out, nil
}

// SaveINI writes the device/mapping/effects document. It is deterministic
// given the same input (keys sorted) so repeated saves of an unchanged
// table are byte-identical.
func SaveINI(path string, in *INI) error {
	cfg := ini.Empty()

	dev, _ := cfg.NewSection("Devices")
	dev.NewKey("audio_in", in.Devices.AudioIn)
	dev.NewKey("audio_out", in.Devices.AudioOut)
	dev.NewKey("midi_out", in.Devices.MIDIOut)
	for i := 0; i < 3; i++ {
		dev.NewKey(fmt.Sprintf("midi_in_%d", i+1), in.Devices.MIDIIn[i])
	}

	pb, _ := cfg.NewSection("Playback")
	// Empty values are written as the defaults LoadINI substitutes for them,
	// so a save/load/save cycle is byte-identical.
	interpolation, resampler := in.Playback.Interpolation, in.Playback.Resampler
	if interpolation == "" {
		interpolation = "linear"
	}
	if resampler == "" {
		resampler = "default"
	}
	pb.NewKey("interpolation", interpolation)
	pb.NewKey("dither", strconv.FormatBool(in.Playback.Dither))
	pb.NewKey("resampler", resampler)

	for _, name := range []string{"distortion", "filter", "eq", "compressor", "delay"} {
		ed := in.Effects[name]
		sec, _ := cfg.NewSection("Effects." + name)
		sec.NewKey("enabled", strconv.FormatBool(ed.Enabled))
		paramNames := make([]string, 0, len(ed.Params))
		for k := range ed.Params {
			paramNames = append(paramNames, k)
		}
		sort.Strings(paramNames)
		for _, k := range paramNames {
			sec.NewKey(k, strconv.FormatFloat(ed.Params[k], 'f', 6, 64))
		}
	}

	mi, _ := cfg.NewSection("MIDI")
	mi.NewKey("send_transport", strconv.FormatBool(in.MIDI.SendTransport))
	mi.NewKey("send_clock", strconv.FormatBool(in.MIDI.SendClock))
	mi.NewKey("receive_transport", strconv.FormatBool(in.MIDI.ReceiveTransport))
	mi.NewKey("receive_clock", strconv.FormatBool(in.MIDI.ReceiveClock))
	mi.NewKey("sync_tempo", strconv.FormatBool(in.MIDI.SyncTempo))
	mi.NewKey("spp_mode", strconv.Itoa(in.MIDI.SPPMode))
	mi.NewKey("spp_interval", strconv.Itoa(in.MIDI.SPPInterval))

	kb, _ := cfg.NewSection("Keyboard")
	keys := append([]mapping.KeyBinding(nil), in.Keys...)
	sort.Slice(keys, func(i, j int) bool { return keys[i].KeyCode < keys[j].KeyCode })
	for _, b := range keys {
		kb.NewKey("KEY_"+b.KeyCode, formatActionParam(b.Action, b.Parameter))
	}

	ccs := append([]mapping.CCBinding(nil), in.CCs...)
	sort.Slice(ccs, func(i, j int) bool {
		if ccs[i].DeviceID != ccs[j].DeviceID {
			return ccs[i].DeviceID < ccs[j].DeviceID
		}
		return ccs[i].CC < ccs[j].CC
	})
	for _, b := range ccs {
		key := fmt.Sprintf("CC_%d_%d", b.DeviceID, b.CC)
		mi.NewKey(key, formatCCBinding(b))
	}

	padSec, _ := cfg.NewSection("TriggerPads")
	for i, p := range in.Pads {
		if p.MIDINote == -1 && p.Action == action.ActionNone {
			continue
		}
		padSec.NewKey(fmt.Sprintf("PAD_%d", i), formatPadBinding(p))
	}

	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("config: save ini %s: %w", path, err)
	}
	return nil
}

// ---- Binding text encoding --------------------------------------------------
//
// Bindings are encoded as "action_name[:param]" for keys, and
// "action_name:param:threshold:continuous" for CC, "action:param:
// midi_note:midi_device:note_output:velocity:program" for pads — compact,
// line-oriented, and round-trippable.

func parseActionParam(v string) (action.Action, int32, error) {
	parts := strings.SplitN(v, ":", 2)
	a, ok := actionByName[parts[0]]
	if !ok {
		return action.ActionNone, 0, fmt.Errorf("unknown action %q", parts[0])
	}
	var param int32
	if len(parts) == 2 {
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return action.ActionNone, 0, err
		}
		param = int32(n)
	}
	return a, param, nil
}

func formatActionParam(a action.Action, param int32) string {
	return fmt.Sprintf("%s:%d", actionNames[a], param)
}

// parseCCKey extracts the device/controller numbers from a "CC_<dev>_<cc>"
// key, per the documented MIDI CC binding grammar.
func parseCCKey(key string) (deviceID, cc int, ok bool) {
	suffix, ok := strings.CutPrefix(key, "CC_")
	if !ok {
		return 0, 0, false
	}
	parts := strings.SplitN(suffix, "_", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	d, err1 := strconv.Atoi(parts[0])
	c, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return d, c, true
}

func parseCCBinding(deviceID, cc int, v string) (mapping.CCBinding, error) {
	// v = "action:param:threshold:continuous"
	parts := strings.Split(v, ":")
	if len(parts) != 4 {
		return mapping.CCBinding{}, fmt.Errorf("malformed cc binding %q", v)
	}
	a, ok := actionByName[parts[0]]
	if !ok {
		return mapping.CCBinding{}, fmt.Errorf("unknown action %q", parts[0])
	}
	param, err := strconv.Atoi(parts[1])
	if err != nil {
		return mapping.CCBinding{}, err
	}
	threshold, err := strconv.Atoi(parts[2])
	if err != nil {
		return mapping.CCBinding{}, err
	}
	continuous := parts[3] == "true"
	return mapping.CCBinding{DeviceID: deviceID, CC: cc, Action: a, Parameter: int32(param), Threshold: threshold, Continuous: continuous}, nil
}

func formatCCBinding(b mapping.CCBinding) string {
	return fmt.Sprintf("%s:%d:%d:%t", actionNames[b.Action], b.Parameter, b.Threshold, b.Continuous)
}

func parsePadBinding(v string) (mapping.PadBinding, error) {
	parts := strings.Split(v, ":")
	if len(parts) != 7 {
		return mapping.PadBinding{}, fmt.Errorf("malformed pad binding %q", v)
	}
	a, ok := actionByName[parts[0]]
	if !ok {
		return mapping.PadBinding{}, fmt.Errorf("unknown action %q", parts[0])
	}
	ints := make([]int, 6)
	for i := 0; i < 6; i++ {
		n, err := strconv.Atoi(parts[i+1])
		if err != nil {
			return mapping.PadBinding{}, err
		}
		ints[i] = n
	}
	return mapping.PadBinding{
		Action: a, Parameter: int32(ints[0]), MIDINote: ints[1], MIDIDevice: ints[2],
		NoteOutput: ints[3], NoteVelocity: ints[4], NoteProgram: ints[5], NoteChannel: -1,
	}, nil
}

func formatPadBinding(p mapping.PadBinding) string {
	return fmt.Sprintf("%s:%d:%d:%d:%d:%d:%d",
		actionNames[p.Action], p.Parameter, p.MIDINote, p.MIDIDevice, p.NoteOutput, p.NoteVelocity, p.NoteProgram)
}

// PersistTable serializes the live mapping table into an INI struct ready
// for SaveINI, so that any successful learn/unlearn/re-bind can be
// serialized to the active INI file.
func PersistTable(existing *INI, tbl *mapping.Table) *INI {
	keys, ccs, pads := tbl.Snapshot()
	out := *existing
	out.Keys = keys
	out.CCs = ccs
	for i := 0; i < mapping.NumApplicationPads && i < len(pads); i++ {
		out.Pads[i] = pads[i]
	}
	return &out
}

// ApplyEffectDefaults pushes INI-loaded effect parameters onto the live
// mix graph's chain at module/config load.
func ApplyEffectDefaults(ini *INI, g *mixgraph.Graph) {
	if g == nil || g.Chain == nil {
		return
	}
	for _, e := range g.Chain.Stages() {
		d, ok := ini.Effects[e.Name()]
		if !ok {
			continue
		}
		e.SetEnabled(d.Enabled)
		for k, v := range d.Params {
			e.SetParam(k, v)
		}
	}
}

// SaveEvents renders the RGX [Events] section for a recorded performance.
// Storage format: `EVT_<order>_<row> = action[p:v,v:v],...` with actions
// comma-separated when they share a row. Order is implicit in this package
// (the caller supplies it per event via the order argument, since Event
// itself only tracks a flattened row).
func SaveEvents(sec *ini.Section, events []performance.Event, orderOf func(row uint32) int) {
	byKey := map[string][]performance.Event{}
	var order []string
	for _, ev := range events {
		key := fmt.Sprintf("EVT_%d_%d", orderOf(ev.Row), ev.Row)
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], ev)
	}
	for _, key := range order {
		var parts []string
		for _, ev := range byKey[key] {
			parts = append(parts, fmt.Sprintf("%s[p:%d,v:%g]", actionNames[ev.Action], ev.Parameter, ev.Value))
		}
		sec.NewKey(key, strings.Join(parts, ","))
	}
}

// ---- RGX (per-song) persistence --------------------------------------------
//
// RGX holds the metadata scoped to one loaded module: phrases, loop ranges,
// and the recorded performance timeline. It round-trips through the same
// gopkg.in/ini.v1 grammar as the device INI, one file per song.

// LoopRange is a single named/numbered loop boundary persisted to
// `[LoopRanges]`.
type LoopRange struct {
	StartOrder, StartRow, EndOrder, EndRow int
	Desc                                   string
}

// RGXDoc is everything SaveRGX/LoadRGX round-trip for one song.
type RGXDoc struct {
	Phrases    []*phrase.Phrase
	LoopRanges []LoopRange
	Events     []performance.Event
}

// SaveRGX writes the per-song document: one `[Phrases.<i>]` section per
// phrase, `[LoopRanges]`, and `[Events]` (via SaveEvents). orderOf maps a
// recorded event's timeline row to the order active when it was captured,
// for the EVT_<order>_<row> key's order component.
func SaveRGX(path string, doc RGXDoc, orderOf func(row uint32) int) error {
	cfg := ini.Empty()

	for i, p := range doc.Phrases {
		sec, _ := cfg.NewSection(fmt.Sprintf("Phrases.%d", i))
		sec.NewKey("name", p.Name)
		for j, st := range p.Steps {
			sec.NewKey(fmt.Sprintf("STEP_%d", j), formatPhraseStep(st))
		}
	}

	if len(doc.LoopRanges) > 0 {
		loopSec, _ := cfg.NewSection("LoopRanges")
		for i, lr := range doc.LoopRanges {
			loopSec.NewKey(fmt.Sprintf("LOOP_%d", i), formatLoopRange(lr))
		}
	}

	if len(doc.Events) > 0 {
		evSec, _ := cfg.NewSection("Events")
		SaveEvents(evSec, doc.Events, orderOf)
	}

	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("config: save rgx %s: %w", path, err)
	}
	return nil
}

// LoadRGX reads the per-song document written by SaveRGX. A missing file
// returns a zero-value RGXDoc, matching LoadINI's "defaults on first run"
// convention; malformed entries are skipped with a log line rather than
// failing the whole load.
func LoadRGX(path string) (RGXDoc, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{Loose: true}, path)
	if err != nil {
		return RGXDoc{}, fmt.Errorf("config: load rgx %s: %w", path, err)
	}

	var doc RGXDoc
	for _, idx := range phraseSectionIndices(cfg) {
		sec := cfg.Section(fmt.Sprintf("Phrases.%d", idx))
		p := &phrase.Phrase{Name: sec.Key("name").String()}
		byKey := map[string]*ini.Key{}
		for _, k := range sec.Keys() {
			byKey[k.Name()] = k
		}
		for j := 0; ; j++ {
			k, ok := byKey[fmt.Sprintf("STEP_%d", j)]
			if !ok {
				break
			}
			st, err := parsePhraseStep(k.String())
			if err != nil {
				log.Printf("config: skipping malformed phrase step %q in Phrases.%d: %v", k.Name(), idx, err)
				continue
			}
			p.Steps = append(p.Steps, st)
		}
		doc.Phrases = append(doc.Phrases, p)
	}

	for _, k := range cfg.Section("LoopRanges").Keys() {
		lr, err := parseLoopRange(k.String())
		if err != nil {
			log.Printf("config: skipping malformed loop range %q: %v", k.Name(), err)
			continue
		}
		doc.LoopRanges = append(doc.LoopRanges, lr)
	}

	doc.Events = parseEvents(cfg.Section("Events"))

	return doc, nil
}

// phraseSectionIndices returns the numeric suffixes of every `Phrases.<i>`
// section present, in ascending order.
func phraseSectionIndices(cfg *ini.File) []int {
	var indices []int
	for _, name := range cfg.SectionStrings() {
		suffix, ok := strings.CutPrefix(name, "Phrases.")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		indices = append(indices, n)
	}
	sort.Ints(indices)
	return indices
}

var phraseStepRe = regexp.MustCompile(`^(\w+)\[p:(-?\d+),v:(-?\d+)\]@row:(\d+)$`)

// formatPhraseStep encodes one phrase step as `action[p:P,v:V]@row:R`, the
// grammar named in spec.md §6.
func formatPhraseStep(s phrase.Step) string {
	return fmt.Sprintf("%s[p:%d,v:%d]@row:%d", actionNames[s.Action], s.Parameter, s.Value, s.Position)
}

func parsePhraseStep(v string) (phrase.Step, error) {
	m := phraseStepRe.FindStringSubmatch(v)
	if m == nil {
		return phrase.Step{}, fmt.Errorf("malformed phrase step %q", v)
	}
	a, ok := actionByName[m[1]]
	if !ok {
		return phrase.Step{}, fmt.Errorf("unknown action %q", m[1])
	}
	param, err := strconv.Atoi(m[2])
	if err != nil {
		return phrase.Step{}, err
	}
	value, err := strconv.Atoi(m[3])
	if err != nil {
		return phrase.Step{}, err
	}
	position, err := strconv.Atoi(m[4])
	if err != nil {
		return phrase.Step{}, err
	}
	return phrase.Step{Action: a, Parameter: int32(param), Value: int32(value), Position: position}, nil
}

// formatLoopRange encodes a loop boundary as
// `s_order:R,s_row:R,e_order:R,e_row:R,desc:...`, the grammar named in
// spec.md §6.
func formatLoopRange(lr LoopRange) string {
	return fmt.Sprintf("s_order:%d,s_row:%d,e_order:%d,e_row:%d,desc:%s",
		lr.StartOrder, lr.StartRow, lr.EndOrder, lr.EndRow, lr.Desc)
}

func parseLoopRange(v string) (LoopRange, error) {
	var lr LoopRange
	for _, field := range strings.Split(v, ",") {
		kv := strings.SplitN(field, ":", 2)
		if len(kv) != 2 {
			return LoopRange{}, fmt.Errorf("malformed loop range field %q", field)
		}
		key, val := kv[0], kv[1]
		var n int
		var err error
		switch key {
		case "s_order", "s_row", "e_order", "e_row":
			n, err = strconv.Atoi(val)
			if err != nil {
				return LoopRange{}, err
			}
		}
		switch key {
		case "s_order":
			lr.StartOrder = n
		case "s_row":
			lr.StartRow = n
		case "e_order":
			lr.EndOrder = n
		case "e_row":
			lr.EndRow = n
		case "desc":
			lr.Desc = val
		}
	}
	return lr, nil
}

var (
	evtKeyRe   = regexp.MustCompile(`^EVT_(\d+)_(\d+)$`)
	evtValueRe = regexp.MustCompile(`(\w+)\[p:(-?\d+),v:([^\]]+)\]`)
)

// parseEvents decodes a `[Events]` section written by SaveEvents. Each key's
// value is one or more `name[p:P,v:V]` groups, comma-separated when several
// actions share a row; matching the group directly is simpler than
// splitting on "," first since a malformed value can't desync the two.
func parseEvents(sec *ini.Section) []performance.Event {
	var events []performance.Event
	for _, k := range sec.Keys() {
		m := evtKeyRe.FindStringSubmatch(k.Name())
		if m == nil {
			log.Printf("config: skipping malformed event key %q", k.Name())
			continue
		}
		row, err := strconv.ParseUint(m[2], 10, 32)
		if err != nil {
			continue
		}
		for _, em := range evtValueRe.FindAllStringSubmatch(k.String(), -1) {
			a, ok := actionByName[em[1]]
			if !ok {
				log.Printf("config: skipping unknown action %q in event %q", em[1], k.Name())
				continue
			}
			param, err := strconv.Atoi(em[2])
			if err != nil {
				continue
			}
			value, err := strconv.ParseFloat(em[3], 32)
			if err != nil {
				continue
			}
			events = append(events, performance.Event{Row: uint32(row), Action: a, Parameter: int32(param), Value: float32(value)})
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Row < events[j].Row })
	return events
}

// ---- Debounced autosave (adapted from the teacher's storage.go) -----------

// Autosaver debounces repeated save requests into a single write after a
// quiet period, so field-blur or per-row edits don't hammer disk.
type Autosaver struct {
	mu       sync.Mutex
	timer    *time.Timer
	debounce time.Duration
	save     func()
}

func NewAutosaver(debounce time.Duration, save func()) *Autosaver {
	if debounce <= 0 {
		debounce = time.Second
	}
	return &Autosaver{debounce: debounce, save: save}
}

// Request schedules a debounced save, restarting the quiet-period timer if
// one is already pending.
func (a *Autosaver) Request() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.debounce, func() {
		start := time.Now()
		a.save()
		log.Printf("config: autosaved in %s", time.Since(start))
	})
}

// Flush cancels any pending debounce and saves immediately; used on clean
// shutdown.
func (a *Autosaver) Flush() {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
	a.save()
}
