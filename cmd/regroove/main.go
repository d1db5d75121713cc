// Command regroove is the live-performance groovebox entry point. It wires
// the decoder, mix graph, audio sink, transport, performance timeline,
// phrase engine, MIDI clock/IO, mapping table, and config persistence
// behind a single cobra root command, replacing the teacher's bubbletea TUI
// with a terminal-raw-mode keyboard loop.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/schollz/regroove/internal/action"
	"github.com/schollz/regroove/internal/config"
	"github.com/schollz/regroove/internal/decoder"
	"github.com/schollz/regroove/internal/diag"
	"github.com/schollz/regroove/internal/effects"
	"github.com/schollz/regroove/internal/mapping"
	"github.com/schollz/regroove/internal/midiclock"
	"github.com/schollz/regroove/internal/midiio"
	"github.com/schollz/regroove/internal/mixgraph"
	"github.com/schollz/regroove/internal/phrase"
	"github.com/schollz/regroove/internal/ringbuf"
	"github.com/schollz/regroove/internal/sink"
	"github.com/schollz/regroove/internal/state"
	"github.com/schollz/regroove/internal/telemetry"
	"github.com/schollz/regroove/internal/transport"
)

const sampleRate = 48000

var (
	flagMIDIPort   string
	flagMIDIInPort string
	flagConfigPath string
	flagDumpConfig bool
	flagOSCHost    string
	flagOSCPort    int
)

func main() {
	root := &cobra.Command{
		Use:           "regroove <directory|file>",
		Short:         "Live-performance tracker-module groovebox",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	root.Flags().StringVarP(&flagMIDIPort, "midi-port", "m", "", "MIDI output port name (fuzzy-matched)")
	root.Flags().StringVar(&flagMIDIInPort, "midi-in", "", "MIDI input port name for CC/note/clock (exact match)")
	root.Flags().StringVarP(&flagConfigPath, "config", "c", "regroove.ini", "Path to the INI config/mapping file")
	root.Flags().BoolVar(&flagDumpConfig, "dump-config", false, "Write a default config file and exit")
	root.Flags().StringVar(&flagOSCHost, "osc-host", "127.0.0.1", "Telemetry OSC destination host")
	root.Flags().IntVar(&flagOSCPort, "osc-port", 9000, "Telemetry OSC destination port")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultINI() *config.INI {
	ini := &config.INI{Effects: map[string]config.EffectDefaults{}}
	ini.Playback.Interpolation = "linear"
	ini.Playback.Resampler = "default"
	for _, name := range []string{"distortion", "filter", "eq", "compressor", "delay"} {
		ini.Effects[name] = config.EffectDefaults{Params: map[string]float64{}}
	}
	for i := range ini.Pads {
		ini.Pads[i] = mapping.PadBinding{MIDINote: -1, MIDIDevice: -1, NoteChannel: -1}
	}
	return ini
}

func run(cmd *cobra.Command, args []string) error {
	if flagDumpConfig {
		if err := config.SaveINI(flagConfigPath, defaultINI()); err != nil {
			return fmt.Errorf("dump-config: %w", err)
		}
		fmt.Printf("wrote default config to %s\n", flagConfigPath)
		return nil
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: regroove <directory|file>")
	}

	ini, err := config.LoadINI(flagConfigPath)
	if err != nil {
		diag.Setup(fmt.Sprintf("config load failed, using defaults: %v", err), false)
		ini = defaultINI()
	}

	dec := decoder.New(float64(sampleRate))
	capture := ringbuf.New(500, sampleRate, 2)
	chain := effects.NewChain()
	graph := mixgraph.New(sampleRate, capture, chain)
	graph.SetDecoder(dec)
	config.ApplyEffectDefaults(ini, graph)

	tbl := mapping.New()
	for _, b := range ini.Keys {
		tbl.BindKey(b.KeyCode, b.Action, b.Parameter)
	}
	for _, b := range ini.CCs {
		tbl.BindCC(b.DeviceID, b.CC, b.Action, b.Parameter, b.Threshold, b.Continuous)
	}
	for i, p := range ini.Pads {
		tbl.SetPad(i, p)
	}

	tr := transport.New(dec, graph)

	var midiOut *midiio.OutPort
	if flagMIDIPort != "" {
		midiOut, err = midiio.OpenOut(flagMIDIPort)
		if err != nil {
			diag.Setup(fmt.Sprintf("midi output %q unavailable: %v", flagMIDIPort, err), false)
		}
	}

	tele := telemetry.New(flagOSCHost, flagOSCPort, 50*time.Millisecond)

	var st *state.State
	clock := midiclock.New(midiOutAdapter{midiOut}, func() float64 { return graph.EffectiveBPM() })
	st = state.New(dec, graph, tr, func(ev action.InputEvent, source action.Source) {
		execute(st, tbl, clock, midiOut, tele, ev, source)
	})

	autosave := config.NewAutosaver(2*time.Second, func() {
		doc := config.PersistTable(ini, tbl)
		if err := config.SaveINI(flagConfigPath, doc); err != nil {
			diag.Load(fmt.Sprintf("autosave failed: %v", err))
		}
	})
	tbl.OnChange = autosave.Request

	path := args[0]
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path, err = firstModuleInDir(path)
		if err != nil {
			return err
		}
	}
	if err := dec.Load(path, decoder.Callbacks{
		OnRowChange: func(order, row int) {
			st.OnDecoderRow(order, row)
			clock.PublishPosition(midiclock.Position{
				Order:        order,
				Row:          row,
				PatternRows:  dec.FullPatternRows(),
				TrackerSpeed: dec.CurrentSpeed(),
			})
		},
		OnOrderChange: func(order, pattern int) {
			tele.Transport(graph.Playing(), st.Timeline.Recording(), order, dec.CurrentRow())
		},
		OnNote: func(ch, note, instr, vol int, _, _ byte) {
			tele.Note(ch, note, instr, vol)
		},
	}); err != nil {
		diag.Load(fmt.Sprintf("failed to load %s: %v", path, err))
		return fmt.Errorf("load %s: %w", path, err)
	}

	rgxPath := rgxPathFor(path)
	st.RGXPath = rgxPath
	if doc, err := config.LoadRGX(rgxPath); err != nil {
		diag.Load(fmt.Sprintf("rgx load failed, starting fresh: %v", err))
	} else {
		st.Phrases = doc.Phrases
		st.ResolvePhrase = func(idx int) *phrase.Phrase {
			if idx < 0 || idx >= len(st.Phrases) {
				return nil
			}
			return st.Phrases[idx]
		}
		st.Timeline.LoadEvents(doc.Events)
		if len(doc.LoopRanges) > 0 {
			lr := doc.LoopRanges[0]
			dec.SetLoopRange(lr.StartOrder, lr.StartRow, lr.EndOrder, lr.EndRow)
		}
	}

	out, err := sink.NewOtoSink(sampleRate)
	if err != nil {
		diag.Setup(fmt.Sprintf("no audio output available: %v", err), true)
		return fmt.Errorf("audio sink: %w", err)
	}
	defer out.Close()

	if err := out.Start(256, func(buf []int16) {
		graph.Render(buf, len(buf)/2)
		clock.PublishBPM(graph.EffectiveBPM())
		capture.Write(buf)
	}); err != nil {
		diag.Setup(fmt.Sprintf("audio start failed: %v", err), true)
		return fmt.Errorf("audio start: %w", err)
	}

	if flagMIDIInPort != "" {
		midiIn, err := midiio.OpenIn(flagMIDIInPort)
		if err != nil {
			diag.Setup(fmt.Sprintf("midi input %q unavailable: %v", flagMIDIInPort, err), false)
		} else {
			defer midiIn.Close()
			wireMIDIIn(midiIn, tbl, st, clock)
		}
	}

	clock.Start()
	defer clock.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	restoreTerm, err := enterRawMode()
	if err != nil {
		diag.Setup(fmt.Sprintf("terminal raw mode unavailable, keyboard disabled: %v", err), false)
	} else {
		defer restoreTerm()
		go readKeyboard(ctx, cancel, tbl, st)
	}

	log.Printf("regroove: playing %s", path)
	<-ctx.Done()
	autosave.Flush()
	return nil
}

// wireMIDIIn connects an opened input port's callbacks to the mapping
// table's lookup paths and the clock's inbound tempo recovery. Handlers
// fire on gomidi's own listener goroutine, so they only do O(1) lookups
// and a Dispatch call, matching the no-blocking discipline required of any
// audio-adjacent callback.
func wireMIDIIn(in *midiio.InPort, tbl *mapping.Table, st *state.State, clock *midiclock.Clock) {
	in.OnClock = func() { clock.OnInboundClockPulse(time.Now()) }
	in.OnCC = func(channel, cc, value uint8) {
		if tbl.LearnState() == mapping.LearnArmed {
			if value >= 64 {
				tbl.CaptureCC(int(channel), int(cc))
			}
			return
		}
		if ev, ok := tbl.LookupCC(int(channel), int(cc), int(value)); ok {
			st.Dispatch(ev, action.SourceMIDI)
		}
	}
	in.OnNoteOn = func(channel, note, velocity uint8) {
		if tbl.LearnState() == mapping.LearnArmed {
			tbl.CaptureNote(int(channel), int(note))
			return
		}
		if _, ev, ok := tbl.LookupNote(int(channel), int(note), true); ok {
			st.Dispatch(ev, action.SourceMIDI)
		}
	}
	in.OnNoteOff = func(channel, note uint8) {
		if _, ev, ok := tbl.LookupNote(int(channel), int(note), false); ok {
			st.Dispatch(ev, action.SourceMIDI)
		}
	}
}

// rgxPathFor derives the per-song metadata path from a loaded module path
// by swapping its extension for .rgx, so "songs/set1.mod" persists to
// "songs/set1.rgx" alongside it.
func rgxPathFor(modulePath string) string {
	ext := filepath.Ext(modulePath)
	return strings.TrimSuffix(modulePath, ext) + ".rgx"
}

func firstModuleInDir(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read directory %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		return filepath.Join(dir, e.Name()), nil
	}
	return "", fmt.Errorf("no module file found in %s", dir)
}

// enterRawMode puts stdin into raw mode so single keystrokes are delivered
// without waiting for Enter, the CLI equivalent of the teacher's bubbletea
// alt-screen key capture.
func enterRawMode() (restore func(), err error) {
	fd := int(os.Stdin.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return func() { term.Restore(fd, old) }, nil
}

func readKeyboard(ctx context.Context, shutdown context.CancelFunc, tbl *mapping.Table, st *state.State) {
	buf := make([]byte, 8)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		for _, b := range buf[:n] {
			if b == 3 { // Ctrl-C
				st.Dispatch(action.InputEvent{Action: action.ActionQuit}, action.SourceKeyboard)
				shutdown()
				return
			}
			keyCode := string(rune(b))
			if tbl.LearnState() == mapping.LearnArmed {
				tbl.CaptureKey(keyCode)
				continue
			}
			if ev, ok := tbl.LookupKey(keyCode); ok {
				st.Dispatch(ev, action.SourceKeyboard)
				if ev.Action == action.ActionQuit {
					shutdown()
					return
				}
			}
		}
	}
}

// midiOutAdapter satisfies midiclock.Sender; a nil *midiio.OutPort means no
// output device was configured, in which case clock emission is a no-op.
type midiOutAdapter struct{ out *midiio.OutPort }

func (a midiOutAdapter) SendClock() {
	if a.out != nil {
		a.out.SendClock()
	}
}
func (a midiOutAdapter) SendStart() {
	if a.out != nil {
		a.out.SendStart()
	}
}
func (a midiOutAdapter) SendStop() {
	if a.out != nil {
		a.out.SendStop()
	}
}
func (a midiOutAdapter) SendContinue() {
	if a.out != nil {
		a.out.SendContinue()
	}
}
func (a midiOutAdapter) SendSPP(spp int) {
	if a.out != nil {
		a.out.SendSPP(spp)
	}
}
