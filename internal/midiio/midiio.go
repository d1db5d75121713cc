// Package midiio wraps gitlab.com/gomidi/midi/v2 for the two MIDI surfaces
// this system drives: outbound clock/transport/SPP/note bytes, and inbound
// clock/SPP/CC/note messages. It is adapted from the teacher's device
// wrapper and note-scheduler, generalized from a single fuzzy-named output
// device into independent input and output ports.
package midiio

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// Transport status bytes.
const (
	StatusTimingClock = 0xF8
	StatusStart       = 0xFA
	StatusContinue    = 0xFB
	StatusStop        = 0xFC
)

// OutPort is an opened MIDI output device. Send methods are safe for
// concurrent use; the clock thread and the dispatch layer both send
// through the same port.
type OutPort struct {
	mu      sync.Mutex
	name    string
	out     drivers.Out
	opened  bool
	notesOn map[uint8]uint8 // note -> channel, for Close's panic-free note-off sweep
}

// OutDevices lists available output port names, for config/UI selection.
func OutDevices() []string {
	var names []string
	for _, o := range midi.GetOutPorts() {
		names = append(names, o.String())
	}
	return names
}

// InDevices lists available input port names.
func InDevices() []string {
	var names []string
	for _, in := range midi.GetInPorts() {
		names = append(names, in.String())
	}
	return names
}

// findOutByFuzzyName resolves a configured device name against the live
// port list, tolerating vendor suffixes the OS may append.
func findOutByFuzzyName(name string) (string, error) {
	names := OutDevices()
	words := strings.Fields(name)
	if len(words) > 3 {
		words = words[:3]
	}
	truncated := strings.Join(words, " ")
	for _, n := range names {
		if strings.EqualFold(n, truncated) {
			return n, nil
		}
	}
	for _, n := range names {
		if strings.HasPrefix(strings.ToLower(n), strings.ToLower(truncated)) {
			return n, nil
		}
	}
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), strings.ToLower(truncated)) {
			return n, nil
		}
	}
	return "", fmt.Errorf("midiio: no output port matches %q", name)
}

// OpenOut opens an output port by (possibly fuzzy) name.
func OpenOut(name string) (*OutPort, error) {
	resolved, err := findOutByFuzzyName(name)
	if err != nil {
		return nil, err
	}
	out, err := midi.FindOutPort(resolved)
	if err != nil {
		return nil, fmt.Errorf("midiio: find output port %q: %w", resolved, err)
	}
	if err := out.Open(); err != nil {
		return nil, fmt.Errorf("midiio: open output port %q: %w", resolved, err)
	}
	return &OutPort{name: resolved, out: out, opened: true, notesOn: make(map[uint8]uint8)}, nil
}

func (p *OutPort) send(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.opened {
		return
	}
	if err := p.out.Send(b); err != nil {
		log.Printf("midiio: send to %s failed: %v", p.name, err)
	}
}

// SendClock emits one 24-PPQN timing clock pulse.
func (p *OutPort) SendClock() { p.send([]byte{StatusTimingClock}) }

// SendStart/SendStop/SendContinue emit MIDI transport bytes.
func (p *OutPort) SendStart()    { p.send([]byte{StatusStart}) }
func (p *OutPort) SendStop()     { p.send([]byte{StatusStop}) }
func (p *OutPort) SendContinue() { p.send([]byte{StatusContinue}) }

// SendSPP emits a Song Position Pointer message for the given 14-bit spp
// value.
func (p *OutPort) SendSPP(spp int) {
	if spp < 0 {
		spp = 0
	}
	if spp > 0x3FFF {
		spp = 0x3FFF
	}
	lsb := byte(spp & 0x7F)
	msb := byte((spp >> 7) & 0x7F)
	p.send([]byte{0xF2, lsb, msb})
}

// SendNoteOn/SendNoteOff send channel voice messages for trigger-pad note
// output.
func (p *OutPort) SendNoteOn(channel, note, velocity uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.opened {
		return
	}
	if err := p.out.Send([]byte{0x90 | channel, note, velocity}); err != nil {
		log.Printf("midiio: note-on to %s failed: %v", p.name, err)
		return
	}
	p.notesOn[note] = channel
}

func (p *OutPort) SendNoteOff(channel, note uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.opened {
		return
	}
	if err := p.out.Send([]byte{0x80 | channel, note, 0}); err != nil {
		log.Printf("midiio: note-off to %s failed: %v", p.name, err)
		return
	}
	delete(p.notesOn, note)
}

// SendCC sends a control-change message, used for continuous bindings
// driven the opposite direction (app -> controller feedback LEDs, etc.).
func (p *OutPort) SendCC(channel, cc, value uint8) {
	p.send([]byte{0xB0 | channel, cc, value})
}

// SendProgramChange sends a program change, used by pad note_program.
func (p *OutPort) SendProgramChange(channel, program uint8) {
	p.send([]byte{0xC0 | channel, program})
}

// Close sends note-off for every note this port turned on, then closes it.
func (p *OutPort) Close() error {
	p.mu.Lock()
	notes := make(map[uint8]uint8, len(p.notesOn))
	for n, ch := range p.notesOn {
		notes[n] = ch
	}
	p.mu.Unlock()
	for note, ch := range notes {
		p.SendNoteOff(ch, note)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.opened {
		return nil
	}
	p.opened = false
	return p.out.Close()
}

// InPort is an opened MIDI input device delivering decoded messages via
// Handlers. Handlers fire on gomidi's own listener goroutine; they must be
// short, matching the audio-thread discipline observed elsewhere.
type InPort struct {
	in   drivers.In
	stop func()

	OnClock    func()
	OnStart    func()
	OnStop     func()
	OnContinue func()
	OnSPP      func(spp int)
	OnCC       func(channel, cc, value uint8)
	OnNoteOn   func(channel, note, velocity uint8)
	OnNoteOff  func(channel, note uint8)
}

func OpenIn(name string) (*InPort, error) {
	in, err := midi.FindInPort(name)
	if err != nil {
		return nil, fmt.Errorf("midiio: find input port %q: %w", name, err)
	}
	if err := in.Open(); err != nil {
		return nil, fmt.Errorf("midiio: open input port %q: %w", name, err)
	}
	p := &InPort{in: in}
	stop, err := midi.ListenTo(in, p.onMessage)
	if err != nil {
		in.Close()
		return nil, fmt.Errorf("midiio: listen on %q: %w", name, err)
	}
	p.stop = stop
	return p, nil
}

func (p *InPort) onMessage(msg midi.Message, _ int32) {
	switch msg.Type() {
	case midi.TimingClockMsg:
		if p.OnClock != nil {
			p.OnClock()
		}
	case midi.StartMsg:
		if p.OnStart != nil {
			p.OnStart()
		}
	case midi.StopMsg:
		if p.OnStop != nil {
			p.OnStop()
		}
	case midi.ContinueMsg:
		if p.OnContinue != nil {
			p.OnContinue()
		}
	case midi.SPPMsg:
		var spp uint16
		if msg.GetSongPositionPointer(&spp) && p.OnSPP != nil {
			p.OnSPP(int(spp))
		}
	case midi.ControlChangeMsg:
		var ch, cc, val uint8
		if msg.GetControlChange(&ch, &cc, &val) && p.OnCC != nil {
			p.OnCC(ch, cc, val)
		}
	case midi.NoteOnMsg:
		var ch, key, vel uint8
		if msg.GetNoteOn(&ch, &key, &vel) {
			if vel == 0 && p.OnNoteOff != nil {
				p.OnNoteOff(ch, key) // note-on velocity 0 is a note-off per MIDI convention
			} else if p.OnNoteOn != nil {
				p.OnNoteOn(ch, key, vel)
			}
		}
	case midi.NoteOffMsg:
		var ch, key, vel uint8
		if msg.GetNoteOff(&ch, &key, &vel) && p.OnNoteOff != nil {
			p.OnNoteOff(ch, key)
		}
	}
}

func (p *InPort) Close() error {
	if p.stop != nil {
		p.stop()
	}
	return p.in.Close()
}
