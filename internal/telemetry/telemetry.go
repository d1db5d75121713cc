// Package telemetry publishes read-only status broadcasts over OSC, using
// the same github.com/hypebeast/go-osc client the teacher used to drive an
// external synth engine. Here the direction is purely outbound and
// advisory: transport/mix/clock state for an external monitor or light
// show, never anything the decoder depends on, and throttled so it never
// competes with the audio or MIDI threads for attention.
package telemetry

import (
	"sync"
	"time"

	"github.com/hypebeast/go-osc/osc"
)

// Publisher sends throttled OSC broadcasts to a configured host:port.
type Publisher struct {
	client   *osc.Client
	throttle time.Duration
	mu       sync.Mutex
	lastSent map[string]time.Time
}

// New opens an OSC client targeting host:port. No handshake is performed;
// go-osc messages are fire-and-forget UDP.
func New(host string, port int, throttle time.Duration) *Publisher {
	if throttle <= 0 {
		throttle = 50 * time.Millisecond
	}
	return &Publisher{
		client:   osc.NewClient(host, port),
		throttle: throttle,
		lastSent: make(map[string]time.Time),
	}
}

func (p *Publisher) allow(address string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	if last, ok := p.lastSent[address]; ok && now.Sub(last) < p.throttle {
		return false
	}
	p.lastSent[address] = now
	return true
}

// Transport broadcasts playing/recording/order/row state at "/regroove/transport".
func (p *Publisher) Transport(playing, recording bool, order, row int) {
	if !p.allow("/regroove/transport") {
		return
	}
	msg := osc.NewMessage("/regroove/transport")
	msg.Append(playing)
	msg.Append(recording)
	msg.Append(int32(order))
	msg.Append(int32(row))
	p.client.Send(msg)
}

// Mix broadcasts the three bus volumes/pans at "/regroove/mix".
func (p *Publisher) Mix(masterVol, masterPan, playbackVol, playbackPan, inputVol, inputPan float64) {
	if !p.allow("/regroove/mix") {
		return
	}
	msg := osc.NewMessage("/regroove/mix")
	msg.Append(float32(masterVol))
	msg.Append(float32(masterPan))
	msg.Append(float32(playbackVol))
	msg.Append(float32(playbackPan))
	msg.Append(float32(inputVol))
	msg.Append(float32(inputPan))
	p.client.Send(msg)
}

// Clock broadcasts effective BPM and beat phase at "/regroove/clock".
func (p *Publisher) Clock(effectiveBPM float64, beatPhase float64) {
	if !p.allow("/regroove/clock") {
		return
	}
	msg := osc.NewMessage("/regroove/clock")
	msg.Append(float32(effectiveBPM))
	msg.Append(float32(beatPhase))
	p.client.Send(msg)
}

// Note broadcasts a single triggered note at "/regroove/note", unthrottled
// so fast-moving note events aren't dropped.
func (p *Publisher) Note(channel, note, instrument, volume int) {
	msg := osc.NewMessage("/regroove/note")
	msg.Append(int32(channel))
	msg.Append(int32(note))
	msg.Append(int32(instrument))
	msg.Append(int32(volume))
	p.client.Send(msg)
}
