// Package diag implements the error-handling design:
// five error kinds with different surfacing/recovery policies, logged as
// structured JSON lines to stderr via github.com/json-iterator/go (the
// teacher's serialization library, repurposed here from save-file encoding
// to diagnostics) so operators can grep/ingest failures without a custom
// parser.
package diag

import (
	"log"
	"os"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Kind is one of the five error categories, each with its
// own recovery policy.
type Kind string

const (
	KindSetup      Kind = "setup"         // audio/MIDI open, file missing
	KindLoad       Kind = "load"          // invalid module, corrupt RGX
	KindFullBuffer Kind = "full_buffer"   // timeline/monitor buffer full
	KindTransient  Kind = "transient"     // capture underrun
	KindParseWarn  Kind = "parse_warning" // unknown action in INI/RGX
)

type entry struct {
	Time    string `json:"time"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Fatal   bool   `json:"fatal,omitempty"`
}

var logger = log.New(os.Stderr, "", 0)

func emit(k Kind, msg string, fatal bool) {
	e := entry{Time: time.Now().UTC().Format(time.RFC3339Nano), Kind: k, Message: msg, Fatal: fatal}
	line, err := jsonAPI.Marshal(e)
	if err != nil {
		logger.Printf(`{"kind":"diag_internal","message":%q}`, err.Error())
		return
	}
	logger.Println(string(line))
}

// Setup logs a setup error (audio/MIDI open, file missing). fatal==true
// means the caller must exit non-zero (e.g. no audio device); fatal==false
// means the feature degrades but the app keeps running (e.g. no MIDI port).
func Setup(msg string, fatal bool) { emit(KindSetup, msg, fatal) }

// Load logs a load error: the single load operation fails but the process
// keeps running on its previous state.
func Load(msg string) { emit(KindLoad, msg, false) }

// episodeTracker tracks which overflow episodes have already logged, so a
// sustained full-buffer condition logs once per episode rather than once
// per dropped event.
type episodeTracker struct {
	mu     sync.Mutex
	active map[string]bool
}

var fullBufferTracker = &episodeTracker{active: map[string]bool{}}

// FullBufferBegin logs once when a full-buffer condition starts; repeated
// calls for the same name before FullBufferEnd are no-ops.
func FullBufferBegin(name string) {
	fullBufferTracker.mu.Lock()
	already := fullBufferTracker.active[name]
	fullBufferTracker.active[name] = true
	fullBufferTracker.mu.Unlock()
	if !already {
		emit(KindFullBuffer, name+": buffer full, dropping new events", false)
	}
}

// FullBufferEnd clears the episode marker so a future overflow logs again.
func FullBufferEnd(name string) {
	fullBufferTracker.mu.Lock()
	delete(fullBufferTracker.active, name)
	fullBufferTracker.mu.Unlock()
}

// Transient logs a transient stream error (capture underrun); the caller
// has already degraded to a short read / substituted silence.
func Transient(msg string) { emit(KindTransient, msg, false) }

// ParseWarning logs an ignorable parse warning (unknown action in INI/RGX);
// the caller skips that one binding and continues loading the rest.
func ParseWarning(msg string) { emit(KindParseWarn, msg, false) }
