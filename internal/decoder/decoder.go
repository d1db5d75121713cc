// Package decoder defines the tracker-module decoder boundary and provides
// one concrete implementation (modsong) so the orchestration layers above
// it (transport, performance, phrase, mixgraph) have a real collaborator to
// drive in tests. The decoder's own synthesis algorithm exists only so the
// rest of the system is exercisable end to end.
package decoder

// QueuedJumpType mirrors the decoder-owned pending-jump state.
type QueuedJumpType int

const (
	QueueNone QueuedJumpType = iota
	QueueNextOrder
	QueuePrevOrder
	QueueOrder
	QueuePattern
)

// QueuedChannelAction mirrors per-channel pending mute/solo.
type QueuedChannelAction int

const (
	QueueChannelNone QueuedChannelAction = iota
	QueueChannelMute
	QueueChannelSolo
)

// LoopState mirrors the armed/active loop lifecycle.
type LoopState int

const (
	LoopOff LoopState = iota
	LoopArmed
	LoopActive
)

// Callbacks are invoked synchronously from the same goroutine that calls
// RenderAudio/ProcessCommands, never from a separate thread, so callers
// must keep them allocation-free and O(channels).
type Callbacks struct {
	OnRowChange   func(order, row int)
	OnOrderChange func(order, pattern int)
	OnLoopPattern func()
	OnLoopSong    func()
	OnNote        func(ch, note, instr, vol int, effCmd, effParam byte)
}

// Decoder is the external collaborator interface. It is intentionally
// non-reentrant for a given instance: the audio callback is its sole
// render caller.
type Decoder interface {
	Load(path string, cb Callbacks) error

	RenderAudio(out []int16, frames int)
	SetPitch(factor float64)

	CurrentBPM() float64
	CurrentSpeed() int
	CurrentOrder() int
	CurrentPattern() int
	CurrentRow() int

	NumOrders() int
	NumPatterns() int
	NumChannels() int
	OrderPattern(order int) int
	PatternNumRows(pattern int) int
	FullPatternRows() int

	SetChannelPanning(ch int, pan float64)
	ChannelPanning(ch int) float64
	SetChannelVolume(ch int, vol float64)
	ChannelVolume(ch int) float64
	ToggleChannelMute(ch int)
	ToggleChannelSolo(ch int)
	IsChannelMuted(ch int) bool
	MuteAll()
	UnmuteAll()

	JumpToOrder(order int)
	JumpToPattern(pattern int)
	QueueNextOrder()
	QueuePrevOrder()
	QueueOrder(order int)
	QueuePattern(pattern int)
	SetPatternMode(enabled bool)
	RetriggerPattern()

	SetCustomLoopRows(rows int)
	CustomLoopRows() int
	SetLoopRange(startOrder, startRow, endOrder, endRow int)
	LoopRange() (startOrder, startRow, endOrder, endRow int)
	TriggerLoop()
	PlayToLoop()
	LoopState() LoopState

	HasPendingMuteChanges() bool
	PendingChannelMute(ch int) QueuedChannelAction
	QueuedActionForChannel(ch int) QueuedChannelAction
	QueueChannelAction(ch int, act QueuedChannelAction)
	QueuedJumpType() QueuedJumpType
	QueuedOrder() int
	ClearPendingJump()

	// ProcessCommands advances any deferred decoder-owned state (queued
	// jumps/mutes, armed loops) that should commit on this row boundary
	// and fires the registered callbacks. Called once per row from the
	// render path.
	ProcessCommands()
}
