// Package netinput holds the wire-level input types exchanged between
// peers and threaded through the lockstep queue. It is distinct from
// internal/input, which models the emulator's own controller latch
// register; this package models what gets scheduled, transported, and
// replayed.
package netinput

// ReservedJoyflagsMask covers the top six bits of the joyflags word,
// which the emulator's joypad register always expects set to 1.
const ReservedJoyflagsMask = 0xFC00

// Input is one peer's contribution for a single scheduled tick: the
// local controller state plus the raw "received packet" bytes handed to
// the other side's copy-input routine.
type Input struct {
	LocalTick  uint32
	RemoteTick uint32
	Joyflags   uint16
	RX         []byte
}

// BakedJoyflags ORs in the reserved high bits the emulator always
// expects set, matching spec.md's "bits 10..15 always set to 1 when
// written into the emulator's joypad register."
func (in Input) BakedJoyflags() uint16 {
	return in.Joyflags | ReservedJoyflagsMask
}

// Pair couples a local and a remote value of (possibly different)
// types, matching spec.md's Pair<L,R>. The lockstep queue trades in
// Pair[Input, Input].
type Pair[L any, R any] struct {
	Local  L
	Remote R
}
