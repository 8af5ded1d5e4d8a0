// Package round implements one battle round's lockstep bookkeeping: the
// input-delay window, the pending-local-input FIFO, the confirmed
// input-pair queue, and the flags that gate the first-commit and
// input-injection steps of the primary's main_read_joyflags trap.
package round

import (
	"fmt"

	"nitro-core-dx/internal/netinput"
)

// DesyncError reports a fatal lockstep inconsistency: two ticks that
// were expected to agree did not. Per spec.md §7, this always aborts
// the match — there is no retry at this layer.
type DesyncError struct {
	Context string
	Want    uint32
	Got     uint32
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("%s: tick mismatch: want %d, got %d", e.Context, e.Want, e.Got)
}

// Round holds everything one battle round accumulates between its first
// committed state and its end: the local/remote player indices (flipped
// every round by the previous round's winner), the current emulator
// tick, the input-delay window, the first committed savestate pair
// (primary + shadow), a pending-local-input FIFO, and a queue of
// confirmed input pairs ready to be drained by the fastforwarder.
type Round struct {
	LocalPlayerIndex  uint8
	RemotePlayerIndex uint8
	InputDelay        uint32

	CurrentTick uint32

	hasCommittedState bool
	committedState    []byte
	shadowCommitted   []byte

	pendingLocal []netinput.Input
	confirmed    []netinput.Pair[netinput.Input, netinput.Input]
	lastInput    *netinput.Pair[netinput.Input, netinput.Input]
}

// New builds a fresh round. localPlayerIndex and its complement must sum
// to 1, per spec.md's invariant.
func New(localPlayerIndex uint8, inputDelay uint32) *Round {
	return &Round{
		LocalPlayerIndex:  localPlayerIndex,
		RemotePlayerIndex: 1 - localPlayerIndex,
		InputDelay:        inputDelay,
	}
}

// HasCommittedState reports whether the round has captured its anchor
// savestate yet.
func (r *Round) HasCommittedState() bool { return r.hasCommittedState }

// SetFirstCommittedState records the primary's and the shadow's first
// committed savestates and fills the input-delay window with
// zero-joyflags placeholders, per spec.md §4.3 step 1.
func (r *Round) SetFirstCommittedState(primaryState, shadowState []byte) {
	r.committedState = primaryState
	r.shadowCommitted = shadowState
	r.hasCommittedState = true
	r.FillInputDelay(r.CurrentTick)
}

// CommittedState returns the round's anchor savestate for the
// fastforwarder. It is never cleared until round end, per invariant.
func (r *Round) CommittedState() []byte { return r.committedState }

// ShadowCommittedState returns the shadow's matching anchor savestate.
func (r *Round) ShadowCommittedState() []byte { return r.shadowCommitted }

// FillInputDelay pushes input_delay ticks' worth of zero-joyflags
// placeholders into the pending-local FIFO, so the opponent has
// something to schedule against immediately.
func (r *Round) FillInputDelay(fromTick uint32) {
	for i := uint32(0); i < r.InputDelay; i++ {
		r.pendingLocal = append(r.pendingLocal, netinput.Input{
			LocalTick: fromTick + i,
			Joyflags:  0,
		})
	}
}

// AddLocalInput builds this tick's scheduled local input (current tick
// plus the delay window), appends it to the pending FIFO, and returns it
// for the caller to hand to the transport and the shadow.
func (r *Round) AddLocalInput(currentTick uint32, joyflags uint16, rx []byte) netinput.Input {
	in := netinput.Input{
		LocalTick: currentTick + r.InputDelay,
		Joyflags:  joyflags,
		RX:        rx,
	}
	r.pendingLocal = append(r.pendingLocal, in)
	return in
}

// PushConfirmed appends one newly-confirmed input pair (this side's
// queued local input matched against the remote's arrival) to the
// confirmed queue, validating the tick-equality invariant first.
func (r *Round) PushConfirmed(local, remote netinput.Input) error {
	if local.LocalTick != remote.LocalTick {
		return &DesyncError{Context: "confirmed input pair", Want: local.LocalTick, Got: remote.LocalTick}
	}
	r.confirmed = append(r.confirmed, netinput.Pair[netinput.Input, netinput.Input]{Local: local, Remote: remote})
	return nil
}

// ConfirmedUpTo drains and returns every confirmed pair whose local tick
// is <= tick, in arrival order, leaving later pairs queued.
func (r *Round) ConfirmedUpTo(tick uint32) []netinput.Pair[netinput.Input, netinput.Input] {
	i := 0
	for i < len(r.confirmed) && r.confirmed[i].Local.LocalTick <= tick {
		i++
	}
	out := r.confirmed[:i]
	r.confirmed = r.confirmed[i:]
	return out
}

// TakeLastInput pops and returns the most recently confirmed pair
// consumed by copy_input_data_entry's RX-packet write, or nil if none is
// pending.
func (r *Round) TakeLastInput() *netinput.Pair[netinput.Input, netinput.Input] {
	ip := r.lastInput
	r.lastInput = nil
	return ip
}

// SetLastInput records the pair that copy_input_data_entry should next
// consume.
func (r *Round) SetLastInput(ip netinput.Pair[netinput.Input, netinput.Input]) {
	r.lastInput = &ip
}

// PendingLocalLen reports the depth of the local input FIFO, mostly
// useful for tests asserting the input-delay window was filled.
func (r *Round) PendingLocalLen() int { return len(r.pendingLocal) }
